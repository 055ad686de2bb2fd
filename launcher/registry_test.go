package launcher

import (
	"errors"
	"syscall"
	"testing"
	"time"
)

func testRegistry(t *testing.T, targets ...Target) (*Registry, chan Exit) {
	t.Helper()
	r := NewRegistry(targets...)
	exits := make(chan Exit, 8)
	r.SetExitHook(func(e Exit) { exits <- e })
	t.Cleanup(func() { r.StopAll(2 * time.Second) })
	return r, exits
}

func waitExit(t *testing.T, exits chan Exit) Exit {
	t.Helper()
	select {
	case e := <-exits:
		return e
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for exit")
	}
	return Exit{}
}

func TestStart_AlreadyRunningIsNoop(t *testing.T) {
	r, _ := testRegistry(t, Target{Name: TargetROS, Command: "sleep 5", StopSignal: syscall.SIGINT})

	pid1, started, err := r.Start(TargetROS)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !started {
		t.Fatal("first start should spawn")
	}
	pid2, started, err := r.Start(TargetROS)
	if err != nil {
		t.Fatalf("second Start: %v", err)
	}
	if started {
		t.Error("second start should not spawn")
	}
	if pid2 != pid1 {
		t.Errorf("pid = %d, want existing %d", pid2, pid1)
	}

	running := 0
	for _, s := range r.Status() {
		if s.State == StateRunning {
			running++
		}
	}
	if running != 1 {
		t.Errorf("running handles = %d, want 1", running)
	}
}

func TestExitHookReceivesCode(t *testing.T) {
	r, exits := testRegistry(t, Target{Name: TargetBuild, Command: "echo building; exit 3", LogOutput: true})

	if _, _, err := r.Start(TargetBuild); err != nil {
		t.Fatalf("Start: %v", err)
	}
	e := waitExit(t, exits)
	if e.Name != TargetBuild || e.Code != 3 {
		t.Errorf("exit = %+v, want build/3", e)
	}
	if r.Running(TargetBuild) {
		t.Error("build should be idle after exit")
	}
}

func TestStartWithArgs(t *testing.T) {
	r, exits := testRegistry(t, Target{Name: TargetBuild, Command: "test"})

	if _, _, err := r.Start(TargetBuild, "rmf_maps"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	// `test rmf_maps` succeeds because the string is non-empty.
	e := waitExit(t, exits)
	if e.Code != 0 {
		t.Errorf("code = %d, want 0", e.Code)
	}
	if len(e.Args) != 1 || e.Args[0] != "rmf_maps" {
		t.Errorf("args = %v, want [rmf_maps]", e.Args)
	}

	_, _, err := r.Start(TargetBuild, "pkg; rm -rf /")
	if !errors.Is(err, ErrInvalidArg) {
		t.Errorf("err = %v, want ErrInvalidArg", err)
	}
}

func TestStopMarksIdleImmediately(t *testing.T) {
	r, exits := testRegistry(t, Target{Name: TargetEditor, Command: "sleep 30"})

	if _, _, err := r.Start(TargetEditor); err != nil {
		t.Fatalf("Start: %v", err)
	}
	stopped, err := r.Stop(TargetEditor)
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if !stopped {
		t.Error("Stop should report a live process")
	}
	if r.Running(TargetEditor) {
		t.Error("target should be idle right after Stop")
	}
	e := waitExit(t, exits)
	if e.Code != -1 {
		t.Errorf("code = %d, want -1 for a signalled process", e.Code)
	}

	stopped, err = r.Stop(TargetEditor)
	if err != nil || stopped {
		t.Errorf("Stop on idle = %v, %v; want false, nil", stopped, err)
	}
}

func TestRestartSuppressesStaleExit(t *testing.T) {
	r, exits := testRegistry(t, Target{Name: TargetROS, Command: "sleep 30", StopSignal: syscall.SIGINT})

	oldPID, _, err := r.Start(TargetROS)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	r.Stop(TargetROS)
	newPID, started, err := r.Start(TargetROS)
	if err != nil || !started {
		t.Fatalf("restart = %v, %v", started, err)
	}

	// Wait for the stopped process to be reaped, then give its exit handler
	// time to run.
	deadline := time.Now().Add(5 * time.Second)
	for syscall.Kill(oldPID, 0) == nil {
		if time.Now().After(deadline) {
			t.Fatalf("pid %d still alive after stop", oldPID)
		}
		time.Sleep(20 * time.Millisecond)
	}
	time.Sleep(200 * time.Millisecond)

	select {
	case e := <-exits:
		t.Fatalf("stale exit reported while the new process runs: %+v", e)
	default:
	}
	if !r.Running(TargetROS) {
		t.Error("exit of the stopped process cleared the new handle")
	}

	r.Stop(TargetROS)
	e := waitExit(t, exits)
	if e.PID != newPID {
		t.Errorf("exit pid = %d, want %d", e.PID, newPID)
	}
}

func TestUnknownTarget(t *testing.T) {
	r, _ := testRegistry(t)
	if _, _, err := r.Start("docker"); !errors.Is(err, ErrUnknownTarget) {
		t.Errorf("Start err = %v, want ErrUnknownTarget", err)
	}
	if _, err := r.Stop("docker"); !errors.Is(err, ErrUnknownTarget) {
		t.Errorf("Stop err = %v, want ErrUnknownTarget", err)
	}
}

func TestNoCommand(t *testing.T) {
	r, _ := testRegistry(t, Target{Name: TargetROSSecondary})
	if _, _, err := r.Start(TargetROSSecondary); !errors.Is(err, ErrNoCommand) {
		t.Errorf("err = %v, want ErrNoCommand", err)
	}
}
