// Package launcher tracks at most one live process per named launch target.
package launcher

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log"
	"os/exec"
	"regexp"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"
)

// Launch target names.
const (
	TargetROS          = "ros"
	TargetROSSecondary = "ros_secondary"
	TargetBuild        = "build"
	TargetEditor       = "traffic_editor"
)

var (
	ErrUnknownTarget = errors.New("unknown launch target")
	ErrNoCommand     = errors.New("launch target has no command configured")
	ErrInvalidArg    = errors.New("invalid command argument")
)

var argPattern = regexp.MustCompile(`^[A-Za-z0-9_.\-/]+$`)

type State string

const (
	StateIdle    State = "idle"
	StateRunning State = "running"
)

// Target describes how to run one named process.
type Target struct {
	Name    string
	Command string
	Dir     string
	// StopSignal is sent to the process group on Stop. Defaults to SIGTERM.
	StopSignal syscall.Signal
	// LogOutput streams stdout/stderr to the log instead of discarding it.
	LogOutput bool
}

// Status is a snapshot of one target.
type Status struct {
	Name      string     `json:"name"`
	State     State      `json:"state"`
	PID       int        `json:"pid,omitempty"`
	Command   string     `json:"command"`
	StartedAt *time.Time `json:"started_at,omitempty"`
}

// Exit describes a finished process. Code is the exit status, or -1 when the
// process was killed by a signal.
type Exit struct {
	Name string
	PID  int
	Args []string
	Code int
}

// ExitFunc is called once a process exits on its own or after Stop. It is not
// called for a process whose target has since been started again.
type ExitFunc func(Exit)

type handle struct {
	cmd     *exec.Cmd
	args    []string
	started time.Time
}

type Registry struct {
	mu      sync.Mutex
	targets map[string]Target
	live    map[string]*handle
	// latest is the most recently spawned handle per target, live or stopping.
	latest map[string]*handle
	onExit ExitFunc
	wg     sync.WaitGroup
}

func NewRegistry(targets ...Target) *Registry {
	r := &Registry{
		targets: make(map[string]Target),
		live:    make(map[string]*handle),
		latest:  make(map[string]*handle),
	}
	for _, t := range targets {
		if t.StopSignal == 0 {
			t.StopSignal = syscall.SIGTERM
		}
		r.targets[t.Name] = t
	}
	return r
}

// SetExitHook installs the callback run when a process exits.
func (r *Registry) SetExitHook(fn ExitFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onExit = fn
}

// Start spawns the target's command with args appended. When the target is
// already running nothing is spawned and started is false.
func (r *Registry) Start(name string, args ...string) (pid int, started bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.targets[name]
	if !ok {
		return 0, false, fmt.Errorf("%s: %w", name, ErrUnknownTarget)
	}
	if h, ok := r.live[name]; ok {
		log.Printf("launcher: %s already running (pid %d), ignoring start", name, h.cmd.Process.Pid)
		return h.cmd.Process.Pid, false, nil
	}
	if strings.TrimSpace(t.Command) == "" {
		return 0, false, fmt.Errorf("%s: %w", name, ErrNoCommand)
	}
	for _, a := range args {
		if !argPattern.MatchString(a) {
			return 0, false, fmt.Errorf("%s %q: %w", name, a, ErrInvalidArg)
		}
	}

	line := t.Command
	if len(args) > 0 {
		line += " " + strings.Join(args, " ")
	}
	cmd := exec.Command("sh", "-c", line)
	cmd.Dir = t.Dir
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.WaitDelay = 5 * time.Second

	var out io.ReadCloser
	if t.LogOutput {
		pr, pw := io.Pipe()
		cmd.Stdout = pw
		cmd.Stderr = pw
		out = pr
		defer func() {
			if err != nil {
				pw.Close()
			}
		}()
	}

	if err := cmd.Start(); err != nil {
		return 0, false, fmt.Errorf("start %s: %w", name, err)
	}
	h := &handle{cmd: cmd, args: append([]string(nil), args...), started: time.Now()}
	r.live[name] = h
	r.latest[name] = h
	log.Printf("launcher: started %s (pid %d): %s", name, cmd.Process.Pid, line)

	if out != nil {
		go logLines(name, out)
	}
	r.wg.Add(1)
	go r.wait(name, h)
	return cmd.Process.Pid, true, nil
}

func (r *Registry) wait(name string, h *handle) {
	defer r.wg.Done()
	err := h.cmd.Wait()
	if w, ok := h.cmd.Stdout.(*io.PipeWriter); ok {
		w.Close()
	}
	code := 0
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code = exitErr.ExitCode()
		} else {
			code = -1
		}
	}
	log.Printf("launcher: %s exited with code %d", name, code)

	r.mu.Lock()
	if r.live[name] == h {
		delete(r.live, name)
	}
	// Stop followed by a new Start replaces the handle; the old process's
	// exit must not be reported against the new one.
	current := r.latest[name] == h
	if current {
		delete(r.latest, name)
	}
	hook := r.onExit
	r.mu.Unlock()

	if !current {
		log.Printf("launcher: %s pid %d superseded, exit not reported", name, h.cmd.Process.Pid)
		return
	}
	if hook != nil {
		hook(Exit{Name: name, PID: h.cmd.Process.Pid, Args: h.args, Code: code})
	}
}

// Stop signals the target's process group and marks it idle without waiting
// for the process to exit. Reports whether anything was running.
func (r *Registry) Stop(name string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.targets[name]
	if !ok {
		return false, fmt.Errorf("%s: %w", name, ErrUnknownTarget)
	}
	h, ok := r.live[name]
	if !ok {
		return false, nil
	}
	delete(r.live, name)
	pid := h.cmd.Process.Pid
	if err := syscall.Kill(-pid, t.StopSignal); err != nil && !errors.Is(err, syscall.ESRCH) {
		return true, fmt.Errorf("signal %s: %w", name, err)
	}
	log.Printf("launcher: sent %s to %s (pid %d)", t.StopSignal, name, pid)
	return true, nil
}

// Running reports whether the target has a live process.
func (r *Registry) Running(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.live[name]
	return ok
}

// Status returns a snapshot of every target, sorted by name.
func (r *Registry) Status() []Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Status, 0, len(r.targets))
	for name, t := range r.targets {
		s := Status{Name: name, State: StateIdle, Command: t.Command}
		if h, ok := r.live[name]; ok {
			started := h.started
			s.State = StateRunning
			s.PID = h.cmd.Process.Pid
			s.StartedAt = &started
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// StopAll signals every live process and waits up to timeout for the exit
// handlers to finish.
func (r *Registry) StopAll(timeout time.Duration) {
	r.mu.Lock()
	names := make([]string, 0, len(r.live))
	for name := range r.live {
		names = append(names, name)
	}
	r.mu.Unlock()
	for _, name := range names {
		if _, err := r.Stop(name); err != nil {
			log.Printf("launcher: %v", err)
		}
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
		log.Printf("launcher: processes still running after %s", timeout)
	}
}

func logLines(name string, rc io.ReadCloser) {
	defer rc.Close()
	scanner := bufio.NewScanner(rc)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		log.Printf("%s: %s", name, scanner.Text())
	}
}
