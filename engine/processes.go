package engine

import (
	"rmfconsole/launcher"
)

// StartProcess launches a target. started is false when it was already running.
func (e *Engine) StartProcess(name, actor string, args ...string) (bool, error) {
	pid, started, err := e.launcher.Start(name, args...)
	if err != nil {
		e.logFn("engine: start %s: %v", name, err)
		return false, err
	}
	if !started {
		return false, nil
	}
	e.Events.Emit(Event{Type: EventProcessStarted, Payload: ProcessEvent{Target: name, PID: pid, Actor: actor}})
	return true, nil
}

// StopProcess signals a target. stopped is false when nothing was running.
func (e *Engine) StopProcess(name, actor string) (bool, error) {
	stopped, err := e.launcher.Stop(name)
	if err != nil {
		e.logFn("engine: stop %s: %v", name, err)
	}
	if stopped {
		e.Events.Emit(Event{Type: EventProcessStopped, Payload: ProcessEvent{Target: name, Actor: actor}})
	}
	return stopped, err
}

// BuildPackage runs the build command for one package. Completion is
// reported by EventBuildComplete.
func (e *Engine) BuildPackage(pkg, actor string) (bool, error) {
	return e.StartProcess(launcher.TargetBuild, actor, pkg)
}

// RestartROS stops the primary ROS launch and rebuilds the map package.
func (e *Engine) RestartROS(actor string) (bool, error) {
	if _, err := e.StopProcess(launcher.TargetROS, actor); err != nil {
		return false, err
	}
	return e.BuildPackage(e.cfg.Processes.MapPackage, actor)
}

func (e *Engine) ProcessStatus() []launcher.Status {
	return e.launcher.Status()
}

// handleProcessExit reports an exit. The build package comes from the
// exiting process's own arguments.
func (e *Engine) handleProcessExit(ex launcher.Exit) {
	e.Events.Emit(Event{Type: EventProcessExited, Payload: ProcessEvent{Target: ex.Name, PID: ex.PID, Code: ex.Code}})
	if ex.Name != launcher.TargetBuild {
		return
	}
	var pkg string
	if len(ex.Args) > 0 {
		pkg = ex.Args[0]
	}
	e.Events.Emit(Event{Type: EventBuildComplete, Payload: BuildCompleteEvent{Package: pkg, Code: ex.Code}})
}
