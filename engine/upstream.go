package engine

import (
	"context"
	"encoding/json"
	"time"

	"rmfconsole/metrics"
	"rmfconsole/rmf"
)

// timedLister records upstream latency for the relay's REST lookups.
type timedLister struct {
	client  *rmf.Client
	metrics *metrics.Recorder
}

func (l *timedLister) ListFleets(ctx context.Context) ([]rmf.FleetState, error) {
	start := time.Now()
	fleets, err := l.client.ListFleets(ctx)
	l.metrics.ObserveUpstream("fleets", time.Since(start), err)
	return fleets, err
}

func (l *timedLister) ListTasks(ctx context.Context) ([]rmf.TaskRecord, error) {
	start := time.Now()
	tasks, err := l.client.ListTasks(ctx)
	l.metrics.ObserveUpstream("tasks", time.Since(start), err)
	return tasks, err
}

// ListTasksRaw returns the upstream task records that pass validation,
// unchanged.
func (e *Engine) ListTasksRaw(ctx context.Context) ([]json.RawMessage, error) {
	start := time.Now()
	tasks, err := e.rmf.ListTasksRaw(ctx)
	e.metrics.ObserveUpstream("tasks", time.Since(start), err)
	return tasks, err
}

// ListFleetsRaw returns the upstream fleet states that pass validation,
// unchanged.
func (e *Engine) ListFleetsRaw(ctx context.Context) ([]json.RawMessage, error) {
	start := time.Now()
	fleets, err := e.rmf.ListFleetsRaw(ctx)
	e.metrics.ObserveUpstream("fleets", time.Since(start), err)
	return fleets, err
}

// DispatchTask posts a single-place task request upstream.
func (e *Engine) DispatchTask(ctx context.Context, taskType, destination, actor string) error {
	req := rmf.NewDispatchTaskRequest(taskType, destination, time.Now())
	start := time.Now()
	err := e.rmf.DispatchTask(ctx, req)
	e.metrics.ObserveUpstream("dispatch_task", time.Since(start), err)
	if err != nil {
		return err
	}
	e.Events.Emit(Event{Type: EventTaskDispatched, Payload: TaskDispatchedEvent{
		Category:    taskType,
		Destination: destination,
		Actor:       actor,
	}})
	return nil
}
