package engine

import (
	"fmt"

	"rmfconsole/messaging"
)

func (e *Engine) wireEventHandlers() {
	// Processes: audit, metrics and mirror
	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(ProcessEvent)
		e.metrics.ProcessStarted(ev.Target)
		e.audit("process", ev.Target, "started", fmt.Sprintf("pid=%d", ev.PID), ev.Actor)
		e.publish(messaging.TypeProcessStarted, messaging.ProcessEvent{Target: ev.Target, PID: ev.PID})
	}, EventProcessStarted)

	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(ProcessEvent)
		e.metrics.ProcessEnded(ev.Target)
		e.audit("process", ev.Target, "stopped", "", ev.Actor)
		e.publish(messaging.TypeProcessStopped, messaging.ProcessEvent{Target: ev.Target})
	}, EventProcessStopped)

	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(ProcessEvent)
		e.metrics.ProcessEnded(ev.Target)
		e.logFn("engine: %s exited with code %d", ev.Target, ev.Code)
		e.publish(messaging.TypeProcessExited, messaging.ProcessEvent{Target: ev.Target, Code: ev.Code})
	}, EventProcessExited)

	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(BuildCompleteEvent)
		e.metrics.BuildFinished(ev.Code)
		e.audit("build", ev.Package, "complete", fmt.Sprintf("code=%d", ev.Code), "system")
		e.publish(messaging.TypeBuildComplete, messaging.BuildComplete{Package: ev.Package, Code: ev.Code})
	}, EventBuildComplete)

	// Config writes
	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(ConfigWrittenEvent)
		e.metrics.ConfigWritten(ev.Action)
		e.audit("config", ev.Filename, ev.Action, "", ev.Actor)
		e.publish(messaging.TypeConfigWritten, messaging.ConfigWritten{Filename: ev.Filename, Action: ev.Action})
	}, EventConfigWritten)

	// Dispatch
	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(TaskDispatchedEvent)
		e.logFn("engine: dispatched %s task to %s", ev.Category, ev.Destination)
		e.audit("task", ev.Destination, "dispatched", ev.Category, ev.Actor)
		e.publish(messaging.TypeTaskDispatched, messaging.TaskDispatched{Category: ev.Category, Destination: ev.Destination})
	}, EventTaskDispatched)

	// Connection changes: log
	e.Events.SubscribeTypes(func(evt Event) {
		ev := evt.Payload.(ConnectionEvent)
		e.logFn("engine: %s: %s", evt.Type, ev.Detail)
	}, EventUpstreamConnected, EventUpstreamDisconnected, EventMessagingConnected, EventMessagingDisconnected)
}

func (e *Engine) audit(entityType, entityID, action, detail, actor string) {
	if e.db == nil {
		return
	}
	if actor == "" {
		actor = "system"
	}
	if err := e.db.AppendAudit(entityType, entityID, action, detail, actor); err != nil {
		e.logFn("engine: audit %s %s: %v", entityType, action, err)
	}
}

func (e *Engine) publish(msgType string, payload any) {
	if e.publisher == nil {
		return
	}
	e.publisher.Publish(msgType, payload)
}
