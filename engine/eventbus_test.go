package engine

import "testing"

func TestEventBus_FilterAndUnsubscribe(t *testing.T) {
	eb := NewEventBus()
	var all, builds int
	id := eb.Subscribe(func(Event) { all++ })
	eb.SubscribeTypes(func(Event) { builds++ }, EventBuildComplete)

	eb.Emit(Event{Type: EventBuildComplete, Payload: BuildCompleteEvent{}})
	eb.Emit(Event{Type: EventConfigChanged, Payload: ConfigChangedEvent{}})
	eb.Unsubscribe(id)
	eb.Emit(Event{Type: EventBuildComplete, Payload: BuildCompleteEvent{}})

	if all != 2 {
		t.Errorf("all = %d, want 2", all)
	}
	if builds != 2 {
		t.Errorf("builds = %d, want 2", builds)
	}
}

func TestEventBus_PanickingSubscriber(t *testing.T) {
	eb := NewEventBus()
	reached := false
	eb.Subscribe(func(Event) { panic("boom") })
	eb.Subscribe(func(Event) { reached = true })

	eb.Emit(Event{Type: EventProcessExited, Payload: ProcessEvent{}})
	if !reached {
		t.Error("second subscriber not called after panic")
	}
}

func TestEventTypeString(t *testing.T) {
	if got := EventBuildComplete.String(); got != "build_complete" {
		t.Errorf("String() = %q", got)
	}
	if got := EventType(999).String(); got != "unknown" {
		t.Errorf("String() = %q", got)
	}
}
