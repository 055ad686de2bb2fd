package www

import (
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
)

func TestWriteSSE_EventNameCannotForgeFrames(t *testing.T) {
	rec := httptest.NewRecorder()
	if err := writeSSE(rec, "/tasks/x\n\nevent: admin\r\ndata: pwned", `{"ok":true}`); err != nil {
		t.Fatalf("writeSSE: %v", err)
	}
	want := "event: /tasks/x" + "event: admindata: pwned\n" + `data: {"ok":true}` + "\n\n"
	if got := rec.Body.String(); got != want {
		t.Errorf("frame = %q, want %q", got, want)
	}
}

func TestWriteSSE_SplitsAllLineBreaksInData(t *testing.T) {
	rec := httptest.NewRecorder()
	if err := writeSSE(rec, "note", "a\r\nb\rc\nd"); err != nil {
		t.Fatalf("writeSSE: %v", err)
	}
	want := "event: note\ndata: a\ndata: b\ndata: c\ndata: d\n\n"
	if got := rec.Body.String(); got != want {
		t.Errorf("frame = %q, want %q", got, want)
	}
}

func TestEventHub_DropHookCountsOverflow(t *testing.T) {
	hub := NewEventHub()
	var drops atomic.Int32
	hub.SetDropHook(func() { drops.Add(1) })

	// Not started, so nothing drains the broadcast buffer.
	for i := 0; i < cap(hub.broadcast)+3; i++ {
		hub.Broadcast("tick", "{}")
	}
	if got := drops.Load(); got != 3 {
		t.Errorf("drops = %d, want 3", got)
	}
}

func TestEventHub_DropHookSetWhileRunning(t *testing.T) {
	hub := NewEventHub()
	hub.Start()
	defer hub.Stop()
	client := hub.AddClient()
	defer hub.RemoveClient(client)

	// Meaningful under -race: the hook is swapped while run delivers.
	var drops atomic.Int32
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			hub.Broadcast("tick", "{}")
		}
	}()
	go func() {
		defer wg.Done()
		hub.SetDropHook(func() { drops.Add(1) })
	}()
	wg.Wait()
	t.Logf("drops after hook install: %d", drops.Load())
}
