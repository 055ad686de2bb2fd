package www

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"rmfconsole/engine"
	"rmfconsole/relay"
)

type SSEEvent struct {
	Event string
	Data  string
}

// EventHub fans engine events out to every connected browser. Upstream
// room updates do not pass through the hub; each browser gets them from its
// own relay session.
type EventHub struct {
	mu        sync.RWMutex
	clients   map[chan SSEEvent]struct{}
	broadcast chan SSEEvent
	stopChan  chan struct{}
	onDrop    atomic.Pointer[func()]
}

func NewEventHub() *EventHub {
	return &EventHub{
		clients:   make(map[chan SSEEvent]struct{}),
		broadcast: make(chan SSEEvent, 256),
		stopChan:  make(chan struct{}),
	}
}

func (h *EventHub) Start() {
	go h.run()
}

func (h *EventHub) Stop() {
	select {
	case h.stopChan <- struct{}{}:
	default:
	}
}

func (h *EventHub) run() {
	keepalive := time.NewTicker(30 * time.Second)
	defer keepalive.Stop()

	for {
		select {
		case <-h.stopChan:
			return
		case evt := <-h.broadcast:
			h.mu.RLock()
			for ch := range h.clients {
				select {
				case ch <- evt:
				default:
					h.dropped()
				}
			}
			h.mu.RUnlock()
		case <-keepalive.C:
			h.mu.RLock()
			for ch := range h.clients {
				select {
				case ch <- SSEEvent{Event: "keepalive", Data: "ping"}:
				default:
				}
			}
			h.mu.RUnlock()
		}
	}
}

// SetDropHook installs fn to be called for every event a full hub or a slow
// client misses. Safe to call while the hub is running.
func (h *EventHub) SetDropHook(fn func()) {
	h.onDrop.Store(&fn)
}

func (h *EventHub) dropped() {
	if fn := h.onDrop.Load(); fn != nil && *fn != nil {
		(*fn)()
	}
}

func (h *EventHub) Broadcast(event, data string) {
	select {
	case h.broadcast <- SSEEvent{Event: event, Data: data}:
	default:
		log.Printf("sse: hub full, dropping %s", event)
		h.dropped()
	}
}

// BroadcastJSON marshals v as the event data.
func (h *EventHub) BroadcastJSON(event string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("sse: marshal %s: %v", event, err)
		return
	}
	h.Broadcast(event, string(data))
}

func (h *EventHub) AddClient() chan SSEEvent {
	ch := make(chan SSEEvent, 64)
	h.mu.Lock()
	h.clients[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *EventHub) RemoveClient(ch chan SSEEvent) {
	h.mu.Lock()
	delete(h.clients, ch)
	h.mu.Unlock()
	close(ch)
}

func (h *EventHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

type processStatus struct {
	Name  string `json:"name"`
	State string `json:"state"`
	PID   int    `json:"pid,omitempty"`
	Code  *int   `json:"code,omitempty"`
}

// SetupEngineListeners wires engine events to SSE broadcasts.
func (h *EventHub) SetupEngineListeners(eng *engine.Engine) {
	h.SetDropHook(eng.Metrics().EventDropped)

	eng.Events.SubscribeTypes(func(evt engine.Event) {
		ev := evt.Payload.(engine.BuildCompleteEvent)
		h.BroadcastJSON("colconBuildComplete", map[string]int{"code": ev.Code})
	}, engine.EventBuildComplete)

	eng.Events.SubscribeTypes(func(evt engine.Event) {
		ev := evt.Payload.(engine.ProcessEvent)
		h.BroadcastJSON("process-status", processStatus{Name: ev.Target, State: "running", PID: ev.PID})
	}, engine.EventProcessStarted)

	eng.Events.SubscribeTypes(func(evt engine.Event) {
		ev := evt.Payload.(engine.ProcessEvent)
		h.BroadcastJSON("process-status", processStatus{Name: ev.Target, State: "idle"})
	}, engine.EventProcessStopped)

	eng.Events.SubscribeTypes(func(evt engine.Event) {
		ev := evt.Payload.(engine.ProcessEvent)
		code := ev.Code
		h.BroadcastJSON("process-status", processStatus{Name: ev.Target, State: "idle", Code: &code})
	}, engine.EventProcessExited)

	eng.Events.SubscribeTypes(func(evt engine.Event) {
		ev := evt.Payload.(engine.ConfigChangedEvent)
		h.BroadcastJSON("config_changed", map[string]string{"filename": ev.Filename})
	}, engine.EventConfigChanged)

	eng.Events.SubscribeTypes(func(evt engine.Event) {
		h.Broadcast("system-status", `{"upstream":"connected"}`)
	}, engine.EventUpstreamConnected)

	eng.Events.SubscribeTypes(func(evt engine.Event) {
		h.Broadcast("system-status", `{"upstream":"disconnected"}`)
	}, engine.EventUpstreamDisconnected)

	eng.Events.SubscribeTypes(func(evt engine.Event) {
		h.Broadcast("system-status", `{"messaging":"connected"}`)
	}, engine.EventMessagingConnected)

	eng.Events.SubscribeTypes(func(evt engine.Event) {
		h.Broadcast("system-status", `{"messaging":"disconnected"}`)
	}, engine.EventMessagingDisconnected)
}

// handleEvents serves the browser's real-time channel: engine broadcasts from
// the hub merged with room updates from a relay session owned by this
// connection.
func (h *Handlers) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	hubCh := h.eventHub.AddClient()
	defer h.eventHub.RemoveClient(hubCh)

	out := relay.NewChanOutput("sse "+r.RemoteAddr, 256)
	sess := h.engine.NewRelaySession(out)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go func() {
		if err := sess.Run(ctx); err != nil {
			log.Printf("sse: relay session %s: %v", sess.ID, err)
		}
	}()

	hello := fmt.Sprintf(`{"session":%q}`, sess.ID)
	if err := writeSSE(w, "connected", hello); err != nil {
		return
	}
	flusher.Flush()

	for {
		var err error
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-hubCh:
			if !ok {
				return
			}
			err = writeSSE(w, evt.Event, evt.Data)
		case msg := <-out.C():
			err = writeSSE(w, msg.Event, string(msg.Data))
		}
		if err != nil {
			log.Printf("sse: write error: %v", err)
			return
		}
		flusher.Flush()
	}
}

// eventNameCleaner strips line breaks, which would otherwise end the event
// field and let the rest of the name forge frames.
var eventNameCleaner = strings.NewReplacer("\r", "", "\n", "")

// dataLineBreaks normalizes CR and CRLF so each data line gets its prefix.
var dataLineBreaks = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// writeSSE frames one event. Multi-line data is split across data: lines.
func writeSSE(w http.ResponseWriter, event, data string) error {
	if _, err := fmt.Fprintf(w, "event: %s\n", eventNameCleaner.Replace(event)); err != nil {
		return err
	}
	for _, line := range strings.Split(dataLineBreaks.Replace(data), "\n") {
		if _, err := fmt.Fprintf(w, "data: %s\n", line); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, "\n")
	return err
}
