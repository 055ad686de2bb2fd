package engine

import (
	"context"
	"time"
)

// Health is a snapshot of the engine's external connections.
type Health struct {
	Status    string `json:"status"`
	Upstream  bool   `json:"upstream"`
	Messaging bool   `json:"messaging"`
	Cache     bool   `json:"cache"`
}

func (e *Engine) Health() Health {
	e.mu.Lock()
	h := Health{
		Upstream:  e.upstreamConnected,
		Messaging: e.msgConnected,
		Cache:     e.cache.Available(),
	}
	e.mu.Unlock()
	h.Status = "ok"
	if !h.Upstream {
		h.Status = "degraded"
	}
	return h
}

func (e *Engine) checkConnectionStatus() {
	timeout := e.cfg.RMF.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	// Upstream
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	err := e.rmf.Ping(ctx)
	cancel()
	e.metrics.SetUpstreamUp(err == nil)
	e.mu.Lock()
	was := e.upstreamConnected
	e.upstreamConnected = err == nil
	e.mu.Unlock()
	if err == nil && !was {
		e.Events.Emit(Event{Type: EventUpstreamConnected, Payload: ConnectionEvent{Detail: "rmf api server reachable at " + e.rmf.BaseURL()}})
	} else if err != nil && was {
		e.Events.Emit(Event{Type: EventUpstreamDisconnected, Payload: ConnectionEvent{Detail: err.Error()}})
	}

	// Messaging
	if e.msgClient != nil {
		up := e.msgClient.IsConnected()
		e.mu.Lock()
		was := e.msgConnected
		e.msgConnected = up
		e.mu.Unlock()
		if up && !was {
			e.Events.Emit(Event{Type: EventMessagingConnected, Payload: ConnectionEvent{Detail: e.msgClient.Backend() + " connected"}})
		} else if !up && was {
			e.Events.Emit(Event{Type: EventMessagingDisconnected, Payload: ConnectionEvent{Detail: e.msgClient.Backend() + " disconnected"}})
		}
	}

	// Cache
	ctx, cancel = context.WithTimeout(context.Background(), timeout)
	e.cache.Ping(ctx)
	cancel()
}

func (e *Engine) connectionHealthLoop() {
	defer e.wg.Done()
	interval := e.cfg.RMF.HealthInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-e.stopChan:
			return
		case <-ticker.C:
			e.checkConnectionStatus()
		}
	}
}
