package rmf

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// SocketPath is where the RMF API server mounts its Socket.IO endpoint.
const SocketPath = "/socket.io/"

const (
	dialTimeout = 10 * time.Second
	eventBuffer = 64
)

// ErrSocketClosed is returned by ReadEvent once the upstream ends the session.
var ErrSocketClosed = errors.New("rmf socket closed")

// SocketEvent is one named event received from the upstream server.
type SocketEvent struct {
	Name string
	Data json.RawMessage
}

// SocketConn is a Socket.IO client connection to the RMF API server. Reads
// must come from a single goroutine; writes are safe from any goroutine.
// Reconnection is left to the caller.
type SocketConn struct {
	client *socket.Socket
	events chan SocketEvent

	done     chan struct{}
	doneOnce sync.Once
}

// socketTarget splits an http(s) base URL into the server origin and the
// Engine.IO path, keeping any prefix the API server is mounted under.
func socketTarget(base string) (origin, path string, err error) {
	u, err := url.Parse(strings.TrimRight(base, "/"))
	if err != nil {
		return "", "", fmt.Errorf("parse rmf url: %w", err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "http"
	case "https", "wss":
		u.Scheme = "https"
	default:
		return "", "", fmt.Errorf("unsupported rmf url scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", "", fmt.Errorf("rmf url %q has no host", base)
	}
	path = strings.TrimRight(u.Path, "/") + strings.TrimRight(SocketPath, "/")
	u.Path, u.RawPath, u.RawQuery, u.Fragment = "", "", "", ""
	return u.String(), path, nil
}

// DialSocket opens a Socket.IO connection over websocket and waits for the
// default namespace handshake.
func DialSocket(ctx context.Context, baseURL string) (*SocketConn, error) {
	origin, path, err := socketTarget(baseURL)
	if err != nil {
		return nil, err
	}

	opts := socket.DefaultOptions()
	opts.SetPath(path)
	opts.SetTransports(types.NewSet(socket.WebSocket))
	opts.SetForceNew(true)
	opts.SetReconnection(false)
	opts.SetAutoConnect(false)
	timeout := dialTimeout
	if dl, ok := ctx.Deadline(); ok {
		timeout = time.Until(dl)
	}
	opts.SetTimeout(timeout)

	client, err := socket.Connect(origin, opts)
	if err != nil {
		return nil, fmt.Errorf("rmf socket %s: %w", origin, err)
	}

	c := &SocketConn{
		client: client,
		events: make(chan SocketEvent, eventBuffer),
		done:   make(chan struct{}),
	}
	connected := make(chan struct{}, 1)
	failed := make(chan error, 1)

	client.On("connect", func(...any) {
		select {
		case connected <- struct{}{}:
		default:
		}
	})
	client.On("connect_error", func(args ...any) {
		select {
		case failed <- listenerError(args):
		default:
		}
	})
	client.On("disconnect", func(...any) {
		c.finish()
	})
	client.OnAny(c.receive)

	client.Connect()

	select {
	case <-connected:
		return c, nil
	case err := <-failed:
		client.Disconnect()
		return nil, fmt.Errorf("rmf socket connect %s%s: %w", origin, path, err)
	case <-ctx.Done():
		client.Disconnect()
		return nil, fmt.Errorf("rmf socket connect %s%s: %w", origin, path, ctx.Err())
	}
}

func listenerError(args []any) error {
	if len(args) == 0 {
		return errors.New("connect refused")
	}
	if err, ok := args[0].(error); ok && err != nil {
		return err
	}
	return fmt.Errorf("connect refused: %v", args[0])
}

// receive runs on the client's read goroutine, so a slow reader applies
// backpressure to the upstream connection.
func (c *SocketConn) receive(args ...any) {
	ev, ok := toSocketEvent(args)
	if !ok {
		return
	}
	select {
	case c.events <- ev:
	case <-c.done:
	}
}

// toSocketEvent turns listener arguments (`name, payload[, ack]`) back into
// a named event with raw JSON data.
func toSocketEvent(args []any) (SocketEvent, bool) {
	if len(args) == 0 {
		return SocketEvent{}, false
	}
	name, ok := args[0].(string)
	if !ok || name == "" {
		return SocketEvent{}, false
	}
	ev := SocketEvent{Name: name, Data: json.RawMessage("null")}
	if len(args) > 1 {
		if data, err := json.Marshal(args[1]); err == nil {
			ev.Data = data
		}
	}
	return ev, true
}

func (c *SocketConn) finish() {
	c.doneOnce.Do(func() { close(c.done) })
}

// SID returns the session id the server assigned to the namespace.
func (c *SocketConn) SID() string { return c.client.Id() }

// Emit sends a named event with a JSON payload.
func (c *SocketConn) Emit(event string, data any) error {
	select {
	case <-c.done:
		return ErrSocketClosed
	default:
	}
	if err := c.client.Emit(event, data); err != nil {
		return fmt.Errorf("rmf socket emit %s: %w", event, err)
	}
	return nil
}

// Subscribe asks the upstream server to start sending a room's updates.
func (c *SocketConn) Subscribe(room string) error {
	return c.Emit("subscribe", map[string]any{"room": room})
}

// Unsubscribe stops updates for a room.
func (c *SocketConn) Unsubscribe(room string) error {
	return c.Emit("unsubscribe", map[string]any{"room": room})
}

// ReadEvent blocks until the next event arrives. Events already received
// are drained before ErrSocketClosed is returned.
func (c *SocketConn) ReadEvent() (SocketEvent, error) {
	select {
	case ev := <-c.events:
		return ev, nil
	case <-c.done:
		select {
		case ev := <-c.events:
			return ev, nil
		default:
			return SocketEvent{}, ErrSocketClosed
		}
	}
}

// Close disconnects from the namespace and releases the connection.
func (c *SocketConn) Close() error {
	c.client.Disconnect()
	c.finish()
	return nil
}

var _ io.Closer = (*SocketConn)(nil)
