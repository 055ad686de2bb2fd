// Package relay forwards upstream RMF room updates to browser sessions under
// the event names the console listens for.
package relay

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"

	"rmfconsole/rmf"

	"github.com/google/uuid"
)

// BuildingMapRoom is subscribed by every session.
const BuildingMapRoom = "/building_map"

const maxBackoff = 30 * time.Second

// Upstream is one real-time connection to the RMF API server.
type Upstream interface {
	Subscribe(room string) error
	ReadEvent() (rmf.SocketEvent, error)
	Close() error
}

// Dialer opens an upstream connection.
type Dialer func(ctx context.Context) (Upstream, error)

// Lister fetches the fleets and tasks whose rooms a session subscribes to.
type Lister interface {
	ListFleets(ctx context.Context) ([]rmf.FleetState, error)
	ListTasks(ctx context.Context) ([]rmf.TaskRecord, error)
}

// Cache stores the last payload seen per room.
type Cache interface {
	Put(ctx context.Context, room string, payload []byte) error
}

// Observer is told about session and event activity.
type Observer interface {
	SessionOpened()
	SessionClosed()
	EventRelayed(kind string)
	EventDropped()
}

type Options struct {
	// Reconnect re-dials after the upstream drops instead of ending the session.
	Reconnect bool
	Cache     Cache
	Observer  Observer
	// BaseDelay is the first reconnect delay. Defaults to one second.
	BaseDelay time.Duration
}

// Session relays upstream events for one browser connection over its own
// upstream connection.
type Session struct {
	ID     string
	dial   Dialer
	lister Lister
	out    Output
	opts   Options
	table  *Table
}

func NewSession(dial Dialer, lister Lister, out Output, opts Options) *Session {
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = time.Second
	}
	return &Session{
		ID:     uuid.New().String(),
		dial:   dial,
		lister: lister,
		out:    out,
		opts:   opts,
		table:  NewTable(),
	}
}

// Table exposes the session's subscriptions.
func (s *Session) Table() *Table { return s.table }

// FleetRoom returns the upstream room and browser event for a fleet.
func FleetRoom(name string) (room, event string) {
	return "/fleets/" + name + "/state", name + "_state"
}

// TaskRoom returns the upstream room and browser event for a task.
func TaskRoom(id string) (room, event string) {
	return "/tasks/" + id + "/state", id + "_state"
}

// Run relays until ctx is cancelled, or until the upstream drops when
// reconnect is off. Subscriptions are released on return.
func (s *Session) Run(ctx context.Context) error {
	if s.opts.Observer != nil {
		s.opts.Observer.SessionOpened()
		defer s.opts.Observer.SessionClosed()
	}
	defer s.table.RemoveOutput(s.out)

	attempt := 0
	for {
		connected, err := s.runOnce(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if !s.opts.Reconnect {
			log.Printf("relay: session %s ended: %v", s.ID, err)
			return err
		}
		if connected {
			attempt = 0
		}
		attempt++
		log.Printf("relay: session %s upstream lost: %v", s.ID, err)
		if !s.backoff(ctx, attempt) {
			return nil
		}
	}
}

// backoff waits with capped exponential backoff + jitter. Returns false if
// ctx ended during the wait.
func (s *Session) backoff(ctx context.Context, attempt int) bool {
	base := maxBackoff
	if attempt <= 6 {
		base = s.opts.BaseDelay * time.Duration(1<<uint(attempt-1))
	}
	if base > maxBackoff {
		base = maxBackoff
	}
	delay := time.Duration(float64(base) * (0.8 + 0.4*rand.Float64()))
	log.Printf("relay: session %s reconnecting in %v (attempt %d)", s.ID, delay.Round(time.Millisecond), attempt)

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (s *Session) runOnce(ctx context.Context) (bool, error) {
	up, err := s.dial(ctx)
	if err != nil {
		return false, fmt.Errorf("dial upstream: %w", err)
	}
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
		case <-done:
		}
		up.Close()
	}()

	s.table.RemoveOutput(s.out)
	s.subscribeAll(ctx, up)

	for {
		ev, err := up.ReadEvent()
		if err != nil {
			if errors.Is(err, rmf.ErrSocketClosed) {
				return true, err
			}
			return true, fmt.Errorf("read upstream: %w", err)
		}
		s.forward(ctx, ev)
	}
}

func (s *Session) subscribeAll(ctx context.Context, up Upstream) {
	fleets, err := s.lister.ListFleets(ctx)
	if err != nil {
		log.Printf("relay: session %s: list fleets: %v", s.ID, err)
	}
	for _, f := range fleets {
		room, event := FleetRoom(f.Name)
		s.subscribe(up, room, event)
	}

	tasks, err := s.lister.ListTasks(ctx)
	if err != nil {
		log.Printf("relay: session %s: list tasks: %v", s.ID, err)
	}
	for _, t := range tasks {
		room, event := TaskRoom(t.Booking.ID)
		s.subscribe(up, room, event)
	}

	s.subscribe(up, BuildingMapRoom, "building_map")
}

func (s *Session) subscribe(up Upstream, room, event string) {
	if !s.table.Add(room, event, s.out) {
		return
	}
	if err := up.Subscribe(room); err != nil {
		log.Printf("relay: session %s: subscribe %s: %v", s.ID, room, err)
		s.table.Remove(room)
	}
}

// roomKind classifies a room for validation and metrics.
func roomKind(room string) string {
	switch {
	case room == BuildingMapRoom:
		return "building_map"
	case strings.HasPrefix(room, "/fleets/"):
		return "fleet"
	case strings.HasPrefix(room, "/tasks/"):
		return "task"
	}
	return "other"
}

func validate(kind string, data []byte) error {
	var err error
	switch kind {
	case "fleet":
		_, err = rmf.DecodeFleetState(data)
	case "task":
		_, err = rmf.DecodeTaskRecord(data)
	case "building_map":
		_, err = rmf.DecodeBuildingMap(data)
	}
	return err
}

func (s *Session) forward(ctx context.Context, ev rmf.SocketEvent) {
	kind := roomKind(ev.Name)
	if err := validate(kind, ev.Data); err != nil {
		log.Printf("relay: session %s: dropping invalid %s payload: %v", s.ID, ev.Name, err)
		if s.opts.Observer != nil {
			s.opts.Observer.EventDropped()
		}
		return
	}
	sent, dropped := s.table.Deliver(ev.Name, ev.Data)
	if s.opts.Observer != nil {
		for i := 0; i < sent; i++ {
			s.opts.Observer.EventRelayed(kind)
		}
		for i := 0; i < dropped; i++ {
			s.opts.Observer.EventDropped()
		}
	}
	if sent > 0 && s.opts.Cache != nil {
		if err := s.opts.Cache.Put(ctx, ev.Name, ev.Data); err != nil {
			log.Printf("relay: cache %s: %v", ev.Name, err)
		}
	}
}
