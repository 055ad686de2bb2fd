package relay

import (
	"sort"
	"sync"
)

// Output receives relayed events for one browser. Send reports false when
// the event was dropped.
type Output interface {
	Send(event string, data []byte) bool
}

type route struct {
	event string
	out   Output
}

// Table maps upstream rooms to the outputs that receive them and the event
// name each output sees.
type Table struct {
	mu     sync.RWMutex
	routes map[string][]route
}

func NewTable() *Table {
	return &Table{routes: make(map[string][]route)}
}

// Add registers out for room under event. Returns false when out is already
// registered for room, so callers subscribe upstream only once.
func (t *Table) Add(room, event string, out Output) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, r := range t.routes[room] {
		if r.out == out {
			return false
		}
	}
	t.routes[room] = append(t.routes[room], route{event: event, out: out})
	return true
}

// Remove drops every route for room.
func (t *Table) Remove(room string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.routes, room)
}

// RemoveOutput drops out from every room and returns the rooms left with no
// outputs.
func (t *Table) RemoveOutput(out Output) []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	var empty []string
	for room, rs := range t.routes {
		kept := rs[:0]
		for _, r := range rs {
			if r.out != out {
				kept = append(kept, r)
			}
		}
		if len(kept) == 0 {
			delete(t.routes, room)
			empty = append(empty, room)
		} else {
			t.routes[room] = kept
		}
	}
	sort.Strings(empty)
	return empty
}

// Deliver sends data to every output registered for room. Returns the
// number of outputs that accepted it and the number that dropped it.
func (t *Table) Deliver(room string, data []byte) (sent, dropped int) {
	t.mu.RLock()
	rs := append([]route(nil), t.routes[room]...)
	t.mu.RUnlock()
	for _, r := range rs {
		if r.out.Send(r.event, data) {
			sent++
		} else {
			dropped++
		}
	}
	return sent, dropped
}

// Rooms lists registered rooms, sorted.
func (t *Table) Rooms() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	rooms := make([]string, 0, len(t.routes))
	for room := range t.routes {
		rooms = append(rooms, room)
	}
	sort.Strings(rooms)
	return rooms
}

// Len counts room/output routes.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n := 0
	for _, rs := range t.routes {
		n += len(rs)
	}
	return n
}
