package relay

import (
	"log"
	"sync"
)

// Message is one event queued for a browser.
type Message struct {
	Event string
	Data  []byte
}

// ChanOutput is a bounded Output. A full buffer drops the event; the first
// drop of each burst is logged.
type ChanOutput struct {
	name string
	c    chan Message

	mu    sync.Mutex
	burst int
}

func NewChanOutput(name string, size int) *ChanOutput {
	return &ChanOutput{name: name, c: make(chan Message, size)}
}

// C returns the channel the browser writer reads from.
func (o *ChanOutput) C() <-chan Message { return o.c }

func (o *ChanOutput) Send(event string, data []byte) bool {
	select {
	case o.c <- Message{Event: event, Data: data}:
		o.mu.Lock()
		if o.burst > 0 {
			log.Printf("relay: %s dropped %d event(s) while its buffer was full", o.name, o.burst)
			o.burst = 0
		}
		o.mu.Unlock()
		return true
	default:
		o.mu.Lock()
		if o.burst == 0 {
			log.Printf("relay: %s buffer full, dropping events", o.name)
		}
		o.burst++
		o.mu.Unlock()
		return false
	}
}
