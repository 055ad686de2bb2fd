package messaging

import (
	"context"
	"log"
	"sync"
	"time"
)

// Sender is the publish side of a messaging client.
type Sender interface {
	Publish(ctx context.Context, topic string, payload []byte) error
}

// Publisher wraps operations events in envelopes and sends them from a
// background goroutine so callers never block on the broker. When the queue
// is full the envelope is dropped.
type Publisher struct {
	sender Sender
	topic  string
	source string
	queue  chan *Envelope
	stopCh chan struct{}
	wg     sync.WaitGroup

	mu      sync.Mutex
	dropped int
}

func NewPublisher(sender Sender, topic, source string) *Publisher {
	return &Publisher{
		sender: sender,
		topic:  topic,
		source: source,
		queue:  make(chan *Envelope, 256),
		stopCh: make(chan struct{}),
	}
}

func (p *Publisher) Start() {
	p.wg.Add(1)
	go p.run()
}

// Stop drains what is already queued and returns.
func (p *Publisher) Stop() {
	close(p.stopCh)
	p.wg.Wait()
}

// Publish queues a message of the given type.
func (p *Publisher) Publish(msgType string, payload any) {
	env := NewEnvelope(msgType, p.source, payload)
	select {
	case p.queue <- env:
	default:
		p.mu.Lock()
		p.dropped++
		if p.dropped == 1 || p.dropped%100 == 0 {
			log.Printf("messaging: queue full, dropped %d envelope(s)", p.dropped)
		}
		p.mu.Unlock()
	}
}

func (p *Publisher) run() {
	defer p.wg.Done()
	for {
		select {
		case env := <-p.queue:
			p.send(env)
		case <-p.stopCh:
			for {
				select {
				case env := <-p.queue:
					p.send(env)
				default:
					return
				}
			}
		}
	}
}

func (p *Publisher) send(env *Envelope) {
	data, err := env.Encode()
	if err != nil {
		log.Printf("messaging: encode %s: %v", env.MsgType, err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := p.sender.Publish(ctx, p.topic, data); err != nil {
		log.Printf("messaging: publish %s: %v", env.MsgType, err)
	}
}
