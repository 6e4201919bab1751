package bus

import "sync"

// MessageBus connects transport channels with the dispatcher. Channels
// push onto Inbound; replies written to Outbound are routed to the
// subscriber registered for the event's channel name.
type MessageBus struct {
	Inbound  chan InboundEvent
	Outbound chan OutboundMessage

	mu   sync.RWMutex
	subs map[string]func(OutboundMessage)
	done chan struct{}
}

func NewMessageBus(bufSize int) *MessageBus {
	b := &MessageBus{
		Inbound:  make(chan InboundEvent, bufSize),
		Outbound: make(chan OutboundMessage, bufSize),
		subs:     make(map[string]func(OutboundMessage)),
		done:     make(chan struct{}),
	}
	go b.routeOutbound()
	return b
}

// SubscribeOutbound registers the send function for a channel name.
// A second subscription for the same name replaces the first.
func (b *MessageBus) SubscribeOutbound(channel string, fn func(OutboundMessage)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[channel] = fn
}

func (b *MessageBus) routeOutbound() {
	for {
		select {
		case msg := <-b.Outbound:
			b.mu.RLock()
			fn := b.subs[msg.Channel]
			b.mu.RUnlock()
			if fn != nil {
				fn(msg)
			}
		case <-b.done:
			return
		}
	}
}

// Close stops outbound routing. Pending messages are dropped.
func (b *MessageBus) Close() {
	close(b.done)
}
