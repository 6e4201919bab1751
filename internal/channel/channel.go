// Package channel connects chat transports to the message bus. Each
// channel pushes inbound events onto the bus and subscribes for the
// outbound replies addressed to it.
package channel

import (
	"context"
	"strconv"

	"github.com/konverner/budget-telegram-bot/internal/bus"
)

type Channel interface {
	Name() string
	Start(ctx context.Context) error
	Stop() error
	Send(msg bus.OutboundMessage) error
}

// BaseChannel carries the pieces every transport shares: the bus to
// push events onto and the sender allowlist.
type BaseChannel struct {
	name      string
	bus       *bus.MessageBus
	allowFrom map[int64]struct{}
}

func NewBaseChannel(name string, b *bus.MessageBus, allowFrom []string) BaseChannel {
	var allowed map[int64]struct{}
	if len(allowFrom) > 0 {
		allowed = make(map[int64]struct{}, len(allowFrom))
		for _, raw := range allowFrom {
			if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
				allowed[id] = struct{}{}
			}
		}
	}
	return BaseChannel{name: name, bus: b, allowFrom: allowed}
}

func (c *BaseChannel) Name() string {
	return c.name
}

// IsAllowed reports whether the sender may talk to the bot. An empty
// allowlist admits everyone.
func (c *BaseChannel) IsAllowed(senderID int64) bool {
	if len(c.allowFrom) == 0 {
		return true
	}
	_, ok := c.allowFrom[senderID]
	return ok
}
