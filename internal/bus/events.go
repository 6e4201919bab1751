package bus

import "time"

// EventKind discriminates the shape of an inbound event.
type EventKind string

const (
	KindMessage  EventKind = "message"
	KindCallback EventKind = "callback"
)

// InboundEvent is a single event delivered by a transport channel.
// Text carries the message body for KindMessage; Payload carries the
// button callback data for KindCallback. Events are consumed once.
type InboundEvent struct {
	Channel   string
	Kind      EventKind
	SenderID  int64
	ChatID    int64
	MessageID int // message that carried the pressed button (callback only)
	Text      string
	Payload   string
	Username  string
	Lang      string // sender language code as reported by the transport
	Timestamp time.Time
}

// Button is one inline keyboard button.
type Button struct {
	Text string
	Data string
}

// Keyboard is an inline keyboard layout, rows of buttons.
type Keyboard [][]Button

// OutboundMessage is a reply sent back through a transport channel.
// When EditMessageID is non-zero the channel edits that message in
// place instead of sending a new one.
type OutboundMessage struct {
	Channel       string
	ChatID        int64
	Text          string
	Keyboard      Keyboard
	EditMessageID int
}
