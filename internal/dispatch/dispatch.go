// Package dispatch routes inbound events through the middleware chain
// (flood gate, identity resolution, session lookup) to the single
// handler registered for the current wizard state and event shape.
package dispatch

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/konverner/budget-telegram-bot/internal/bus"
	"github.com/konverner/budget-telegram-bot/internal/session"
	"github.com/konverner/budget-telegram-bot/internal/store"
)

// AnyState registers a handler regardless of the conversation state
// (commands like /cancel work mid-wizard).
const AnyState session.State = "*"

// Handler consumes one admitted event. sess is a snapshot taken after
// the middleware chain ran; the handler owns all state transitions.
type Handler func(ctx context.Context, ev bus.InboundEvent, user *store.User, sess session.Session)

// Admitter is the flood gate.
type Admitter interface {
	Admit(userID int64, now time.Time) bool
}

// Resolver turns a transport sender into a stored user.
type Resolver interface {
	Resolve(ctx context.Context, senderID int64, username, rawLang string) (*store.User, error)
}

type routeKey struct {
	state session.State
	kind  bus.EventKind
	disc  string
}

// Dispatcher owns the handler table and the per-conversation locks
// that serialize transitions for one (user, chat) pair.
type Dispatcher struct {
	limiter  Admitter
	resolver Resolver
	sessions *session.Store
	log      zerolog.Logger

	routes     map[routeKey]Handler
	errorReply func(ev bus.InboundEvent)

	locksMu sync.Mutex
	locks   map[session.Key]*sync.Mutex
}

func New(limiter Admitter, resolver Resolver, sessions *session.Store, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		limiter:  limiter,
		resolver: resolver,
		sessions: sessions,
		log:      log,
		routes:   make(map[routeKey]Handler),
		locks:    make(map[session.Key]*sync.Mutex),
	}
}

// OnResolveError installs the reply sent back when identity resolution
// fails. Without one the event is logged and dropped. The callback has
// no resolved user, so it must render in the default language.
func (d *Dispatcher) OnResolveError(fn func(ev bus.InboundEvent)) {
	d.errorReply = fn
}

// Register binds a handler to (state, kind, discriminant). The
// discriminant is a command ("/add_transaction"), a callback payload
// prefix up to the first underscore ("cat_"), or "" for free text.
// Duplicate registrations are a programming error.
func (d *Dispatcher) Register(state session.State, kind bus.EventKind, disc string, h Handler) error {
	key := routeKey{state: state, kind: kind, disc: disc}
	if _, exists := d.routes[key]; exists {
		return fmt.Errorf("duplicate handler for state=%s kind=%s disc=%q", state, kind, disc)
	}
	d.routes[key] = h
	return nil
}

// MustRegister is Register that panics; handler tables are built once
// at startup.
func (d *Dispatcher) MustRegister(state session.State, kind bus.EventKind, disc string, h Handler) {
	if err := d.Register(state, kind, disc, h); err != nil {
		panic(err)
	}
}

// Handle runs one inbound event through the middleware chain and the
// matching handler. Rejected and unmatched events are dropped without
// feedback. Events for the same conversation are serialized; different
// conversations proceed in parallel.
func (d *Dispatcher) Handle(ctx context.Context, ev bus.InboundEvent) {
	if !d.limiter.Admit(ev.SenderID, time.Now()) {
		d.log.Debug().Int64("user_id", ev.SenderID).Msg("event rejected by flood gate")
		return
	}

	key := session.Key{UserID: ev.SenderID, ChatID: ev.ChatID}
	lock := d.conversationLock(key)
	lock.Lock()
	defer lock.Unlock()

	user, err := d.resolver.Resolve(ctx, ev.SenderID, ev.Username, ev.Lang)
	if err != nil {
		d.log.Error().Err(err).Int64("user_id", ev.SenderID).Msg("resolve user failed")
		if d.errorReply != nil {
			d.errorReply(ev)
		}
		return
	}

	sess, _ := d.sessions.Get(ev.SenderID, ev.ChatID)

	h := d.lookup(sess.State, ev)
	if h == nil {
		d.log.Debug().
			Str("state", string(sess.State)).
			Str("kind", string(ev.Kind)).
			Int64("user_id", ev.SenderID).
			Msg("no handler for event, ignored")
		return
	}

	h(ctx, ev, user, sess)
}

// lookup checks the table from most to least specific: exact state
// with discriminant, any-state with discriminant, then the free-text
// handler for the exact state.
func (d *Dispatcher) lookup(state session.State, ev bus.InboundEvent) Handler {
	disc := discriminant(ev)

	if h, ok := d.routes[routeKey{state: state, kind: ev.Kind, disc: disc}]; ok {
		return h
	}
	if h, ok := d.routes[routeKey{state: AnyState, kind: ev.Kind, disc: disc}]; ok {
		return h
	}
	if disc != "" {
		if h, ok := d.routes[routeKey{state: state, kind: ev.Kind, disc: ""}]; ok {
			// Commands never fall through to free-text handlers.
			if ev.Kind == bus.KindMessage && strings.HasPrefix(ev.Text, "/") {
				return nil
			}
			return h
		}
	}
	return nil
}

// discriminant extracts the routing token from an event: the leading
// command word for messages, the payload prefix through the first
// underscore for callbacks.
func discriminant(ev bus.InboundEvent) string {
	switch ev.Kind {
	case bus.KindMessage:
		text := strings.TrimSpace(ev.Text)
		if !strings.HasPrefix(text, "/") {
			return ""
		}
		if i := strings.IndexAny(text, " \t\n"); i > 0 {
			return text[:i]
		}
		return text
	case bus.KindCallback:
		if i := strings.Index(ev.Payload, "_"); i >= 0 {
			return ev.Payload[:i+1]
		}
		return ev.Payload
	}
	return ""
}

func (d *Dispatcher) conversationLock(key session.Key) *sync.Mutex {
	d.locksMu.Lock()
	defer d.locksMu.Unlock()
	lock, ok := d.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		d.locks[key] = lock
	}
	return lock
}
