// Package wizard drives the multi-step transaction dialogue: category,
// subcategory, amount, comment, then one appended ledger row.
package wizard

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/konverner/budget-telegram-bot/internal/bus"
	"github.com/konverner/budget-telegram-bot/internal/dispatch"
	"github.com/konverner/budget-telegram-bot/internal/i18n"
	"github.com/konverner/budget-telegram-bot/internal/ledger"
	"github.com/konverner/budget-telegram-bot/internal/session"
	"github.com/konverner/budget-telegram-bot/internal/store"
	"github.com/konverner/budget-telegram-bot/internal/taxonomy"
)

const dateLayout = "2006/01/02"

type Config struct {
	TransactionsWorksheet string
	RequestTimeout        time.Duration
}

// LangStore persists a user's language choice.
type LangStore interface {
	SetLang(ctx context.Context, id int64, lang string) error
}

type Wizard struct {
	cfg      Config
	sessions *session.Store
	cache    *taxonomy.Cache
	ledger   ledger.Store
	users    LangStore
	bus      *bus.MessageBus
	strings  *i18n.Bundle
	log      zerolog.Logger
	now      func() time.Time
}

func New(cfg Config, sessions *session.Store, cache *taxonomy.Cache, ledgerStore ledger.Store, users LangStore, b *bus.MessageBus, strings *i18n.Bundle, log zerolog.Logger) *Wizard {
	return &Wizard{
		cfg:      cfg,
		sessions: sessions,
		cache:    cache,
		ledger:   ledgerStore,
		users:    users,
		bus:      b,
		strings:  strings,
		log:      log,
		now:      time.Now,
	}
}

// Register installs the wizard's handler table on the dispatcher.
func (w *Wizard) Register(d *dispatch.Dispatcher) {
	d.MustRegister(dispatch.AnyState, bus.KindMessage, "/start", w.handleStart)
	d.MustRegister(dispatch.AnyState, bus.KindMessage, "/help", w.handleHelp)
	d.MustRegister(dispatch.AnyState, bus.KindMessage, "/add_transaction", w.handleAddTransaction)
	d.MustRegister(dispatch.AnyState, bus.KindMessage, "/update_categories", w.handleUpdateCategories)
	d.MustRegister(dispatch.AnyState, bus.KindMessage, "/cancel", w.handleCancelCommand)
	d.MustRegister(dispatch.AnyState, bus.KindMessage, "/language", w.handleLanguageCommand)
	d.MustRegister(dispatch.AnyState, bus.KindCallback, "lang_", w.handleLanguagePick)
	d.MustRegister(dispatch.AnyState, bus.KindCallback, "cancel_", w.handleCancelCallback)

	d.MustRegister(session.StateAwaitingCategory, bus.KindCallback, "cat_", w.handleCategory)
	d.MustRegister(session.StateAwaitingSubcategory, bus.KindCallback, "subcat_", w.handleSubcategory)
	d.MustRegister(session.StateAwaitingAmount, bus.KindMessage, "", w.handleAmount)
	d.MustRegister(session.StateAwaitingComment, bus.KindMessage, "", w.handleComment)
	d.MustRegister(session.StateAwaitingComment, bus.KindCallback, "skip_", w.handleSkip)
}

func (w *Wizard) handleStart(ctx context.Context, ev bus.InboundEvent, user *store.User, _ session.Session) {
	w.sessions.Delete(ev.SenderID, ev.ChatID)

	name := user.Username
	if name == "" {
		name = strconv.FormatInt(user.ID, 10)
	}
	w.send(ev, w.strings.StringFor(user.Lang, "start", map[string]string{"name": name}), nil)
}

func (w *Wizard) handleHelp(ctx context.Context, ev bus.InboundEvent, user *store.User, _ session.Session) {
	w.send(ev, w.strings.StringFor(user.Lang, "help", nil), nil)
}

func (w *Wizard) handleAddTransaction(ctx context.Context, ev bus.InboundEvent, user *store.User, _ session.Session) {
	categories := w.cache.Categories(ctx)
	if len(categories) == 0 {
		w.send(ev, w.strings.StringFor(user.Lang, "no_categories", nil), nil)
		return
	}

	gen := w.cache.Generation()
	w.sessions.Set(ev.SenderID, ev.ChatID, session.StateAwaitingCategory, session.Patch{Generation: &gen})
	w.send(ev, w.strings.StringFor(user.Lang, "select_category", nil), w.categoryKeyboard(categories, user.Lang))
}

func (w *Wizard) handleCategory(ctx context.Context, ev bus.InboundEvent, user *store.User, sess session.Session) {
	categoryID, ok := parseCallbackID(ev.Payload, payloadCategoryPrefix)
	if !ok {
		return
	}

	if sess.Data.Generation != w.cache.Generation() {
		w.reportStale(ev, user)
		return
	}

	subs := w.cache.Subcategories(ctx, categoryID)
	if len(subs) > 0 {
		w.sessions.Set(ev.SenderID, ev.ChatID, session.StateAwaitingSubcategory, session.Patch{CategoryID: &categoryID})
		w.edit(ev, w.strings.StringFor(user.Lang, "select_subcategory", nil), w.subcategoryKeyboard(subs, user.Lang))
		return
	}

	none := 0
	w.sessions.Set(ev.SenderID, ev.ChatID, session.StateAwaitingAmount, session.Patch{CategoryID: &categoryID, SubcategoryID: &none})
	w.edit(ev, w.strings.StringFor(user.Lang, "enter_amount", nil), w.cancelKeyboard(user.Lang))
}

func (w *Wizard) handleSubcategory(ctx context.Context, ev bus.InboundEvent, user *store.User, sess session.Session) {
	subcategoryID, ok := parseCallbackID(ev.Payload, payloadSubcategoryPrefix)
	if !ok {
		return
	}

	if sess.Data.Generation != w.cache.Generation() {
		w.reportStale(ev, user)
		return
	}

	w.sessions.Set(ev.SenderID, ev.ChatID, session.StateAwaitingAmount, session.Patch{SubcategoryID: &subcategoryID})
	w.edit(ev, w.strings.StringFor(user.Lang, "enter_amount", nil), w.cancelKeyboard(user.Lang))
}

func (w *Wizard) handleAmount(ctx context.Context, ev bus.InboundEvent, user *store.User, _ session.Session) {
	text := strings.ReplaceAll(strings.TrimSpace(ev.Text), ",", ".")
	amount, err := decimal.NewFromString(text)
	if err != nil {
		// Re-prompt, state unchanged.
		w.send(ev, w.strings.StringFor(user.Lang, "invalid_amount", nil), w.cancelKeyboard(user.Lang))
		return
	}

	w.sessions.Set(ev.SenderID, ev.ChatID, session.StateAwaitingComment, session.Patch{Amount: &amount})
	w.send(ev, w.strings.StringFor(user.Lang, "enter_comment", nil), w.skipKeyboard(user.Lang))
}

func (w *Wizard) handleComment(ctx context.Context, ev bus.InboundEvent, user *store.User, sess session.Session) {
	comment := ev.Text
	sess.Data.Comment = comment
	w.commit(ctx, ev, user, sess.Data)
}

func (w *Wizard) handleSkip(ctx context.Context, ev bus.InboundEvent, user *store.User, sess session.Session) {
	sess.Data.Comment = ""
	w.commit(ctx, ev, user, sess.Data)
}

// commit writes the accumulated transaction to the ledger and ends the
// wizard run. The session is deleted whether the write succeeds or
// not: a failed write is reported and the user restarts, which keeps
// the ledger free of double-writes.
func (w *Wizard) commit(ctx context.Context, ev bus.InboundEvent, user *store.User, data session.Data) {
	defer w.sessions.Delete(ev.SenderID, ev.ChatID)

	if data.Generation != w.cache.Generation() {
		w.reportStale(ev, user)
		return
	}

	categoryName := w.cache.CategoryName(ctx, data.CategoryID)
	fullCategory := categoryName
	if data.SubcategoryID != 0 {
		if subName := w.cache.SubcategoryName(ctx, data.SubcategoryID); subName != "" {
			fullCategory = categoryName + "." + subName
		}
	}

	row := []string{
		fullCategory,
		w.now().Format(dateLayout),
		data.Amount.String(),
		data.Comment,
	}

	writeCtx, cancel := context.WithTimeout(ctx, w.cfg.RequestTimeout)
	defer cancel()
	if err := w.ledger.AppendRow(writeCtx, w.cfg.TransactionsWorksheet, row); err != nil {
		w.log.Error().Err(err).Int64("user_id", user.ID).Msg("ledger append failed")
		w.send(ev, w.strings.StringFor(user.Lang, "transaction_error", nil), nil)
		return
	}

	w.log.Info().Int64("user_id", user.ID).Str("category", fullCategory).Str("amount", data.Amount.String()).Msg("transaction saved")
	w.send(ev, w.strings.StringFor(user.Lang, "transaction_saved", map[string]string{
		"category": fullCategory,
		"amount":   data.Amount.String(),
		"comment":  data.Comment,
	}), nil)
}

func (w *Wizard) handleCancelCommand(ctx context.Context, ev bus.InboundEvent, user *store.User, _ session.Session) {
	w.sessions.Delete(ev.SenderID, ev.ChatID)
	w.send(ev, w.strings.StringFor(user.Lang, "transaction_cancelled", nil), nil)
}

func (w *Wizard) handleCancelCallback(ctx context.Context, ev bus.InboundEvent, user *store.User, _ session.Session) {
	w.sessions.Delete(ev.SenderID, ev.ChatID)
	w.edit(ev, w.strings.StringFor(user.Lang, "transaction_cancelled", nil), nil)
}

func (w *Wizard) handleLanguageCommand(ctx context.Context, ev bus.InboundEvent, user *store.User, _ session.Session) {
	w.send(ev, w.strings.StringFor(user.Lang, "select_language", nil), w.languageKeyboard())
}

// handleLanguagePick stores the chosen language and confirms in it, so
// the user sees the switch take effect immediately.
func (w *Wizard) handleLanguagePick(ctx context.Context, ev bus.InboundEvent, user *store.User, _ session.Session) {
	lang := strings.TrimPrefix(ev.Payload, payloadLanguagePrefix)
	if !w.strings.Supported(lang) {
		return
	}

	if err := w.users.SetLang(ctx, user.ID, lang); err != nil {
		w.log.Error().Err(err).Int64("user_id", user.ID).Msg("set language failed")
		w.send(ev, w.strings.StringFor(user.Lang, "try_again", nil), nil)
		return
	}

	w.log.Info().Int64("user_id", user.ID).Str("lang", lang).Msg("language changed")
	w.edit(ev, w.strings.StringFor(lang, "language_updated", nil), nil)
}

func (w *Wizard) handleUpdateCategories(ctx context.Context, ev bus.InboundEvent, user *store.User, _ session.Session) {
	w.send(ev, w.strings.StringFor(user.Lang, "updating_categories", nil), nil)

	refreshCtx, cancel := context.WithTimeout(ctx, w.cfg.RequestTimeout)
	defer cancel()
	if err := w.cache.Refresh(refreshCtx); err != nil {
		w.log.Error().Err(err).Msg("taxonomy refresh failed")
		w.send(ev, w.strings.StringFor(user.Lang, "categories_update_error", nil), nil)
		return
	}
	w.send(ev, w.strings.StringFor(user.Lang, "categories_updated", nil), nil)
}

// reportStale handles category ids that outlived a cache refresh: the
// run is abandoned rather than written against recycled ids.
func (w *Wizard) reportStale(ev bus.InboundEvent, user *store.User) {
	w.sessions.Delete(ev.SenderID, ev.ChatID)
	w.log.Warn().Int64("user_id", user.ID).Msg("wizard session outlived taxonomy generation")
	w.send(ev, w.strings.StringFor(user.Lang, "categories_changed", nil), nil)
}

func (w *Wizard) send(ev bus.InboundEvent, text string, kb bus.Keyboard) {
	w.bus.Outbound <- bus.OutboundMessage{
		Channel:  ev.Channel,
		ChatID:   ev.ChatID,
		Text:     text,
		Keyboard: kb,
	}
}

// edit replaces the message whose button was pressed, so the keyboard
// disappears together with the prompt.
func (w *Wizard) edit(ev bus.InboundEvent, text string, kb bus.Keyboard) {
	w.bus.Outbound <- bus.OutboundMessage{
		Channel:       ev.Channel,
		ChatID:        ev.ChatID,
		Text:          text,
		Keyboard:      kb,
		EditMessageID: ev.MessageID,
	}
}

func parseCallbackID(payload, prefix string) (int, bool) {
	id, err := strconv.Atoi(strings.TrimPrefix(payload, prefix))
	if err != nil {
		return 0, false
	}
	return id, true
}
