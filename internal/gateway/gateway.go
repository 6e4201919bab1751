// Package gateway wires the whole bot together: config, storage,
// ledger, caches, dispatcher, wizard and transport channels, plus the
// run loop that pumps inbound events through the dispatcher.
package gateway

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/konverner/budget-telegram-bot/internal/bus"
	"github.com/konverner/budget-telegram-bot/internal/channel"
	"github.com/konverner/budget-telegram-bot/internal/config"
	"github.com/konverner/budget-telegram-bot/internal/dispatch"
	"github.com/konverner/budget-telegram-bot/internal/flood"
	"github.com/konverner/budget-telegram-bot/internal/i18n"
	"github.com/konverner/budget-telegram-bot/internal/identity"
	"github.com/konverner/budget-telegram-bot/internal/ledger"
	"github.com/konverner/budget-telegram-bot/internal/session"
	"github.com/konverner/budget-telegram-bot/internal/store"
	"github.com/konverner/budget-telegram-bot/internal/taxonomy"
	"github.com/konverner/budget-telegram-bot/internal/wizard"
)

// LedgerFactory creates the ledger backend (allows mocking in tests)
type LedgerFactory func(ctx context.Context, cfg config.LedgerConfig, log zerolog.Logger) (ledger.Store, error)

// Options for creating a Gateway
type Options struct {
	LedgerFactory LedgerFactory
	SignalChan    chan os.Signal // for testing signal handling
}

// DefaultLedgerFactory creates the Google Sheets ledger client
func DefaultLedgerFactory(ctx context.Context, cfg config.LedgerConfig, log zerolog.Logger) (ledger.Store, error) {
	return ledger.NewSheetsClient(ctx, cfg.CredentialsFile, cfg.SpreadsheetID, cfg.CategoriesWorksheet, log)
}

type Gateway struct {
	cfg *config.Config
	log zerolog.Logger

	bus        *bus.MessageBus
	users      *store.UserStore
	ledger     ledger.Store
	cache      *taxonomy.Cache
	limiter    *flood.Limiter
	sessions   *session.Store
	dispatcher *dispatch.Dispatcher
	channels   *channel.ChannelManager
	scheduler  *cron.Cron

	signalChan chan os.Signal // for testing
}

// New creates a Gateway with default options
func New(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Gateway, error) {
	return NewWithOptions(ctx, cfg, log, Options{})
}

// NewWithOptions creates a Gateway with custom options for testing
func NewWithOptions(ctx context.Context, cfg *config.Config, log zerolog.Logger, opts Options) (*Gateway, error) {
	g := &Gateway{cfg: cfg, log: log, signalChan: opts.SignalChan}

	g.bus = bus.NewMessageBus(config.DefaultBufSize)

	locales, err := i18n.Load(cfg.Bot.DefaultLang)
	if err != nil {
		return nil, fmt.Errorf("load locales: %w", err)
	}

	users, err := store.Open(cfg.Store.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open user store: %w", err)
	}
	g.users = users

	if err := g.bootstrapSuperuser(ctx); err != nil {
		_ = users.Close()
		return nil, err
	}

	factory := opts.LedgerFactory
	if factory == nil {
		factory = DefaultLedgerFactory
	}
	ledgerStore, err := factory(ctx, cfg.Ledger, log)
	if err != nil {
		_ = users.Close()
		return nil, fmt.Errorf("create ledger client: %w", err)
	}
	g.ledger = ledgerStore

	if err := g.bootstrapWorksheets(ctx); err != nil {
		_ = users.Close()
		return nil, err
	}

	g.cache = taxonomy.NewCache(ledgerStore, log)
	g.limiter = flood.New(time.Duration(cfg.Bot.AntifloodWindow) * time.Second)
	g.sessions = session.NewStore()

	resolver := identity.NewResolver(users, cfg.Bot.DefaultLang, locales.Supported)
	g.dispatcher = dispatch.New(g.limiter, resolver, g.sessions, log)
	g.dispatcher.OnResolveError(func(ev bus.InboundEvent) {
		g.bus.Outbound <- bus.OutboundMessage{
			Channel: ev.Channel,
			ChatID:  ev.ChatID,
			Text:    locales.StringFor(cfg.Bot.DefaultLang, "try_again", nil),
		}
	})

	w := wizard.New(wizard.Config{
		TransactionsWorksheet: cfg.Ledger.TransactionsWorksheet,
		RequestTimeout:        time.Duration(cfg.Bot.RequestTimeout) * time.Second,
	}, g.sessions, g.cache, ledgerStore, users, g.bus, locales, log)
	w.Register(g.dispatcher)

	chMgr, err := channel.NewChannelManager(cfg, g.bus, log)
	if err != nil {
		_ = users.Close()
		return nil, fmt.Errorf("create channel manager: %w", err)
	}
	g.channels = chMgr

	if cfg.Ledger.RefreshSchedule != "" {
		g.scheduler = cron.New()
		_, err := g.scheduler.AddFunc(cfg.Ledger.RefreshSchedule, func() {
			refreshCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Bot.RequestTimeout)*time.Second)
			defer cancel()
			if err := g.cache.Refresh(refreshCtx); err != nil {
				log.Error().Err(err).Msg("scheduled taxonomy refresh failed")
			}
		})
		if err != nil {
			_ = users.Close()
			return nil, fmt.Errorf("schedule taxonomy refresh: %w", err)
		}
	}

	return g, nil
}

// bootstrapSuperuser grants the configured superuser the admin role,
// creating the user record when it does not exist yet.
func (g *Gateway) bootstrapSuperuser(ctx context.Context) error {
	if g.cfg.Store.SuperuserID == 0 {
		return nil
	}

	_, err := g.users.Create(ctx, &store.User{
		ID:       g.cfg.Store.SuperuserID,
		Username: g.cfg.Store.SuperuserUsername,
		Lang:     g.cfg.Bot.DefaultLang,
		Roles:    []string{store.RoleUser},
	})
	if err != nil {
		return fmt.Errorf("create superuser: %w", err)
	}
	if err := g.users.GrantRole(ctx, g.cfg.Store.SuperuserID, store.RoleAdmin); err != nil {
		return fmt.Errorf("grant superuser role: %w", err)
	}
	return nil
}

// bootstrapWorksheets makes sure both worksheets exist; a freshly
// created categories worksheet is seeded with a starter taxonomy.
func (g *Gateway) bootstrapWorksheets(ctx context.Context) error {
	timeout := time.Duration(g.cfg.Bot.RequestTimeout) * time.Second
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	created, err := g.ledger.EnsureWorksheet(ctx, g.cfg.Ledger.CategoriesWorksheet, ledger.CategoriesHeader)
	if err != nil {
		return fmt.Errorf("ensure categories worksheet: %w", err)
	}
	if created {
		for _, line := range ledger.SampleCategories {
			if err := g.ledger.AppendRow(ctx, g.cfg.Ledger.CategoriesWorksheet, []string{line}); err != nil {
				return fmt.Errorf("seed categories worksheet: %w", err)
			}
		}
		g.log.Info().Int("categories", len(ledger.SampleCategories)).Msg("categories worksheet seeded")
	}

	if _, err := g.ledger.EnsureWorksheet(ctx, g.cfg.Ledger.TransactionsWorksheet, ledger.TransactionsHeader); err != nil {
		return fmt.Errorf("ensure transactions worksheet: %w", err)
	}
	return nil
}

func (g *Gateway) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := g.channels.StartAll(ctx); err != nil {
		return fmt.Errorf("start channels: %w", err)
	}
	g.log.Info().Strs("channels", g.channels.EnabledChannels()).Msg("channels started")

	if g.scheduler != nil {
		g.scheduler.Start()
		g.log.Info().Str("schedule", g.cfg.Ledger.RefreshSchedule).Msg("taxonomy refresh scheduled")
	}

	go g.processLoop(ctx)

	g.log.Info().Msg("gateway running")

	// Use injected signal channel for testing, or create default
	sigCh := g.signalChan
	if sigCh == nil {
		sigCh = make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	}

	select {
	case <-sigCh:
	case <-ctx.Done():
	}

	g.log.Info().Msg("shutting down")
	return g.Shutdown()
}

// processLoop drains inbound events into a bounded pool of handler
// goroutines. The dispatcher serializes same-conversation events, so
// concurrency here only buys parallelism across conversations.
func (g *Gateway) processLoop(ctx context.Context) {
	sem := make(chan struct{}, g.cfg.Bot.Workers)
	timeout := time.Duration(g.cfg.Bot.RequestTimeout) * time.Second

	for {
		select {
		case ev := <-g.bus.Inbound:
			sem <- struct{}{}
			go func(ev bus.InboundEvent) {
				defer func() { <-sem }()

				handleCtx, cancel := context.WithTimeout(ctx, timeout)
				defer cancel()
				g.dispatcher.Handle(handleCtx, ev)
			}(ev)
		case <-ctx.Done():
			return
		}
	}
}

func (g *Gateway) Shutdown() error {
	if g.scheduler != nil {
		g.scheduler.Stop()
	}
	_ = g.channels.StopAll()
	g.limiter.Stop()
	g.bus.Close()
	if err := g.users.Close(); err != nil {
		g.log.Error().Err(err).Msg("close user store failed")
	}
	g.log.Info().Msg("shutdown complete")
	return nil
}
