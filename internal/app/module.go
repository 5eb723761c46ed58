// Package app wires the direct-message client for the terminal binary.
package app

import (
	"context"
	"fmt"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/nicedig/ndm/internal/auth"
	"github.com/nicedig/ndm/internal/bus"
	"github.com/nicedig/ndm/internal/config"
	"github.com/nicedig/ndm/internal/dm"
	"github.com/nicedig/ndm/internal/dmapi"
	"github.com/nicedig/ndm/internal/format"
	"github.com/nicedig/ndm/internal/logging"
	"github.com/nicedig/ndm/internal/notify"
	"github.com/nicedig/ndm/internal/outbox"
	"github.com/nicedig/ndm/internal/page"
	"github.com/nicedig/ndm/internal/poll"
	"github.com/nicedig/ndm/internal/profile"
	"github.com/nicedig/ndm/internal/tui"
)

// Params holds the resolved profile passed to the fx module.
type Params struct {
	ProfileName string
	Settings    config.Profile
	LogPath     string // optional override for testing; empty = profile default
}

// Module returns the fx module for the client, composing all providers and
// lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("ndm",
		fx.Supply(p),
		fx.Provide(
			provideLogger,
			provideBus,
			provideClient,
			provideMachine,
			provideProvider,
			provideFormatter,
			provideConversationStore,
			provideMessageStore,
			provideCoordinator,
			provideTracker,
			provideController,
			provideTUI,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideLogger(p Params) (*zap.Logger, error) {
	path := p.LogPath
	if path == "" {
		if err := profile.EnsureDir(p.ProfileName); err != nil {
			return nil, err
		}
		path = profile.LogPath(p.ProfileName, "ndm")
	}
	return logging.New(path, p.ProfileName, false)
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideClient(p Params, logger *zap.Logger) (*dmapi.Client, error) {
	if p.Settings.BaseURL == "" {
		return nil, fmt.Errorf("profile %q: base_url is not set (config.toml or NICEDIG_BASE_URL)", p.ProfileName)
	}
	return dmapi.NewClient(dmapi.Config{
		BaseURL: p.Settings.BaseURL,
		Token:   p.Settings.Token,
		Timeout: p.Settings.Timeout.Duration,
	}, logger.Named("dmapi")), nil
}

func provideMachine(b *bus.Bus) *auth.Machine {
	return auth.NewMachine(b)
}

func provideProvider(c *dmapi.Client, m *auth.Machine, logger *zap.Logger) *auth.Provider {
	return auth.NewProvider(c, m, logger.Named("auth"))
}

func provideFormatter(p Params, logger *zap.Logger) *format.Formatter {
	f, err := format.New(p.Settings.TimeZone)
	if err != nil {
		logger.Warn("falling back to UTC", zap.Error(err))
	}
	return f
}

func provideConversationStore(c *dmapi.Client, b *bus.Bus, logger *zap.Logger) *dm.ConversationStore {
	return dm.NewConversationStore(c, b, logger.Named("conversations"))
}

func provideMessageStore(p Params, c *dmapi.Client, b *bus.Bus, logger *zap.Logger) *dm.MessageStore {
	trigger := poll.Interval{Every: p.Settings.MessagePollInterval.Duration}
	return dm.NewMessageStore(c, trigger, p.Settings.MessagesPerPage, b, logger.Named("messages"))
}

func provideCoordinator(p Params, c *dmapi.Client, b *bus.Bus, logger *zap.Logger) *notify.Coordinator {
	trigger := poll.Interval{Every: p.Settings.UnreadPollInterval.Duration}
	return notify.NewCoordinator(c, trigger, b, logger.Named("unread"))
}

func provideTracker(b *bus.Bus, logger *zap.Logger) *outbox.Tracker {
	return outbox.NewTracker(b, logger.Named("outbox"))
}

func provideController(convs *dm.ConversationStore, msgs *dm.MessageStore, unread *notify.Coordinator, session *auth.Provider, pending *outbox.Tracker, b *bus.Bus, logger *zap.Logger) *page.Controller {
	return page.NewController(convs, msgs, unread, session, pending, b, logger.Named("page"))
}

func provideTUI(p Params, ctrl *page.Controller, convs *dm.ConversationStore, msgs *dm.MessageStore, unread *notify.Coordinator, session *auth.Provider, c *dmapi.Client, f *format.Formatter, b *bus.Bus, logger *zap.Logger) *tui.App {
	return tui.New(tui.Deps{
		Controller:    ctrl,
		Conversations: convs,
		Messages:      msgs,
		Unread:        unread,
		Session:       session,
		Candidates:    c.FetchPotentialParticipants,
		Formatter:     f,
		Bus:           b,
		Logger:        logger.Named("tui"),
	}, tui.Options{
		Profile:     p.ProfileName,
		NarrowWidth: p.Settings.NarrowWidth,
		WebURL:      p.Settings.WebURL,
	})
}

func registerLifecycle(lc fx.Lifecycle, session *auth.Provider, convs *dm.ConversationStore, msgs *dm.MessageStore, unread *notify.Coordinator, ctrl *page.Controller, logger *zap.Logger) {
	ctx, cancel := context.WithCancel(context.Background())
	var unwatch func()

	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			msgs.Start(ctx)
			unread.Start(ctx)
			// The coordinator must see the first session transition.
			unwatch = unread.WatchSession(session)

			go func() {
				if err := session.Load(ctx); err != nil {
					logger.Warn("failed to load current user", zap.Error(err))
				}
				logger.Info("session loaded", zap.String("state", string(session.State())))
				if err := ctrl.Start(ctx); err != nil {
					logger.Warn("initial conversation load failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(_ context.Context) error {
			cancel()
			if unwatch != nil {
				unwatch()
			}
			ctrl.Stop()
			unread.Stop()
			msgs.Close()
			logger.Info("client stopped", zap.Int("conversations", len(convs.Conversations())))
			_ = logger.Sync()
			return nil
		},
	})
}
