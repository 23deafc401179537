package bot

import (
	"context"
	"modhelper/cache"
	"modhelper/commands"
	"modhelper/model"
	"modhelper/scheduler"
	"modhelper/snapshot"
	"modhelper/utils"
	"modhelper/utils/database"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// Snapshot names under which the in-memory state is persisted.
const (
	DeleteCacheSnapshot = "delete_cache"
	SchedulerSnapshot   = "scheduler"
)

type Bot struct {
	Session   *discordgo.Session
	Config    *model.Config
	Settings  *database.SettingsDB
	Store     snapshot.Store
	Cache     *cache.DeleteCache
	Scheduler *scheduler.Scheduler
	Router    *commands.Router
	Gateway   *Gateway
	// RestoreLimiter paces bulk restores so a large selection does not hit Discord's rate limits.
	RestoreLimiter *rate.Limiter

	ctx       context.Context
	cancel    context.CancelFunc
	cron      *cron.Cron
	closeOnce sync.Once
}

func New(cfg *model.Config, settings *database.SettingsDB, store snapshot.Store) (*Bot, error) {
	dg, err := discordgo.New("Bot " + cfg.BotToken)
	if err != nil {
		return nil, err
	}
	dg.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMessages | discordgo.IntentMessageContent
	dg.StateEnabled = false

	ctx, cancel := context.WithCancel(context.Background())
	b := &Bot{
		Session:        dg,
		Config:         cfg,
		Settings:       settings,
		Store:          store,
		Router:         commands.NewRouter(cfg.CommandPrefix),
		Gateway:        NewGateway(dg),
		RestoreLimiter: rate.NewLimiter(rate.Every(500*time.Millisecond), 1),
		ctx:            ctx,
		cancel:         cancel,
	}
	b.Cache = cache.New(settings, utils.ReleaseFiles)
	b.Scheduler = scheduler.New(
		scheduler.Env{Gateway: b.Gateway, Dispatcher: b},
		scheduler.WithRelease(utils.ReleaseFiles),
	)
	return b, nil
}

// Context is cancelled once the bot starts shutting down.
func (b *Bot) Context() context.Context {
	return b.ctx
}

// LogChannel returns the mod-log channel of a guild, falling back to the global one.
func (b *Bot) LogChannel(guildID string) string {
	gs, err := b.Settings.Get(guildID)
	if err == nil && gs.LogChannelID != "" {
		return gs.LogChannelID
	}
	return b.Config.LogChannelID
}

func (b *Bot) loadSnapshots() {
	b.Cache.Load(snapshot.Load[model.CachedMessage](b.Store, DeleteCacheSnapshot))
	b.Scheduler.Load(snapshot.Load[model.TaskRecord](b.Store, SchedulerSnapshot))
}

func (b *Bot) saveSnapshots() {
	if err := snapshot.Save(b.Store, DeleteCacheSnapshot, b.Cache.Snapshot()); err != nil {
		log.Error().Err(err).Msg("failed to save delete cache")
	}
	if err := snapshot.Save(b.Store, SchedulerSnapshot, b.Scheduler.Snapshot()); err != nil {
		log.Error().Err(err).Msg("failed to save scheduler")
	}
}

// Close stops the maintenance jobs, suspends the scheduler and persists both collections
// before closing the session and the databases.
func (b *Bot) Close() {
	b.closeOnce.Do(func() {
		log.Info().Msg("Gracefully shutting down.")

		if b.cron != nil {
			<-b.cron.Stop().Done()
		}

		ctx, cancel := context.WithTimeout(context.Background(), b.Config.ShutdownTimeout)
		defer cancel()
		if err := b.Scheduler.Shutdown(ctx); err != nil {
			log.Warn().Err(err).Msg("scheduler did not drain before timeout")
		}
		b.cancel()
		b.saveSnapshots()

		if err := b.Session.Close(); err != nil {
			log.Warn().Err(err).Msg("error closing session")
		}
		if err := b.Store.Close(); err != nil {
			log.Warn().Err(err).Msg("error closing snapshot store")
		}
		if err := b.Settings.Close(); err != nil {
			log.Warn().Err(err).Msg("error closing settings database")
		}
	})
}
