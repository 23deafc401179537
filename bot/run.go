package bot

import (
	"context"
	"fmt"
	"modhelper/utils"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
)

// Run restores the persisted state, connects to Discord and blocks until ctx is done or the
// process receives SIGINT/SIGTERM.
func (b *Bot) Run(ctx context.Context) error {
	b.loadSnapshots()

	if err := b.startMaintenance(); err != nil {
		return err
	}

	if err := b.Session.Open(); err != nil {
		return fmt.Errorf("error opening connection: %w", err)
	}

	log.Info().Msg("Bot is now running. Press CTRL-C to exit.")
	utils.LogMod(b.Session, b.Config.LogChannelID, "Bot has started", []utils.LogField{
		{Name: "Scheduled tasks", Value: fmt.Sprintf("%d", b.Scheduler.Count())},
	}, time.Now())

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()
	<-ctx.Done()
	return nil
}
