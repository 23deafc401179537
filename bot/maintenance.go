package bot

import (
	"errors"
	"fmt"
	"io/fs"
	"modhelper/utils"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// orphans younger than this may belong to a download still in progress
const orphanGracePeriod = time.Hour

func (b *Bot) startMaintenance() error {
	b.cron = cron.New()
	if _, err := b.cron.AddFunc(b.Config.AttachmentSweepCron, b.sweepAttachments); err != nil {
		return fmt.Errorf("invalid ATTACHMENT_SWEEP_CRON %q: %w", b.Config.AttachmentSweepCron, err)
	}
	b.cron.Start()
	return nil
}

func (b *Bot) sweepAttachments() {
	keep := make(map[string]struct{})
	for _, p := range b.Cache.Files() {
		keep[filepath.Clean(p)] = struct{}{}
	}
	for _, p := range b.Scheduler.Files() {
		keep[filepath.Clean(p)] = struct{}{}
	}

	deleted, err := SweepOrphanFiles(b.Config.AttachmentDir(), keep, time.Now().Add(-orphanGracePeriod))
	if err != nil {
		utils.LogError(b.Session, b.Config.LogChannelID, "Maintenance", "SweepAttachments", err.Error())
		return
	}
	if deleted > 0 {
		log.Info().Int("files", deleted).Msg("removed orphaned attachments")
	}
}

// SweepOrphanFiles removes files under root that are not in keep and were last modified
// before cutoff. A missing root is not an error.
func SweepOrphanFiles(root string, keep map[string]struct{}, cutoff time.Time) (int, error) {
	deleted := 0
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && path == root {
				return filepath.SkipDir
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		if _, ok := keep[filepath.Clean(path)]; ok {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("could not stat attachment")
			return nil
		}
		if !info.ModTime().Before(cutoff) {
			return nil
		}
		if err := os.Remove(path); err != nil {
			log.Warn().Err(err).Str("path", path).Msg("failed to delete orphaned attachment")
			return nil
		}
		deleted++
		return nil
	})
	return deleted, err
}
