package main

import (
	"context"
	"modhelper/bot"
	"modhelper/config"
	"modhelper/handlers"
	"modhelper/snapshot"
	"modhelper/utils"
	"modhelper/utils/database"
	"os"

	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
	}
	utils.SetupLogger(cfg.LogLevel, cfg.LogPretty)

	if err := os.MkdirAll(cfg.AttachmentDir(), os.ModePerm); err != nil {
		log.Fatal().Err(err).Msg("Failed to create data directory")
	}
	settings, err := database.InitSettingsDB(cfg.SettingsDBPath(), cfg.DefaultCacheSize)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing settings database")
	}
	store, err := snapshot.Open(cfg.SnapshotBackend, cfg.DataDir)
	if err != nil {
		log.Fatal().Err(err).Msg("Error opening snapshot store")
	}

	b, err := bot.New(cfg, settings, store)
	if err != nil {
		log.Fatal().Err(err).Msg("Error creating bot")
	}
	defer b.Close()

	handlers.Register(b)

	if err := b.Run(context.Background()); err != nil {
		log.Error().Err(err).Msg("Bot stopped with an error")
	}
}
