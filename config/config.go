package config

import (
	"errors"
	"fmt"
	"modhelper/model"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

var ErrMissingToken = errors.New("BOT_TOKEN environment variable not set")

func setDefaults(v *viper.Viper) {
	v.SetDefault("COMMAND_PREFIX", "?")
	v.SetDefault("LOG_CHANNEL_ID", "")
	v.SetDefault("DEVELOPER_USER_IDS", "")
	v.SetDefault("DATA_DIR", "data")
	v.SetDefault("SNAPSHOT_BACKEND", "file")
	v.SetDefault("DEFAULT_CACHE_SIZE", 10)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_PRETTY", false)
	v.SetDefault("ATTACHMENT_SWEEP_CRON", "@daily")
	v.SetDefault("SHUTDOWN_TIMEOUT", "10s")
}

// Load 从 .env、环境变量和可选的配置文件加载配置
func Load() (*model.Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Info().Msg(".env file not found, relying on environment variables")
	}
	return load(viper.New())
}

func load(v *viper.Viper) (*model.Config, error) {
	setDefaults(v)
	v.AutomaticEnv()

	if file := v.GetString("CONFIG_FILE"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", file, err)
		}
	}

	token := v.GetString("BOT_TOKEN")
	if token == "" {
		return nil, ErrMissingToken
	}

	cfg := &model.Config{
		BotToken:            token,
		CommandPrefix:       v.GetString("COMMAND_PREFIX"),
		LogChannelID:        v.GetString("LOG_CHANNEL_ID"),
		DeveloperUserIDs:    splitList(v.GetString("DEVELOPER_USER_IDS")),
		DataDir:             v.GetString("DATA_DIR"),
		SnapshotBackend:     strings.ToLower(v.GetString("SNAPSHOT_BACKEND")),
		DefaultCacheSize:    v.GetInt("DEFAULT_CACHE_SIZE"),
		LogLevel:            v.GetString("LOG_LEVEL"),
		LogPretty:           v.GetBool("LOG_PRETTY"),
		AttachmentSweepCron: v.GetString("ATTACHMENT_SWEEP_CRON"),
		ShutdownTimeout:     v.GetDuration("SHUTDOWN_TIMEOUT"),
	}

	if cfg.LogChannelID == "" {
		log.Warn().Msg("LOG_CHANNEL_ID not set, falling back to per-guild log channels only")
	}
	if cfg.DefaultCacheSize < 0 {
		return nil, fmt.Errorf("DEFAULT_CACHE_SIZE must not be negative, got %d", cfg.DefaultCacheSize)
	}
	if cfg.ShutdownTimeout <= 0 {
		return nil, fmt.Errorf("SHUTDOWN_TIMEOUT must be positive, got %s", v.GetString("SHUTDOWN_TIMEOUT"))
	}
	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
