package model

import "time"

// GuildSettings 定义了每个服务器的可调设置
type GuildSettings struct {
	GuildID      string `db:"guild_id"`
	CacheSize    int    `db:"cache_size"`
	ModRoleID    string `db:"mod_role_id"`
	LogChannelID string `db:"log_channel_id"`
}

// Config 存储应用程序的配置
type Config struct {
	BotToken            string
	CommandPrefix       string
	LogChannelID        string
	DeveloperUserIDs    []string
	DataDir             string
	SnapshotBackend     string
	DefaultCacheSize    int
	LogLevel            string
	LogPretty           bool
	AttachmentSweepCron string
	ShutdownTimeout     time.Duration
}

// AttachmentDir is where downloaded attachments owned by cache entries and tasks live.
func (c *Config) AttachmentDir() string {
	return c.DataDir + "/attachments"
}

// SettingsDBPath is the SQLite file holding guild settings.
func (c *Config) SettingsDBPath() string {
	return c.DataDir + "/guilds.db"
}
