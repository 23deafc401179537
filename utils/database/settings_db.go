package database

import (
	"database/sql"
	"errors"
	"fmt"
	"modhelper/model"
	"sync"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"
)

// SettingsDB stores per-guild settings in SQLite and keeps a read-through copy in memory.
type SettingsDB struct {
	db               *sqlx.DB
	defaultCacheSize int

	mu    sync.RWMutex
	cache map[string]model.GuildSettings
}

// InitSettingsDB opens the settings database and ensures the table exists.
func InitSettingsDB(dbPath string, defaultCacheSize int) (*SettingsDB, error) {
	db, err := sqlx.Connect("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to settings database: %w", err)
	}

	schema := `
    CREATE TABLE IF NOT EXISTS guild_settings (
        guild_id TEXT NOT NULL PRIMARY KEY,
        cache_size INTEGER NOT NULL,
        mod_role_id TEXT NOT NULL DEFAULT '',
        log_channel_id TEXT NOT NULL DEFAULT ''
    );`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create guild_settings table: %w", err)
	}

	return &SettingsDB{
		db:               db,
		defaultCacheSize: defaultCacheSize,
		cache:            make(map[string]model.GuildSettings),
	}, nil
}

// Close closes the underlying database.
func (s *SettingsDB) Close() error {
	return s.db.Close()
}

// Get returns the settings of a guild, falling back to defaults when none are stored.
func (s *SettingsDB) Get(guildID string) (model.GuildSettings, error) {
	s.mu.RLock()
	gs, ok := s.cache[guildID]
	s.mu.RUnlock()
	if ok {
		return gs, nil
	}

	err := s.db.Get(&gs, "SELECT guild_id, cache_size, mod_role_id, log_channel_id FROM guild_settings WHERE guild_id = ?", guildID)
	if errors.Is(err, sql.ErrNoRows) {
		gs = model.GuildSettings{GuildID: guildID, CacheSize: s.defaultCacheSize}
	} else if err != nil {
		return model.GuildSettings{}, fmt.Errorf("failed to get settings for guild %s: %w", guildID, err)
	}

	s.mu.Lock()
	s.cache[guildID] = gs
	s.mu.Unlock()
	return gs, nil
}

// Save upserts the settings of a guild.
func (s *SettingsDB) Save(gs model.GuildSettings) error {
	query := `INSERT INTO guild_settings (guild_id, cache_size, mod_role_id, log_channel_id)
              VALUES (:guild_id, :cache_size, :mod_role_id, :log_channel_id)
              ON CONFLICT(guild_id) DO UPDATE SET
                cache_size = excluded.cache_size,
                mod_role_id = excluded.mod_role_id,
                log_channel_id = excluded.log_channel_id`
	if _, err := s.db.NamedExec(query, gs); err != nil {
		return fmt.Errorf("failed to save settings for guild %s: %w", gs.GuildID, err)
	}

	s.mu.Lock()
	s.cache[gs.GuildID] = gs
	s.mu.Unlock()
	return nil
}

// Update applies fn to the current settings of a guild and saves the result.
func (s *SettingsDB) Update(guildID string, fn func(*model.GuildSettings)) (model.GuildSettings, error) {
	gs, err := s.Get(guildID)
	if err != nil {
		return gs, err
	}
	fn(&gs)
	return gs, s.Save(gs)
}

// CacheCapacity implements model.SettingsProvider. A lookup failure disables caching for the
// call rather than guessing a size.
func (s *SettingsDB) CacheCapacity(guildID string) int {
	gs, err := s.Get(guildID)
	if err != nil {
		log.Warn().Err(err).Str("guild", guildID).Msg("cache capacity lookup failed, caching disabled")
		return 0
	}
	return gs.CacheSize
}
