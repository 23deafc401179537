package snapshot

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

// SQLStore keeps snapshots as rows of a SQLite table.
type SQLStore struct {
	db *sqlx.DB
}

type snapshotRow struct {
	Name      string `db:"name"`
	Data      []byte `db:"data"`
	UpdatedAt int64  `db:"updated_at"`
}

// NewSQLStore opens dbPath and ensures the snapshots table exists.
func NewSQLStore(dbPath string) (*SQLStore, error) {
	db, err := sqlx.Connect("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to snapshot database: %w", err)
	}

	schema := `
    CREATE TABLE IF NOT EXISTS snapshots (
        name TEXT NOT NULL PRIMARY KEY,
        data BLOB NOT NULL,
        updated_at INTEGER NOT NULL
    );`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create snapshots table: %w", err)
	}
	return &SQLStore{db: db}, nil
}

func (s *SQLStore) Read(name string) ([]byte, error) {
	var row snapshotRow
	err := s.db.Get(&row, "SELECT name, data, updated_at FROM snapshots WHERE name = ?", name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotExist
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot %s: %w", name, err)
	}
	return row.Data, nil
}

func (s *SQLStore) Write(name string, data []byte) error {
	query := `INSERT INTO snapshots (name, data, updated_at) VALUES (:name, :data, :updated_at)
              ON CONFLICT(name) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`
	row := snapshotRow{Name: name, Data: data, UpdatedAt: time.Now().Unix()}
	if _, err := s.db.NamedExec(query, row); err != nil {
		return fmt.Errorf("failed to write snapshot %s: %w", name, err)
	}
	return nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}
