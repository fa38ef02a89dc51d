package settings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite3 driver

	"desktop-thumbnailer/internal/logging"
)

// Default timeout for database operations
const defaultTimeout = 5 * time.Second

// SQLiteBackend stores settings in a single SQLite table.
type SQLiteBackend struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteBackend opens (creating if needed) the settings database at
// dbPath. The parent directory must already exist.
func NewSQLiteBackend(ctx context.Context, dbPath string) (*SQLiteBackend, error) {
	logging.Debug("Settings database path: %s", dbPath)

	connStr := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000", dbPath)

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open settings database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close settings database after ping failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to connect to settings database: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)

	b := &SQLiteBackend{db: db, dbPath: dbPath}

	if err := b.initialize(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close settings database after initialization failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to initialize settings schema: %w", err)
	}

	logging.Info("Settings database initialized at %s", dbPath)
	return b, nil
}

func (b *SQLiteBackend) initialize(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
	);
	`
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := b.db.ExecContext(ctx, schema)
	return err
}

func (b *SQLiteBackend) Get(key string) (string, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var value string
	err := b.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (b *SQLiteBackend) Set(key, value string) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	_, err := b.db.ExecContext(ctx, `
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, strftime('%s', 'now'))
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value)
	return err
}

func (b *SQLiteBackend) Delete(key string) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	_, err := b.db.ExecContext(ctx, `DELETE FROM settings WHERE key = ?`, key)
	return err
}

func (b *SQLiteBackend) Keys(prefix string) ([]string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	rows, err := b.db.QueryContext(ctx,
		`SELECT key FROM settings WHERE substr(key, 1, length(?)) = ? ORDER BY key`, prefix, prefix)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logging.Warn("failed to close settings rows: %v", err)
		}
	}()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

func (b *SQLiteBackend) Close() error {
	return b.db.Close()
}
