package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/scoperival/internal/model"
)

// FileName is the database file created inside the data directory.
const FileName = "scoperival.db"

// TokenKey is the credentials key holding the bearer token.
const TokenKey = "token"

// journalTimeLayout is fixed-width so that timestamps sort as text.
const journalTimeLayout = "2006-01-02T15:04:05.000000Z07:00"

// ErrNotFound is returned when Open is asked not to create a missing database.
var ErrNotFound = errors.New("database not found")

// LocalDB is the client's on-disk state.
type LocalDB struct {
	db     *sql.DB
	dbPath string
	now    func() time.Time
}

// Options configures LocalDB behavior.
type Options struct {
	// CreateIfNotExists creates the directory and database file when missing.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the options used by the CLI.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates the database in dir.
func Open(dir string, opts Options) (*LocalDB, error) {
	dbPath := filepath.Join(dir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w at %s", ErrNotFound, dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	ldb := &LocalDB{
		db:     db,
		dbPath: dbPath,
		now:    time.Now,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := ldb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	// The file holds a bearer token.
	if err := os.Chmod(dbPath, 0o600); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to restrict database permissions: %w", err)
	}

	return ldb, nil
}

// Path returns the database file path.
func (ldb *LocalDB) Path() string {
	return ldb.dbPath
}

// Close closes the database connection.
func (ldb *LocalDB) Close() error {
	return ldb.db.Close()
}

func (ldb *LocalDB) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS credentials (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS scan_journal (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		competitor_id TEXT NOT NULL,
		competitor_name TEXT,
		status TEXT NOT NULL,
		message TEXT,
		changes_detected INTEGER DEFAULT 0,
		error TEXT,
		duration_ms INTEGER DEFAULT 0,
		timestamp TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_journal_competitor ON scan_journal(competitor_id);
	CREATE INDEX IF NOT EXISTS idx_journal_timestamp ON scan_journal(timestamp);
	`

	_, err := ldb.db.ExecContext(context.Background(), schema)
	return err
}

// LoadToken returns the persisted token, or "" when none is stored.
func (ldb *LocalDB) LoadToken(ctx context.Context) (string, error) {
	var token string
	err := ldb.db.QueryRowContext(ctx, "SELECT value FROM credentials WHERE key = ?", TokenKey).Scan(&token)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to load token: %w", err)
	}
	return token, nil
}

// SaveToken persists token, replacing any previous one.
func (ldb *LocalDB) SaveToken(ctx context.Context, token string) error {
	query := `
	INSERT INTO credentials (key, value, updated_at)
	VALUES (?, ?, CURRENT_TIMESTAMP)
	ON CONFLICT(key) DO UPDATE SET
		value = excluded.value,
		updated_at = CURRENT_TIMESTAMP
	`
	if _, err := ldb.db.ExecContext(ctx, query, TokenKey, token); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	return nil
}

// DeleteToken removes the persisted token. Deleting a missing token is not an error.
func (ldb *LocalDB) DeleteToken(ctx context.Context) error {
	if _, err := ldb.db.ExecContext(ctx, "DELETE FROM credentials WHERE key = ?", TokenKey); err != nil {
		return fmt.Errorf("failed to delete token: %w", err)
	}
	return nil
}

// RecordScan appends rec to the scan journal. A zero Timestamp is set to now.
func (ldb *LocalDB) RecordScan(ctx context.Context, rec model.ScanRecord) error {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = ldb.now()
	}

	query := `
	INSERT INTO scan_journal (competitor_id, competitor_name, status, message, changes_detected, error, duration_ms, timestamp)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := ldb.db.ExecContext(ctx, query,
		rec.CompetitorID,
		rec.CompetitorName,
		string(rec.Status),
		rec.Message,
		rec.ChangesDetected,
		rec.Error,
		rec.Duration.Milliseconds(),
		rec.Timestamp.UTC().Format(journalTimeLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to record scan: %w", err)
	}
	return nil
}

// ScanHistory returns journal entries for competitorID, newest first.
// An empty competitorID returns the whole journal. limit <= 0 means no limit.
func (ldb *LocalDB) ScanHistory(ctx context.Context, competitorID string, limit int) ([]model.ScanRecord, error) {
	query := `
	SELECT id, competitor_id, competitor_name, status, message, changes_detected, error, duration_ms, timestamp
	FROM scan_journal
	WHERE 1=1
	`
	args := make([]any, 0, 2)

	if competitorID != "" {
		query += " AND competitor_id = ?"
		args = append(args, competitorID)
	}
	query += " ORDER BY timestamp DESC, id DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := ldb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query scan history: %w", err)
	}
	defer rows.Close()

	var records []model.ScanRecord
	for rows.Next() {
		var (
			rec        model.ScanRecord
			name       sql.NullString
			status     string
			message    sql.NullString
			errText    sql.NullString
			durationMS int64
			timestamp  string
		)
		if err := rows.Scan(
			&rec.ID,
			&rec.CompetitorID,
			&name,
			&status,
			&message,
			&rec.ChangesDetected,
			&errText,
			&durationMS,
			&timestamp,
		); err != nil {
			return nil, fmt.Errorf("failed to scan journal row: %w", err)
		}

		rec.CompetitorName = name.String
		rec.Status = model.ScanStatus(status)
		rec.Message = message.String
		rec.Error = errText.String
		rec.Duration = time.Duration(durationMS) * time.Millisecond
		rec.Timestamp = parseTimestamp(timestamp)
		records = append(records, rec)
	}

	return records, rows.Err()
}

// timestampFormats contains the timestamp formats that SQLite may return.
// More specific formats come first.
var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999",
}

// parseTimestamp tries each known format and returns the zero time when none match.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
