package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/vhmesh/internal/seal"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Initial schema (pre-migration)
// 1 - graph_nodes table
// 2 - Added encoding column so string values round-trip verbatim
const currentSchemaVersion = 2

const (
	encodingJSON = "json"
	encodingRaw  = "raw"
)

// SQLite is the persistent encrypted backend.
//
// Thread-safety: database/sql serializes access; the key source derives
// its key once.
type SQLite struct {
	db     *sql.DB
	keys   *seal.KeySource
	signal Signal
	now    func() time.Time
}

var _ Adapter = (*SQLite)(nil)

// OpenSQLite creates or opens an encrypted store at path.
// Applies required pragmas and migrations automatically.
func OpenSQLite(path string, keys *seal.KeySource, signal Signal, now func() time.Time) (*SQLite, error) {
	if keys == nil {
		keys = seal.NewKeySource("", "")
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &SQLite{db: db, keys: keys, signal: signal, now: now}, nil
}

// Backend returns BackendSQLite.
func (s *SQLite) Backend() string { return BackendSQLite }

// DB returns the underlying sql.DB for direct queries.
// Use with caution - prefer using SQLite methods when available.
func (s *SQLite) DB() *sql.DB { return s.db }

// Hydrate confirms the database answers and derives the key, then releases
// the barrier.
func (s *SQLite) Hydrate(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("hydrate: %w", err)
	}
	s.keys.Key()
	if s.signal != nil {
		s.signal.MarkReady()
	}
	return nil
}

// Write encrypts rec.Value with a fresh IV and upserts it, replacing any
// previous record at rec.Key.
func (s *SQLite) Write(ctx context.Context, rec Record) error {
	plaintext, encoding, err := encodeValue(rec.Value)
	if err != nil {
		return fmt.Errorf("write %q: %w", rec.Key, err)
	}
	iv, ciphertext, err := seal.Encrypt(s.keys.Key(), plaintext)
	if err != nil {
		return fmt.Errorf("write %q: %w", rec.Key, err)
	}
	rec = stamp(rec, s.now)

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO graph_nodes (key, iv, ciphertext, encoding, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			iv = excluded.iv,
			ciphertext = excluded.ciphertext,
			encoding = excluded.encoding,
			updated_at = excluded.updated_at
	`, rec.Key, iv, ciphertext, encoding, rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("write %q: %w", rec.Key, err)
	}
	return nil
}

// Read decrypts the record at key. Absent keys yield (nil, nil).
func (s *SQLite) Read(ctx context.Context, key string) (*Record, error) {
	var (
		iv, ciphertext []byte
		encoding       string
		updatedAt      int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT iv, ciphertext, encoding, updated_at
		FROM graph_nodes
		WHERE key = ?
	`, key).Scan(&iv, &ciphertext, &encoding, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %q: %w", key, err)
	}

	plaintext, err := seal.Decrypt(s.keys.Key(), iv, ciphertext)
	if err != nil {
		return nil, fmt.Errorf("read %q: %w", key, err)
	}

	return &Record{Key: key, Value: decodeValue(plaintext, encoding), UpdatedAt: updatedAt}, nil
}

// Keys returns every stored key in ascending order.
func (s *SQLite) Keys(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key FROM graph_nodes ORDER BY key ASC`)
	if err != nil {
		return nil, fmt.Errorf("keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("keys: %w", err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("keys: %w", err)
	}
	return keys, nil
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func encodeValue(v any) ([]byte, string, error) {
	if str, ok := v.(string); ok {
		return []byte(str), encodingRaw, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, "", err
	}
	return data, encodingJSON, nil
}

func decodeValue(plaintext []byte, encoding string) any {
	if encoding == encodingRaw {
		return string(plaintext)
	}
	var v any
	if err := json.Unmarshal(plaintext, &v); err != nil {
		return string(plaintext)
	}
	return v
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema creates tables if they don't exist and runs migrations.
// This function is idempotent.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// runMigrations applies incremental schema migrations based on user_version.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version < 2 {
		if err := migrateToV2(db); err != nil {
			return err
		}
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}

	return nil
}

// migrateToV2 adds the encoding column to v1 databases. Rows written
// before it existed were JSON-or-raw sniffed on read, which 'json' keeps.
func migrateToV2(db *sql.DB) error {
	has, err := hasColumn(db, "graph_nodes", "encoding")
	if err != nil {
		return fmt.Errorf("migrate to v2: %w", err)
	}
	if has {
		return nil
	}
	_, err = db.Exec(`ALTER TABLE graph_nodes ADD COLUMN encoding TEXT NOT NULL DEFAULT 'json'`)
	if err != nil {
		return fmt.Errorf("migrate to v2: %w", err)
	}
	return nil
}

func hasColumn(db *sql.DB, table, column string) (bool, error) {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid     int
			name    string
			ctype   string
			notnull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return false, err
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}
