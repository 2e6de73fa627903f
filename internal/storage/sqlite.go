package storage

import (
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store wraps a SQLite database with methods for the key-value table,
// the activity log and coding attempts.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) a SQLite database in dataDir and runs pending migrations.
// Pass ":memory:" as dataDir for an in-memory database (used by tests).
func Open(dataDir string) (*Store, error) {
	var dsn string
	if dataDir == ":memory:" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "prepd.db")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// A single connection keeps ":memory:" databases alive and avoids
	// "database is locked" errors.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate reads embedded SQL migration files and applies any that haven't been run yet.
func (s *Store) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		version, err := parseMigrationVersion(entry.Name())
		if err != nil {
			return err
		}

		var exists int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_version WHERE version = ?", version).Scan(&exists); err != nil {
			return fmt.Errorf("checking migration %d: %w", version, err)
		}
		if exists > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning transaction for migration %d: %w", version, err)
		}

		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", version, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", version, err)
		}
	}

	return nil
}

func parseMigrationVersion(filename string) (int, error) {
	var version int
	if _, err := fmt.Sscanf(filename, "%d_", &version); err != nil {
		return 0, fmt.Errorf("parsing migration version from %q: %w", filename, err)
	}
	return version, nil
}

// AppliedMigrations returns the list of applied migration versions in ascending order.
func (s *Store) AppliedMigrations() ([]int, error) {
	rows, err := s.db.Query("SELECT version FROM schema_version ORDER BY version ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// --- Key-value ---

func (s *Store) SetValue(key, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO kv_store (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC().Format(timeLayout),
	)
	return err
}

func (s *Store) GetValue(key string) (string, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM kv_store WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	return value, err
}

func (s *Store) DeleteValue(key string) error {
	res, err := s.db.Exec("DELETE FROM kv_store WHERE key = ?", key)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Activities ---

func (s *Store) SaveActivity(a Activity) error {
	_, err := s.db.Exec(`
		INSERT INTO activities (id, kind, accuracy, difficulty, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		a.ID, a.Kind, a.Accuracy, a.Difficulty, a.CreatedAt.UTC().Format(timeLayout),
	)
	return err
}

// ListActivities returns activities newest first.
func (s *Store) ListActivities(limit, offset int) ([]Activity, error) {
	rows, err := s.db.Query(`
		SELECT id, kind, accuracy, difficulty, created_at
		FROM activities ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?`, limit, offset,
	)
	if err != nil {
		return nil, err
	}
	return scanActivities(rows)
}

// AllActivities returns every activity oldest first.
func (s *Store) AllActivities() ([]Activity, error) {
	rows, err := s.db.Query(`
		SELECT id, kind, accuracy, difficulty, created_at
		FROM activities ORDER BY created_at ASC, rowid ASC`,
	)
	if err != nil {
		return nil, err
	}
	return scanActivities(rows)
}

func (s *Store) DeleteAllActivities() (int64, error) {
	res, err := s.db.Exec("DELETE FROM activities")
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanActivities(rows *sql.Rows) ([]Activity, error) {
	defer rows.Close()

	var results []Activity
	for rows.Next() {
		var a Activity
		var createdAt string
		if err := rows.Scan(&a.ID, &a.Kind, &a.Accuracy, &a.Difficulty, &createdAt); err != nil {
			return nil, err
		}
		t, err := time.Parse(timeLayout, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		a.CreatedAt = t
		results = append(results, a)
	}
	return results, rows.Err()
}

// --- Coding attempts ---

func (s *Store) SaveCodingAttempt(c CodingAttempt) error {
	status := c.Status
	if status == "" {
		status = "submitted"
	}
	_, err := s.db.Exec(`
		INSERT INTO coding_attempts (id, language, code, status, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		c.ID, c.Language, c.Code, status, c.CreatedAt.UTC().Format(timeLayout),
	)
	return err
}

func (s *Store) GetCodingAttempt(id string) (CodingAttempt, error) {
	var c CodingAttempt
	var createdAt string
	err := s.db.QueryRow(`
		SELECT id, language, code, status, created_at
		FROM coding_attempts WHERE id = ?`, id,
	).Scan(&c.ID, &c.Language, &c.Code, &c.Status, &createdAt)
	if err == sql.ErrNoRows {
		return CodingAttempt{}, ErrNotFound
	}
	if err != nil {
		return CodingAttempt{}, err
	}
	t, err := time.Parse(timeLayout, createdAt)
	if err != nil {
		return CodingAttempt{}, fmt.Errorf("parsing created_at: %w", err)
	}
	c.CreatedAt = t
	return c, nil
}

// ListCodingAttempts returns attempts newest first.
func (s *Store) ListCodingAttempts(limit, offset int) ([]CodingAttempt, error) {
	rows, err := s.db.Query(`
		SELECT id, language, code, status, created_at
		FROM coding_attempts ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?`, limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []CodingAttempt
	for rows.Next() {
		var c CodingAttempt
		var createdAt string
		if err := rows.Scan(&c.ID, &c.Language, &c.Code, &c.Status, &createdAt); err != nil {
			return nil, err
		}
		t, err := time.Parse(timeLayout, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		c.CreatedAt = t
		results = append(results, c)
	}
	return results, rows.Err()
}

func (s *Store) DeleteAllCodingAttempts() (int64, error) {
	res, err := s.db.Exec("DELETE FROM coding_attempts")
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
