package store

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"rgehrsitz/draftcheck/internal/runtime"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// ErrNotFound is returned when no verdict exists for a run id.
var ErrNotFound = errors.New("verdict not found")

// timeLayout is fixed-width so created_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Store is an append-only audit log of verdicts backed by SQLite.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Record is a stored verdict.
type Record struct {
	RunID     string           `json:"runId"`
	SubjectID string           `json:"subjectId,omitempty"`
	Catalog   string           `json:"catalog"`
	Final     runtime.Final    `json:"final"`
	Verdict   *runtime.Verdict `json:"verdict"`
	CreatedAt time.Time        `json:"createdAt"`
}

// Open creates or opens the audit database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record appends a verdict to the log.
func (s *Store) Record(ctx context.Context, subjectID string, v *runtime.Verdict) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal verdict: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO verdicts (run_id, subject_id, catalog, final, verdict_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		v.RunID, subjectID, v.Catalog, string(v.Final), string(payload),
		s.now().UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to record verdict %s: %w", v.RunID, err)
	}
	return nil
}

// Get returns the verdict recorded for runID.
func (s *Store) Get(ctx context.Context, runID string) (*Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT run_id, subject_id, catalog, final, verdict_json, created_at
		 FROM verdicts WHERE run_id = ?`, runID)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return rec, err
}

// ListBySubject returns the most recent verdicts for a subject, newest first.
func (s *Store) ListBySubject(ctx context.Context, subjectID string, limit int) ([]*Record, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, subject_id, catalog, final, verdict_json, created_at
		 FROM verdicts WHERE subject_id = ?
		 ORDER BY created_at DESC, run_id DESC LIMIT ?`, subjectID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query verdicts: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (*Record, error) {
	var (
		rec       Record
		final     string
		payload   string
		createdAt string
	)
	if err := sc.Scan(&rec.RunID, &rec.SubjectID, &rec.Catalog, &final, &payload, &createdAt); err != nil {
		return nil, err
	}
	rec.Final = runtime.Final(final)

	var v runtime.Verdict
	if err := json.Unmarshal([]byte(payload), &v); err != nil {
		return nil, fmt.Errorf("failed to decode verdict %s: %w", rec.RunID, err)
	}
	rec.Verdict = &v

	t, err := time.Parse(timeLayout, createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse created_at for %s: %w", rec.RunID, err)
	}
	rec.CreatedAt = t
	return &rec, nil
}
