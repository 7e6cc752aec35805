package db

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// PredictionRecord is one audited prediction. Raw inputs are never
// stored; InputSize is the text length for spam and the feature count
// for malware.
type PredictionRecord struct {
	ID           int64     `json:"id"`
	RequestID    string    `json:"request_id"`
	Pipeline     string    `json:"pipeline"`
	Label        string    `json:"label"`
	Confidence   float64   `json:"confidence"`
	ProbNegative float64   `json:"prob_negative"`
	ProbPositive float64   `json:"prob_positive"`
	InputSize    int       `json:"input_size"`
	CreatedAt    time.Time `json:"created_at"`
}

// Store is the prediction audit log.
type Store struct {
	database *sql.DB
	insert   *sql.Stmt
}

// Open opens (or creates) the SQLite database at path.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("database path required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	database, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	query := `
    CREATE TABLE IF NOT EXISTS predictions (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        request_id TEXT NOT NULL,
        pipeline VARCHAR(20) NOT NULL,
        label VARCHAR(20) NOT NULL,
        confidence REAL NOT NULL,
        prob_negative REAL NOT NULL,
        prob_positive REAL NOT NULL,
        input_size INTEGER DEFAULT 0,
        created_at DATETIME NOT NULL
    );
    CREATE INDEX IF NOT EXISTS idx_predictions_created ON predictions(created_at);
    `
	if _, err := database.Exec(query); err != nil {
		database.Close()
		return nil, err
	}

	stmt, err := database.Prepare(`
        INSERT INTO predictions (
            request_id, pipeline, label, confidence, prob_negative, prob_positive, input_size, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
    `)
	if err != nil {
		database.Close()
		return nil, err
	}
	return &Store{database: database, insert: stmt}, nil
}

// SavePrediction appends one record. CreatedAt defaults to now.
func (s *Store) SavePrediction(ctx context.Context, rec PredictionRecord) error {
	if s == nil || s.database == nil {
		return errors.New("database not initialized")
	}
	if rec.Pipeline == "" || rec.Label == "" {
		return errors.New("pipeline and label required")
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	_, err := s.insert.ExecContext(ctx,
		rec.RequestID,
		rec.Pipeline,
		rec.Label,
		rec.Confidence,
		rec.ProbNegative,
		rec.ProbPositive,
		rec.InputSize,
		rec.CreatedAt,
	)
	return err
}

// RecentPredictions returns up to limit records, newest first.
func (s *Store) RecentPredictions(ctx context.Context, limit int) ([]PredictionRecord, error) {
	if s == nil || s.database == nil {
		return nil, errors.New("database not initialized")
	}
	if limit <= 0 {
		return nil, errors.New("limit must be positive")
	}
	rows, err := s.database.QueryContext(ctx, `
        SELECT id, request_id, pipeline, label, confidence, prob_negative, prob_positive, input_size, created_at
        FROM predictions
        ORDER BY created_at DESC, id DESC
        LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]PredictionRecord, 0)
	for rows.Next() {
		var r PredictionRecord
		if err := rows.Scan(&r.ID, &r.RequestID, &r.Pipeline, &r.Label, &r.Confidence,
			&r.ProbNegative, &r.ProbPositive, &r.InputSize, &r.CreatedAt); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

func (s *Store) Close() error {
	if s == nil || s.database == nil {
		return nil
	}
	s.insert.Close()
	return s.database.Close()
}
