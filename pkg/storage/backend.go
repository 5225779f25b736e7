package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"riskcore/pkg/common"

	_ "modernc.org/sqlite"
)

type Backend interface {
	Append(rec common.PredictionRecord) error
	BatchAppend(recs []common.PredictionRecord) error
	LoadRecent(n int) ([]common.PredictionRecord, error)
	LoadAll() ([]common.PredictionRecord, error)
	MaxSeq() (uint64, error)
	Count() (int, error)
	Truncate() error
	Close()
}

type SQLiteBackend struct {
	db *sql.DB
	mu sync.Mutex
}

func NewSQLiteBackend(path string) (*SQLiteBackend, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage: open sqlite: %w", err)
	}

	query := `
	CREATE TABLE IF NOT EXISTS predictions (
		seq INTEGER PRIMARY KEY,
		ts INTEGER NOT NULL,
		features TEXT NOT NULL,
		label INTEGER NOT NULL,
		probability REAL NOT NULL
	);`
	if _, err := db.Exec(query); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: init table: %w", err)
	}

	if _, err := db.Exec(`
		PRAGMA journal_mode = WAL;
		PRAGMA synchronous = NORMAL;
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: set pragma: %w", err)
	}

	return &SQLiteBackend{db: db}, nil
}

func (s *SQLiteBackend) Append(rec common.PredictionRecord) error {
	feats, err := json.Marshal(rec.Features)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.Exec(
		"INSERT OR REPLACE INTO predictions (seq, ts, features, label, probability) VALUES (?, ?, ?, ?, ?)",
		int64(rec.Seq), rec.Timestamp.UnixNano(), string(feats), int(rec.Label), rec.Probability,
	)
	return err
}

func (s *SQLiteBackend) BatchAppend(recs []common.PredictionRecord) error {
	if len(recs) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare("INSERT OR REPLACE INTO predictions (seq, ts, features, label, probability) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, rec := range recs {
		feats, err := json.Marshal(rec.Features)
		if err != nil {
			tx.Rollback()
			return err
		}
		if _, err := stmt.Exec(int64(rec.Seq), rec.Timestamp.UnixNano(), string(feats), int(rec.Label), rec.Probability); err != nil {
			tx.Rollback()
			return err
		}
	}

	return tx.Commit()
}

func (s *SQLiteBackend) LoadRecent(n int) ([]common.PredictionRecord, error) {
	rows, err := s.db.Query(
		"SELECT seq, ts, features, label, probability FROM predictions ORDER BY seq DESC LIMIT ?", n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	recs, err := scanRecords(rows)
	if err != nil {
		return nil, err
	}
	// flip back to ascending seq order
	for i, j := 0, len(recs)-1; i < j; i, j = i+1, j-1 {
		recs[i], recs[j] = recs[j], recs[i]
	}
	return recs, nil
}

func (s *SQLiteBackend) LoadAll() ([]common.PredictionRecord, error) {
	rows, err := s.db.Query(
		"SELECT seq, ts, features, label, probability FROM predictions ORDER BY seq ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecords(rows)
}

func (s *SQLiteBackend) MaxSeq() (uint64, error) {
	var seq sql.NullInt64
	if err := s.db.QueryRow("SELECT MAX(seq) FROM predictions").Scan(&seq); err != nil {
		return 0, err
	}
	if !seq.Valid {
		return 0, nil
	}
	return uint64(seq.Int64), nil
}

func (s *SQLiteBackend) Count() (int, error) {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM predictions").Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (s *SQLiteBackend) Truncate() error {
	_, err := s.db.Exec("DELETE FROM predictions")
	return err
}

func (s *SQLiteBackend) Close() {
	s.db.Close()
}

func scanRecords(rows *sql.Rows) ([]common.PredictionRecord, error) {
	var recs []common.PredictionRecord
	for rows.Next() {
		var (
			seq   int64
			ts    int64
			feats string
			label int
			prob  float64
		)
		if err := rows.Scan(&seq, &ts, &feats, &label, &prob); err != nil {
			return nil, err
		}
		var v common.FeatureVector
		if err := json.Unmarshal([]byte(feats), &v); err != nil {
			return nil, err
		}
		recs = append(recs, common.PredictionRecord{
			Seq:         uint64(seq),
			Timestamp:   time.Unix(0, ts),
			Features:    v,
			Label:       common.RiskLabel(label),
			Probability: prob,
		})
	}
	return recs, rows.Err()
}
