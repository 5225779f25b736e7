// Package history records every served prediction: an append-only CRC
// journal for crash safety, a btree index for recent queries, and a sqlite
// backend for durable storage and CSV export.
package history

import (
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"riskcore/pkg/common"
	"riskcore/pkg/storage"
)

const flushInterval = 500 * time.Millisecond

type Store struct {
	index   *memIndex
	journal *storage.Journal
	backend storage.Backend

	seq uint64

	mu        sync.Mutex
	pending   []common.PredictionRecord
	batchSize int

	closeCh chan struct{}
	wg      sync.WaitGroup
}

// Open restores the store from dir. Journal entries newer than the sqlite
// high-water mark are replayed into the backend, then the journal is
// truncated; the in-memory index is warmed with the most recent records.
func Open(dir string, cacheLimit, batchSize int) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("history: create data dir: %w", err)
	}

	backend, err := storage.NewSQLiteBackend(filepath.Join(dir, "risk.db"))
	if err != nil {
		return nil, err
	}
	journal, err := storage.OpenJournal(filepath.Join(dir, "risk.journal"))
	if err != nil {
		backend.Close()
		return nil, err
	}

	s := &Store{
		index:     newMemIndex(32, cacheLimit),
		journal:   journal,
		backend:   backend,
		batchSize: batchSize,
		closeCh:   make(chan struct{}),
	}

	maxSeq, err := backend.MaxSeq()
	if err != nil {
		s.closeFiles()
		return nil, err
	}

	replayed, lastSeq, err := s.replayJournal(maxSeq)
	if err != nil {
		s.closeFiles()
		return nil, err
	}
	if replayed > 0 {
		log.Printf("[History] Replayed %d journaled predictions (seq <= %d)", replayed, lastSeq)
	}
	if lastSeq < maxSeq {
		lastSeq = maxSeq
	}
	atomic.StoreUint64(&s.seq, lastSeq)

	recent, err := backend.LoadRecent(cacheLimit)
	if err != nil {
		s.closeFiles()
		return nil, err
	}
	for _, rec := range recent {
		s.index.Insert(rec)
	}

	s.wg.Add(1)
	go s.backgroundPersist()

	return s, nil
}

// Record journals, indexes, and queues one prediction for persistence. The
// journal write is synchronous; the sqlite write is batched in background.
func (s *Store) Record(features common.FeatureVector, label common.RiskLabel, probability float64) (common.PredictionRecord, error) {
	rec := common.PredictionRecord{
		Seq:         atomic.AddUint64(&s.seq, 1),
		Timestamp:   time.Now(),
		Features:    features.Clone(),
		Label:       label,
		Probability: probability,
	}

	if err := s.journal.Append(rec); err != nil {
		return common.PredictionRecord{}, fmt.Errorf("history: journal append: %w", err)
	}
	s.index.Insert(rec)

	s.mu.Lock()
	s.pending = append(s.pending, rec)
	full := len(s.pending) >= s.batchSize
	s.mu.Unlock()

	if full {
		if err := s.Flush(); err != nil {
			log.Printf("[History] Flush failed: %v", err)
		}
	}
	return rec, nil
}

// Recent returns up to n of the latest records, ascending by sequence.
func (s *Store) Recent(n int) []common.PredictionRecord {
	return s.index.Recent(n)
}

// TotalCount is the number of predictions recorded since the last reset.
func (s *Store) TotalCount() uint64 {
	return atomic.LoadUint64(&s.seq)
}

// Flush pushes all pending records to the sqlite backend.
func (s *Store) Flush() error {
	s.mu.Lock()
	batch := s.pending
	s.pending = nil
	s.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}
	if err := s.backend.BatchAppend(batch); err != nil {
		// put the batch back so nothing is lost
		s.mu.Lock()
		s.pending = append(batch, s.pending...)
		s.mu.Unlock()
		return err
	}
	return nil
}

// ExportCSV streams the full persisted history as CSV.
func (s *Store) ExportCSV(w io.Writer) error {
	if err := s.Flush(); err != nil {
		return err
	}
	recs, err := s.backend.LoadAll()
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	header := append([]string{"seq", "timestamp"}, common.FeatureNames[:]...)
	header = append(header, "label", "probability")
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, rec := range recs {
		row := make([]string, 0, len(header))
		row = append(row, strconv.FormatUint(rec.Seq, 10), rec.Timestamp.Format(time.RFC3339Nano))
		for _, v := range rec.Features {
			row = append(row, strconv.FormatFloat(v, 'g', -1, 64))
		}
		row = append(row, rec.Label.String(), strconv.FormatFloat(rec.Probability, 'g', -1, 64))
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Reset drops all recorded history.
func (s *Store) Reset() error {
	s.mu.Lock()
	s.pending = nil
	s.mu.Unlock()

	if err := s.backend.Truncate(); err != nil {
		return err
	}
	if err := s.journal.Truncate(); err != nil {
		return err
	}
	s.index.Clear()
	atomic.StoreUint64(&s.seq, 0)
	return nil
}

func (s *Store) Close() {
	close(s.closeCh)
	s.wg.Wait()
	if err := s.Flush(); err != nil {
		log.Printf("[History] Final flush failed: %v", err)
	}
	s.closeFiles()
}

func (s *Store) closeFiles() {
	s.journal.Close()
	s.backend.Close()
}

func (s *Store) backgroundPersist() {
	defer s.wg.Done()
	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := s.Flush(); err != nil {
				log.Printf("[History] Background flush failed: %v", err)
			}
		case <-s.closeCh:
			return
		}
	}
}

// replayJournal pushes journal entries beyond maxSeq into the backend and
// truncates the journal. Returns the replay count and the highest sequence
// seen.
func (s *Store) replayJournal(maxSeq uint64) (int, uint64, error) {
	it, err := s.journal.NewIterator()
	if err != nil {
		return 0, 0, err
	}
	defer it.Close()

	var batch []common.PredictionRecord
	last := uint64(0)
	for {
		rec, err := it.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			// a torn tail write is expected after a crash; keep what decoded
			log.Printf("[History] Journal replay stopped: %v", err)
			break
		}
		if rec.Seq > last {
			last = rec.Seq
		}
		if rec.Seq > maxSeq {
			batch = append(batch, rec)
		}
	}

	if len(batch) > 0 {
		if err := s.backend.BatchAppend(batch); err != nil {
			return 0, 0, err
		}
	}
	if err := s.journal.Truncate(); err != nil {
		return 0, 0, err
	}
	return len(batch), last, nil
}
