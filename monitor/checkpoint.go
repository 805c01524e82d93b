package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CheckpointStore holds the instant of the last completed ingestion pass.
// The value never moves backwards.
type CheckpointStore interface {
	// Current returns the checkpoint and whether one exists.
	Current() (time.Time, bool)
	// Advance moves the checkpoint to at and persists it. An at that is not
	// after the current value is ignored.
	Advance(ctx context.Context, at time.Time) error
	// Persist rewrites the current value if an earlier write failed.
	Persist(ctx context.Context) error
	Close() error
}

type MemoryCheckpointStore struct {
	mu  sync.RWMutex
	at  time.Time
	set bool
}

func NewMemoryCheckpointStore() *MemoryCheckpointStore {
	return &MemoryCheckpointStore{}
}

// NewMemoryCheckpointStoreAt starts with a checkpoint already in place.
func NewMemoryCheckpointStoreAt(at time.Time) *MemoryCheckpointStore {
	return &MemoryCheckpointStore{at: at, set: true}
}

func (m *MemoryCheckpointStore) Current() (time.Time, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.at, m.set
}

func (m *MemoryCheckpointStore) Advance(_ context.Context, at time.Time) error {
	m.advance(at)
	return nil
}

func (m *MemoryCheckpointStore) advance(at time.Time) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.set && !at.After(m.at) {
		return false
	}
	m.at, m.set = at, true
	return true
}

func (m *MemoryCheckpointStore) Persist(context.Context) error { return nil }
func (m *MemoryCheckpointStore) Close() error { return nil }

const checkpointRowID = 1

// SQLiteCheckpointStore keeps the checkpoint in the single row of
// checkpoint.db.
type SQLiteCheckpointStore struct {
	*MemoryCheckpointStore
	db    *gorm.DB
	dirty bool
}

// OpenCheckpointStore reads the checkpoint from path. A missing or unreadable
// file means no prior checkpoint.
func OpenCheckpointStore(ctx context.Context, path string) (*SQLiteCheckpointStore, error) {
	s := &SQLiteCheckpointStore{MemoryCheckpointStore: NewMemoryCheckpointStore()}
	db, openErr := openBacked(path, &CheckpointRow{})
	s.db = db
	if db == nil {
		return s, openErr
	}

	var rows []CheckpointRow
	if err := db.WithContext(ctx).Where("id = ?", checkpointRowID).Limit(1).Find(&rows).Error; err != nil {
		return s, &StoreOpenError{Path: path, Err: fmt.Errorf("load checkpoint: %w", err)}
	}
	if len(rows) == 1 && rows[0].CompletedUnixNano > 0 {
		s.at = time.Unix(0, rows[0].CompletedUnixNano)
		s.set = true
	}
	return s, openErr
}

func (s *SQLiteCheckpointStore) Advance(ctx context.Context, at time.Time) error {
	if !s.advance(at) {
		return nil
	}
	s.mu.Lock()
	s.dirty = true
	s.mu.Unlock()
	return s.Persist(ctx)
}

func (s *SQLiteCheckpointStore) Persist(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.dirty || !s.set {
		return nil
	}
	if s.db == nil {
		return fmt.Errorf("persist checkpoint: %w", ErrMemoryOnly)
	}
	row := CheckpointRow{
		ID:                checkpointRowID,
		CompletedUnixNano: s.at.UnixNano(),
		Readable:          s.at.Format("02 Jan 2006 03:04:05 PM MST"),
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("persist checkpoint: %w", err)
	}
	s.dirty = false
	return nil
}

func (s *SQLiteCheckpointStore) Close() error {
	err := closeDB(s.db)
	s.db = nil
	return err
}
