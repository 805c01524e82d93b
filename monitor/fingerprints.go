package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FingerprintStore is the append-only set of every fingerprint ever accepted.
// It is never pruned.
type FingerprintStore interface {
	Has(fp Fingerprint) bool
	// Insert adds fp and reports whether it was absent before.
	Insert(fp Fingerprint, seenAt time.Time) bool
	Len() int
	// Persist writes every insert since the last successful Persist.
	Persist(ctx context.Context) error
	Close() error
}

// MemoryFingerprintStore is a FingerprintStore with no backing file.
type MemoryFingerprintStore struct {
	mu   sync.RWMutex
	seen map[Fingerprint]struct{}
}

func NewMemoryFingerprintStore() *MemoryFingerprintStore {
	return &MemoryFingerprintStore{seen: make(map[Fingerprint]struct{})}
}

func (m *MemoryFingerprintStore) Has(fp Fingerprint) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.seen[fp]
	return ok
}

func (m *MemoryFingerprintStore) Insert(fp Fingerprint, _ time.Time) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.seen[fp]; ok {
		return false
	}
	m.seen[fp] = struct{}{}
	return true
}

func (m *MemoryFingerprintStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.seen)
}

func (m *MemoryFingerprintStore) Persist(context.Context) error { return nil }

func (m *MemoryFingerprintStore) Close() error { return nil }

// SQLiteFingerprintStore keeps the set in memory and writes inserts through
// to fingerprints.db on Persist. Writes that fail stay pending and are
// retried on the next Persist.
type SQLiteFingerprintStore struct {
	*MemoryFingerprintStore
	db *gorm.DB

	pendingMu sync.Mutex
	pending   []SeenFingerprint
}

// OpenFingerprintStore loads every stored fingerprint from path. The store is
// always usable; a non-nil error is a *StoreOpenError to be journaled.
func OpenFingerprintStore(ctx context.Context, path string) (*SQLiteFingerprintStore, error) {
	s := &SQLiteFingerprintStore{MemoryFingerprintStore: NewMemoryFingerprintStore()}
	db, openErr := openBacked(path, &SeenFingerprint{})
	s.db = db
	if db == nil {
		return s, openErr
	}

	var batch []SeenFingerprint
	err := db.WithContext(ctx).Model(&SeenFingerprint{}).FindInBatches(&batch, 1000, func(tx *gorm.DB, _ int) error {
		for _, row := range batch {
			s.seen[Fingerprint(row.Fingerprint)] = struct{}{}
		}
		return nil
	}).Error
	if err != nil {
		return s, &StoreOpenError{Path: path, Err: fmt.Errorf("load fingerprints: %w", err)}
	}
	return s, openErr
}

func (s *SQLiteFingerprintStore) Insert(fp Fingerprint, seenAt time.Time) bool {
	if !s.MemoryFingerprintStore.Insert(fp, seenAt) {
		return false
	}
	s.pendingMu.Lock()
	s.pending = append(s.pending, SeenFingerprint{Fingerprint: string(fp), FirstSeenUnixNano: seenAt.UnixNano()})
	s.pendingMu.Unlock()
	return true
}

func (s *SQLiteFingerprintStore) Persist(ctx context.Context) error {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()
	if len(s.pending) == 0 {
		return nil
	}
	if s.db == nil {
		return fmt.Errorf("persist %d fingerprints: %w", len(s.pending), ErrMemoryOnly)
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "fingerprint"}}, DoNothing: true}).
		CreateInBatches(s.pending, 500).Error
	if err != nil {
		for i := range s.pending {
			s.pending[i].ID = 0
		}
		return fmt.Errorf("persist %d fingerprints: %w", len(s.pending), err)
	}
	s.pending = nil
	return nil
}

// Pending is the number of inserts not yet written.
func (s *SQLiteFingerprintStore) Pending() int {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()
	return len(s.pending)
}

func (s *SQLiteFingerprintStore) Close() error {
	err := closeDB(s.db)
	s.db = nil
	return err
}
