package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"
)

// DefaultArchiveSize matches what the dashboard has always shown.
const DefaultArchiveSize = 100

// HeadlineArchive is the bounded most-recent-N store of accepted records.
type HeadlineArchive interface {
	Append(rec HeadlineRecord)
	// Recent returns up to limit records, newest first. limit <= 0 means all.
	Recent(limit int) []HeadlineRecord
	Len() int
	Persist(ctx context.Context) error
	Close() error
}

// MemoryArchive is a HeadlineArchive with no backing file.
type MemoryArchive struct {
	log *boundedLog[HeadlineRecord]
}

func NewMemoryArchive(size int) *MemoryArchive {
	return &MemoryArchive{log: newBoundedLog[HeadlineRecord](size)}
}

func (a *MemoryArchive) Append(rec HeadlineRecord) { a.log.push(rec) }
func (a *MemoryArchive) Recent(limit int) []HeadlineRecord { return a.log.recent(limit) }
func (a *MemoryArchive) Len() int { return a.log.len() }
func (a *MemoryArchive) Persist(context.Context) error { return nil }
func (a *MemoryArchive) Close() error { return nil }

// SQLiteArchive mirrors the in-memory archive into archive.db and trims the
// table to the same bound on every Persist.
type SQLiteArchive struct {
	*MemoryArchive
	db   *gorm.DB
	size int

	pendingMu sync.Mutex
	pending   []ArchivedHeadline
}

// OpenArchive loads the newest size rows from path. Instants are presented in
// loc. The archive is always usable; a non-nil error is a *StoreOpenError.
func OpenArchive(ctx context.Context, path string, size int, loc *time.Location) (*SQLiteArchive, error) {
	if size <= 0 {
		size = DefaultArchiveSize
	}
	a := &SQLiteArchive{MemoryArchive: NewMemoryArchive(size), size: size}
	db, openErr := openBacked(path, &ArchivedHeadline{})
	a.db = db
	if db == nil {
		return a, openErr
	}

	var rows []ArchivedHeadline
	if err := db.WithContext(ctx).Order("id desc").Limit(size).Find(&rows).Error; err != nil {
		return a, &StoreOpenError{Path: path, Err: fmt.Errorf("load archive: %w", err)}
	}
	for i := len(rows) - 1; i >= 0; i-- {
		a.log.push(rows[i].record(loc))
	}
	return a, openErr
}

func (a *SQLiteArchive) Append(rec HeadlineRecord) {
	a.MemoryArchive.Append(rec)
	a.pendingMu.Lock()
	a.pending = append(a.pending, newArchivedHeadline(rec))
	// Rows older than the bound would be trimmed straight away.
	if over := len(a.pending) - a.size; over > 0 {
		a.pending = append([]ArchivedHeadline(nil), a.pending[over:]...)
	}
	a.pendingMu.Unlock()
}

func (a *SQLiteArchive) Persist(ctx context.Context) error {
	a.pendingMu.Lock()
	defer a.pendingMu.Unlock()
	if len(a.pending) == 0 {
		return nil
	}
	if a.db == nil {
		return fmt.Errorf("persist %d headlines: %w", len(a.pending), ErrMemoryOnly)
	}
	err := a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.CreateInBatches(a.pending, 200).Error; err != nil {
			return err
		}
		keep := tx.Model(&ArchivedHeadline{}).Select("id").Order("id desc").Limit(a.size)
		return tx.Where("id NOT IN (?)", keep).Delete(&ArchivedHeadline{}).Error
	})
	if err != nil {
		for i := range a.pending {
			a.pending[i].ID = 0
		}
		return fmt.Errorf("persist %d headlines: %w", len(a.pending), err)
	}
	a.pending = nil
	return nil
}

func (a *SQLiteArchive) Close() error {
	err := closeDB(a.db)
	a.db = nil
	return err
}
