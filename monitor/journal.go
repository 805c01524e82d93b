package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"
)

// DefaultJournalSize is the number of error events kept.
const DefaultJournalSize = 100

// ErrorJournal is the bounded most-recent-N store of operational failures.
type ErrorJournal interface {
	Record(ev ErrorEvent)
	// Recent returns up to limit events, newest first. limit <= 0 means all.
	Recent(limit int) []ErrorEvent
	Len() int
	Persist(ctx context.Context) error
	Close() error
}

type MemoryJournal struct {
	log *boundedLog[ErrorEvent]
}

func NewMemoryJournal(size int) *MemoryJournal {
	return &MemoryJournal{log: newBoundedLog[ErrorEvent](size)}
}

func (j *MemoryJournal) Record(ev ErrorEvent) { j.log.push(ev) }
func (j *MemoryJournal) Recent(limit int) []ErrorEvent { return j.log.recent(limit) }
func (j *MemoryJournal) Len() int { return j.log.len() }
func (j *MemoryJournal) Persist(context.Context) error { return nil }
func (j *MemoryJournal) Close() error { return nil }

// SQLiteJournal mirrors the in-memory journal into journal.db.
type SQLiteJournal struct {
	*MemoryJournal
	db   *gorm.DB
	size int

	pendingMu sync.Mutex
	pending   []JournalEntry
}

// OpenJournal loads the newest size entries from path.
func OpenJournal(ctx context.Context, path string, size int, loc *time.Location) (*SQLiteJournal, error) {
	if size <= 0 {
		size = DefaultJournalSize
	}
	j := &SQLiteJournal{MemoryJournal: NewMemoryJournal(size), size: size}
	db, openErr := openBacked(path, &JournalEntry{})
	j.db = db
	if db == nil {
		return j, openErr
	}

	var rows []JournalEntry
	if err := db.WithContext(ctx).Order("id desc").Limit(size).Find(&rows).Error; err != nil {
		return j, &StoreOpenError{Path: path, Err: fmt.Errorf("load journal: %w", err)}
	}
	for i := len(rows) - 1; i >= 0; i-- {
		j.log.push(rows[i].event(loc))
	}
	return j, openErr
}

func (j *SQLiteJournal) Record(ev ErrorEvent) {
	j.MemoryJournal.Record(ev)
	j.pendingMu.Lock()
	j.pending = append(j.pending, newJournalEntry(ev))
	if over := len(j.pending) - j.size; over > 0 {
		j.pending = append([]JournalEntry(nil), j.pending[over:]...)
	}
	j.pendingMu.Unlock()
}

func (j *SQLiteJournal) Persist(ctx context.Context) error {
	j.pendingMu.Lock()
	defer j.pendingMu.Unlock()
	if len(j.pending) == 0 {
		return nil
	}
	if j.db == nil {
		return fmt.Errorf("persist %d journal entries: %w", len(j.pending), ErrMemoryOnly)
	}
	err := j.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&j.pending).Error; err != nil {
			return err
		}
		keep := tx.Model(&JournalEntry{}).Select("id").Order("id desc").Limit(j.size)
		return tx.Where("id NOT IN (?)", keep).Delete(&JournalEntry{}).Error
	})
	if err != nil {
		for i := range j.pending {
			j.pending[i].ID = 0
		}
		return fmt.Errorf("persist %d journal entries: %w", len(j.pending), err)
	}
	j.pending = nil
	return nil
}

func (j *SQLiteJournal) Close() error {
	err := closeDB(j.db)
	j.db = nil
	return err
}
