package monitor

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// State file names inside the state directory. Each store owns its own file
// so one corrupt file never takes the others down with it.
const (
	FingerprintsFile = "fingerprints.db"
	ArchiveFile      = "archive.db"
	CheckpointFile   = "checkpoint.db"
	JournalFile      = "journal.db"
	brokenDirName    = "broken"
)

// ErrMemoryOnly is returned by Persist on a store whose file could not be
// opened at all. Its in-memory state is still authoritative.
var ErrMemoryOnly = errors.New("store is running memory-only")

// StoreOpenError reports a store that opened degraded. The store returned
// alongside it is usable; callers journal the error and carry on.
type StoreOpenError struct {
	Path          string
	QuarantinedTo string
	MemoryOnly    bool
	Err           error
}

func (e *StoreOpenError) Error() string {
	switch {
	case e.MemoryOnly:
		return fmt.Sprintf("open %s: running memory-only: %v", e.Path, e.Err)
	case e.QuarantinedTo != "":
		return fmt.Sprintf("open %s: unreadable file moved to %s: %v", e.Path, e.QuarantinedTo, e.Err)
	default:
		return fmt.Sprintf("open %s: %v", e.Path, e.Err)
	}
}

func (e *StoreOpenError) Unwrap() error { return e.Err }

// OpenDB opens a SQLite file and migrates the given models.
func OpenDB(path string, models ...any) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		if db != nil {
			_ = closeDB(db)
		}
		return nil, err
	}
	if err := db.AutoMigrate(models...); err != nil {
		_ = closeDB(db)
		return nil, err
	}
	return db, nil
}

// OpenQueryDB opens an existing SQLite file for reading without touching its
// schema. The read-only CLI commands use it.
func OpenQueryDB(path string) (*gorm.DB, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	return gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
}

// openBacked opens a store file. A file that cannot be opened or migrated is
// moved to <dir>/broken/ and recreated empty. Every degraded outcome comes
// back as a *StoreOpenError; a nil db means the store must run memory-only.
func openBacked(path string, models ...any) (*gorm.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, &StoreOpenError{Path: path, MemoryOnly: true, Err: err}
	}
	db, openErr := OpenDB(path, models...)
	if openErr == nil {
		return db, nil
	}
	if _, statErr := os.Stat(path); statErr != nil {
		return nil, &StoreOpenError{Path: path, MemoryOnly: true, Err: openErr}
	}

	moved, mvErr := quarantine(path, time.Now())
	if mvErr != nil {
		return nil, &StoreOpenError{Path: path, MemoryOnly: true, Err: errors.Join(openErr, mvErr)}
	}
	db, err := OpenDB(path, models...)
	if err != nil {
		return nil, &StoreOpenError{Path: path, QuarantinedTo: moved, MemoryOnly: true, Err: errors.Join(openErr, err)}
	}
	return db, &StoreOpenError{Path: path, QuarantinedTo: moved, Err: openErr}
}

// quarantine moves a state file that failed to open into <dir>/broken/ under a
// timestamped name. SQLite side files travel with it.
func quarantine(path string, now time.Time) (string, error) {
	brokenDir := filepath.Join(filepath.Dir(path), brokenDirName)
	if err := os.MkdirAll(brokenDir, 0o755); err != nil {
		return "", err
	}
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	stamp := now.UTC().Format("20060102T150405.000000000")
	dst := filepath.Join(brokenDir, fmt.Sprintf("%s-%s%s", strings.TrimSuffix(base, ext), stamp, ext))
	if err := os.Rename(path, dst); err != nil {
		return "", err
	}
	for _, suffix := range []string{"-wal", "-shm", "-journal"} {
		if _, err := os.Stat(path + suffix); err == nil {
			_ = os.Rename(path+suffix, dst+suffix)
		}
	}
	return dst, nil
}

func closeDB(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
