package monitor

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// State bundles the four persisted stores of one state directory.
type State struct {
	Dir          string
	Fingerprints *SQLiteFingerprintStore
	Archive      *SQLiteArchive
	Checkpoint   *SQLiteCheckpointStore
	Journal      *SQLiteJournal
}

// OpenState opens every store under cfg.Dir. It always returns a usable
// State; stores that opened degraded are listed in the returned errors and
// recorded in the journal as persistence failures.
func OpenState(ctx context.Context, cfg StateConfig, loc *time.Location) (*State, []error) {
	s := &State{Dir: cfg.Dir}
	var errs []error
	keep := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	var err error
	s.Journal, err = OpenJournal(ctx, filepath.Join(cfg.Dir, JournalFile), cfg.JournalSize, loc)
	keep(err)
	s.Fingerprints, err = OpenFingerprintStore(ctx, filepath.Join(cfg.Dir, FingerprintsFile))
	keep(err)
	s.Archive, err = OpenArchive(ctx, filepath.Join(cfg.Dir, ArchiveFile), cfg.ArchiveSize, loc)
	keep(err)
	s.Checkpoint, err = OpenCheckpointStore(ctx, filepath.Join(cfg.Dir, CheckpointFile))
	keep(err)

	now := time.Now().In(loc)
	for _, e := range errs {
		s.Journal.Record(ErrorEvent{Category: CategoryPersistence, Message: e.Error(), OccurredAt: now})
	}
	if len(errs) > 0 {
		_ = s.Journal.Persist(ctx)
	}
	return s, errs
}

func (s *State) EngineDeps(loc *time.Location, logger zerolog.Logger) EngineDeps {
	return EngineDeps{
		Fingerprints: s.Fingerprints,
		Archive:      s.Archive,
		Checkpoint:   s.Checkpoint,
		Journal:      s.Journal,
		Location:     loc,
		Logger:       logger,
	}
}

func (s *State) LegacyTargets() LegacyTargets {
	return LegacyTargets{
		Fingerprints: s.Fingerprints,
		Archive:      s.Archive,
		Checkpoint:   s.Checkpoint,
		Journal:      s.Journal,
	}
}

func (s *State) Close() error {
	return errors.Join(
		s.Fingerprints.Close(),
		s.Archive.Close(),
		s.Checkpoint.Close(),
		s.Journal.Close(),
	)
}

// ReadArchive returns up to limit archived headlines, newest first, without
// migrating or quarantining anything. It is safe next to a running monitor.
func ReadArchive(ctx context.Context, dir string, limit int, loc *time.Location) ([]HeadlineRecord, error) {
	db, err := OpenQueryDB(filepath.Join(dir, ArchiveFile))
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	defer closeDB(db)

	var rows []ArchivedHeadline
	q := db.WithContext(ctx).Order("id desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("read archive: %w", err)
	}
	out := make([]HeadlineRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.record(loc))
	}
	return out, nil
}

// ReadJournal is the journal counterpart of ReadArchive.
func ReadJournal(ctx context.Context, dir string, limit int, loc *time.Location) ([]ErrorEvent, error) {
	db, err := OpenQueryDB(filepath.Join(dir, JournalFile))
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	defer closeDB(db)

	var rows []JournalEntry
	q := db.WithContext(ctx).Order("id desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("read journal: %w", err)
	}
	out := make([]ErrorEvent, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.event(loc))
	}
	return out, nil
}
