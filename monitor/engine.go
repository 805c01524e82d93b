package monitor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Batch is one fetch worth of raw records.
type Batch struct {
	CycleID   string
	FetchedAt time.Time
	Items     []RawHeadline
}

// Decision is the engine's verdict for one raw record. For discards only the
// text and fingerprint fields of Record are filled in.
type Decision struct {
	Record HeadlineRecord
	Class  Classification
}

// EngineDeps are the state handles the engine owns for the process lifetime.
type EngineDeps struct {
	Fingerprints FingerprintStore
	Archive      HeadlineArchive
	Checkpoint   CheckpointStore
	Journal      ErrorJournal
	Location     *time.Location
	Logger       zerolog.Logger
}

// Engine classifies fetched records into notify, archive-only and discard.
// It is driven by a single scan loop and does no locking of its own.
type Engine struct {
	fingerprints FingerprintStore
	archive      HeadlineArchive
	checkpoint   CheckpointStore
	journal      ErrorJournal
	loc          *time.Location
	logger       zerolog.Logger

	// The checkpoint as read at construction. Freshness is judged against
	// this value for the whole process lifetime.
	startup    time.Time
	hasStartup bool
}

func NewEngine(deps EngineDeps) (*Engine, error) {
	if deps.Fingerprints == nil || deps.Archive == nil || deps.Checkpoint == nil || deps.Journal == nil {
		return nil, ErrNotConfigured
	}
	loc := deps.Location
	if loc == nil {
		loc = IST
	}
	e := &Engine{
		fingerprints: deps.Fingerprints,
		archive:      deps.Archive,
		checkpoint:   deps.Checkpoint,
		journal:      deps.Journal,
		loc:          loc,
		logger:       deps.Logger,
	}
	e.startup, e.hasStartup = deps.Checkpoint.Current()
	return e, nil
}

// StartupCheckpoint is the checkpoint the engine judges freshness against.
func (e *Engine) StartupCheckpoint() (time.Time, bool) {
	return e.startup, e.hasStartup
}

func (e *Engine) Location() *time.Location { return e.loc }

// Classify runs every record of the batch through normalize, dedup, archive
// and freshness, in batch order. Accepted records are inserted into the
// fingerprint store and the archive in memory; Commit makes that durable.
func (e *Engine) Classify(b Batch) []Decision {
	decisions := make([]Decision, 0, len(b.Items))
	for _, item := range b.Items {
		decisions = append(decisions, e.classifyOne(b, item))
	}
	return decisions
}

func (e *Engine) classifyOne(b Batch, item RawHeadline) Decision {
	canonical := NormalizeHeadline(item.Text)
	fp := FingerprintOf(canonical)

	if !e.fingerprints.Insert(fp, b.FetchedAt) {
		return Decision{
			Record: HeadlineRecord{RawText: item.Text, CanonicalText: canonical, Fingerprint: fp},
			Class:  ClassDiscard,
		}
	}

	rec := HeadlineRecord{
		RawText:       item.Text,
		CanonicalText: canonical,
		Fingerprint:   fp,
		FirstSeenAt:   b.FetchedAt.In(e.loc),
		RawTimestamp:  item.Timestamp,
		Category:      NormalizeCategory(item.Category),
	}
	occurred, err := ResolveTimestamp(item.Timestamp, b.FetchedAt, e.loc)
	if err != nil {
		occurred = b.FetchedAt.In(e.loc)
		rec.TimestampDegraded = true
		e.Report(ErrorEvent{
			Category: CategoryTimestampParse,
			Message:  err.Error(),
			Detail:   truncate(item.Text, 100),
			CycleID:  b.CycleID,
		})
	}
	rec.OccurredAt = occurred
	rec.SourceDate = occurred.In(e.loc).Format("2006-01-02")
	e.archive.Append(rec)

	class := ClassArchiveOnly
	switch {
	case rec.TimestampDegraded:
		// Unknown occurrence time: prefer a possible duplicate over a loss.
		class = ClassNotify
	case !e.hasStartup:
		class = ClassNotify
	case rec.OccurredAt.After(e.startup):
		class = ClassNotify
	}
	e.logger.Debug().
		Str("cycle", b.CycleID).
		Str("fingerprint", string(fp)).
		Str("class", class.String()).
		Time("occurred_at", rec.OccurredAt).
		Msg(truncate(rec.RawText, 70))
	return Decision{Record: rec, Class: class}
}

// Commit makes a classified batch durable: fingerprints first, then the
// archive, then the checkpoint. The checkpoint is not advanced when the
// fingerprints could not be written, so the persisted checkpoint never runs
// ahead of the persisted fingerprint set.
func (e *Engine) Commit(ctx context.Context, b Batch) error {
	var errs []error
	fpErr := e.fingerprints.Persist(ctx)
	if fpErr != nil {
		errs = append(errs, fpErr)
	}
	if err := e.archive.Persist(ctx); err != nil {
		errs = append(errs, err)
	}
	if fpErr == nil {
		if err := e.checkpoint.Advance(ctx, b.FetchedAt); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	err := errors.Join(errs...)
	e.Report(ErrorEvent{Category: CategoryPersistence, Message: err.Error(), CycleID: b.CycleID})
	return &CycleError{Category: CategoryPersistence, Err: err}
}

// Report journals an operational failure and logs it.
func (e *Engine) Report(ev ErrorEvent) {
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().In(e.loc)
	}
	e.journal.Record(ev)
	level := zerolog.ErrorLevel
	if ev.Category == CategoryTimestampParse {
		level = zerolog.WarnLevel
	}
	e.logger.WithLevel(level).
		Str("category", string(ev.Category)).
		Str("cycle", ev.CycleID).
		Str("detail", ev.Detail).
		Msg(ev.Message)
}

// FlushJournal persists journal entries recorded since the last flush.
// A failure here is only logged; journaling it would recurse.
func (e *Engine) FlushJournal(ctx context.Context) {
	if err := e.journal.Persist(ctx); err != nil {
		e.logger.Error().Err(err).Msg("journal not persisted")
	}
}

// Flush retries every pending write. It runs on shutdown.
func (e *Engine) Flush(ctx context.Context) error {
	var errs []error
	if err := e.fingerprints.Persist(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := e.archive.Persist(ctx); err != nil {
		errs = append(errs, err)
	}
	// Only rewrite the checkpoint when the fingerprints are safely down.
	if len(errs) == 0 {
		if err := e.checkpoint.Persist(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := e.journal.Persist(ctx); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("flush state: %w", errors.Join(errs...))
	}
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
