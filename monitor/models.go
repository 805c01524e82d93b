package monitor

import (
	"time"
)

// RawHeadline is one (text, display timestamp) pair as produced by a Fetcher.
type RawHeadline struct {
	Text      string
	Timestamp string
	// Category is the tag printed under the timestamp on the source page
	// (Result, Equity, ...). It may be empty.
	Category string
}

// Fingerprint is the dedup key: a fixed-length digest of canonical text.
type Fingerprint string

// HeadlineRecord is an accepted headline. It is never mutated after the
// engine creates it.
type HeadlineRecord struct {
	RawText           string      `json:"raw_text"`
	CanonicalText     string      `json:"canonical_text"`
	Fingerprint       Fingerprint `json:"fingerprint"`
	OccurredAt        time.Time   `json:"occurred_at"`
	FirstSeenAt       time.Time   `json:"first_seen_at"`
	SourceDate        string      `json:"source_date"`
	RawTimestamp      string      `json:"raw_timestamp"`
	Category          string      `json:"category,omitempty"`
	TimestampDegraded bool        `json:"timestamp_degraded,omitempty"`
}

// Classification is the engine's verdict for one fetched record.
type Classification int

const (
	ClassDiscard Classification = iota
	ClassArchiveOnly
	ClassNotify
)

func (c Classification) String() string {
	switch c {
	case ClassDiscard:
		return "discard"
	case ClassArchiveOnly:
		return "archive-only"
	case ClassNotify:
		return "notify"
	default:
		return "unknown"
	}
}

// ErrorCategory is the closed set of operational failure tags.
type ErrorCategory string

const (
	CategoryScrape         ErrorCategory = "scrape-failure"
	CategoryNotify         ErrorCategory = "notify-failure"
	CategoryTimestampParse ErrorCategory = "timestamp-parse-failure"
	CategoryPersistence    ErrorCategory = "persistence-failure"
	CategoryUnexpected     ErrorCategory = "unexpected"
)

// ErrorEvent is one Error Journal entry.
type ErrorEvent struct {
	Category   ErrorCategory `json:"category"`
	Message    string        `json:"message"`
	Detail     string        `json:"detail,omitempty"`
	CycleID    string        `json:"cycle_id,omitempty"`
	OccurredAt time.Time     `json:"occurred_at"`
}

// SeenFingerprint is a row of fingerprints.db.
type SeenFingerprint struct {
	ID                uint   `gorm:"primaryKey"`
	Fingerprint       string `gorm:"uniqueIndex;size:64"`
	FirstSeenUnixNano int64
}

// ArchivedHeadline is a row of archive.db. Instants are stored as unix nanos
// so they survive the driver round trip without timezone drift.
type ArchivedHeadline struct {
	ID                uint   `gorm:"primaryKey"`
	RawText           string `gorm:"type:text"`
	CanonicalText     string `gorm:"type:text"`
	Fingerprint       string `gorm:"index;size:64"`
	OccurredUnixNano  int64  `gorm:"index"`
	FirstSeenUnixNano int64
	SourceDate        string `gorm:"size:10"`
	RawTimestamp      string `gorm:"size:64"`
	Category          string `gorm:"size:64"`
	TimestampDegraded bool
}

// CheckpointRow is the single row of checkpoint.db (ID is always 1).
type CheckpointRow struct {
	ID                uint `gorm:"primaryKey"`
	CompletedUnixNano int64
	// Readable is for humans poking at the file with sqlite3.
	Readable string `gorm:"size:64"`
}

// JournalEntry is a row of journal.db.
type JournalEntry struct {
	ID               uint   `gorm:"primaryKey"`
	Category         string `gorm:"index;size:32"`
	Message          string `gorm:"type:text"`
	Detail           string `gorm:"type:text"`
	CycleID          string `gorm:"size:36"`
	OccurredUnixNano int64  `gorm:"index"`
}

func newArchivedHeadline(rec HeadlineRecord) ArchivedHeadline {
	return ArchivedHeadline{
		RawText:           rec.RawText,
		CanonicalText:     rec.CanonicalText,
		Fingerprint:       string(rec.Fingerprint),
		OccurredUnixNano:  rec.OccurredAt.UnixNano(),
		FirstSeenUnixNano: rec.FirstSeenAt.UnixNano(),
		SourceDate:        rec.SourceDate,
		RawTimestamp:      rec.RawTimestamp,
		Category:          rec.Category,
		TimestampDegraded: rec.TimestampDegraded,
	}
}

func (a ArchivedHeadline) record(loc *time.Location) HeadlineRecord {
	return HeadlineRecord{
		RawText:           a.RawText,
		CanonicalText:     a.CanonicalText,
		Fingerprint:       Fingerprint(a.Fingerprint),
		OccurredAt:        fromUnixNano(a.OccurredUnixNano, loc),
		FirstSeenAt:       fromUnixNano(a.FirstSeenUnixNano, loc),
		SourceDate:        a.SourceDate,
		RawTimestamp:      a.RawTimestamp,
		Category:          a.Category,
		TimestampDegraded: a.TimestampDegraded,
	}
}

func newJournalEntry(ev ErrorEvent) JournalEntry {
	return JournalEntry{
		Category:         string(ev.Category),
		Message:          ev.Message,
		Detail:           ev.Detail,
		CycleID:          ev.CycleID,
		OccurredUnixNano: ev.OccurredAt.UnixNano(),
	}
}

func (j JournalEntry) event(loc *time.Location) ErrorEvent {
	return ErrorEvent{
		Category:   ErrorCategory(j.Category),
		Message:    j.Message,
		Detail:     j.Detail,
		CycleID:    j.CycleID,
		OccurredAt: fromUnixNano(j.OccurredUnixNano, loc),
	}
}

func fromUnixNano(n int64, loc *time.Location) time.Time {
	t := time.Unix(0, n)
	if loc != nil {
		t = t.In(loc)
	}
	return t
}
