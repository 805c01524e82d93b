package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// State files written by the single-process deployment this tool replaces.
const (
	LegacySeenFile      = "headlines_seen.json"
	LegacyCheckFile     = "last_check_timestamp.json"
	LegacyHeadlinesFile = "headlines_database.json"
	LegacyErrorsFile    = "error_log.json"
)

// LegacyTargets are the stores an import writes into.
type LegacyTargets struct {
	Fingerprints FingerprintStore
	Archive      HeadlineArchive
	Checkpoint   CheckpointStore
	Journal      ErrorJournal
}

type LegacyReport struct {
	Fingerprints int
	Headlines    int
	Errors       int
	Checkpoint   time.Time
	Skipped      []string
}

type legacyHeadline struct {
	Headline  string `json:"headline"`
	Timestamp string `json:"timestamp"`
	Date      string `json:"date"`
}

type legacyError struct {
	Timestamp string  `json:"timestamp"`
	Type      string  `json:"type"`
	Message   string  `json:"message"`
	Details   *string `json:"details"`
}

type legacyCheck struct {
	LastCheck string `json:"last_check"`
}

// ImportLegacy loads the JSON state files found in dir into the stores and
// persists them. Missing files are skipped and listed in the report. The
// fingerprints carry over unchanged because normalization and digest match.
func ImportLegacy(ctx context.Context, dir string, t LegacyTargets, loc *time.Location, now time.Time) (LegacyReport, error) {
	var rep LegacyReport
	if t.Fingerprints == nil || t.Archive == nil || t.Checkpoint == nil || t.Journal == nil {
		return rep, ErrNotConfigured
	}
	if loc == nil {
		loc = IST
	}

	var seen []string
	if err := readLegacy(dir, LegacySeenFile, &seen, &rep); err != nil {
		return rep, err
	}
	for _, id := range seen {
		id = strings.ToLower(strings.TrimSpace(id))
		if id != "" && t.Fingerprints.Insert(Fingerprint(id), now) {
			rep.Fingerprints++
		}
	}

	var headlines []legacyHeadline
	if err := readLegacy(dir, LegacyHeadlinesFile, &headlines, &rep); err != nil {
		return rep, err
	}
	// The file is newest first; the archive appends oldest first.
	for i := len(headlines) - 1; i >= 0; i-- {
		h := headlines[i]
		if strings.TrimSpace(h.Headline) == "" {
			continue
		}
		rec := legacyRecord(h, loc, now)
		if t.Fingerprints.Insert(rec.Fingerprint, rec.FirstSeenAt) {
			rep.Fingerprints++
		}
		t.Archive.Append(rec)
		rep.Headlines++
	}

	var errs []legacyError
	if err := readLegacy(dir, LegacyErrorsFile, &errs, &rep); err != nil {
		return rep, err
	}
	for _, e := range errs {
		ev := ErrorEvent{
			Category:   legacyCategory(e.Type),
			Message:    e.Message,
			OccurredAt: parseLegacyInstant(e.Timestamp, loc, now),
		}
		if e.Details != nil {
			ev.Detail = *e.Details
		}
		t.Journal.Record(ev)
		rep.Errors++
	}

	var check legacyCheck
	if err := readLegacy(dir, LegacyCheckFile, &check, &rep); err != nil {
		return rep, err
	}
	if strings.TrimSpace(check.LastCheck) != "" {
		at := parseLegacyInstant(check.LastCheck, loc, time.Time{})
		if at.IsZero() {
			return rep, fmt.Errorf("%s: unparseable last_check %q", LegacyCheckFile, check.LastCheck)
		}
		rep.Checkpoint = at
		// Fingerprints must be down before the checkpoint moves.
		if err := t.Fingerprints.Persist(ctx); err != nil {
			return rep, err
		}
		if err := t.Checkpoint.Advance(ctx, at); err != nil {
			return rep, err
		}
	}

	return rep, errors.Join(
		t.Fingerprints.Persist(ctx),
		t.Archive.Persist(ctx),
		t.Journal.Persist(ctx),
	)
}

func readLegacy(dir, name string, v any, rep *LegacyReport) error {
	b, err := os.ReadFile(filepath.Join(dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		rep.Skipped = append(rep.Skipped, name)
		return nil
	}
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

func legacyRecord(h legacyHeadline, loc *time.Location, now time.Time) HeadlineRecord {
	canonical := NormalizeHeadline(h.Headline)
	rec := HeadlineRecord{
		RawText:       h.Headline,
		CanonicalText: canonical,
		Fingerprint:   FingerprintOf(canonical),
		SourceDate:    h.Date,
		RawTimestamp:  h.Timestamp,
	}
	// Stored timestamps look like "04 Nov 08:26 AM" with the year in Date.
	day, dayErr := time.ParseInLocation("2006-01-02", strings.TrimSpace(h.Date), loc)
	clock, clockErr := time.ParseInLocation(absoluteLayout, strings.ToUpper(strings.Join(strings.Fields(h.Timestamp), " ")), loc)
	var occurred time.Time
	switch {
	case dayErr == nil && clockErr == nil:
		occurred = time.Date(day.Year(), clock.Month(), clock.Day(), clock.Hour(), clock.Minute(), 0, 0, loc)
	case dayErr == nil:
		occurred = day
		rec.TimestampDegraded = true
	default:
		occurred = now.In(loc)
		rec.TimestampDegraded = true
	}
	rec.OccurredAt = occurred
	rec.FirstSeenAt = occurred
	if rec.SourceDate == "" {
		rec.SourceDate = occurred.Format("2006-01-02")
	}
	return rec
}

// parseLegacyInstant reads the ISO-8601 strings the old files contain, with
// or without a UTC offset. It returns fallback when nothing matches.
func parseLegacyInstant(s string, loc *time.Location, fallback time.Time) time.Time {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.In(loc)
	}
	if t, err := time.ParseInLocation("2006-01-02T15:04:05.999999999", s, loc); err == nil {
		return t
	}
	return fallback
}

func legacyCategory(kind string) ErrorCategory {
	switch k := strings.ToLower(strings.TrimSpace(kind)); {
	case k == "scraping":
		return CategoryScrape
	case strings.HasPrefix(k, "telegram"):
		return CategoryNotify
	case k == "timestamp_parse":
		return CategoryTimestampParse
	case strings.HasPrefix(k, "save_"), k == "database_save":
		return CategoryPersistence
	default:
		return CategoryUnexpected
	}
}
