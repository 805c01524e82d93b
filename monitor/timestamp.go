package monitor

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrUnrecognizedTimestamp is returned when a display timestamp matches none
// of the known forms.
var ErrUnrecognizedTimestamp = errors.New("unrecognized display timestamp")

// IST is the source page's display timezone.
var IST = time.FixedZone("IST", 5*60*60+30*60)

var (
	justNowPattern  = regexp.MustCompile(`(?i)^just\s+now$`)
	relativePattern = regexp.MustCompile(`(?i)^(\d+)\s*(mins?|minutes?|hours?|hrs?)\s+ago$`)
	absolutePattern = regexp.MustCompile(`(?i)^\d{1,2}\s+[a-z]{3}\s+\d{1,2}:\d{2}\s+[ap]m$`)
)

// absoluteLayout has no year; the page omits it.
const absoluteLayout = "2 Jan 3:04 PM"


// ResolveTimestamp turns a display timestamp into an absolute instant in loc.
// Recognized forms, in order: "Just Now", "<N> mins|hours ago" and
// "04 Nov 08:26 AM".
func ResolveTimestamp(raw string, now time.Time, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = IST
	}
	now = now.In(loc)
	s := strings.Join(strings.Fields(raw), " ")

	if justNowPattern.MatchString(s) {
		return now, nil
	}

	if m := relativePattern.FindStringSubmatch(s); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: %q: %v", ErrUnrecognizedTimestamp, raw, err)
		}
		unit := time.Minute
		if u := strings.ToLower(m[2]); strings.HasPrefix(u, "h") {
			unit = time.Hour
		}
		return now.Add(-time.Duration(n) * unit), nil
	}

	if absolutePattern.MatchString(s) {
		// time.Parse wants upper-case AM/PM; month names match case-insensitively.
		parsed, err := time.ParseInLocation(absoluteLayout, strings.ToUpper(s), loc)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: %q: %v", ErrUnrecognizedTimestamp, raw, err)
		}
		year := now.Year()
		// A December item still on the page in early January is last year's.
		if parsed.Month() == time.December && now.Month() == time.January {
			year--
		}
		return time.Date(year, parsed.Month(), parsed.Day(), parsed.Hour(), parsed.Minute(), 0, 0, loc), nil
	}

	return time.Time{}, fmt.Errorf("%w: %q", ErrUnrecognizedTimestamp, raw)
}

// IsDisplayTimestamp reports whether s looks like one of the page's timestamp
// lines. The extractor uses it to find headline/timestamp pairs.
func IsDisplayTimestamp(s string) bool {
	s = strings.Join(strings.Fields(s), " ")
	return justNowPattern.MatchString(s) || relativePattern.MatchString(s) || absolutePattern.MatchString(s)
}
