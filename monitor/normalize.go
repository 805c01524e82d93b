package monitor

import (
	"crypto/md5"
	"encoding/hex"
	"regexp"
	"strings"
)

var (
	// Price moves like "(+1.92%)" change on every refresh of the page.
	percentAnnotation = regexp.MustCompile(`\(\s*[+-]?\d+(?:\.\d+)?\s*%\s*\)`)
	// The page prints "- :" in place of a price when it has none.
	placeholderSeparator = regexp.MustCompile(`[-–—][\s\p{Zs}]*:[\s\p{Zs}]*`)
)

// NormalizeHeadline maps raw headline text to canonical text: volatile
// percentage annotations removed, placeholder separators rewritten to ": ",
// whitespace collapsed, lowercased. normalize(normalize(x)) == normalize(x).
func NormalizeHeadline(raw string) string {
	s := raw
	for {
		next := percentAnnotation.ReplaceAllString(s, "")
		next = placeholderSeparator.ReplaceAllString(next, ": ")
		next = strings.Join(strings.Fields(next), " ")
		if next == s {
			break
		}
		s = next
	}
	return strings.ToLower(s)
}

// FingerprintOf is the lowercase hex md5 of canonical text. md5 keeps keys
// compatible with the legacy headlines_seen.json; nothing here relies on
// collision resistance against an adversary.
func FingerprintOf(canonical string) Fingerprint {
	sum := md5.Sum([]byte(canonical))
	return Fingerprint(hex.EncodeToString(sum[:]))
}
