package monitor

import (
	"regexp"
	"strings"
)

var quarterToken = regexp.MustCompile(`\bq[1-4]\b`)

var earningsKeywords = []string{
	"net profit", "net loss", "revenue", "ebitda", "rupees vs",
	"yoy", "qoq", "est ", "margin", "topline", "bottomline",
	"bottom line", "top line", "profit after tax", "pat ", "sales ",
}

var resultsPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\bnet profit\b.*\brupees\b`),
	regexp.MustCompile(`\bnet loss\b.*\brupees\b`),
	regexp.MustCompile(`\brevenue\b.*\brupees\b.*\byoy\b`),
	regexp.MustCompile(`\bebitda\b.*\brupees\b.*\byoy\b`),
	regexp.MustCompile(`\b(?:sl|cons) net (?:profit|loss)\b`),
}

// IsResultsHeadline reports whether a headline announces quarterly results.
// The page's category tag is often missing, so the text itself is checked
// too.
func IsResultsHeadline(text, category string) bool {
	if IsResultsCategory(category) {
		return true
	}
	lower := strings.ToLower(text)
	if quarterToken.MatchString(lower) {
		for _, kw := range earningsKeywords {
			if strings.Contains(lower, kw) {
				return true
			}
		}
	}
	for _, re := range resultsPatterns {
		if re.MatchString(lower) {
			return true
		}
	}
	return false
}
