package processor

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// Date layouts accepted from vision output, tried in order. US documents
// overwhelmingly use MM/DD/YYYY; ISO is what the prompt asks for.
var dateLayouts = []string{
	"2006-01-02",
	"01/02/2006",
	"1/2/2006",
	"01-02-2006",
	"January 2, 2006",
	"Jan 2, 2006",
}

// parseDate parses a date string against the accepted layouts.
func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// yearsBetween returns complete years elapsed from birth to now,
// accounting for whether the anniversary has passed this year.
func yearsBetween(birth, now time.Time) int {
	years := now.Year() - birth.Year()
	anniversary := birth.AddDate(years, 0, 0)
	if anniversary.After(now) {
		years--
	}
	return years
}

// daysUntil returns days from now until t, rounded up so a partial day
// still counts ("expires in 1 day", never "0 days" for a future date).
// Negative once t has fully passed.
func daysUntil(t, now time.Time) int {
	return int(math.Ceil(t.Sub(now).Hours() / 24))
}

// formatThousands renders n with comma thousands separators.
func formatThousands(n int64) string {
	s := strconv.FormatInt(n, 10)
	negative := strings.HasPrefix(s, "-")
	if negative {
		s = s[1:]
	}

	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
		if len(s) > lead {
			b.WriteByte(',')
		}
	}
	for i := lead; i < len(s); i += 3 {
		b.WriteString(s[i : i+3])
		if i+3 < len(s) {
			b.WriteByte(',')
		}
	}

	if negative {
		return "-" + b.String()
	}
	return b.String()
}
