package fbplus

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
)

const (
	// DateLayout is the calendar date format the forum displays.
	DateLayout = "2006-01-02"

	timestampLayout = DateLayout + " 15:04"

	yesterdayMarker = "Igår"
	todayMarker     = "Idag"
)

// ResolveDate turns the forum's relative date tokens into calendar dates
// relative to now. "Igår" is the date of now minus 24 hours, not the previous
// calendar day. Tokens that are neither "Igår" nor "Idag" are assumed to
// already be dates and are returned unchanged.
func ResolveDate(token string, now time.Time) string {
	folded := cases.Fold().String(strings.TrimSpace(token))
	switch {
	case strings.HasPrefix(folded, cases.Fold().String(yesterdayMarker)):
		return now.Add(-24 * time.Hour).Format(DateLayout)
	case strings.HasPrefix(folded, cases.Fold().String(todayMarker)):
		return now.Format(DateLayout)
	}
	return token
}

// ParseTimestamp parses a post heading such as "Idag, 14:03" into an instant
// in loc. Only the heading's first line is considered.
func ParseTimestamp(heading string, now time.Time, loc *time.Location) (time.Time, error) {
	line := firstLine(strings.TrimSpace(heading))
	dateText, timeText, ok := strings.Cut(line, ",")
	if !ok {
		return time.Time{}, fmt.Errorf("no time in heading %q", line)
	}
	date := ResolveDate(strings.TrimSpace(dateText), now.In(loc))
	t, err := time.ParseInLocation(timestampLayout, date+" "+strings.TrimSpace(timeText), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("unable to parse heading %q: %w", line, err)
	}
	return t, nil
}
