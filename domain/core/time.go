package core

import (
	"fmt"
	"strings"
	"time"
)

// Timestamp represents a point in time with timezone awareness
type Timestamp time.Time

// NewTimestamp creates a new timestamp from time.Time
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp(t)
}

// Now returns the current timestamp
func Now() Timestamp {
	return Timestamp(time.Now().UTC())
}

// Time returns the underlying time.Time
func (t Timestamp) Time() time.Time {
	return time.Time(t)
}

// IsZero checks if the timestamp is zero
func (t Timestamp) IsZero() bool {
	return time.Time(t).IsZero()
}

var utcLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseUTC parses the UTC strings used by the data center (ISO 8601 with or
// without zone designator). Times without a zone are taken as UTC.
func ParseUTC(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range utcLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse %q as UTC time", s)
}

// SecondsSince returns t - t0 in seconds
func SecondsSince(t0, t time.Time) float64 {
	return t.Sub(t0).Seconds()
}

// MarshalJSON encodes the timestamp as RFC 3339 UTC
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return time.Time(t).UTC().MarshalJSON()
}

// UnmarshalJSON decodes an RFC 3339 timestamp
func (t *Timestamp) UnmarshalJSON(b []byte) error {
	var tt time.Time
	if err := tt.UnmarshalJSON(b); err != nil {
		return err
	}
	*t = Timestamp(tt.UTC())
	return nil
}
