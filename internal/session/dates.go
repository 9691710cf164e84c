package session

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"
)

// DefaultDateLayout renders dates the way a US-English locale prints them.
const DefaultDateLayout = "1/2/2006"

var zonedLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	time.RFC1123Z,
	time.RFC1123,
}

var localLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006/01/02",
}

// DateFormatter turns raw equity timestamps into display strings.
type DateFormatter struct {
	Layout   string
	Location *time.Location
}

// NewDateFormatter returns a formatter; empty arguments fall back to
// DefaultDateLayout and the local time zone.
func NewDateFormatter(layout string, loc *time.Location) DateFormatter {
	if layout == "" {
		layout = DefaultDateLayout
	}
	if loc == nil {
		loc = time.Local
	}
	return DateFormatter{Layout: layout, Location: loc}
}

// Format renders raw, a JSON string date or a JSON number of epoch
// milliseconds. Values it cannot read are returned as fallback.
func (f DateFormatter) Format(raw json.RawMessage, fallback string) string {
	t, ok := f.parse(raw)
	if !ok {
		return fallback
	}
	return t.In(f.location()).Format(f.layout())
}

func (f DateFormatter) parse(raw json.RawMessage) (time.Time, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return time.Time{}, false
	}

	if raw[0] != '"' {
		ms, err := strconv.ParseFloat(string(raw), 64)
		if err != nil {
			return time.Time{}, false
		}
		return time.UnixMilli(int64(ms)), true
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return time.Time{}, false
	}
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	// Dates without a zone are calendar dates in the display zone. A browser
	// reads "2024-01-05" as UTC midnight and shows Jan 4 west of UTC; this
	// keeps the day the server sent.
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, f.location()); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func (f DateFormatter) layout() string {
	if f.Layout == "" {
		return DefaultDateLayout
	}
	return f.Layout
}

func (f DateFormatter) location() *time.Location {
	if f.Location == nil {
		return time.Local
	}
	return f.Location
}
