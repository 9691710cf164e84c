package session

import (
	"encoding/json"
	"testing"
	"time"
)

func TestDateFormatterFormat(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*60*60)
	pacific := time.FixedZone("PST", -8*60*60)
	cases := []struct {
		name     string
		loc      *time.Location
		layout   string
		raw      string
		fallback string
		want     string
	}{
		{name: "rfc3339 utc", loc: time.UTC, raw: `"2024-01-05T00:00:00Z"`, want: "1/5/2024"},
		{name: "rfc3339 shifted", loc: tokyo, raw: `"2024-01-05T20:00:00Z"`, want: "1/6/2024"},
		{name: "offset", loc: time.UTC, raw: `"2024-03-01T23:30:00-02:00"`, want: "3/2/2024"},
		{name: "plain date west of utc", loc: pacific, raw: `"2024-01-05"`, want: "1/5/2024"},
		{name: "plain date", loc: tokyo, raw: `"2024-12-31"`, want: "12/31/2024"},
		{name: "datetime without zone", loc: time.UTC, raw: `"2024-02-29 15:04:05"`, want: "2/29/2024"},
		{name: "epoch millis", loc: time.UTC, raw: `1704412800000`, want: "1/5/2024"},
		{name: "custom layout", loc: time.UTC, layout: "2006-01-02", raw: `"2024-01-05T10:00:00Z"`, want: "2024-01-05"},
		{name: "unparseable", loc: time.UTC, raw: `"last tuesday"`, fallback: "last tuesday", want: "last tuesday"},
		{name: "null", loc: time.UTC, raw: `null`, fallback: "null", want: "null"},
		{name: "missing", loc: time.UTC, raw: ``, fallback: "", want: ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := NewDateFormatter(tc.layout, tc.loc)
			if got := f.Format(json.RawMessage(tc.raw), tc.fallback); got != tc.want {
				t.Fatalf("Format(%s) = %q, want %q", tc.raw, got, tc.want)
			}
		})
	}
}

func TestNewDateFormatterDefaults(t *testing.T) {
	f := NewDateFormatter("", nil)
	if f.Layout != DefaultDateLayout {
		t.Fatalf("Layout = %q", f.Layout)
	}
	if f.Location != time.Local {
		t.Fatalf("Location = %v", f.Location)
	}

	var zero DateFormatter
	if got := zero.Format(json.RawMessage(`"2024-07-04"`), "x"); got != "7/4/2024" {
		t.Fatalf("zero formatter = %q", got)
	}
}
