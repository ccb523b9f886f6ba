package models

import (
	"encoding/json"
	"time"

	"github.com/araddon/dateparse"
)

// Timestamp keeps the API's timestamp text verbatim so it round-trips
// unchanged, and exposes a parsed time for display. The API does not always
// send a zone, so parsing is lenient.
type Timestamp struct {
	Raw  string
	Time time.Time
}

// ParseTimestamp parses raw; Time stays zero when the text is unrecognised.
func ParseTimestamp(raw string) Timestamp {
	ts := Timestamp{Raw: raw}
	if raw == "" {
		return ts
	}
	if t, err := dateparse.ParseAny(raw); err == nil {
		ts.Time = t
	}
	return ts
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*t = Timestamp{}
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*t = ParseTimestamp(raw)
	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Raw)
}

// Format renders the parsed time, or the raw text if it could not be parsed.
func (t Timestamp) Format(layout string) string {
	if t.Time.IsZero() {
		return t.Raw
	}
	return t.Time.Format(layout)
}
