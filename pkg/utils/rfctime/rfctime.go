package rfctime

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Format used to stringify timestamps.
const RFC3339DateTimeFormat string = time.RFC3339Nano

// Formats accepted from upstream services.
//
// The upstream services are not consistent:
// some timestamps carry an offset, others are local timestamps without it.
// Timestamps without offset are read as UTC.
var acceptableFormats = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.9999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// Time is a timestamp interchanged as RFC3339 string.
//
// The zero Time is interchanged as JSON null.
type Time time.Time

func From(t time.Time) Time {
	return Time(t)
}

func (t Time) Time() time.Time {
	return time.Time(t)
}

func (t Time) IsZero() bool {
	return time.Time(t).IsZero()
}

func (t Time) Equal(other Time) bool {
	return time.Time(t).Equal(time.Time(other))
}

func (t Time) Before(other Time) bool {
	return time.Time(t).Before(time.Time(other))
}

func (t Time) String() string {
	return time.Time(t).Format(RFC3339DateTimeFormat)
}

// Parse parses s in one of accepted formats.
func Parse(s string) (Time, error) {
	for _, format := range acceptableFormats {
		t, err := time.Parse(format, s)
		if err == nil {
			return Time(t), nil
		}
	}
	return Time{}, fmt.Errorf("rfctime: unsupported timestamp format: %s", s)
}

// implement encoding/json.Marshaller
func (t Time) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return []byte(fmt.Sprintf(`"%s"`, t)), nil
}

// implement encoding/json.Unmarshaller
func (t *Time) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*t = Time{}
		return nil
	}

	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		*t = Time{}
		return nil
	}
	ret, err := Parse(s)
	if err != nil {
		return err
	}
	*t = ret
	return nil
}
