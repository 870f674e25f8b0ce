package timewarrior

import (
	"fmt"
	"strings"
	"time"
)

type CustomTime struct {
	time.Time
}

const timewarriorTimeLayout = "20060102T150405Z" // YYYYMMDDTHHMMSSZ, always UTC

// UnmarshalJSON implements the json.Unmarshaler interface for CustomTime.
func (ct *CustomTime) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" {
		ct.Time = time.Time{}
		return nil
	}

	t, err := time.Parse(timewarriorTimeLayout, s)
	if err != nil {
		return fmt.Errorf("failed to parse Timewarrior time string '%s': %w", s, err)
	}
	ct.Time = t
	return nil
}

// MarshalJSON implements the json.Marshaler interface for CustomTime.
func (ct CustomTime) MarshalJSON() ([]byte, error) {
	if ct.Time.IsZero() {
		return []byte(`""`), nil
	}
	return []byte(`"` + ct.Time.UTC().Format(timewarriorTimeLayout) + `"`), nil
}

// Interval is one tracked interval of `timew export`. End is nil while the
// interval is still open.
type Interval struct {
	ID         int         `json:"id"`
	Start      CustomTime  `json:"start"`
	End        *CustomTime `json:"end,omitempty"`
	Tags       []string    `json:"tags,omitempty"`
	Annotation string      `json:"annotation,omitempty"`
}

// Description is the annotation, or the tags joined by spaces for intervals
// without one.
func (i Interval) Description() string {
	if i.Annotation != "" {
		return i.Annotation
	}
	return strings.Join(i.Tags, " ")
}
