package content

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

// TextList is an ordered list of strings. JSON input may also be the
// comma separated text the admin form inputs produce.
type TextList []string

// StatList is an ordered list of display metrics. JSON input may also be
// "label:value" pairs separated by commas.
type StatList []Stat

// SplitList turns "a, b,,c" into [a b c].
func SplitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// ParseStats turns "Accuracy:99%, Latency:<2s" into stats. Entries without a
// colon keep an empty value so validation can name them.
func ParseStats(value string) []Stat {
	items := SplitList(value)
	out := make([]Stat, 0, len(items))
	for _, item := range items {
		label, val, _ := strings.Cut(item, ":")
		out = append(out, Stat{Label: strings.TrimSpace(label), Value: strings.TrimSpace(val)})
	}
	return out
}

func (l TextList) String() string {
	return strings.Join(l, ", ")
}

func (l StatList) String() string {
	parts := make([]string, 0, len(l))
	for _, stat := range l {
		parts = append(parts, stat.Label+":"+stat.Value)
	}
	return strings.Join(parts, ", ")
}

func (l *TextList) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	switch {
	case bytes.Equal(trimmed, []byte("null")):
		*l = nil
		return nil
	case len(trimmed) > 0 && trimmed[0] == '"':
		var text string
		if err := json.Unmarshal(trimmed, &text); err != nil {
			return err
		}
		*l = SplitList(text)
		return nil
	}
	var items []string
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return fmt.Errorf("expected list of strings: %w", err)
	}
	*l = items
	return nil
}

func (l *StatList) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	switch {
	case bytes.Equal(trimmed, []byte("null")):
		*l = nil
		return nil
	case len(trimmed) > 0 && trimmed[0] == '"':
		var text string
		if err := json.Unmarshal(trimmed, &text); err != nil {
			return err
		}
		*l = ParseStats(text)
		return nil
	}
	var stats []Stat
	if err := json.Unmarshal(trimmed, &stats); err != nil {
		return fmt.Errorf("expected list of stats: %w", err)
	}
	*l = stats
	return nil
}

func (l TextList) clone() TextList {
	if l == nil {
		return TextList{}
	}
	return slices.Clone(l)
}

func (l StatList) clone() StatList {
	if l == nil {
		return StatList{}
	}
	return slices.Clone(l)
}
