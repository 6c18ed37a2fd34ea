package measure

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
)

// #region requirements
// Requirements maps a pattern name to the measurements it cannot be built without.
type Requirements struct {
	table map[string][]string
}

// DefaultRequirements returns the table for the built-in patterns.
func DefaultRequirements() Requirements {
	return NewRequirements(map[string][]string{
		"chord_cut":          {Diameter, FlatToFlat},
		"counterbore":        {OuterDiameter, InnerDiameter, OuterDepth, InnerDepth},
		"countersink":        {OuterDiameter, InnerDiameter, Angle, OuterDepth, InnerDepth},
		"slot":               {Width, Length, Depth},
		"polar_hole_pattern": {Count, Diameter, Radius},
		"hole":               {Diameter},
	})
}

// NewRequirements copies table into an immutable Requirements.
func NewRequirements(table map[string][]string) Requirements {
	cp := make(map[string][]string, len(table))
	for k, v := range table {
		cp[k] = append([]string(nil), v...)
	}
	return Requirements{table: cp}
}

// Required returns a copy of the names a pattern needs.
func (r Requirements) Required(pattern string) ([]string, error) {
	names, ok := r.table[pattern]
	if !ok {
		return nil, fmt.Errorf("requirements for %q: %w", pattern, ErrUnknownPattern)
	}
	return append([]string(nil), names...), nil
}

// Patterns lists every pattern with an entry, sorted.
func (r Requirements) Patterns() []string {
	out := make([]string, 0, len(r.table))
	for k := range r.table {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// #endregion requirements

// #region transcript
// LoadTranscript reads a transcript file holding plain text or a JSON object with a "text" field.
func LoadTranscript(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read transcript: %w", err)
	}
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "{") {
		var doc struct {
			Text          string `json:"text"`
			Transcription string `json:"transcription"`
		}
		if err := json.Unmarshal([]byte(trimmed), &doc); err != nil {
			return "", fmt.Errorf("decode transcript: %w", err)
		}
		if doc.Text != "" {
			return doc.Text, nil
		}
		return doc.Transcription, nil
	}
	return trimmed, nil
}

// #endregion transcript
