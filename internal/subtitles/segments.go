package subtitles

import (
	"encoding/json"
	"fmt"
	"os"
)

// Segment is one timed caption cue. Start and End are seconds from the
// beginning of the media; Start < End holds for every emitted segment.
type Segment struct {
	Index int     `json:"index"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// WriteSegmentsJSON serializes segments to path as a JSON array.
func WriteSegmentsJSON(path string, segments []Segment) error {
	if segments == nil {
		segments = []Segment{}
	}
	data, err := json.MarshalIndent(segments, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal segments: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write segments: %w", err)
	}
	return nil
}

// LoadSegmentsJSON reads a segments artifact written by WriteSegmentsJSON.
func LoadSegmentsJSON(path string) ([]Segment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read segments: %w", err)
	}
	var segments []Segment
	if err := json.Unmarshal(data, &segments); err != nil {
		return nil, fmt.Errorf("parse segments: %w", err)
	}
	return segments, nil
}
