package subtitles

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

const vttHeader = "WEBVTT"

// Convert parses SRT caption content into ordered segments. The strict
// WebVTT-normalized parse is attempted first; on any strict failure the
// lenient block parser takes over and drops malformed cues silently.
// Convert never fails: worst case is an empty slice.
func Convert(content string) []Segment {
	if segments, err := parseStrict(toWebVTT(content)); err == nil {
		return segments
	}
	return parseLenient(content)
}

// ConvertFile reads path and converts its content. The returned error only
// reflects the read; malformed caption content degrades, it does not fail.
func ConvertFile(path string) ([]Segment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read captions: %w", err)
	}
	return Convert(string(data)), nil
}

// ParseTimestamp decodes an SRT/WebVTT timestamp (HH:MM:SS,mmm or
// HH:MM:SS.mmm) into seconds.
func ParseTimestamp(value string) (float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("empty timestamp")
	}
	// SRT uses a comma before the millisecond field, WebVTT a period.
	value = strings.ReplaceAll(value, ".", ",")
	timeParts := strings.Split(value, ",")
	if len(timeParts) != 2 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hms := strings.Split(timeParts[0], ":")
	if len(hms) != 3 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hours, errH := strconv.Atoi(hms[0])
	minutes, errM := strconv.Atoi(hms[1])
	seconds, errS := strconv.Atoi(hms[2])
	millis, errMS := strconv.Atoi(timeParts[1])
	if errH != nil || errM != nil || errS != nil || errMS != nil {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	if hours < 0 || minutes < 0 || seconds < 0 || millis < 0 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	return float64(hours*3600+minutes*60+seconds) + float64(millis)/1000, nil
}

// toWebVTT rewrites SRT timing lines to the dot-delimited WebVTT convention
// and prepends the header token the strict parser requires.
func toWebVTT(content string) string {
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		if strings.Contains(line, "-->") {
			lines[i] = strings.ReplaceAll(line, ",", ".")
		}
	}
	return vttHeader + "\n\n" + strings.Join(lines, "\n")
}

// parseStrict validates WebVTT-style content and rejects on the first
// malformed cue. Callers fall back to parseLenient on error.
func parseStrict(content string) ([]Segment, error) {
	normalized := strings.ReplaceAll(content, "\r\n", "\n")
	trimmed := strings.TrimSpace(normalized)
	if !strings.HasPrefix(trimmed, vttHeader) {
		return nil, fmt.Errorf("missing %s header", vttHeader)
	}
	body := strings.TrimSpace(strings.TrimPrefix(trimmed, vttHeader))
	if body == "" {
		return []Segment{}, nil
	}

	var segments []Segment
	for _, block := range splitBlocks(body) {
		segment, err := parseStrictBlock(block)
		if err != nil {
			return nil, err
		}
		segment.Index = len(segments) + 1
		segments = append(segments, segment)
	}
	return segments, nil
}

func parseStrictBlock(block []string) (Segment, error) {
	timingIdx := -1
	for i, line := range block {
		if strings.Contains(line, "-->") {
			timingIdx = i
			break
		}
	}
	if timingIdx < 0 {
		return Segment{}, fmt.Errorf("cue without timing line")
	}
	// Only an optional cue identifier may precede the timing line.
	if timingIdx > 1 {
		return Segment{}, fmt.Errorf("unexpected content before timing line")
	}

	start, end, err := parseTimingLine(block[timingIdx])
	if err != nil {
		return Segment{}, err
	}
	if start >= end {
		return Segment{}, fmt.Errorf("cue start %.3f not before end %.3f", start, end)
	}

	text := joinText(block[timingIdx+1:])
	if text == "" {
		return Segment{}, fmt.Errorf("cue without text")
	}
	return Segment{Start: start, End: end, Text: text}, nil
}

// parseLenient splits content on blank-line boundaries; each block needs an
// index line, a timing line, and text. Blocks missing a valid timing line
// are dropped rather than failing the conversion.
func parseLenient(content string) []Segment {
	normalized := strings.ReplaceAll(content, "\r\n", "\n")
	segments := []Segment{}
	for _, block := range splitBlocks(strings.TrimSpace(normalized)) {
		if len(block) < 2 {
			continue
		}
		start, end, err := parseTimingLine(block[1])
		if err != nil || start >= end {
			continue
		}
		text := joinText(block[2:])
		if text == "" {
			continue
		}
		segments = append(segments, Segment{
			Index: len(segments) + 1,
			Start: start,
			End:   end,
			Text:  text,
		})
	}
	return segments
}

func parseTimingLine(line string) (float64, float64, error) {
	parts := strings.Split(line, "-->")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid timing line %q", line)
	}
	start, err := ParseTimestamp(parts[0])
	if err != nil {
		return 0, 0, err
	}
	// Trailing cue settings after the end timestamp are ignored.
	endText := strings.TrimSpace(parts[1])
	if fields := strings.Fields(endText); len(fields) > 0 {
		endText = fields[0]
	}
	end, err := ParseTimestamp(endText)
	if err != nil {
		return 0, 0, err
	}
	return start, end, nil
}

func splitBlocks(content string) [][]string {
	var blocks [][]string
	var current []string
	for _, line := range strings.Split(content, "\n") {
		if strings.TrimSpace(line) == "" {
			if len(current) > 0 {
				blocks = append(blocks, current)
				current = nil
			}
			continue
		}
		current = append(current, line)
	}
	if len(current) > 0 {
		blocks = append(blocks, current)
	}
	return blocks
}

func joinText(lines []string) string {
	parts := make([]string, 0, len(lines))
	for _, line := range lines {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return strings.Join(parts, " ")
}
