// Package language normalizes user-supplied language identifiers to the
// ISO 639-1 codes the external recognizer expects.
package language

import (
	"strings"

	xlang "golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// ToISO2 converts a language identifier ("en", "eng", "en-US") to its
// two-letter ISO 639-1 code. Empty or unrecognized values return "", which
// recognizers treat as autodetect.
func ToISO2(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}
	tag, err := xlang.Parse(trimmed)
	if err != nil {
		return ""
	}
	base, confidence := tag.Base()
	if confidence == xlang.No {
		return ""
	}
	code := base.String()
	if len(code) != 2 {
		return ""
	}
	return code
}

// DisplayName returns a human-readable English name for a language
// identifier, falling back to the raw value when it cannot be parsed.
func DisplayName(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}
	tag, err := xlang.Parse(trimmed)
	if err != nil {
		return trimmed
	}
	name := display.English.Tags().Name(tag)
	if name == "" {
		return trimmed
	}
	return name
}
