// Package subtitles converts raw SRT caption files into structured,
// timestamped segments.
//
// Conversion first normalizes the content to WebVTT form and runs it through
// a strict cue parser. When the strict parser rejects the content, a lenient
// block parser takes over: it splits on blank lines and silently drops any
// block without a valid timing line, so a few malformed cues degrade the
// output instead of failing the whole file. Segment indices are always
// renumbered 1..N in source order.
//
// The package is pure: no I/O beyond the explicit file helpers, and no
// side effects.
package subtitles
