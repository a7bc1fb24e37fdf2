package textutil

import "strings"

var formattingRuneLabels = map[rune]string{
	0x061C: "⟪ALM⟫",
	0x200B: "⟪ZWSP⟫",
	0x200C: "⟪ZWNJ⟫",
	0x200D: "⟪ZWJ⟫",
	0x200E: "⟪LRM⟫",
	0x200F: "⟪RLM⟫",
	0x202A: "⟪LRE⟫",
	0x202B: "⟪RLE⟫",
	0x202C: "⟪PDF⟫",
	0x202D: "⟪LRO⟫",
	0x202E: "⟪RLO⟫",
	0x2028: "⟪LSEP⟫",
	0x2029: "⟪PSEP⟫",
	0x180E: "⟪MVS⟫",
	0x2060: "⟪WJ⟫",
	0x2066: "⟪LRI⟫",
	0x2067: "⟪RLI⟫",
	0x2068: "⟪FSI⟫",
	0x2069: "⟪PDI⟫",
	0xFEFF: "⟪BOM⟫",
}

// Replacement returns the text drawn in place of r when r cannot be written
// to the terminal verbatim. Control characters would move the cursor behind
// the renderer's back, so they become '?'; bidi and zero-width formatting
// runes become visible labels. Tab and line feed are handled by the caller.
func Replacement(r rune) (string, bool) {
	if label, ok := formattingRuneLabels[r]; ok {
		return label, true
	}
	if isControl(r) {
		return "?", true
	}
	return "", false
}

// SanitizeTerminalText replaces control characters so user-controlled text cannot
// inject terminal escape sequences when rendered.
func SanitizeTerminalText(text string) string {
	for _, r := range text {
		if requiresSanitization(r) {
			return sanitize(text)
		}
	}
	return text
}

func requiresSanitization(r rune) bool {
	if r == '\t' {
		return false
	}
	if r == '\n' || r == '\r' {
		return true
	}
	if isFormattingRune(r) {
		return true
	}
	return isControl(r)
}

func sanitize(text string) string {
	var b strings.Builder
	for _, r := range text {
		switch {
		case isFormattingRune(r):
			b.WriteString(formattingRuneLabels[r])
		case r == '\t', r == '\n', r == '\r':
			b.WriteByte(' ')
		case isControl(r):
			b.WriteByte('?')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isFormattingRune(r rune) bool {
	_, ok := formattingRuneLabels[r]
	return ok
}

func isControl(r rune) bool {
	return (r >= 0 && r < 0x20) || (r >= 0x7f && r < 0xa0)
}
