// Package phone converts Russian phone numbers between the canonical
// +7XXXXXXXXXX storage form and the masked +7 (XXX) XXX-XX-XX display form.
package phone

import "strings"

const maskPlaceholder = '_'

// cleanDigits strips every non-digit rune.
func cleanDigits(value string) string {
	var b strings.Builder
	for _, r := range value {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ensureSevenPrefix maps a leading 8 to 7 and prepends 7 when absent.
func ensureSevenPrefix(digits string) string {
	if digits == "" {
		return ""
	}
	if digits[0] == '8' {
		return "7" + digits[1:]
	}
	if digits[0] == '7' {
		return digits
	}
	return "7" + digits
}

// Normalize reduces any phone input to the canonical storage form:
// "+7" followed by up to ten digits. Empty input yields an empty string.
func Normalize(value string) string {
	normalized := ensureSevenPrefix(cleanDigits(value))
	if normalized == "" {
		return ""
	}
	if len(normalized) > 11 {
		normalized = normalized[:11]
	}
	return "+" + normalized
}

// Format renders the display mask progressively: partial input produces a
// partial mask rather than an error.
func Format(value string) string {
	normalized := ensureSevenPrefix(cleanDigits(value))
	if normalized == "" {
		return ""
	}
	if len(normalized) > 11 {
		normalized = normalized[:11]
	}

	var b strings.Builder
	b.WriteString("+7")

	if len(normalized) > 1 {
		b.WriteString(" (")
		b.WriteString(slice(normalized, 1, 4))
		if len(normalized) >= 4 {
			b.WriteString(")")
		}
	}
	if len(normalized) > 4 {
		b.WriteString(" ")
		b.WriteString(slice(normalized, 4, 7))
	}
	if len(normalized) > 7 {
		b.WriteString("-")
		b.WriteString(slice(normalized, 7, 9))
	}
	if len(normalized) > 9 {
		b.WriteString("-")
		b.WriteString(slice(normalized, 9, 11))
	}
	return b.String()
}

// FormatInput is the input-focused variant: the mask is always complete, with
// missing digits padded by a visible placeholder.
func FormatInput(value string) string {
	normalized := ensureSevenPrefix(cleanDigits(value))
	if len(normalized) > 11 {
		normalized = normalized[:11]
	}
	for len(normalized) < 11 {
		normalized += string(maskPlaceholder)
	}
	return "+7 (" + normalized[1:4] + ") " + normalized[4:7] + "-" + normalized[7:9] + "-" + normalized[9:11]
}

func slice(s string, from, to int) string {
	if from >= len(s) {
		return ""
	}
	if to > len(s) {
		to = len(s)
	}
	return s[from:to]
}
