package utils

import (
	"fmt"
	"math"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripMarks decomposes accented characters and removes the combining
// marks, so Romanian and Hungarian diacritics collapse to plain ASCII
// (Ț -> T, ă -> a, ő -> o, ű -> u).
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Sanitize transliterates text to printable ASCII and truncates it to
// maxLen characters. The device character set cannot render anything
// else, so this must run before any text is placed into a frame.
func Sanitize(text string, maxLen int) string {
	out, _, err := transform.String(stripMarks, text)
	if err != nil {
		out = text
	}

	// Drop whatever survived decomposition but still is not printable ASCII
	var sb strings.Builder
	sb.Grow(len(out))
	for _, r := range out {
		if r >= 0x20 && r <= 0x7E {
			sb.WriteRune(r)
		}
	}
	out = sb.String()

	if maxLen > 0 && len(out) > maxLen {
		out = out[:maxLen]
	}
	return out
}

// Round2 rounds a monetary value to 2 decimal places
func Round2(val float64) float64 {
	return math.Round(val*100) / 100
}

// FormatPrice formats a price with 2 decimal places and a fixed decimal point
func FormatPrice(val float64) string {
	return fmt.Sprintf("%.2f", val)
}

// FormatQty formats a quantity with 3 decimal places and a fixed decimal point
func FormatQty(val float64) string {
	return fmt.Sprintf("%.3f", val)
}

// Dump creates a hex dump of binary data (for the low-level frame log)
func Dump(data []byte) string {
	var sb strings.Builder
	for i := 0; i < len(data); i += 16 {
		sb.WriteString(fmt.Sprintf("0x%08X ", i))
		end := i + 16
		if end > len(data) {
			end = len(data)
		}
		ascii := ""
		for j := i; j < end; j++ {
			sb.WriteString(fmt.Sprintf(" %02X", data[j]))
			if data[j] > 32 && data[j] < 127 {
				ascii += string(rune(data[j]))
			} else {
				ascii += "."
			}
		}
		for j := end; j < i+16; j++ {
			sb.WriteString("   ")
		}
		sb.WriteString("  " + ascii + "\n")
	}
	return sb.String()
}
