package utils

import (
	"strings"
	"testing"
)

func TestSanitizeTransliterates(t *testing.T) {
	tests := []struct {
		name string
		in   string
		max  int
		want string
	}{
		{name: "romanian diacritics", in: "Cafenea Țăranu", max: 36, want: "Cafenea Taranu"},
		{name: "hungarian diacritics", in: "Gödöllő Kürtőskalács", max: 36, want: "Godollo Kurtoskalacs"},
		{name: "plain ascii untouched", in: "Espresso 2x", max: 36, want: "Espresso 2x"},
		{name: "control bytes stripped", in: "Cafe\x01\x02latte", max: 36, want: "Cafelatte"},
		{name: "truncated to max", in: "a very long product name indeed here", max: 10, want: "a very lon"},
		{name: "unmapped symbols dropped", in: "Ceai №3 ☕", max: 36, want: "Ceai 3 "},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Sanitize(tc.in, tc.max)
			if got != tc.want {
				t.Fatalf("Sanitize(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestSanitizeIdempotent(t *testing.T) {
	inputs := []string{
		"Cafenea Țăranu",
		"Gödöllő",
		"plain",
		"",
		strings.Repeat("ă", 100),
	}
	for _, in := range inputs {
		once := Sanitize(in, 36)
		twice := Sanitize(once, 36)
		if once != twice {
			t.Fatalf("Sanitize not idempotent for %q: %q != %q", in, once, twice)
		}
	}
}

func TestSanitizeNeverExceedsMax(t *testing.T) {
	inputs := []string{
		strings.Repeat("Ț", 50),
		strings.Repeat("x", 50),
		"Țăranu Ștefan și Păun",
	}
	for _, in := range inputs {
		got := Sanitize(in, 20)
		if len(got) > 20 {
			t.Fatalf("Sanitize(%q, 20) produced %d chars: %q", in, len(got), got)
		}
		for i := 0; i < len(got); i++ {
			if got[i] < 0x20 || got[i] > 0x7E {
				t.Fatalf("non-ASCII byte 0x%02X survived in %q", got[i], got)
			}
		}
	}
}

func TestFormatters(t *testing.T) {
	if s := FormatPrice(2.5); s != "2.50" {
		t.Fatalf("FormatPrice(2.5) = %q", s)
	}
	if s := FormatQty(1); s != "1.000" {
		t.Fatalf("FormatQty(1) = %q", s)
	}
	if v := Round2(0.1 + 0.2); v != 0.3 {
		t.Fatalf("Round2(0.1+0.2) = %v", v)
	}
	if v := Round2(8.0 * 0.1); v != 0.8 {
		t.Fatalf("Round2(8.0*0.1) = %v", v)
	}
}
