package textutil_test

import (
	"testing"

	"mixdown/internal/textutil"
)

func TestSanitizeFileName(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "My Song", "My Song"},
		{"slashes become dashes", "AC/DC: Back In Black", "AC-DC- Back In Black"},
		{"removed characters", `what? "quoted" <tag> |pipe|`, "what quoted tag pipe"},
		{"asterisk", "mix*down", "mix-down"},
		{"control characters dropped", "line\x01break\x7ftest", "linebreaktest"},
		{"trimmed dots and spaces", "  ..title.. ", "title"},
		{"empty", "   ", ""},
		{"unicode kept", "café età", "café età"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := textutil.SanitizeFileName(tc.input); got != tc.want {
				t.Fatalf("SanitizeFileName(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}

func TestSanitizeFileNameNormalizesNFC(t *testing.T) {
	// "é" as combining sequence should normalize to the precomposed form.
	decomposed := "café"
	got := textutil.SanitizeFileName(decomposed)
	if got != "café" {
		t.Fatalf("SanitizeFileName(%q) = %q, want %q", decomposed, got, "café")
	}
}
