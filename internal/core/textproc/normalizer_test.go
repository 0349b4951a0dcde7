package textproc

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeIdempotent(t *testing.T) {
	samples := []string{
		"Hello   world.\n\n\n\nSecond paragraph!!!",
		"“Curly quotes” and ‘singles’ — plus dashes – here…",
		"Cookie Policy\nReal content stays.\n\nPrivacy Policy",
		"Text,, with;; doubled,, separators...",
		"   \t  ",
		"",
		"plain already-normalized text. nothing to do here.",
		"Follow us on everything! Subscribe now. All rights reserved © 2024",
	}

	for _, in := range samples {
		once := Normalize(in)
		twice := Normalize(once)
		require.Equal(t, once, twice, "normalize must be idempotent for %q", in)
	}
}

func TestNormalizeWhitespace(t *testing.T) {
	out := Normalize("a   b\t\tc")
	assert.Equal(t, "a b c", out)

	out = Normalize("para one\n\n\n\n\npara two")
	assert.Equal(t, "para one\n\npara two", out)

	out = Normalize("line  \n   next")
	assert.Equal(t, "line\nnext", out)
}

func TestNormalizeBoilerplate(t *testing.T) {
	in := "Important finding.\n\nCookie Policy\n\nPrivacy Policy Terms of Service\n\nMore substance."
	out := Normalize(in)

	assert.NotContains(t, out, "Cookie Policy")
	assert.NotContains(t, out, "Privacy Policy")
	assert.NotContains(t, out, "Terms of Service")
	assert.Contains(t, out, "Important finding.")
	assert.Contains(t, out, "More substance.")

	out = Normalize("Result stands. © 2023 Example Corp. All rights reserved.")
	assert.NotContains(t, out, "© 2023")
	assert.NotContains(t, strings.ToLower(out), "all rights reserved")
	assert.Contains(t, out, "Result stands.")
}

func TestNormalizePunctuation(t *testing.T) {
	assert.Equal(t, `"quoted" and 'single' - dash`, Normalize("“quoted” and ‘single’ — dash"))
	assert.Equal(t, "Wait. Really,", Normalize("Wait!!! Really,,,"))
	// The ellipsis character expands and then collapses with the stop run.
	assert.Equal(t, "So.", Normalize("So…"))
}

func TestNormalizeEmpty(t *testing.T) {
	assert.Equal(t, "", Normalize(""))
	assert.Equal(t, "", Normalize("  \n\t "))
}
