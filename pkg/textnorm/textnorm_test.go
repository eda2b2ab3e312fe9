package textnorm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeLowercases(t *testing.T) {
	assert.Equal(t, "urgent: verify your account", Normalize("URGENT: Verify Your Account"))
}

func TestNormalizeReplacesZeroWidth(t *testing.T) {
	in := "ver\u200Bify"
	out := Normalize(in)

	assert.Equal(t, len(in), len(out))
	assert.NotContains(t, out, "\u200B")
	// The zero-width rune occupies 3 bytes; it becomes 3 spaces.
	assert.Equal(t, "ver   ify", out)
}

func TestNormalizeAllZeroWidthVariants(t *testing.T) {
	for _, r := range []rune{'\u200B', '\u200C', '\u200D', '\uFEFF'} {
		out := Normalize(string(r))
		assert.Equal(t, "   ", out, "rune %U should become spaces", r)
	}
}

func TestNormalizeLengthInvariant(t *testing.T) {
	cases := []string{
		"",
		"plain ascii",
		"MIXED Case With\u200B zero\u200Cwidth\u200D chars\uFEFF",
		"héllo wörld ÄÖÜ",
		"שלום, הודעה דחופה",
		"İstanbul ıı ſ", // runes whose lowercase form changes UTF-8 width
		"包含中文的文本 https://example.com",
		// Invalid UTF-8 must pass through byte-for-byte, never be
		// re-encoded as U+FFFD (which is wider than the bad byte).
		"ab\xffcd urgent",
		"\xffurgent",
		"\x80\x80\x80",
		"trunc\xc3",          // truncated 2-byte sequence
		"mix\xf0\x9f\x92bad", // truncated 4-byte sequence
	}

	for _, c := range cases {
		assert.Equal(t, len(c), len(Normalize(c)), "input %q", c)
	}
}

func TestNormalizeInvalidUTF8KeepsValidRunesWorking(t *testing.T) {
	out := Normalize("AB\xffCD")
	assert.Equal(t, "ab\xffcd", out)

	// A genuine U+FFFD in the input is a valid 3-byte rune and stays one.
	in := "x�y"
	assert.Equal(t, in, Normalize(in))
}

func TestNormalizeIdempotent(t *testing.T) {
	in := "Click\u200B HERE to Verify"
	once := Normalize(in)
	assert.Equal(t, once, Normalize(once))

	bad := "Ver\xffIFY now"
	assert.Equal(t, Normalize(bad), Normalize(Normalize(bad)))
}
