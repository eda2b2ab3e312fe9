// Package textnorm produces a matching-safe view of message text.
//
// Normalization is intentionally "index-safe": characters are only ever
// replaced in place, never inserted or removed, so byte offsets computed
// against the normalized text remain valid indices into the original text.
package textnorm

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Zero-width characters commonly abused to break up keywords
// ("ver<ZWSP>ify") without changing how the text renders. Written as
// escapes: these runes are invisible, and a raw U+FEFF is not even
// legal Go source outside the first byte of a file.
var zeroWidth = map[rune]bool{
	'\u200B': true, // zero width space
	'\u200C': true, // zero width non-joiner
	'\u200D': true, // zero width joiner
	'\uFEFF': true, // BOM / zero width no-break space
}

// Normalize lowercases text and replaces zero-width characters with
// ordinary spaces. The returned string has exactly the same byte length
// as the input.
//
// A rune is only lowercased when its lowercase form has the same UTF-8
// width; the rare runes that would change width (e.g. U+0130) are kept
// as-is to preserve the length invariant. Bytes that do not decode as
// UTF-8 are copied through unchanged — re-encoding them as U+FFFD
// would grow the string and shift every downstream offset.
func Normalize(text string) string {
	if text == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(text))

	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])

		if r == utf8.RuneError && size == 1 {
			// Invalid byte, not a real U+FFFD.
			b.WriteByte(text[i])
			i++
			continue
		}

		if zeroWidth[r] {
			// A zero-width rune is 3 bytes in UTF-8; pad with spaces to
			// keep byte offsets aligned with the original text.
			for j := 0; j < size; j++ {
				b.WriteByte(' ')
			}
			i += size
			continue
		}

		lower := unicode.ToLower(r)
		if utf8.RuneLen(lower) == size {
			b.WriteRune(lower)
		} else {
			b.WriteString(text[i : i+size])
		}
		i += size
	}

	return b.String()
}
