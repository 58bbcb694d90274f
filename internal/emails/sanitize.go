// internal/emails/sanitize.go
package emails

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/unicode/norm"
)

// emojiRanges covers the symbol blocks people decorate display names with.
var emojiRanges = &unicode.RangeTable{
	R32: []unicode.Range32{
		{Lo: 0x1F300, Hi: 0x1F9FF, Stride: 1},
	},
	R16: []unicode.Range16{
		{Lo: 0x2600, Hi: 0x26FF, Stride: 1},
		{Lo: 0x2700, Hi: 0x27BF, Stride: 1},
	},
}

var stripDisplayNoise = runes.Remove(runes.Predicate(func(r rune) bool {
	return unicode.Is(emojiRanges, r) || unicode.IsControl(r)
}))

// SanitizeDisplayText cleans author names and titles for storage: NFC
// normalization, emoji and control characters removed, whitespace runs
// collapsed. Never applied to the email itself.
func SanitizeDisplayText(text string) string {
	if text == "" {
		return ""
	}
	s := stripDisplayNoise.String(norm.NFC.String(text))
	var b strings.Builder
	b.Grow(len(s))
	for _, field := range strings.Fields(s) {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(field)
	}
	return b.String()
}
