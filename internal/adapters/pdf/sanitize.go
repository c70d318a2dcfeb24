package pdf

import (
	"strings"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/unicode/norm"
)

// replacements maps common characters outside WinAnsi to printable equivalents.
var replacements = map[rune]string{
	'\u2010': "-",  // hyphen
	'\u2011': "-",  // non-breaking hyphen
	'\u2212': "-",  // minus sign
	'\u00a0': " ",  // no-break space
	'\u202f': " ",  // narrow no-break space
	'\u2009': " ",  // thin space
	'\u2192': "->", // rightwards arrow
	'\u2190': "<-", // leftwards arrow
	'\u2264': "<=",
	'\u2265': ">=",
	'\t':     "    ",
}

// Sanitize normalises text to NFC and restricts it to runes the standard PDF
// fonts can draw (Windows-1252). Anything else becomes '?'.
func Sanitize(s string) string {
	s = norm.NFC.String(s)

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if rep, ok := replacements[r]; ok {
			b.WriteString(rep)
			continue
		}
		if r < 0x20 || r == 0x7f {
			continue
		}
		if _, ok := charmap.Windows1252.EncodeRune(r); !ok {
			b.WriteByte('?')
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
