package converter

import (
	"fmt"
	"log"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}

// FoldName makes s ASCII: compatibility decomposition, combining marks
// removed, other non-ASCII runes replaced by '_'.
func FoldName(s string) string {
	if isASCII(s) {
		return s
	}
	fold := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(fold, s)
	if err != nil {
		folded = s
	}
	return strings.Map(func(r rune) rune {
		if r >= 0x80 {
			return '_'
		}
		return r
	}, folded)
}

// asciiName returns FoldName(s), or an error in strict mode.
func (o *ExportOptions) asciiName(what, s string) (string, error) {
	if isASCII(s) {
		return s, nil
	}
	if o.StrictNames {
		return "", fmt.Errorf("converter: %s %q is not ASCII", what, s)
	}
	folded := FoldName(s)
	log.Printf("WARNING: %s %q written as %q", what, s, folded)
	return folded, nil
}

// clipFileName strips characters that are not allowed in file names.
func clipFileName(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x20 || strings.ContainsRune(`<>:"/\|?*`, r) {
			return -1
		}
		return r
	}, s)
}
