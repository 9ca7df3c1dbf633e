package normalize

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Text canonicalizes a scalar for case- and whitespace-insensitive
// comparison. Nil becomes the empty string.
func Text(v any) string {
	if v == nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(fmt.Sprintf("%v", v)))
}

// markStripper decomposes to compatibility form and drops combining marks.
// For kana this folds voiced and semi-voiced characters onto their base
// forms ("ポンプ" and "ホンフ" compare equal), which is what the
// diacritic-insensitive step of the name heuristic needs.
var markStripper = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// StripMarks returns s with combining marks removed after NFKD
// decomposition. On a transform error the input is returned unchanged.
func StripMarks(s string) string {
	out, _, err := transform.String(markStripper, s)
	if err != nil {
		return s
	}
	return out
}

// Tokens splits s on whitespace, hyphens and underscores into a word set.
func Tokens(s string) map[string]struct{} {
	words := strings.FieldsFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || r == '-' || r == '_'
	})
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// IsEmpty reports whether a value counts as absent for item matching:
// nil, the empty string, or numeric zero.
func IsEmpty(v any) bool {
	switch n := v.(type) {
	case nil:
		return true
	case string:
		return n == ""
	case float64:
		return n == 0
	case float32:
		return n == 0
	case int:
		return n == 0
	case int32:
		return n == 0
	case int64:
		return n == 0
	case json.Number:
		f, err := n.Float64()
		return err == nil && f == 0
	default:
		return false
	}
}
