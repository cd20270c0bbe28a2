package nlp

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize lower-cases and trims the input. Detectors run on this form.
func Normalize(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

// Fold strips combining marks, so "pantalón" and "pantalon" compare equal.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// Tokens splits text into letter/digit runs.
func Tokens(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// Words that end in "s" but are already singular.
var invariantWords = map[string]bool{
	"adidas": true, "tenis": true, "jeans": true, "mes": true, "mas": true,
	"menos": true, "pais": true, "bs": true, "usd": true, "lunes": true,
	"martes": true, "miercoles": true, "jueves": true, "viernes": true,
}

// Lemma reduces a word to an accent-folded singular form. It covers the
// regular Spanish plurals ("ventas", "pantalones", "materiales"), which is all
// the intent vocabulary needs.
func Lemma(word string) string {
	w := Fold(strings.ToLower(word))
	if invariantWords[w] {
		return w
	}
	n := len(w)
	switch {
	case n > 4 && strings.HasSuffix(w, "es") && strings.IndexByte("lrnd", w[n-3]) >= 0:
		return w[:n-2]
	case n > 3 && strings.HasSuffix(w, "s"):
		return w[:n-1]
	}
	return w
}

// Lemmas lemmatizes every token of text.
func Lemmas(text string) []string {
	tokens := Tokens(text)
	out := make([]string, len(tokens))
	for i, tok := range tokens {
		out[i] = Lemma(tok)
	}
	return out
}

func containsAny(text string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(text, n) {
			return true
		}
	}
	return false
}
