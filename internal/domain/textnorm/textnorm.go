// Package textnorm folds free text into the form used for name and keyword matching.
package textnorm

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Sentence terminators survive normalization so sentence windows can be found.
const terminators = ".!?"

// letters without a canonical decomposition that still need folding.
var extraFolds = strings.NewReplacer(
	"ø", "o",
	"ł", "l",
	"đ", "d",
	"ß", "ss",
	"æ", "ae",
	"œ", "oe",
	"ı", "i",
)

// Fold lowercases s and strips diacritics ("Pogačar" -> "pogacar").
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, strings.ToLower(s))
	if err != nil {
		folded = strings.ToLower(s)
	}
	return extraFolds.Replace(folded)
}

// Normalize folds s, turns every character other than letters, digits and
// sentence terminators into a space and collapses runs of whitespace.
func Normalize(s string) string {
	folded := Fold(s)
	var b strings.Builder
	b.Grow(len(folded))
	space := false
	for _, r := range folded {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || IsTerminator(r):
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(r)
		default:
			space = true
		}
	}
	return b.String()
}

// IsTerminator reports whether r ends a sentence.
func IsTerminator(r rune) bool {
	return strings.ContainsRune(terminators, r)
}

// FindAll returns the byte offsets of every whole-word occurrence of term in text.
// Both arguments are expected to be normalized.
func FindAll(text, term string) []int {
	if term == "" {
		return nil
	}
	var out []int
	for from := 0; from <= len(text)-len(term); {
		i := strings.Index(text[from:], term)
		if i < 0 {
			break
		}
		i += from
		if wordBoundary(text, i, i+len(term)) {
			out = append(out, i)
		}
		_, size := utf8.DecodeRuneInString(text[i:])
		from = i + size
	}
	return out
}

func wordBoundary(text string, start, end int) bool {
	if start > 0 {
		r, _ := utf8.DecodeLastRuneInString(text[:start])
		if isWord(r) {
			return false
		}
	}
	if end < len(text) {
		r, _ := utf8.DecodeRuneInString(text[end:])
		if isWord(r) {
			return false
		}
	}
	return true
}

func isWord(r rune) bool { return unicode.IsLetter(r) || unicode.IsDigit(r) }

// Sentence returns the [start, end) bounds of the sentence enclosing offset.
func Sentence(text string, offset int) (int, int) {
	start := strings.LastIndexAny(text[:offset], terminators) + 1
	end := len(text)
	if i := strings.IndexAny(text[offset:], terminators); i >= 0 {
		end = offset + i
	}
	return start, end
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}
