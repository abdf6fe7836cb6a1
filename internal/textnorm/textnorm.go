// Package textnorm turns raw market and contract titles into comparable
// token sets. All functions are deterministic and side-effect free; empty
// input yields empty output.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// stopWords are dropped during normalization. The list is intentionally
// short: aggressive stop-wording hurts short market titles.
var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "of": {}, "in": {}, "on": {}, "at": {},
	"to": {}, "for": {}, "by": {}, "and": {}, "or": {}, "is": {}, "are": {},
	"be": {}, "been": {}, "do": {}, "does": {}, "who": {}, "which": {},
	"what": {}, "this": {}, "that": {},
}

// domainTerms are always treated as salient regardless of length.
var domainTerms = map[string]struct{}{
	"election": {}, "win": {}, "wins": {}, "winner": {}, "president": {},
	"presidential": {}, "senate": {}, "governor": {}, "house": {},
	"congress": {}, "primary": {}, "general": {}, "democrat": {},
	"democrats": {}, "republican": {}, "republicans": {}, "party": {},
	"candidate": {}, "nominee": {}, "elected": {}, "vote": {},
}

// IsDomainTerm reports whether the (already lower-cased) word belongs to the
// built-in domain dictionary.
func IsDomainTerm(word string) bool {
	_, ok := domainTerms[word]
	return ok
}

// Normalize lower-cases the text, strips punctuation and diacritics,
// collapses whitespace, and removes stop words. The resulting tokens keep
// their source order.
func Normalize(text string) []string {
	tokens := Tokenize(text)
	out := tokens[:0]
	for _, tok := range tokens {
		if _, stop := stopWords[tok]; stop {
			continue
		}
		out = append(out, tok)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// Tokenize splits cleaned text into lower-case tokens without removing stop
// words.
func Tokenize(text string) []string {
	cleaned := clean(text)
	if cleaned == "" {
		return nil
	}
	return strings.Fields(cleaned)
}

// TokenSet returns the normalized tokens of text as a set.
func TokenSet(text string) map[string]struct{} {
	tokens := Normalize(text)
	if len(tokens) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		set[tok] = struct{}{}
	}
	return set
}

// ExtractKeyTerms pulls domain-salient terms from a title: dictionary words,
// numbers, and any word longer than three characters. Source order is
// preserved.
func ExtractKeyTerms(text string) []string {
	tokens := Normalize(text)
	var terms []string
	for _, tok := range tokens {
		if IsDomainTerm(tok) || isNumeric(tok) || len(tok) > 3 {
			terms = append(terms, tok)
		}
	}
	return terms
}

// Similarity is the Sørensen–Dice coefficient between the normalized token
// sets of a and b: symmetric, 1 for identical sets, 0 for disjoint sets.
func Similarity(a, b string) float64 {
	setA := TokenSet(a)
	setB := TokenSet(b)
	if len(setA) == 0 && len(setB) == 0 {
		return 1
	}
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}
	common := 0
	for tok := range setA {
		if _, ok := setB[tok]; ok {
			common++
		}
	}
	return 2 * float64(common) / float64(len(setA)+len(setB))
}

// Subset reports whether every token of a appears in b.
func Subset(a, b map[string]struct{}) bool {
	if len(a) == 0 {
		return false
	}
	for tok := range a {
		if _, ok := b[tok]; !ok {
			return false
		}
	}
	return true
}

func clean(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	decomposed := norm.NFD.String(strings.ToLower(text))
	var b strings.Builder
	b.Grow(len(decomposed))
	lastSpace := true
	for _, r := range decomposed {
		switch {
		case unicode.Is(unicode.Mn, r):
			// combining mark left over from NFD decomposition
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastSpace = false
		default:
			if !lastSpace {
				b.WriteRune(' ')
				lastSpace = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}

func isNumeric(tok string) bool {
	for _, r := range tok {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return len(tok) > 0
}
