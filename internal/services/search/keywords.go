package search

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// stopWords are dropped from questions before matching
var stopWords = map[string]struct{}{
	"who": {}, "is": {}, "the": {}, "what": {}, "are": {}, "there": {}, "any": {},
	"how": {}, "do": {}, "i": {}, "in": {}, "of": {}, "to": {}, "a": {}, "an": {},
	"this": {}, "that": {}, "or": {}, "and": {},
}

// minKeywordLength is the shortest token kept as a keyword
const minKeywordLength = 3

// ExtractKeywords lower-cases the query, splits on whitespace, trims punctuation
// from each token and drops stop words and tokens shorter than three runes.
// When nothing survives, the whole lower-cased query is the only keyword,
// so the result always has at least one element.
func ExtractKeywords(query string) []string {
	lower := strings.ToLower(query)

	keywords := make([]string, 0)
	for _, word := range strings.Fields(lower) {
		word = strings.TrimFunc(word, isPunctuation)
		if _, stop := stopWords[word]; stop {
			continue
		}
		if utf8.RuneCountInString(word) < minKeywordLength {
			continue
		}
		keywords = append(keywords, word)
	}

	if len(keywords) == 0 {
		return []string{strings.TrimSpace(lower)}
	}
	return keywords
}

func isPunctuation(r rune) bool {
	return unicode.IsPunct(r) || unicode.IsSymbol(r)
}

// containsWord reports whether keyword occurs in text with no letter or digit
// immediately before or after it
func containsWord(text, keyword string) bool {
	if keyword == "" {
		return false
	}
	for offset := 0; offset < len(text); {
		idx := strings.Index(text[offset:], keyword)
		if idx < 0 {
			return false
		}
		start := offset + idx
		end := start + len(keyword)

		before, _ := utf8.DecodeLastRuneInString(text[:start])
		after, _ := utf8.DecodeRuneInString(text[end:])
		if !isWordRune(before) && !isWordRune(after) {
			return true
		}

		_, size := utf8.DecodeRuneInString(text[start:])
		offset = start + size
	}
	return false
}

func isWordRune(r rune) bool {
	return r != utf8.RuneError && (unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_')
}
