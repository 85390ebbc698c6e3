package utils

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
)

var digitGroup = regexp.MustCompile(`(\d),(\d{3})`)

var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {}, "by": {}, "for": {},
	"from": {}, "in": {}, "is": {}, "it": {}, "me": {}, "my": {}, "of": {}, "on": {}, "or": {},
	"please": {}, "show": {}, "the": {}, "to": {}, "was": {}, "what": {}, "with": {},
}

// Tokenize lowercases text and splits it on anything that is not a letter or
// digit. Thousands separators inside numbers are dropped first so "1,000"
// and "1000" produce the same term. Single letters and stopwords are skipped.
func Tokenize(text string) []string {
	normalized := strings.ToLower(text)
	for digitGroup.MatchString(normalized) {
		normalized = digitGroup.ReplaceAllString(normalized, "$1$2")
	}

	fields := strings.FieldsFunc(normalized, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})

	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if len([]rune(f)) < 2 && !unicode.IsDigit([]rune(f)[0]) {
			continue
		}
		if _, stop := stopwords[f]; stop {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}

// TermFrequencies counts each token of text.
func TermFrequencies(text string) map[string]int {
	freq := make(map[string]int)
	for _, tok := range Tokenize(text) {
		freq[tok]++
	}
	return freq
}

// UniqueTerms returns the distinct tokens of text in sorted order.
func UniqueTerms(text string) []string {
	freq := TermFrequencies(text)
	terms := make([]string, 0, len(freq))
	for t := range freq {
		terms = append(terms, t)
	}
	sort.Strings(terms)
	return terms
}
