package dedup

import (
	"strings"
	"unicode"

	"github.com/fatih/camelcase"
)

// stopWords are dropped before comparing messages; they carry no signal
// about what a finding is actually reporting.
var stopWords = map[string]bool{
	"a": true, "an": true, "the": true, "is": true, "are": true,
	"was": true, "were": true, "be": true, "been": true, "being": true,
	"in": true, "on": true, "at": true, "to": true, "of": true,
	"for": true, "with": true, "and": true, "or": true, "it": true,
	"this": true, "that": true, "as": true, "by": true, "from": true,
	"has": true, "have": true, "had": true, "should": true, "could": true,
	"would": true, "may": true, "might": true, "can": true,
}

// splitWords breaks a message into lowercase words. Identifiers embedded
// in the message are split on camelCase boundaries so "SQLInjection" and
// "sql injection" normalize the same way.
func splitWords(msg string) []string {
	fields := strings.FieldsFunc(msg, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	var words []string
	for _, f := range fields {
		for _, w := range camelcase.Split(f) {
			if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
				words = append(words, w)
			}
		}
	}
	return words
}

// normalizeMessage returns the canonical text form used for equality.
func normalizeMessage(msg string) string {
	return strings.Join(splitWords(msg), " ")
}

// tokenSet returns the signal-carrying words of a message.
func tokenSet(msg string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range splitWords(msg) {
		if !stopWords[w] {
			set[w] = true
		}
	}
	return set
}

// similarity is the Jaccard index over two token sets.
func similarity(a, b map[string]bool) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for w := range a {
		if b[w] {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}
