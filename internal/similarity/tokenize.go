package similarity

import (
	"strings"
	"unicode"
)

// stopwords is a fixed English stopword list; the tokeniser can
// optionally drop these per §4.4.
var stopwords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "but": true, "by": true, "for": true, "if": true, "in": true,
	"into": true, "is": true, "it": true, "no": true, "not": true, "of": true,
	"on": true, "or": true, "such": true, "that": true, "the": true,
	"their": true, "then": true, "there": true, "these": true, "they": true,
	"this": true, "to": true, "was": true, "will": true, "with": true,
}

// Tokenize implements §4.4's tokeniser: lowercase, strip non-word
// characters, optionally drop stopwords, discard tokens shorter than 2
// characters.
func Tokenize(text string, dropStopwords bool) []string {
	lowered := strings.ToLower(text)

	var tokens []string
	var b strings.Builder
	flush := func() {
		if b.Len() == 0 {
			return
		}
		word := b.String()
		b.Reset()
		if len(word) < 2 {
			return
		}
		if dropStopwords && stopwords[word] {
			return
		}
		tokens = append(tokens, word)
	}

	for _, r := range lowered {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			continue
		}
		flush()
	}
	flush()

	return tokens
}

// shingles groups tokens into word n-grams of size n (3 by default). If
// there are fewer tokens than n, the whole token sequence becomes a
// single shingle, per §4.4.
func shingles(tokens []string, n int) []string {
	if len(tokens) == 0 {
		return nil
	}
	if len(tokens) < n {
		return []string{strings.Join(tokens, " ")}
	}

	result := make([]string, 0, len(tokens)-n+1)
	for i := 0; i+n <= len(tokens); i++ {
		result = append(result, strings.Join(tokens[i:i+n], " "))
	}
	return result
}
