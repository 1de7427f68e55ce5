package offload

import (
	"strings"
	"unicode"
)

// Triage blend weights. This three-way score is the worker's own coarse
// metric; the authoritative multi-signal scorer lives in package dedup.
const (
	triageTrigramWeight = 0.3
	triageShingleWeight = 0.4
	triageTokenWeight   = 0.3
)

// textSig is a precomputed signature so batch jobs build each asset's
// sets once instead of once per pair.
type textSig struct {
	trigrams map[string]struct{}
	bigrams  map[string]struct{}
	tokens   map[string]struct{}
}

func newTextSig(text string) textSig {
	tokens := splitWords(text)
	return textSig{
		trigrams: charTrigramSet(text),
		bigrams:  bigramSet(tokens),
		tokens:   wordSet(tokens),
	}
}

// quickScore is the worker's triage similarity: character trigrams 0.3,
// word bigram shingles 0.4, word overlap 0.3.
func quickScore(a, b textSig) float64 {
	return triageTrigramWeight*setJaccard(a.trigrams, b.trigrams) +
		triageShingleWeight*setJaccard(a.bigrams, b.bigrams) +
		triageTokenWeight*setJaccard(a.tokens, b.tokens)
}

func splitWords(text string) []string {
	lowered := strings.ToLower(strings.TrimSpace(text))
	if lowered == "" {
		return nil
	}
	return strings.FieldsFunc(lowered, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

func charTrigramSet(text string) map[string]struct{} {
	joined := strings.Join(splitWords(text), " ")
	runes := []rune(joined)
	if len(runes) == 0 {
		return nil
	}
	if len(runes) < 3 {
		return map[string]struct{}{string(runes): {}}
	}
	set := make(map[string]struct{}, len(runes)-2)
	for i := 0; i <= len(runes)-3; i++ {
		set[string(runes[i:i+3])] = struct{}{}
	}
	return set
}

func bigramSet(tokens []string) map[string]struct{} {
	if len(tokens) < 2 {
		return wordSet(tokens)
	}
	set := make(map[string]struct{}, len(tokens)-1)
	for i := 0; i+2 <= len(tokens); i++ {
		set[tokens[i]+" "+tokens[i+1]] = struct{}{}
	}
	return set
}

func wordSet(tokens []string) map[string]struct{} {
	if len(tokens) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(tokens))
	for _, token := range tokens {
		set[token] = struct{}{}
	}
	return set
}

func setJaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	intersection := 0
	for key := range a {
		if _, ok := b[key]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}
