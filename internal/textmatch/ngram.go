package textmatch

import "strings"

// CharTrigrams returns the character trigram set of normalized text.
// Inputs shorter than three runes produce a single-element set so very
// short titles still compare non-trivially.
func CharTrigrams(text string) map[string]struct{} {
	normalized := Normalize(text)
	if normalized == "" {
		return nil
	}

	runes := []rune(normalized)
	if len(runes) < 3 {
		return map[string]struct{}{string(runes): {}}
	}

	set := make(map[string]struct{}, len(runes)-2)
	for i := 0; i <= len(runes)-3; i++ {
		set[string(runes[i:i+3])] = struct{}{}
	}
	return set
}

// WordShingles returns the contiguous word n-gram set of normalized text
// for a single gram size, joined with single spaces.
func WordShingles(text string, n int) map[string]struct{} {
	if n < 1 {
		return nil
	}
	tokens := Tokenize(text)
	if len(tokens) == 0 || len(tokens) < n {
		return nil
	}

	set := make(map[string]struct{}, len(tokens)-n+1)
	for i := 0; i+n <= len(tokens); i++ {
		set[strings.Join(tokens[i:i+n], " ")] = struct{}{}
	}
	return set
}

// TrigramJaccard compares two texts by character trigram overlap.
func TrigramJaccard(left, right string) float64 {
	return Jaccard(CharTrigrams(left), CharTrigrams(right))
}

// ShingleJaccard compares two texts by word shingle overlap, taking the
// best Jaccard across gram sizes 1..3. The unigram pass makes the score
// order-independent, so reordered phrases with identical words still
// reach 1.0; the bigram and trigram passes never lower it.
func ShingleJaccard(left, right string) float64 {
	best := 0.0
	for n := 1; n <= 3; n++ {
		score := Jaccard(WordShingles(left, n), WordShingles(right, n))
		if score > best {
			best = score
		}
	}
	return best
}

// TokenJaccard compares two texts by single-word overlap.
func TokenJaccard(left, right string) float64 {
	return Jaccard(TokenSet(left), TokenSet(right))
}
