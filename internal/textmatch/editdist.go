package textmatch

import "github.com/antzucaro/matchr"

// EditSimilarity is the normalized Levenshtein similarity of two strings
// after normalization: 1 - distance/len(longer). Two empty strings are
// identical; one empty side scores 0.
func EditSimilarity(left, right string) float64 {
	a := Normalize(left)
	b := Normalize(right)
	if a == "" && b == "" {
		return 1
	}
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}

	longest := len([]rune(a))
	if l := len([]rune(b)); l > longest {
		longest = l
	}
	distance := matchr.Levenshtein(a, b)
	if distance >= longest {
		return 0
	}
	return 1 - float64(distance)/float64(longest)
}
