package offload

import (
	"hash/fnv"
	"math/bits"
)

// Fingerprint computes a 64-bit locality-sensitive hash over the word
// shingles of text: each shingle's FNV-1a hash votes per bit, and the
// sign of each bit's tally sets the output bit. Near-identical texts
// land within a small Hamming distance of each other. Returns false for
// text with no shingles.
func Fingerprint(text string) (uint64, bool) {
	tokens := splitWords(text)
	if len(tokens) == 0 {
		return 0, false
	}

	shingles := make([]string, 0, len(tokens)*2)
	for _, token := range tokens {
		shingles = append(shingles, token)
	}
	for i := 0; i+2 <= len(tokens); i++ {
		shingles = append(shingles, tokens[i]+" "+tokens[i+1])
	}

	var bitVotes [64]int
	for _, shingle := range shingles {
		h := hashShingle(shingle)
		for bit := 0; bit < 64; bit++ {
			if h&(uint64(1)<<bit) != 0 {
				bitVotes[bit]++
			} else {
				bitVotes[bit]--
			}
		}
	}

	var fingerprint uint64
	for bit := 0; bit < 64; bit++ {
		if bitVotes[bit] > 0 {
			fingerprint |= uint64(1) << bit
		}
	}
	return fingerprint, true
}

// HammingDistance counts differing bits between two fingerprints; lower
// means more similar content.
func HammingDistance(a, b uint64) int {
	return bits.OnesCount64(a ^ b)
}

func hashShingle(shingle string) uint64 {
	hasher := fnv.New64a()
	_, _ = hasher.Write([]byte(shingle))
	return hasher.Sum64()
}
