package textmatch

import "strings"

// consonantClasses maps consonants to Soundex-style digit classes.
// Vowels plus h, w, and y are dropped entirely, which makes the code
// tolerant of the vowel substitutions OCR typically produces.
var consonantClasses = map[rune]byte{
	'b': '1', 'f': '1', 'p': '1', 'v': '1',
	'c': '2', 'g': '2', 'j': '2', 'k': '2', 'q': '2', 's': '2', 'x': '2', 'z': '2',
	'd': '3', 't': '3',
	'l': '4',
	'm': '5', 'n': '5',
	'r': '6',
}

const phoneticCodeMaxLen = 8

// PhoneticCode encodes a single word as a consonant-class digit string:
// lowercase, drop vowels and h/w/y, map remaining consonants to digit
// classes, collapse consecutive repeats, truncate to eight characters.
// Two words are phonetically linked when their codes are equal, e.g.
// "antonio" and "antoneo" both encode to "535".
func PhoneticCode(word string) string {
	lowered := strings.ToLower(strings.TrimSpace(word))
	if lowered == "" {
		return ""
	}

	var b strings.Builder
	var last byte
	for _, r := range lowered {
		digit, ok := consonantClasses[r]
		if !ok {
			continue
		}
		if digit == last {
			continue
		}
		b.WriteByte(digit)
		last = digit
		if b.Len() >= phoneticCodeMaxLen {
			break
		}
	}
	return b.String()
}

// PhoneticCodeSet returns the deduplicated phonetic codes of every word
// in text longer than three characters. Short words carry too little
// consonant signal to encode usefully.
func PhoneticCodeSet(text string) map[string]struct{} {
	tokens := Tokenize(text)
	if len(tokens) == 0 {
		return nil
	}

	set := make(map[string]struct{}, len(tokens))
	for _, token := range tokens {
		if len([]rune(token)) <= 3 {
			continue
		}
		code := PhoneticCode(token)
		if code == "" {
			continue
		}
		set[code] = struct{}{}
	}
	if len(set) == 0 {
		return nil
	}
	return set
}

// PhoneticJaccard compares two texts by the overlap of their words'
// phonetic codes.
func PhoneticJaccard(left, right string) float64 {
	return Jaccard(PhoneticCodeSet(left), PhoneticCodeSet(right))
}
