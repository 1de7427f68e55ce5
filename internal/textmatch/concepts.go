package textmatch

import (
	"regexp"
	"strconv"
	"strings"
)

// Concepts holds the deduplicated concept sets extracted from one text.
type Concepts struct {
	Years        map[string]struct{}
	Dates        map[string]struct{}
	ProperNouns  map[string]struct{}
	ShortNumbers map[string]struct{}
	KeySubjects  map[string]struct{}
}

var (
	yearPattern        = regexp.MustCompile(`\b[12]\d{3}\b`)
	monthDayPattern    = regexp.MustCompile(`(?i)\b(january|february|march|april|may|june|july|august|september|october|november|december)\s+\d{1,2}\b`)
	numericDatePattern = regexp.MustCompile(`\b\d{1,2}/\d{1,2}/\d{2,4}\b`)
	properNounPattern  = regexp.MustCompile(`\b[A-Z][a-z]+(?:\s+[A-Z][a-z]+)*\b`)
	shortNumberPattern = regexp.MustCompile(`\b\d{1,4}\b`)
)

// keySubjectVocabularies are the fixed domain word lists matched against
// tokenized text. Grouping is irrelevant to scoring; only membership is.
var keySubjectVocabularies = [][]string{
	// objects and artifacts
	{"statue", "sculpture", "painting", "portrait", "photograph", "mural",
		"plaque", "medal", "trophy", "manuscript", "document", "ledger",
		"uniform", "flag", "banner", "artifact", "relic", "specimen"},
	// institutions and venues
	{"museum", "gallery", "library", "archive", "hall", "auditorium",
		"theater", "theatre", "stadium", "church", "chapel", "school",
		"university", "college", "courthouse", "station", "hospital"},
	// events and ceremonies
	{"ceremony", "dedication", "opening", "anniversary", "celebration",
		"parade", "graduation", "reunion", "festival", "exhibition",
		"inauguration", "commencement", "banquet", "memorial"},
	// materials
	{"bronze", "marble", "granite", "limestone", "oak", "mahogany",
		"glass", "silver", "gold", "brass", "copper", "iron", "stone",
		"wood", "plaster", "ivory"},
	// utilities and fixtures
	{"fountain", "elevator", "staircase", "clock", "organ", "bell",
		"lamp", "lantern", "gate", "doorway", "window", "cornerstone"},
}

var keySubjectTerms = buildKeySubjectTerms()

func buildKeySubjectTerms() map[string]struct{} {
	terms := make(map[string]struct{}, 80)
	for _, vocabulary := range keySubjectVocabularies {
		for _, term := range vocabulary {
			terms[term] = struct{}{}
		}
	}
	return terms
}

// ExtractConcepts pulls years, date phrases, proper nouns, short numeric
// codes, and domain key-subject terms out of free text. Pure function of
// the input.
func ExtractConcepts(text string) Concepts {
	c := Concepts{
		Years:        map[string]struct{}{},
		Dates:        map[string]struct{}{},
		ProperNouns:  map[string]struct{}{},
		ShortNumbers: map[string]struct{}{},
		KeySubjects:  map[string]struct{}{},
	}
	if strings.TrimSpace(text) == "" {
		return c
	}

	for _, match := range yearPattern.FindAllString(text, -1) {
		if year, err := strconv.Atoi(match); err == nil && year >= 1000 && year <= 2099 {
			c.Years[match] = struct{}{}
		}
	}
	for _, match := range monthDayPattern.FindAllString(text, -1) {
		c.Dates[strings.ToLower(Normalize(match))] = struct{}{}
	}
	for _, match := range numericDatePattern.FindAllString(text, -1) {
		c.Dates[match] = struct{}{}
	}
	for _, match := range properNounPattern.FindAllString(text, -1) {
		if len([]rune(match)) > 2 {
			c.ProperNouns[match] = struct{}{}
		}
	}
	for _, match := range shortNumberPattern.FindAllString(text, -1) {
		c.ShortNumbers[match] = struct{}{}
	}
	for _, token := range Tokenize(text) {
		if _, ok := keySubjectTerms[token]; ok {
			c.KeySubjects[token] = struct{}{}
		}
	}
	return c
}
