package textmatch

import (
	"math"
	"testing"
)

func TestNormalize_CollapsesWhitespaceAndCase(t *testing.T) {
	t.Parallel()

	if got := Normalize("  Grand   OPENING\tCeremony "); got != "grand opening ceremony" {
		t.Fatalf("unexpected normalized text: %q", got)
	}
	if got := Normalize("   "); got != "" {
		t.Fatalf("expected empty result for blank input, got %q", got)
	}
}

func TestTokenize_SplitsOnPunctuation(t *testing.T) {
	t.Parallel()

	tokens := Tokenize("Antonio Hall, Room 204 - dedication!")
	want := []string{"antonio", "hall", "room", "204", "dedication"}
	if len(tokens) != len(want) {
		t.Fatalf("unexpected token count: got %d want %d (%v)", len(tokens), len(want), tokens)
	}
	for i, token := range want {
		if tokens[i] != token {
			t.Fatalf("token %d: got %q want %q", i, tokens[i], token)
		}
	}
}

func TestJaccard_EmptySetsScoreZero(t *testing.T) {
	t.Parallel()

	if score := Jaccard(nil, TokenSet("museum hall")); score != 0 {
		t.Fatalf("expected 0 for empty left set, got %f", score)
	}
	if score := Jaccard(TokenSet("museum"), TokenSet("museum")); score != 1 {
		t.Fatalf("expected 1 for identical sets, got %f", score)
	}
}

func TestCharTrigrams_ShortInput(t *testing.T) {
	t.Parallel()

	set := CharTrigrams("ab")
	if len(set) != 1 {
		t.Fatalf("expected single-element set for short input, got %d", len(set))
	}
	if _, ok := set["ab"]; !ok {
		t.Fatalf("expected short input kept whole, got %v", set)
	}
}

func TestShingleJaccard_ReorderedPhraseScoresFull(t *testing.T) {
	t.Parallel()

	score := ShingleJaccard("1950 Grand Opening Ceremony", "Grand Opening Ceremony 1950")
	if score != 1 {
		t.Fatalf("expected reordered identical words to score 1.0, got %f", score)
	}
}

func TestShingleJaccard_PartialOverlap(t *testing.T) {
	t.Parallel()

	score := ShingleJaccard("bronze statue dedication", "marble statue dedication")
	if score <= 0 || score >= 1 {
		t.Fatalf("expected partial shingle overlap in (0,1), got %f", score)
	}
}

func TestEditSimilarity(t *testing.T) {
	t.Parallel()

	if score := EditSimilarity("museum", "museum"); score != 1 {
		t.Fatalf("expected identity to score 1, got %f", score)
	}
	if score := EditSimilarity("", ""); score != 1 {
		t.Fatalf("expected two empty strings to score 1, got %f", score)
	}
	if score := EditSimilarity("museum", ""); score != 0 {
		t.Fatalf("expected empty side to score 0, got %f", score)
	}

	// one substitution across seven runes
	score := EditSimilarity("antonio", "antoneo")
	if math.Abs(score-(1-1.0/7.0)) > 1e-9 {
		t.Fatalf("unexpected edit similarity: got %f", score)
	}
}

func TestPhoneticCode(t *testing.T) {
	t.Parallel()

	cases := []struct {
		word string
		want string
	}{
		{"antonio", "535"},
		{"antoneo", "535"},
		{"Hall", "4"},
		{"papa", "1"},
		{"why", ""},
		{"", ""},
	}
	for _, tc := range cases {
		if got := PhoneticCode(tc.word); got != tc.want {
			t.Fatalf("PhoneticCode(%q): got %q want %q", tc.word, got, tc.want)
		}
	}
}

func TestPhoneticCode_TruncatesToEight(t *testing.T) {
	t.Parallel()

	code := PhoneticCode("abcdefgiklmnopqrstvz")
	if len(code) > 8 {
		t.Fatalf("expected code truncated to 8 characters, got %q", code)
	}
}

func TestPhoneticJaccard_OCRMisread(t *testing.T) {
	t.Parallel()

	score := PhoneticJaccard("Antonio Hall", "Antoneo Hall")
	if score != 1 {
		t.Fatalf("expected phonetically identical titles to score 1.0, got %f", score)
	}
	if score := PhoneticJaccard("Antonio Hall", "Roberts Wing"); score != 0 {
		t.Fatalf("expected unrelated titles to score 0, got %f", score)
	}
}

func TestPhoneticCodeSet_SkipsShortWords(t *testing.T) {
	t.Parallel()

	set := PhoneticCodeSet("the old oak door")
	if _, ok := set[PhoneticCode("the")]; ok {
		t.Fatalf("expected 3-letter words to be skipped")
	}
	if _, ok := set[PhoneticCode("door")]; !ok {
		t.Fatalf("expected 4-letter words to be encoded, got %v", set)
	}
}

func TestExtractConcepts_Years(t *testing.T) {
	t.Parallel()

	c := ExtractConcepts("Built in 1952, renovated 2003, catalog 0999 and 3120")
	if _, ok := c.Years["1952"]; !ok {
		t.Fatalf("expected 1952 in years, got %v", c.Years)
	}
	if _, ok := c.Years["2003"]; !ok {
		t.Fatalf("expected 2003 in years, got %v", c.Years)
	}
	if _, ok := c.Years["3120"]; ok {
		t.Fatalf("did not expect implausible year 3120, got %v", c.Years)
	}
	if _, ok := c.Years["0999"]; ok {
		t.Fatalf("did not expect 0999 in years, got %v", c.Years)
	}
}

func TestExtractConcepts_DatesAndNumbers(t *testing.T) {
	t.Parallel()

	c := ExtractConcepts("Dedicated June 14, photographed 6/14/1950 in Room 204")
	if _, ok := c.Dates["june 14"]; !ok {
		t.Fatalf("expected month-name date, got %v", c.Dates)
	}
	if _, ok := c.Dates["6/14/1950"]; !ok {
		t.Fatalf("expected numeric date, got %v", c.Dates)
	}
	if _, ok := c.ShortNumbers["204"]; !ok {
		t.Fatalf("expected short number 204, got %v", c.ShortNumbers)
	}
}

func TestExtractConcepts_ProperNounsAndSubjects(t *testing.T) {
	t.Parallel()

	c := ExtractConcepts("the Antonio Hall bronze statue near the fountain")
	if _, ok := c.ProperNouns["Antonio Hall"]; !ok {
		t.Fatalf("expected capitalized run, got %v", c.ProperNouns)
	}
	for _, term := range []string{"bronze", "statue", "fountain"} {
		if _, ok := c.KeySubjects[term]; !ok {
			t.Fatalf("expected key subject %q, got %v", term, c.KeySubjects)
		}
	}
}

func TestExtractConcepts_EmptyInput(t *testing.T) {
	t.Parallel()

	c := ExtractConcepts("   ")
	if len(c.Years)+len(c.Dates)+len(c.ProperNouns)+len(c.ShortNumbers)+len(c.KeySubjects) != 0 {
		t.Fatalf("expected empty concept sets for blank input")
	}
}
