package dedup

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"horse.fit/curio/internal/textmatch"
)

// ErrEmptyCluster is returned when Consolidate is given no members.
var ErrEmptyCluster = errors.New("cannot consolidate an empty member list")

var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "at": {}, "by": {}, "for": {}, "from": {},
	"in": {}, "of": {}, "on": {}, "or": {}, "the": {}, "to": {}, "with": {},
	"view": {}, "image": {}, "photo": {}, "scan": {}, "copy": {}, "untitled": {},
}

// Consolidate merges a cluster's member records into one synthesized
// record. Members are re-ordered by confidence (stable, preserving the
// caller's order on ties); the top member anchors tie-breaking.
func Consolidate(members []AssetRecord) (ConsolidatedMetadata, error) {
	if len(members) == 0 {
		return ConsolidatedMetadata{}, ErrEmptyCluster
	}

	ordered := make([]AssetRecord, len(members))
	copy(ordered, members)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Confidence > ordered[j].Confidence
	})

	var confidenceSum float64
	for _, member := range ordered {
		confidenceSum += member.Confidence
	}

	return ConsolidatedMetadata{
		Title:       synthesizeTitle(ordered),
		Description: synthesizeDescription(ordered),
		Entities:    unionStrings(ordered, func(a AssetRecord) []string { return a.Entities }, false),
		Keywords:    unionStrings(ordered, func(a AssetRecord) []string { return a.Keywords }, true),
		Category:    pluralityCategory(ordered),
		Confidence:  confidenceSum / float64(len(ordered)),
		MemberCount: len(ordered),
	}, nil
}

// unionStrings merges member string lists, deduplicated case-insensitively
// in first-encountered order. When normalize is set the lowercased form is
// kept (keywords); otherwise the first-seen original spelling is (entities).
func unionStrings(members []AssetRecord, field func(AssetRecord) []string, normalize bool) []string {
	seen := map[string]struct{}{}
	var union []string
	for _, member := range members {
		for _, value := range field(member) {
			key := textmatch.Normalize(value)
			if key == "" {
				continue
			}
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			if normalize {
				union = append(union, key)
			} else {
				union = append(union, strings.TrimSpace(value))
			}
		}
	}
	return union
}

// pluralityCategory votes over member category labels; ties go to the
// label encountered first in member order.
func pluralityCategory(members []AssetRecord) string {
	counts := map[string]int{}
	var order []string
	for _, member := range members {
		category := textmatch.Normalize(member.Category)
		if category == "" {
			continue
		}
		if _, ok := counts[category]; !ok {
			order = append(order, category)
		}
		counts[category]++
	}

	best := ""
	bestCount := 0
	for _, category := range order {
		if counts[category] > bestCount {
			best = category
			bestCount = counts[category]
		}
	}
	return best
}

// synthesizeTitle builds one title for the cluster: significant words
// shared by at least half the member titles, else shared proper nouns,
// else the shortest title cut at its first dash. A detected year or year
// range is appended when absent from the base, then a view-count suffix.
func synthesizeTitle(members []AssetRecord) string {
	base := commonSignificantTitle(members)
	if base == "" {
		base = sharedProperNounTitle(members)
	}
	if base == "" {
		base = shortestTruncatedTitle(members)
	}

	if yearLabel := titleYearLabel(members); yearLabel != "" && !strings.Contains(base, yearLabel) {
		if base == "" {
			base = yearLabel
		} else {
			base = base + " " + yearLabel
		}
	}

	return strings.TrimSpace(fmt.Sprintf("%s (%d views)", base, len(members)))
}

// commonSignificantTitle keeps the anchor title's significant words that
// appear in at least half of all member titles, in anchor order. A word
// must show up in at least two titles, otherwise small clusters would
// treat every anchor word as "common" and the fallbacks below could
// never fire.
func commonSignificantTitle(members []AssetRecord) string {
	half := (len(members) + 1) / 2
	if half < 2 {
		half = 2
	}

	memberSets := make([]map[string]struct{}, len(members))
	for i, member := range members {
		memberSets[i] = textmatch.TokenSet(member.Title)
	}

	var kept []string
	seen := map[string]struct{}{}
	for _, token := range textmatch.Tokenize(members[0].Title) {
		if _, stop := stopwords[token]; stop {
			continue
		}
		if len([]rune(token)) < 3 {
			continue
		}
		if _, dup := seen[token]; dup {
			continue
		}
		occurrences := 0
		for _, set := range memberSets {
			if _, ok := set[token]; ok {
				occurrences++
			}
		}
		if occurrences >= half {
			seen[token] = struct{}{}
			kept = append(kept, token)
		}
	}
	if len(kept) == 0 {
		return ""
	}
	return titleCase(strings.Join(kept, " "))
}

// sharedProperNounTitle falls back to proper nouns present in every
// member's title, keeping the first two.
func sharedProperNounTitle(members []AssetRecord) string {
	first := textmatch.ExtractConcepts(members[0].Title)
	if len(first.ProperNouns) == 0 {
		return ""
	}

	var shared []string
	for noun := range first.ProperNouns {
		inAll := true
		for _, member := range members[1:] {
			concepts := textmatch.ExtractConcepts(member.Title)
			if _, ok := concepts.ProperNouns[noun]; !ok {
				inAll = false
				break
			}
		}
		if inAll {
			shared = append(shared, noun)
		}
	}
	if len(shared) == 0 {
		return ""
	}
	sort.Strings(shared)
	if len(shared) > 2 {
		shared = shared[:2]
	}
	return strings.Join(shared, " ")
}

// shortestTruncatedTitle takes the shortest non-empty member title and
// cuts it at its first dash or en-dash delimiter.
func shortestTruncatedTitle(members []AssetRecord) string {
	shortest := ""
	for _, member := range members {
		title := strings.TrimSpace(member.Title)
		if title == "" {
			continue
		}
		if shortest == "" || len(title) < len(shortest) {
			shortest = title
		}
	}
	if shortest == "" {
		return ""
	}
	for _, delimiter := range []string{" - ", " – ", "-", "–"} {
		if index := strings.Index(shortest, delimiter); index > 0 {
			return strings.TrimSpace(shortest[:index])
		}
	}
	return shortest
}

// titleYearLabel collects years across all member text and renders a
// single year or an ascending range.
func titleYearLabel(members []AssetRecord) string {
	years := map[string]struct{}{}
	for _, member := range members {
		for year := range textmatch.ExtractConcepts(member.conceptText()).Years {
			years[year] = struct{}{}
		}
	}
	if len(years) == 0 {
		return ""
	}

	sorted := make([]string, 0, len(years))
	for year := range years {
		sorted = append(sorted, year)
	}
	sort.Strings(sorted)

	if len(sorted) == 1 {
		return sorted[0]
	}
	return sorted[0] + "-" + sorted[len(sorted)-1]
}

// synthesizeDescription keeps the longest member description and appends
// up to two others that each contribute at least two significant words
// the primary lacks; with no such contributors a consolidation note is
// appended instead.
func synthesizeDescription(members []AssetRecord) string {
	primary := ""
	primaryIndex := -1
	for i, member := range members {
		description := strings.TrimSpace(member.Description)
		if len(description) > len(primary) {
			primary = description
			primaryIndex = i
		}
	}
	if primary == "" {
		return fmt.Sprintf("Consolidated from %d images", len(members))
	}

	primaryWords := significantWords(primary)

	var extras []string
	for i, member := range members {
		if i == primaryIndex || len(extras) >= 2 {
			continue
		}
		description := strings.TrimSpace(member.Description)
		if description == "" {
			continue
		}
		novel := 0
		for word := range significantWords(description) {
			if _, ok := primaryWords[word]; !ok {
				novel++
			}
		}
		if novel >= 2 {
			extras = append(extras, description)
		}
	}

	if len(extras) == 0 {
		return fmt.Sprintf("%s (consolidated from %d images)", primary, len(members))
	}
	return fmt.Sprintf("%s Additional perspectives: %s", primary, strings.Join(extras, " "))
}

func significantWords(text string) map[string]struct{} {
	words := map[string]struct{}{}
	for _, token := range textmatch.Tokenize(text) {
		if _, stop := stopwords[token]; stop {
			continue
		}
		if len([]rune(token)) < 3 {
			continue
		}
		words[token] = struct{}{}
	}
	return words
}

func titleCase(text string) string {
	words := strings.Fields(text)
	for i, word := range words {
		runes := []rune(word)
		runes[0] = []rune(strings.ToUpper(string(runes[0])))[0]
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}
