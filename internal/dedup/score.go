package dedup

import (
	"fmt"
	"math"
	"strings"

	"horse.fit/curio/internal/textmatch"
)

// Weights configures the similarity scorer and cluster builder. Zero
// values are not meaningful; start from DefaultWeights.
type Weights struct {
	Title       float64 `json:"title"`
	Entity      float64 `json:"entity"`
	Semantic    float64 `json:"semantic"`
	Temporal    float64 `json:"temporal"`
	Spatial     float64 `json:"spatial"`
	Keyword     float64 `json:"keyword"`
	Description float64 `json:"description"`

	CollectionBonus float64 `json:"collection_bonus"`
	GISBonus        float64 `json:"gis_bonus"`

	UsePhonetic bool `json:"use_phonetic"`
	UseNGrams   bool `json:"use_ngrams"`

	// Threshold is the minimum pairwise score that links two assets
	// during clustering. SuggestionThreshold is the deliberately lower
	// bar used for curator review.
	Threshold           float64 `json:"threshold"`
	SuggestionThreshold float64 `json:"suggestion_threshold"`
}

// DefaultWeights returns the tuned production configuration.
func DefaultWeights() Weights {
	return Weights{
		Title:               3,
		Entity:              4,
		Semantic:            3.5,
		Temporal:            3,
		Spatial:             2,
		Keyword:             2,
		Description:         2,
		CollectionBonus:     1.5,
		GISBonus:            1,
		UsePhonetic:         true,
		UseNGrams:           true,
		Threshold:           0.45,
		SuggestionThreshold: 0.35,
	}
}

// Technique discounts for the best-of title score. Each expresses how
// much a perfect score by that technique is trusted.
const (
	titleEditDiscount     = 1.0
	titleTrigramDiscount  = 0.9
	titleShingleDiscount  = 0.95
	titlePhoneticDiscount = 0.85
)

// Semantic blend weights (internal to the semantic signal).
const (
	semanticYearWeight       = 4.0
	semanticProperNounWeight = 3.0
	semanticKeySubjectWeight = 3.0
)

// Geospatial proximity bands, in degrees per axis.
const (
	spatialNearDegrees = 0.001 // ≈100 m
	spatialFarDegrees  = 0.01  // ≈1 km
)

// Reason disclosure thresholds: a sub-score must clear its own bar
// before it is surfaced as a human-readable match reason.
const (
	titleReasonThreshold       = 0.5
	entityReasonThreshold      = 0.3
	semanticReasonThreshold    = 0.4
	yearReasonThreshold        = 0.5
	keywordReasonThreshold     = 0.3
	descriptionReasonThreshold = 0.3
	collectionMatchThreshold   = 0.7
)

// Score computes the weighted composite similarity of two asset records.
// A signal contributes only when both sides carry the relevant field, so
// missing data is excluded from the denominator rather than scored as
// zero. The result is symmetric in its arguments.
func Score(a, b AssetRecord, w Weights) SimilarityMatch {
	match := SimilarityMatch{AssetA: a.ID, AssetB: b.ID}

	var total, weightSum float64

	if a.Title != "" && b.Title != "" {
		titleScore := bestTitleScore(a.Title, b.Title, w)
		match.Breakdown.Title = titleScore
		total += titleScore * w.Title
		weightSum += w.Title
		if titleScore > titleReasonThreshold {
			match.Reasons = append(match.Reasons, fmt.Sprintf("Similar titles (%.0f%%)", titleScore*100))
		}
	}

	if len(a.Entities) > 0 && len(b.Entities) > 0 {
		entityScore := textmatch.Jaccard(normalizedSet(a.Entities), normalizedSet(b.Entities))
		match.Breakdown.Entity = entityScore
		total += entityScore * w.Entity
		weightSum += w.Entity
		if entityScore > entityReasonThreshold {
			match.Reasons = append(match.Reasons, fmt.Sprintf("Shared entities (%.0f%%)", entityScore*100))
		}
	}

	conceptsA := textmatch.ExtractConcepts(a.conceptText())
	conceptsB := textmatch.ExtractConcepts(b.conceptText())

	if semanticScore, ok := semanticBlend(conceptsA, conceptsB); ok {
		match.Breakdown.Semantic = semanticScore
		total += semanticScore * w.Semantic
		weightSum += w.Semantic
		if semanticScore > semanticReasonThreshold {
			match.Reasons = append(match.Reasons, fmt.Sprintf("Shared concepts (%.0f%%)", semanticScore*100))
		}
	}

	// Exact-year agreement is unusually strong duplicate evidence, so
	// years count again on their own beyond the semantic blend. The
	// signal applies only when both texts yield at least one year.
	if len(conceptsA.Years) > 0 && len(conceptsB.Years) > 0 {
		yearScore := textmatch.Jaccard(conceptsA.Years, conceptsB.Years)
		match.Breakdown.Temporal = yearScore
		total += yearScore * w.Temporal
		weightSum += w.Temporal
		if yearScore > yearReasonThreshold {
			match.Reasons = append(match.Reasons, "Matching years")
		}
	}

	if len(a.Keywords) > 0 && len(b.Keywords) > 0 {
		keywordScore := textmatch.Jaccard(normalizedSet(a.Keywords), normalizedSet(b.Keywords))
		match.Breakdown.Keyword = keywordScore
		total += keywordScore * w.Keyword
		weightSum += w.Keyword
		if keywordScore > keywordReasonThreshold {
			match.Reasons = append(match.Reasons, fmt.Sprintf("Shared keywords (%.0f%%)", keywordScore*100))
		}
	}

	if a.Collection != "" && b.Collection != "" {
		if textmatch.EditSimilarity(a.Collection, b.Collection) > collectionMatchThreshold {
			total += w.CollectionBonus
			weightSum += w.CollectionBonus
			match.Reasons = append(match.Reasons, "Same collection")
		}
	}

	if a.GISZone != "" && b.GISZone != "" {
		if zonesMatch(a.GISZone, b.GISZone) {
			total += w.GISBonus
			weightSum += w.GISBonus
			match.Reasons = append(match.Reasons, "Same GIS zone")
		}
	}

	if a.Location != nil && b.Location != nil {
		spatialScore := spatialProximity(*a.Location, *b.Location)
		match.Breakdown.Spatial = spatialScore
		total += spatialScore * w.Spatial
		weightSum += w.Spatial
		if spatialScore > 0 {
			match.Reasons = append(match.Reasons, "Nearby location")
		}
	}

	if a.Description != "" && b.Description != "" {
		descriptionScore := textmatch.ShingleJaccard(a.Description, b.Description)
		match.Breakdown.Content = descriptionScore
		total += descriptionScore * w.Description
		weightSum += w.Description
		if descriptionScore > descriptionReasonThreshold {
			match.Reasons = append(match.Reasons, fmt.Sprintf("Similar descriptions (%.0f%%)", descriptionScore*100))
		}
	}

	if weightSum > 0 {
		match.Score = total / weightSum
	}
	return match
}

// bestTitleScore takes the maximum of the available similarity
// techniques, each discounted by how much confidence that technique
// earns. Different distortions (typos, reordering, OCR misreads) are
// each best captured by a different technique, and the max avoids
// under-scoring a pair that is a strong match by exactly one of them.
func bestTitleScore(left, right string, w Weights) float64 {
	type technique struct {
		score    func(string, string) float64
		discount float64
		enabled  bool
	}
	techniques := []technique{
		{textmatch.EditSimilarity, titleEditDiscount, true},
		{textmatch.TrigramJaccard, titleTrigramDiscount, w.UseNGrams},
		{textmatch.ShingleJaccard, titleShingleDiscount, w.UseNGrams},
		{textmatch.PhoneticJaccard, titlePhoneticDiscount, w.UsePhonetic},
	}

	best := 0.0
	for _, tech := range techniques {
		if !tech.enabled {
			continue
		}
		if score := tech.score(left, right) * tech.discount; score > best {
			best = score
		}
	}
	return best
}

// semanticBlend combines year, proper-noun, and key-subject overlap into
// one concept score. Each sub-category joins the blend only when both
// sides have a non-empty set for it; the second return value reports
// whether any sub-category applied.
func semanticBlend(a, b textmatch.Concepts) (float64, bool) {
	var total, weightSum float64

	if len(a.Years) > 0 && len(b.Years) > 0 {
		total += textmatch.Jaccard(a.Years, b.Years) * semanticYearWeight
		weightSum += semanticYearWeight
	}
	if len(a.ProperNouns) > 0 && len(b.ProperNouns) > 0 {
		total += textmatch.Jaccard(a.ProperNouns, b.ProperNouns) * semanticProperNounWeight
		weightSum += semanticProperNounWeight
	}
	if len(a.KeySubjects) > 0 && len(b.KeySubjects) > 0 {
		total += textmatch.Jaccard(a.KeySubjects, b.KeySubjects) * semanticKeySubjectWeight
		weightSum += semanticKeySubjectWeight
	}

	if weightSum == 0 {
		return 0, false
	}
	return total / weightSum, true
}

// spatialProximity bands coordinate distance: full score within ≈100 m,
// half within ≈1 km, zero beyond.
func spatialProximity(a, b GeoPoint) float64 {
	latDelta := math.Abs(a.Latitude - b.Latitude)
	lonDelta := math.Abs(a.Longitude - b.Longitude)
	switch {
	case latDelta <= spatialNearDegrees && lonDelta <= spatialNearDegrees:
		return 1
	case latDelta <= spatialFarDegrees && lonDelta <= spatialFarDegrees:
		return 0.5
	default:
		return 0
	}
}

// zonesMatch reports whether one zone label is a case-insensitive
// substring of the other, so "B" matches "Zone B".
func zonesMatch(left, right string) bool {
	a := textmatch.Normalize(left)
	b := textmatch.Normalize(right)
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}

func normalizedSet(values []string) map[string]struct{} {
	if len(values) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(values))
	for _, value := range values {
		normalized := textmatch.Normalize(value)
		if normalized == "" {
			continue
		}
		set[normalized] = struct{}{}
	}
	if len(set) == 0 {
		return nil
	}
	return set
}
