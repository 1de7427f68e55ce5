package dedup

import (
	"errors"
	"sort"

	"github.com/google/uuid"
)

// ErrTooFewMergeIDs is returned when a manual merge names fewer than two
// resolvable asset identifiers.
var ErrTooFewMergeIDs = errors.New("manual merge requires at least two asset ids")

// ManualMergeReason marks a cluster assembled by a curator rather than
// the automatic pipeline.
const ManualMergeReason = "Manually merged by curator"

// ManualMergeRequest describes an explicit curator merge.
type ManualMergeRequest struct {
	IDs         []string `json:"ids"`
	PrimaryID   string   `json:"primary_id,omitempty"`
	CustomTitle string   `json:"custom_title,omitempty"`
}

// ManualMerge assembles a cluster from explicitly chosen assets,
// bypassing similarity scoring entirely. The primary is the requested
// PrimaryID when given, else the highest-confidence member. The cluster
// reports similarity 1.0 and a single fixed match reason; CustomTitle,
// when present, overrides the synthesized title.
func ManualMerge(assets []AssetRecord, req ManualMergeRequest) (DuplicateCluster, error) {
	if len(req.IDs) < 2 {
		return DuplicateCluster{}, ErrTooFewMergeIDs
	}

	byID := make(map[string]AssetRecord, len(assets))
	for _, asset := range assets {
		byID[asset.ID] = asset
	}

	members := make([]AssetRecord, 0, len(req.IDs))
	seen := map[string]struct{}{}
	for _, id := range req.IDs {
		asset, ok := byID[id]
		if !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		members = append(members, asset)
	}
	if len(members) < 2 {
		return DuplicateCluster{}, ErrTooFewMergeIDs
	}

	ordered := make([]AssetRecord, len(members))
	copy(ordered, members)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Confidence > ordered[j].Confidence
	})
	if req.PrimaryID != "" {
		for i, member := range ordered {
			if member.ID != req.PrimaryID || i == 0 {
				continue
			}
			promoted := make([]AssetRecord, 0, len(ordered))
			promoted = append(promoted, member)
			promoted = append(promoted, ordered[:i]...)
			promoted = append(promoted, ordered[i+1:]...)
			ordered = promoted
			break
		}
	}

	consolidated, err := Consolidate(ordered)
	if err != nil {
		return DuplicateCluster{}, err
	}
	if req.CustomTitle != "" {
		consolidated.Title = req.CustomTitle
	}

	return DuplicateCluster{
		ID:           uuid.NewString(),
		Primary:      ordered[0],
		Duplicates:   ordered[1:],
		Similarity:   1.0,
		Consolidated: consolidated,
		MatchReasons: []string{ManualMergeReason},
	}, nil
}

// MergeSuggestions runs the full cluster builder at a deliberately lower
// threshold than the automatic pipeline so borderline groups surface for
// human review, sorted by cluster similarity descending.
func MergeSuggestions(assets []AssetRecord, w Weights) ClusterResult {
	threshold := w.SuggestionThreshold
	if threshold <= 0 {
		threshold = DefaultWeights().SuggestionThreshold
	}
	w.Threshold = threshold

	result := BuildClusters(assets, w)
	sort.SliceStable(result.Clusters, func(i, j int) bool {
		return result.Clusters[i].Similarity > result.Clusters[j].Similarity
	})
	return result
}

// FindSimilar scores target against every other asset and returns the
// matches at or above minSimilarity, sorted descending. Supports
// exploratory "find things like this one" queries.
func FindSimilar(target AssetRecord, all []AssetRecord, minSimilarity float64, w Weights) []SimilarityMatch {
	var matches []SimilarityMatch
	for _, candidate := range all {
		if candidate.ID == target.ID {
			continue
		}
		match := Score(target, candidate, w)
		if match.Score >= minSimilarity {
			matches = append(matches, match)
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	return matches
}
