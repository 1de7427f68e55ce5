package dedup

import (
	"sort"

	"github.com/google/uuid"
)

// BuildClusters scores every unordered asset pair, links pairs at or
// above w.Threshold with Union-Find, and partitions the collection into
// duplicate clusters and unique assets. Comparisons run in fixed nested
// index order and all tie-breaks follow input order, so the partition is
// reproducible for a given input ordering.
//
// Raising the threshold can only remove edges, so clusters only shrink
// or split as it increases, never grow.
func BuildClusters(assets []AssetRecord, w Weights) ClusterResult {
	matches := thresholdMatches(assets, w.Threshold, w)

	uf := newUnionFind()
	for _, match := range matches {
		uf.union(match.AssetA, match.AssetB)
	}

	// Group members by resolved root, preserving input order within
	// each group and ordering groups by first appearance.
	groupOf := map[string][]AssetRecord{}
	var rootOrder []string
	for _, asset := range assets {
		root := uf.find(asset.ID)
		if _, seen := groupOf[root]; !seen {
			rootOrder = append(rootOrder, root)
		}
		groupOf[root] = append(groupOf[root], asset)
	}

	reasonsOf := clusterReasons(matches, uf)

	result := ClusterResult{}
	for _, root := range rootOrder {
		members := groupOf[root]
		if len(members) < 2 {
			result.Unique = append(result.Unique, members[0])
			continue
		}
		result.Clusters = append(result.Clusters, buildCluster(members, reasonsOf[root], w))
	}
	return result
}

// thresholdMatches scores every unordered pair (i < j) and keeps those
// at or above threshold.
func thresholdMatches(assets []AssetRecord, threshold float64, w Weights) []SimilarityMatch {
	var matches []SimilarityMatch
	for i := 0; i < len(assets); i++ {
		for j := i + 1; j < len(assets); j++ {
			match := Score(assets[i], assets[j], w)
			if match.Score >= threshold {
				matches = append(matches, match)
			}
		}
	}
	return matches
}

// clusterReasons unions each retained edge's match reasons under the
// edge's resolved root, deduplicated in first-appearance order.
func clusterReasons(matches []SimilarityMatch, uf *unionFind) map[string][]string {
	reasonsOf := map[string][]string{}
	seenOf := map[string]map[string]struct{}{}
	for _, match := range matches {
		root := uf.find(match.AssetA)
		seen := seenOf[root]
		if seen == nil {
			seen = map[string]struct{}{}
			seenOf[root] = seen
		}
		for _, reason := range match.Reasons {
			if _, ok := seen[reason]; ok {
				continue
			}
			seen[reason] = struct{}{}
			reasonsOf[root] = append(reasonsOf[root], reason)
		}
	}
	return reasonsOf
}

// buildCluster orders members by confidence (stable, so exact ties keep
// input order), promotes the first to primary, and recomputes cluster
// similarity as the mean pairwise score against the primary. The scores
// from the edge table are not reused because the primary need not be an
// endpoint of the edge that linked the group.
func buildCluster(members []AssetRecord, reasons []string, w Weights) DuplicateCluster {
	ordered := make([]AssetRecord, len(members))
	copy(ordered, members)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Confidence > ordered[j].Confidence
	})

	primary := ordered[0]
	duplicates := ordered[1:]

	var total float64
	for _, duplicate := range duplicates {
		total += Score(primary, duplicate, w).Score
	}

	consolidated, err := Consolidate(ordered)
	if err != nil {
		// Consolidate only fails on an empty member list, which the
		// union-find pass never produces.
		return DuplicateCluster{}
	}

	return DuplicateCluster{
		ID:           uuid.NewString(),
		Primary:      primary,
		Duplicates:   duplicates,
		Similarity:   total / float64(len(duplicates)),
		Consolidated: consolidated,
		MatchReasons: reasons,
	}
}
