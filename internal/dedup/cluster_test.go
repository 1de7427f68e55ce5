package dedup

import (
	"testing"
)

// clusterFixture is three near-identical scans of one ceremony plus two
// unrelated assets.
func clusterFixture() []AssetRecord {
	return []AssetRecord{
		{
			ID:          "scan-1",
			Title:       "Grand Opening Ceremony 1950",
			Description: "Crowd gathered outside Antonio Hall for the dedication",
			Entities:    []string{"Antonio Hall"},
			Keywords:    []string{"ceremony", "opening"},
			Collection:  "campus history",
			Category:    "event",
			Confidence:  0.90,
		},
		{
			ID:          "scan-2",
			Title:       "1950 Grand Opening Ceremony",
			Description: "Crowd gathered outside Antonio Hall for the dedication",
			Entities:    []string{"Antonio Hall"},
			Keywords:    []string{"ceremony", "opening"},
			Collection:  "campus history",
			Category:    "event",
			Confidence:  0.70,
		},
		{
			ID:          "scan-3",
			Title:       "Grand Opening Ceremony, 1950",
			Description: "Crowd at Antonio Hall during the opening dedication",
			Entities:    []string{"Antonio Hall"},
			Keywords:    []string{"ceremony"},
			Collection:  "campus history",
			Category:    "photograph",
			Confidence:  0.95,
		},
		{
			ID:         "other-1",
			Title:      "Chemistry Laboratory Interior",
			Keywords:   []string{"laboratory"},
			Collection: "science department",
			Category:   "interior",
			Confidence: 0.80,
		},
		{
			ID:         "other-2",
			Title:      "Football Team Portrait 1973",
			Keywords:   []string{"athletics"},
			Collection: "sports archive",
			Category:   "portrait",
			Confidence: 0.85,
		},
	}
}

func TestBuildClusters_PrimarySelection(t *testing.T) {
	t.Parallel()

	result := BuildClusters(clusterFixture(), DefaultWeights())
	if len(result.Clusters) != 1 {
		t.Fatalf("expected one cluster, got %d", len(result.Clusters))
	}

	cluster := result.Clusters[0]
	if cluster.Primary.ID != "scan-3" {
		t.Fatalf("expected highest-confidence member scan-3 as primary, got %q", cluster.Primary.ID)
	}
	if len(cluster.Duplicates) != 2 {
		t.Fatalf("expected two duplicates, got %d", len(cluster.Duplicates))
	}
	if cluster.Similarity <= 0 || cluster.Similarity > 1 {
		t.Fatalf("cluster similarity out of range: %f", cluster.Similarity)
	}
	if len(result.Unique) != 2 {
		t.Fatalf("expected two unique assets, got %d", len(result.Unique))
	}
}

func TestBuildClusters_PartitionCompleteness(t *testing.T) {
	t.Parallel()

	assets := clusterFixture()
	result := BuildClusters(assets, DefaultWeights())

	seen := map[string]int{}
	for _, cluster := range result.Clusters {
		seen[cluster.Primary.ID]++
		for _, duplicate := range cluster.Duplicates {
			seen[duplicate.ID]++
		}
	}
	for _, asset := range result.Unique {
		seen[asset.ID]++
	}

	if len(seen) != len(assets) {
		t.Fatalf("partition covers %d assets, want %d", len(seen), len(assets))
	}
	for _, asset := range assets {
		if seen[asset.ID] != 1 {
			t.Fatalf("asset %q appears %d times in partition", asset.ID, seen[asset.ID])
		}
	}
}

// partitionKey flattens a result into comparable group signatures.
func partitionKey(result ClusterResult) map[string][]string {
	groups := map[string][]string{}
	for _, cluster := range result.Clusters {
		members := []string{cluster.Primary.ID}
		for _, duplicate := range cluster.Duplicates {
			members = append(members, duplicate.ID)
		}
		groups[cluster.Primary.ID] = members
	}
	for _, asset := range result.Unique {
		groups[asset.ID] = []string{asset.ID}
	}
	return groups
}

func TestBuildClusters_Deterministic(t *testing.T) {
	t.Parallel()

	assets := clusterFixture()
	first := partitionKey(BuildClusters(assets, DefaultWeights()))
	second := partitionKey(BuildClusters(assets, DefaultWeights()))

	if len(first) != len(second) {
		t.Fatalf("group counts differ across runs: %d vs %d", len(first), len(second))
	}
	for root, members := range first {
		other, ok := second[root]
		if !ok {
			t.Fatalf("group rooted at %q missing in second run", root)
		}
		if len(members) != len(other) {
			t.Fatalf("group %q size differs: %v vs %v", root, members, other)
		}
		for i := range members {
			if members[i] != other[i] {
				t.Fatalf("group %q member order differs: %v vs %v", root, members, other)
			}
		}
	}
}

func TestBuildClusters_ThresholdMonotonicity(t *testing.T) {
	t.Parallel()

	assets := clusterFixture()
	loose := DefaultWeights()
	loose.Threshold = 0.30
	strict := DefaultWeights()
	strict.Threshold = 0.60

	looseGroups := partitionKey(BuildClusters(assets, loose))
	strictGroups := partitionKey(BuildClusters(assets, strict))

	// Map each asset to its loose-partition root.
	looseRootOf := map[string]string{}
	for root, members := range looseGroups {
		for _, member := range members {
			looseRootOf[member] = root
		}
	}

	// Every strict group must sit inside exactly one loose group.
	for root, members := range strictGroups {
		want := looseRootOf[members[0]]
		for _, member := range members {
			if looseRootOf[member] != want {
				t.Fatalf("strict group %q spans loose groups: member %q", root, member)
			}
		}
	}
}

func TestBuildClusters_TieBreakPreservesInputOrder(t *testing.T) {
	t.Parallel()

	assets := []AssetRecord{
		{ID: "first", Title: "Bronze Statue Dedication 1950", Confidence: 0.9},
		{ID: "second", Title: "Bronze Statue Dedication 1950", Confidence: 0.9},
	}
	result := BuildClusters(assets, DefaultWeights())
	if len(result.Clusters) != 1 {
		t.Fatalf("expected one cluster, got %d", len(result.Clusters))
	}
	if result.Clusters[0].Primary.ID != "first" {
		t.Fatalf("confidence tie must keep input order, primary=%q", result.Clusters[0].Primary.ID)
	}
}

func TestBuildClusters_EveryClusterConsolidated(t *testing.T) {
	t.Parallel()

	assets := []AssetRecord{
		{ID: "a", Title: "Fountain Dedication Crowd 1950", Confidence: 0.9},
		{ID: "b", Title: "Fountain Dedication Crowd 1950", Confidence: 0.8},
		{ID: "c", Title: "Chemistry Laboratory Bench", Confidence: 0.7},
		{ID: "d", Title: "Chemistry Laboratory Bench", Confidence: 0.6},
	}
	result := BuildClusters(assets, DefaultWeights())
	if len(result.Clusters) == 0 {
		t.Fatalf("expected clusters, got none")
	}
	for _, cluster := range result.Clusters {
		if cluster.Consolidated.MemberCount != len(cluster.Duplicates)+1 {
			t.Fatalf("cluster %q missing consolidated metadata: %+v", cluster.ID, cluster.Consolidated)
		}
		if cluster.Consolidated.Title == "" {
			t.Fatalf("cluster %q has no synthesized title", cluster.ID)
		}
	}
}

func TestBuildClusters_Empty(t *testing.T) {
	t.Parallel()

	result := BuildClusters(nil, DefaultWeights())
	if len(result.Clusters) != 0 || len(result.Unique) != 0 {
		t.Fatalf("expected empty result for empty input, got %+v", result)
	}
}
