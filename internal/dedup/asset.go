// Package dedup is the near-duplicate detection and clustering engine.
// It scores pairs of digitized asset records with a weighted multi-signal
// similarity, partitions a collection into duplicate clusters with
// Union-Find, and synthesizes one consolidated record per cluster.
//
// The engine is purely functional: it performs no I/O, holds no state
// between calls, and given the same asset slice and configuration it
// produces the same partition every time. Input ordering is significant
// only for tie-breaking (primary selection and category votes follow
// first-encountered order).
package dedup

// GeoPoint is a WGS84 coordinate pair.
type GeoPoint struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// AssetRecord is one digitized asset as supplied by the corpus store.
// The engine never mutates it.
type AssetRecord struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	OCRText     string    `json:"ocr_text"`
	Entities    []string  `json:"entities,omitempty"`
	Keywords    []string  `json:"keywords,omitempty"`
	Collection  string    `json:"collection,omitempty"`
	GISZone     string    `json:"gis_zone,omitempty"`
	Location    *GeoPoint `json:"location,omitempty"`
	Category    string    `json:"category,omitempty"`
	Confidence  float64   `json:"confidence"`
}

// conceptText is the text a record contributes to concept extraction.
func (a AssetRecord) conceptText() string {
	return a.Title + " " + a.Description + " " + a.OCRText
}

// Breakdown carries the per-signal sub-scores of one comparison.
type Breakdown struct {
	Title    float64 `json:"title"`
	Entity   float64 `json:"entity"`
	Keyword  float64 `json:"keyword"`
	Semantic float64 `json:"semantic"`
	Temporal float64 `json:"temporal"`
	Spatial  float64 `json:"spatial"`
	Content  float64 `json:"content"`
}

// SimilarityMatch is the scored comparison of one asset pair.
type SimilarityMatch struct {
	AssetA    string    `json:"asset_a"`
	AssetB    string    `json:"asset_b"`
	Score     float64   `json:"score"`
	Reasons   []string  `json:"reasons,omitempty"`
	Breakdown Breakdown `json:"breakdown"`
}

// ConsolidatedMetadata is the synthesized record for one cluster.
type ConsolidatedMetadata struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Entities    []string `json:"entities,omitempty"`
	Keywords    []string `json:"keywords,omitempty"`
	Category    string   `json:"category,omitempty"`
	Confidence  float64  `json:"confidence"`
	MemberCount int      `json:"member_count"`
}

// DuplicateCluster groups records the engine believes describe the same
// real-world item. Primary is the highest-confidence member; every
// cluster has at least one duplicate besides it.
type DuplicateCluster struct {
	ID           string               `json:"id"`
	Primary      AssetRecord          `json:"primary"`
	Duplicates   []AssetRecord        `json:"duplicates"`
	Similarity   float64              `json:"similarity"`
	Consolidated ConsolidatedMetadata `json:"consolidated"`
	MatchReasons []string             `json:"match_reasons,omitempty"`
}

// ClusterResult partitions an input collection: every input asset appears
// exactly once, either inside a cluster or in Unique.
type ClusterResult struct {
	Clusters []DuplicateCluster `json:"clusters"`
	Unique   []AssetRecord      `json:"unique"`
}
