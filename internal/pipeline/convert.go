package pipeline

import (
	"encoding/json"
	"fmt"
	"strings"

	"horse.fit/curio/internal/db"
	"horse.fit/curio/internal/dedup"
	"horse.fit/curio/internal/langdetect"
	payloadschema "horse.fit/curio/schema"
)

// assetFromPayload converts a validated ingestion payload into the storage
// row, tagging the record language from title and description.
func assetFromPayload(payload *payloadschema.AssetPayload) (db.Asset, error) {
	entities, err := json.Marshal(emptyIfNil(payload.Entities))
	if err != nil {
		return db.Asset{}, fmt.Errorf("encode entities: %w", err)
	}
	keywords, err := json.Marshal(emptyIfNil(payload.Keywords))
	if err != nil {
		return db.Asset{}, fmt.Errorf("encode keywords: %w", err)
	}

	language := langdetect.DetectISO6391(payload.Title + " " + deref(payload.Description))
	if language == "" {
		language = "und"
	}

	return db.Asset{
		ExternalID:  strings.TrimSpace(payload.AssetID),
		Title:       strings.TrimSpace(payload.Title),
		Description: deref(payload.Description),
		OCRText:     deref(payload.OCRText),
		Entities:    entities,
		Keywords:    keywords,
		Collection:  payload.Collection,
		GISZone:     payload.GISZone,
		Latitude:    payload.Latitude,
		Longitude:   payload.Longitude,
		Category:    payload.Category,
		Confidence:  derefFloat(payload.Confidence),
		Language:    language,
	}, nil
}

// recordFromAsset converts a storage row into the engine's input shape.
func recordFromAsset(asset db.Asset) (dedup.AssetRecord, error) {
	var entities, keywords []string
	if len(asset.Entities) > 0 {
		if err := json.Unmarshal(asset.Entities, &entities); err != nil {
			return dedup.AssetRecord{}, fmt.Errorf("decode entities of %q: %w", asset.ExternalID, err)
		}
	}
	if len(asset.Keywords) > 0 {
		if err := json.Unmarshal(asset.Keywords, &keywords); err != nil {
			return dedup.AssetRecord{}, fmt.Errorf("decode keywords of %q: %w", asset.ExternalID, err)
		}
	}

	record := dedup.AssetRecord{
		ID:          asset.ExternalID,
		Title:       asset.Title,
		Description: asset.Description,
		OCRText:     asset.OCRText,
		Entities:    entities,
		Keywords:    keywords,
		Collection:  deref(asset.Collection),
		GISZone:     deref(asset.GISZone),
		Category:    deref(asset.Category),
		Confidence:  asset.Confidence,
	}
	if asset.Latitude != nil && asset.Longitude != nil {
		record.Location = &dedup.GeoPoint{
			Latitude:  *asset.Latitude,
			Longitude: *asset.Longitude,
		}
	}
	return record, nil
}

// clusterForStorage flattens an engine cluster into the persistence shape.
// Member similarity is the pairwise score against the cluster primary.
func clusterForStorage(cluster dedup.DuplicateCluster, assetIDs map[string]int64, w dedup.Weights) (db.NewCluster, error) {
	primaryID, ok := assetIDs[cluster.Primary.ID]
	if !ok {
		return db.NewCluster{}, fmt.Errorf("cluster primary %q is not in the catalog", cluster.Primary.ID)
	}

	members := make([]db.NewClusterMember, 0, len(cluster.Duplicates)+1)
	members = append(members, db.NewClusterMember{
		AssetID:    primaryID,
		Role:       db.RolePrimary,
		Similarity: 1,
	})
	for _, duplicate := range cluster.Duplicates {
		memberID, ok := assetIDs[duplicate.ID]
		if !ok {
			return db.NewCluster{}, fmt.Errorf("cluster member %q is not in the catalog", duplicate.ID)
		}
		members = append(members, db.NewClusterMember{
			AssetID:    memberID,
			Role:       db.RoleDuplicate,
			Similarity: dedup.Score(cluster.Primary, duplicate, w).Score,
		})
	}

	var category *string
	if cluster.Consolidated.Category != "" {
		value := cluster.Consolidated.Category
		category = &value
	}

	return db.NewCluster{
		ClusterUUID:    cluster.ID,
		PrimaryAssetID: primaryID,
		Similarity:     cluster.Similarity,
		Reasons:        cluster.MatchReasons,
		Title:          cluster.Consolidated.Title,
		Description:    cluster.Consolidated.Description,
		Category:       category,
		Entities:       cluster.Consolidated.Entities,
		Keywords:       cluster.Consolidated.Keywords,
		MeanConfidence: cluster.Consolidated.Confidence,
		Members:        members,
	}, nil
}

func emptyIfNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

func derefFloat(value *float64) float64 {
	if value == nil {
		return 0
	}
	return *value
}
