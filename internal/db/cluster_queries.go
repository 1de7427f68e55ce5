package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// RolePrimary and RoleDuplicate are the cluster member roles.
const (
	RolePrimary   = "primary"
	RoleDuplicate = "duplicate"
)

// NewCluster is a cluster produced by the engine, ready to persist.
type NewCluster struct {
	ClusterUUID    string
	PrimaryAssetID int64
	Similarity     float64
	Reasons        []string
	Title          string
	Description    string
	Category       *string
	Entities       []string
	Keywords       []string
	MeanConfidence float64
	Members        []NewClusterMember
}

// NewClusterMember is one asset inside a NewCluster, the primary included.
type NewClusterMember struct {
	AssetID    int64
	Role       string
	Similarity float64
}

// ClusterSummary is the listing row for stored clusters.
type ClusterSummary struct {
	ClusterUUID       string    `json:"cluster_uuid"`
	PrimaryExternalID string    `json:"primary_external_id"`
	Title             string    `json:"title"`
	Similarity        float64   `json:"similarity"`
	MemberCount       int       `json:"member_count"`
	Manual            bool      `json:"manual"`
	CreatedAt         time.Time `json:"created_at"`
}

// ClusterDetail is a stored cluster with its members resolved.
type ClusterDetail struct {
	ClusterUUID    string                `json:"cluster_uuid"`
	Similarity     float64               `json:"similarity"`
	Reasons        []string              `json:"reasons"`
	Title          string                `json:"title"`
	Description    string                `json:"description"`
	Category       *string               `json:"category,omitempty"`
	Entities       []string              `json:"entities"`
	Keywords       []string              `json:"keywords"`
	MeanConfidence float64               `json:"mean_confidence"`
	Manual         bool                  `json:"manual"`
	CreatedAt      time.Time             `json:"created_at"`
	Members        []ClusterMemberDetail `json:"members"`
}

// ClusterMemberDetail is one resolved member of a ClusterDetail.
type ClusterMemberDetail struct {
	ExternalID string  `json:"external_id"`
	AssetUUID  string  `json:"asset_uuid"`
	Title      string  `json:"title"`
	Role       string  `json:"role"`
	Similarity float64 `json:"similarity"`
	Confidence float64 `json:"confidence"`
}

// SaveDetectionRun records a completed detection pass. Previous automatic
// clusters are replaced; manual clusters survive runs.
func (p *Pool) SaveDetectionRun(ctx context.Context, threshold float64, assetCount, uniqueCount int, offloaded bool, clusters []NewCluster) (string, error) {
	tx, err := p.BeginTx(ctx)
	if err != nil {
		return "", fmt.Errorf("begin detection run tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(ctx)
		}
	}()

	const insertRun = `
INSERT INTO curio.detection_runs (threshold, asset_count, cluster_count, unique_count, offloaded)
VALUES ($1, $2, $3, $4, $5)
RETURNING run_id, run_uuid::text
`
	var runID int64
	var runUUID string
	if err := tx.QueryRow(ctx, insertRun, threshold, assetCount, len(clusters), uniqueCount, offloaded).Scan(&runID, &runUUID); err != nil {
		return "", fmt.Errorf("insert detection run: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM curio.clusters WHERE manual = FALSE`); err != nil {
		return "", fmt.Errorf("clear previous clusters: %w", err)
	}

	for _, cluster := range clusters {
		if err := insertCluster(ctx, tx, cluster, &runID, false); err != nil {
			return "", err
		}
	}

	const finishRun = `
UPDATE curio.detection_runs
SET finished_at = now(), status = 'succeeded'
WHERE run_id = $1
`
	if _, err := tx.Exec(ctx, finishRun, runID); err != nil {
		return "", fmt.Errorf("finish detection run: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("commit detection run: %w", err)
	}
	committed = true
	return runUUID, nil
}

// SaveManualCluster persists a curator merge and its audit event.
func (p *Pool) SaveManualCluster(ctx context.Context, cluster NewCluster, mergedExternalIDs []string, customTitle *string) error {
	tx, err := p.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("begin manual merge tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(ctx)
		}
	}()

	if err := insertCluster(ctx, tx, cluster, nil, true); err != nil {
		return err
	}

	mergedIDs, err := json.Marshal(mergedExternalIDs)
	if err != nil {
		return fmt.Errorf("encode merged asset ids: %w", err)
	}

	const insertEvent = `
INSERT INTO curio.merge_events (cluster_id, primary_asset_id, merged_asset_ids, custom_title)
SELECT c.cluster_id, $2, $3::jsonb, $4
FROM curio.clusters c
WHERE c.cluster_uuid = $1::uuid
`
	tag, err := tx.Exec(ctx, insertEvent, cluster.ClusterUUID, cluster.PrimaryAssetID, string(mergedIDs), customTitle)
	if err != nil {
		return fmt.Errorf("insert merge event: %w", err)
	}
	if tag.RowsAffected() != 1 {
		return fmt.Errorf("insert merge event: cluster %s not found", cluster.ClusterUUID)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit manual merge: %w", err)
	}
	committed = true
	return nil
}

func insertCluster(ctx context.Context, tx Tx, cluster NewCluster, runID *int64, manual bool) error {
	reasons, err := json.Marshal(emptyIfNil(cluster.Reasons))
	if err != nil {
		return fmt.Errorf("encode cluster reasons: %w", err)
	}
	entities, err := json.Marshal(emptyIfNil(cluster.Entities))
	if err != nil {
		return fmt.Errorf("encode cluster entities: %w", err)
	}
	keywords, err := json.Marshal(emptyIfNil(cluster.Keywords))
	if err != nil {
		return fmt.Errorf("encode cluster keywords: %w", err)
	}

	const insert = `
INSERT INTO curio.clusters (
	cluster_uuid, run_id, primary_asset_id, similarity, reasons,
	title, description, category, merged_entities, merged_keywords,
	member_count, mean_confidence, manual
)
VALUES ($1::uuid, $2, $3, $4, $5::jsonb, $6, $7, $8, $9::jsonb, $10::jsonb, $11, $12, $13)
RETURNING cluster_id
`
	var clusterID int64
	if err := tx.QueryRow(ctx, insert,
		cluster.ClusterUUID,
		runID,
		cluster.PrimaryAssetID,
		cluster.Similarity,
		string(reasons),
		cluster.Title,
		cluster.Description,
		cluster.Category,
		string(entities),
		string(keywords),
		len(cluster.Members),
		cluster.MeanConfidence,
		manual,
	).Scan(&clusterID); err != nil {
		return fmt.Errorf("insert cluster %s: %w", cluster.ClusterUUID, err)
	}

	const insertMember = `
INSERT INTO curio.cluster_members (cluster_id, asset_id, role, similarity)
VALUES ($1, $2, $3, $4)
`
	for _, member := range cluster.Members {
		if _, err := tx.Exec(ctx, insertMember, clusterID, member.AssetID, member.Role, member.Similarity); err != nil {
			return fmt.Errorf("insert cluster member %d: %w", member.AssetID, err)
		}
	}

	return nil
}

// ListClusters lists stored clusters, newest first.
func (p *Pool) ListClusters(ctx context.Context, limit int) ([]ClusterSummary, error) {
	if limit <= 0 {
		limit = 100
	}

	const q = `
SELECT
	c.cluster_uuid::text,
	a.external_id,
	c.title,
	c.similarity,
	c.member_count,
	c.manual,
	c.created_at
FROM curio.clusters c
JOIN curio.assets a ON a.asset_id = c.primary_asset_id
ORDER BY c.created_at DESC, c.cluster_id DESC
LIMIT $1
`

	rows, err := p.Query(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("query clusters: %w", err)
	}
	defer rows.Close()

	items := make([]ClusterSummary, 0, limit)
	for rows.Next() {
		var row ClusterSummary
		if err := rows.Scan(
			&row.ClusterUUID,
			&row.PrimaryExternalID,
			&row.Title,
			&row.Similarity,
			&row.MemberCount,
			&row.Manual,
			&row.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan cluster row: %w", err)
		}
		items = append(items, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cluster rows: %w", err)
	}

	return items, nil
}

// GetClusterByUUID loads one stored cluster with resolved members.
func (p *Pool) GetClusterByUUID(ctx context.Context, clusterUUID string) (ClusterDetail, error) {
	const q = `
SELECT
	c.cluster_uuid::text,
	c.similarity,
	c.reasons,
	c.title,
	c.description,
	c.category,
	c.merged_entities,
	c.merged_keywords,
	c.mean_confidence,
	c.manual,
	c.created_at
FROM curio.clusters c
WHERE c.cluster_uuid = $1::uuid
`

	var detail ClusterDetail
	var reasons, entities, keywords []byte
	err := p.QueryRow(ctx, q, clusterUUID).Scan(
		&detail.ClusterUUID,
		&detail.Similarity,
		&reasons,
		&detail.Title,
		&detail.Description,
		&detail.Category,
		&entities,
		&keywords,
		&detail.MeanConfidence,
		&detail.Manual,
		&detail.CreatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return ClusterDetail{}, ErrNoRows
		}
		return ClusterDetail{}, fmt.Errorf("query cluster %s: %w", clusterUUID, err)
	}

	if err := json.Unmarshal(reasons, &detail.Reasons); err != nil {
		return ClusterDetail{}, fmt.Errorf("decode cluster reasons: %w", err)
	}
	if err := json.Unmarshal(entities, &detail.Entities); err != nil {
		return ClusterDetail{}, fmt.Errorf("decode cluster entities: %w", err)
	}
	if err := json.Unmarshal(keywords, &detail.Keywords); err != nil {
		return ClusterDetail{}, fmt.Errorf("decode cluster keywords: %w", err)
	}

	const membersQ = `
SELECT
	a.external_id,
	a.asset_uuid::text,
	a.title,
	m.role,
	m.similarity,
	a.confidence
FROM curio.cluster_members m
JOIN curio.clusters c ON c.cluster_id = m.cluster_id
JOIN curio.assets a ON a.asset_id = m.asset_id
WHERE c.cluster_uuid = $1::uuid
ORDER BY m.role DESC, a.asset_id
`

	rows, err := p.Query(ctx, membersQ, clusterUUID)
	if err != nil {
		return ClusterDetail{}, fmt.Errorf("query cluster members: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var member ClusterMemberDetail
		if err := rows.Scan(
			&member.ExternalID,
			&member.AssetUUID,
			&member.Title,
			&member.Role,
			&member.Similarity,
			&member.Confidence,
		); err != nil {
			return ClusterDetail{}, fmt.Errorf("scan cluster member row: %w", err)
		}
		detail.Members = append(detail.Members, member)
	}
	if err := rows.Err(); err != nil {
		return ClusterDetail{}, fmt.Errorf("iterate cluster member rows: %w", err)
	}

	return detail, nil
}

func emptyIfNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
