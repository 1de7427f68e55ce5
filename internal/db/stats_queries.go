package db

import (
	"context"
	"fmt"
	"time"
)

// CatalogStats is the read model behind the stats surfaces.
type CatalogStats struct {
	Assets          int64      `json:"assets"`
	Clusters        int64      `json:"clusters"`
	ManualClusters  int64      `json:"manual_clusters"`
	ClusteredAssets int64      `json:"clustered_assets"`
	LastRunUUID     *string    `json:"last_run_uuid,omitempty"`
	LastRunStatus   *string    `json:"last_run_status,omitempty"`
	LastRunAt       *time.Time `json:"last_run_at,omitempty"`
	LastThreshold   *float64   `json:"last_threshold,omitempty"`
}

// QueryCatalogStats returns asset and cluster counts plus the latest run.
func (p *Pool) QueryCatalogStats(ctx context.Context) (*CatalogStats, error) {
	const countsQuery = `
SELECT
	(SELECT COUNT(*)::BIGINT FROM curio.assets a WHERE a.deleted_at IS NULL) AS assets,
	(SELECT COUNT(*)::BIGINT FROM curio.clusters) AS clusters,
	(SELECT COUNT(*)::BIGINT FROM curio.clusters WHERE manual) AS manual_clusters,
	(SELECT COUNT(DISTINCT m.asset_id)::BIGINT FROM curio.cluster_members m) AS clustered_assets
`

	stats := &CatalogStats{}
	if err := p.QueryRow(ctx, countsQuery).Scan(
		&stats.Assets,
		&stats.Clusters,
		&stats.ManualClusters,
		&stats.ClusteredAssets,
	); err != nil {
		return nil, fmt.Errorf("query catalog counts: %w", err)
	}

	const lastRunQuery = `
SELECT r.run_uuid::text, r.status, r.started_at, r.threshold
FROM curio.detection_runs r
ORDER BY r.run_id DESC
LIMIT 1
`

	var runUUID, status string
	var startedAt time.Time
	var threshold float64
	err := p.QueryRow(ctx, lastRunQuery).Scan(&runUUID, &status, &startedAt, &threshold)
	switch {
	case err == nil:
		stats.LastRunUUID = &runUUID
		stats.LastRunStatus = &status
		stats.LastRunAt = &startedAt
		stats.LastThreshold = &threshold
	case IsNoRows(err):
		// no detection run yet
	default:
		return nil, fmt.Errorf("query last detection run: %w", err)
	}

	return stats, nil
}
