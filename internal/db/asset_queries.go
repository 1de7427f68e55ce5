package db

import (
	"context"
	"encoding/json"
	"fmt"
)

const assetColumns = `
	a.asset_id,
	a.asset_uuid::text,
	a.external_id,
	a.title,
	a.description,
	a.ocr_text,
	a.entities,
	a.keywords,
	a.collection,
	a.gis_zone,
	a.latitude,
	a.longitude,
	a.category,
	a.confidence,
	a.language,
	a.created_at,
	a.updated_at`

// UpsertAsset inserts a catalog record or refreshes an existing one by
// external id. Re-ingesting a record un-deletes it.
func (p *Pool) UpsertAsset(ctx context.Context, asset Asset) (string, error) {
	entities := asset.Entities
	if len(entities) == 0 {
		entities = json.RawMessage(`[]`)
	}
	keywords := asset.Keywords
	if len(keywords) == 0 {
		keywords = json.RawMessage(`[]`)
	}

	const q = `
INSERT INTO curio.assets (
	external_id, title, description, ocr_text,
	entities, keywords, collection, gis_zone,
	latitude, longitude, category, confidence, language
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
ON CONFLICT (external_id) DO UPDATE SET
	title = EXCLUDED.title,
	description = EXCLUDED.description,
	ocr_text = EXCLUDED.ocr_text,
	entities = EXCLUDED.entities,
	keywords = EXCLUDED.keywords,
	collection = EXCLUDED.collection,
	gis_zone = EXCLUDED.gis_zone,
	latitude = EXCLUDED.latitude,
	longitude = EXCLUDED.longitude,
	category = EXCLUDED.category,
	confidence = EXCLUDED.confidence,
	language = EXCLUDED.language,
	deleted_at = NULL,
	updated_at = now()
RETURNING asset_uuid::text
`

	var assetUUID string
	err := p.QueryRow(ctx, q,
		asset.ExternalID,
		asset.Title,
		asset.Description,
		asset.OCRText,
		string(entities),
		string(keywords),
		asset.Collection,
		asset.GISZone,
		asset.Latitude,
		asset.Longitude,
		asset.Category,
		asset.Confidence,
		asset.Language,
	).Scan(&assetUUID)
	if err != nil {
		return "", fmt.Errorf("upsert asset %q: %w", asset.ExternalID, err)
	}
	return assetUUID, nil
}

// ListActiveAssets returns every non-deleted asset in ingestion order.
func (p *Pool) ListActiveAssets(ctx context.Context) ([]Asset, error) {
	q := `
SELECT` + assetColumns + `
FROM curio.assets a
WHERE a.deleted_at IS NULL
ORDER BY a.asset_id
`

	rows, err := p.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query assets: %w", err)
	}
	defer rows.Close()

	assets := make([]Asset, 0, 64)
	for rows.Next() {
		asset, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		assets = append(assets, asset)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate asset rows: %w", err)
	}

	return assets, nil
}

// GetAssetByUUID returns a single non-deleted asset.
func (p *Pool) GetAssetByUUID(ctx context.Context, assetUUID string) (Asset, error) {
	q := `
SELECT` + assetColumns + `
FROM curio.assets a
WHERE a.asset_uuid = $1::uuid
  AND a.deleted_at IS NULL
`

	rows, err := p.Query(ctx, q, assetUUID)
	if err != nil {
		return Asset{}, fmt.Errorf("query asset %s: %w", assetUUID, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return Asset{}, fmt.Errorf("iterate asset row: %w", err)
		}
		return Asset{}, ErrNoRows
	}
	asset, err := scanAsset(rows)
	if err != nil {
		return Asset{}, err
	}
	return asset, rows.Err()
}

// ResolveExternalIDs maps external ids to internal asset ids. Missing or
// deleted assets are simply absent from the result.
func (p *Pool) ResolveExternalIDs(ctx context.Context, externalIDs []string) (map[string]int64, error) {
	ids := make(map[string]int64, len(externalIDs))
	if len(externalIDs) == 0 {
		return ids, nil
	}

	encoded, err := json.Marshal(externalIDs)
	if err != nil {
		return nil, fmt.Errorf("encode external ids: %w", err)
	}

	const q = `
SELECT a.external_id, a.asset_id
FROM curio.assets a
WHERE a.deleted_at IS NULL
  AND a.external_id IN (SELECT jsonb_array_elements_text($1::jsonb))
`

	rows, err := p.Query(ctx, q, string(encoded))
	if err != nil {
		return nil, fmt.Errorf("resolve external ids: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var externalID string
		var assetID int64
		if err := rows.Scan(&externalID, &assetID); err != nil {
			return nil, fmt.Errorf("scan external id row: %w", err)
		}
		ids[externalID] = assetID
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate external id rows: %w", err)
	}

	return ids, nil
}

func scanAsset(rows *Rows) (Asset, error) {
	var asset Asset
	var entities, keywords []byte
	if err := rows.Scan(
		&asset.AssetID,
		&asset.AssetUUID,
		&asset.ExternalID,
		&asset.Title,
		&asset.Description,
		&asset.OCRText,
		&entities,
		&keywords,
		&asset.Collection,
		&asset.GISZone,
		&asset.Latitude,
		&asset.Longitude,
		&asset.Category,
		&asset.Confidence,
		&asset.Language,
		&asset.CreatedAt,
		&asset.UpdatedAt,
	); err != nil {
		return Asset{}, fmt.Errorf("scan asset row: %w", err)
	}
	asset.Entities = json.RawMessage(entities)
	asset.Keywords = json.RawMessage(keywords)
	return asset, nil
}
