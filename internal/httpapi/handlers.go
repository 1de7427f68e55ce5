package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"horse.fit/curio/internal/db"
	"horse.fit/curio/internal/dedup"
	"horse.fit/curio/internal/globaltime"
	"horse.fit/curio/internal/pipeline"
)

const maxPayloadBytes = 1 << 20

func (s *Server) handleHealth(c echo.Context) error {
	return success(c, map[string]any{
		"service": "curio",
		"time":    globaltime.UTC(),
	})
}

func (s *Server) handleStats(c echo.Context) error {
	stats, err := s.service.Stats(c.Request().Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("query stats failed")
		return internalError(c, "Failed to load stats")
	}
	return success(c, stats)
}

func (s *Server) handleIngest(c echo.Context) error {
	raw, err := io.ReadAll(io.LimitReader(c.Request().Body, maxPayloadBytes+1))
	if err != nil {
		return failValidation(c, map[string]string{"body": "could not read request body"})
	}
	if len(raw) > maxPayloadBytes {
		return fail(c, http.StatusRequestEntityTooLarge, "Payload too large", nil)
	}

	result, err := s.service.IngestAsset(c.Request().Context(), raw)
	if err != nil {
		if strings.Contains(err.Error(), "validate asset payload") {
			return failValidation(c, map[string]string{"payload": err.Error()})
		}
		s.logger.Error().Err(err).Msg("ingest asset failed")
		return internalError(c, "Failed to ingest asset")
	}

	return successWithStatus(c, http.StatusCreated, result)
}

type detectRequest struct {
	Threshold float64 `json:"threshold"`
	DryRun    bool    `json:"dry_run"`
}

func (s *Server) handleDetect(c echo.Context) error {
	var req detectRequest
	if err := bindJSONBody(c, &req); err != nil {
		return failValidation(c, map[string]string{"body": err.Error()})
	}
	if req.Threshold < 0 || req.Threshold > 1 {
		return failValidation(c, map[string]string{"threshold": "must be between 0 and 1"})
	}

	result, err := s.service.Detect(c.Request().Context(), pipeline.DetectOptions{
		Threshold: req.Threshold,
		DryRun:    req.DryRun,
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("detection run failed")
		return internalError(c, "Detection run failed")
	}

	return success(c, result)
}

func (s *Server) handleSuggestions(c echo.Context) error {
	threshold, err := parseFloatParam(c.QueryParam("threshold"), 0, 0, 1)
	if err != nil {
		return failValidation(c, map[string]string{"threshold": err.Error()})
	}

	result, err := s.service.Suggestions(c.Request().Context(), threshold)
	if err != nil {
		s.logger.Error().Err(err).Msg("merge suggestions failed")
		return internalError(c, "Failed to compute suggestions")
	}
	return success(c, map[string]any{
		"clusters": result.Clusters,
		"unique":   len(result.Unique),
	})
}

func (s *Server) handleSimilar(c echo.Context) error {
	assetUUID := strings.TrimSpace(c.Param("asset_uuid"))
	if assetUUID == "" {
		return failValidation(c, map[string]string{"asset_uuid": "is required"})
	}

	minSimilarity, err := parseFloatParam(c.QueryParam("min"), 0, 0, 1)
	if err != nil {
		return failValidation(c, map[string]string{"min": err.Error()})
	}

	matches, err := s.service.Similar(c.Request().Context(), assetUUID, minSimilarity)
	if err != nil {
		if db.IsNoRows(err) {
			return failNotFound(c, "Asset not found")
		}
		s.logger.Error().Err(err).Str("asset_uuid", assetUUID).Msg("similar assets lookup failed")
		return internalError(c, "Failed to find similar assets")
	}

	return success(c, map[string]any{
		"asset_uuid": assetUUID,
		"matches":    matches,
	})
}

func (s *Server) handleClusters(c echo.Context) error {
	limit, err := parsePositiveInt(c.QueryParam("limit"), 100, 1, 500)
	if err != nil {
		return failValidation(c, map[string]string{"limit": err.Error()})
	}

	items, err := s.service.ListClusters(c.Request().Context(), limit)
	if err != nil {
		s.logger.Error().Err(err).Msg("list clusters failed")
		return internalError(c, "Failed to load clusters")
	}

	return success(c, map[string]any{
		"items": items,
		"limit": limit,
	})
}

func (s *Server) handleClusterDetail(c echo.Context) error {
	clusterUUID := strings.TrimSpace(c.Param("cluster_uuid"))
	if clusterUUID == "" {
		return failValidation(c, map[string]string{"cluster_uuid": "is required"})
	}

	detail, err := s.service.GetCluster(c.Request().Context(), clusterUUID)
	if err != nil {
		if db.IsNoRows(err) {
			return failNotFound(c, "Cluster not found")
		}
		s.logger.Error().Err(err).Str("cluster_uuid", clusterUUID).Msg("cluster detail failed")
		return internalError(c, "Failed to load cluster")
	}

	return success(c, detail)
}

type mergeRequest struct {
	AssetIDs    []string `json:"asset_ids"`
	PrimaryID   string   `json:"primary_id"`
	CustomTitle string   `json:"custom_title"`
}

func (s *Server) handleMerge(c echo.Context) error {
	var req mergeRequest
	if err := bindJSONBody(c, &req); err != nil {
		return failValidation(c, map[string]string{"body": err.Error()})
	}
	if len(req.AssetIDs) < 2 {
		return failValidation(c, map[string]string{"asset_ids": "at least two asset ids are required"})
	}

	cluster, err := s.service.ManualMerge(c.Request().Context(), dedup.ManualMergeRequest{
		IDs:         req.AssetIDs,
		PrimaryID:   req.PrimaryID,
		CustomTitle: req.CustomTitle,
	})
	if err != nil {
		if errors.Is(err, dedup.ErrTooFewMergeIDs) {
			return failValidation(c, map[string]string{"asset_ids": err.Error()})
		}
		s.logger.Error().Err(err).Msg("manual merge failed")
		return internalError(c, "Manual merge failed")
	}

	return successWithStatus(c, http.StatusCreated, cluster)
}

func bindJSONBody(c echo.Context, target any) error {
	raw, err := io.ReadAll(io.LimitReader(c.Request().Body, maxPayloadBytes))
	if err != nil {
		return errors.New("could not read request body")
	}
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return errors.New("body must be valid JSON")
	}
	return nil
}
