// Package pipeline coordinates ingestion, detection runs, and curator
// merges between the catalog store and the dedup engine.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"horse.fit/curio/internal/config"
	"horse.fit/curio/internal/db"
	"horse.fit/curio/internal/dedup"
	"horse.fit/curio/internal/offload"
	payloadschema "horse.fit/curio/schema"
)

const defaultOffloadMinAssets = 5000

type Service struct {
	pool             *db.Pool
	logger           zerolog.Logger
	weights          dedup.Weights
	worker           *offload.Worker
	offloadMinAssets int
}

func NewService(pool *db.Pool, logger zerolog.Logger, cfg *config.Config, worker *offload.Worker) *Service {
	weights := dedup.DefaultWeights()
	offloadMin := defaultOffloadMinAssets
	if cfg != nil {
		if cfg.DetectThreshold > 0 {
			weights.Threshold = cfg.DetectThreshold
		}
		if cfg.SuggestionThreshold > 0 {
			weights.SuggestionThreshold = cfg.SuggestionThreshold
		}
		weights.UsePhonetic = cfg.UsePhonetic
		weights.UseNGrams = cfg.UseNGrams
		if cfg.OffloadMinAssets > 0 {
			offloadMin = cfg.OffloadMinAssets
		}
	}
	return &Service{
		pool:             pool,
		logger:           logger,
		weights:          weights,
		worker:           worker,
		offloadMinAssets: offloadMin,
	}
}

// Weights exposes the configured scoring weights.
func (s *Service) Weights() dedup.Weights {
	if s == nil {
		return dedup.DefaultWeights()
	}
	return s.weights
}

type IngestResult struct {
	AssetUUID  string `json:"asset_uuid"`
	ExternalID string `json:"external_id"`
	Language   string `json:"language"`
}

// IngestAsset validates one payload and upserts it into the catalog.
func (s *Service) IngestAsset(ctx context.Context, raw json.RawMessage) (IngestResult, error) {
	if s == nil || s.pool == nil {
		return IngestResult{}, fmt.Errorf("pipeline service is not initialized")
	}

	payload, err := payloadschema.ValidateAssetPayload(raw)
	if err != nil {
		return IngestResult{}, fmt.Errorf("validate asset payload: %w", err)
	}

	asset, err := assetFromPayload(payload)
	if err != nil {
		return IngestResult{}, err
	}

	assetUUID, err := s.pool.UpsertAsset(ctx, asset)
	if err != nil {
		return IngestResult{}, err
	}

	s.logger.Info().
		Str("external_id", asset.ExternalID).
		Str("asset_uuid", assetUUID).
		Str("language", asset.Language).
		Msg("asset ingested")

	return IngestResult{
		AssetUUID:  assetUUID,
		ExternalID: asset.ExternalID,
		Language:   asset.Language,
	}, nil
}

type DetectOptions struct {
	// Threshold overrides the configured detection threshold when > 0.
	Threshold float64
	// DryRun computes clusters without persisting a run.
	DryRun bool
}

type DetectResult struct {
	RunUUID   string              `json:"run_uuid,omitempty"`
	Threshold float64             `json:"threshold"`
	Assets    int                 `json:"assets"`
	Offloaded bool                `json:"offloaded"`
	Result    dedup.ClusterResult `json:"result"`
}

// Detect runs duplicate detection over the whole catalog. Large corpora
// are coarse-partitioned on the offload worker first so the full scorer
// only runs inside candidate groups.
func (s *Service) Detect(ctx context.Context, opts DetectOptions) (DetectResult, error) {
	if s == nil || s.pool == nil {
		return DetectResult{}, fmt.Errorf("pipeline service is not initialized")
	}

	assets, records, err := s.loadCorpus(ctx)
	if err != nil {
		return DetectResult{}, err
	}

	w := s.weights
	if opts.Threshold > 0 {
		w.Threshold = opts.Threshold
	}

	detect := DetectResult{
		Threshold: w.Threshold,
		Assets:    len(records),
	}
	if len(records) == 0 {
		return detect, nil
	}

	if s.worker != nil && len(records) >= s.offloadMinAssets {
		detect.Offloaded = true
		detect.Result, err = s.clusterOffloaded(ctx, records, w)
		if err != nil {
			return DetectResult{}, err
		}
	} else {
		detect.Result = dedup.BuildClusters(records, w)
	}

	s.logger.Info().
		Int("assets", detect.Assets).
		Int("clusters", len(detect.Result.Clusters)).
		Int("unique", len(detect.Result.Unique)).
		Bool("offloaded", detect.Offloaded).
		Float64("threshold", w.Threshold).
		Msg("detection finished")

	if opts.DryRun {
		return detect, nil
	}

	assetIDs := assetIDIndex(assets)
	stored := make([]db.NewCluster, 0, len(detect.Result.Clusters))
	for _, cluster := range detect.Result.Clusters {
		row, err := clusterForStorage(cluster, assetIDs, w)
		if err != nil {
			return DetectResult{}, err
		}
		stored = append(stored, row)
	}

	runUUID, err := s.pool.SaveDetectionRun(ctx, w.Threshold, detect.Assets, len(detect.Result.Unique), detect.Offloaded, stored)
	if err != nil {
		return DetectResult{}, err
	}
	detect.RunUUID = runUUID

	return detect, nil
}

// clusterOffloaded partitions the corpus into coarse lexical groups on the
// worker, then runs the full scorer inside each group. The coarse pass uses
// the looser suggestion threshold so it over-groups rather than splits.
func (s *Service) clusterOffloaded(ctx context.Context, records []dedup.AssetRecord, w dedup.Weights) (dedup.ClusterResult, error) {
	replies, err := s.worker.Submit(ctx, offload.Request{
		Task: offload.TaskCluster,
		Payload: offload.TaskPayload{
			Assets:    records,
			Threshold: w.SuggestionThreshold,
		},
	})
	if err != nil {
		return dedup.ClusterResult{}, fmt.Errorf("submit cluster task: %w", err)
	}

	var coarse offload.ClusterTaskResult
	haveResult := false
receive:
	for {
		var message offload.Message
		var open bool
		select {
		case <-ctx.Done():
			return dedup.ClusterResult{}, fmt.Errorf("coarse clustering interrupted: %w", ctx.Err())
		case message, open = <-replies:
			if !open {
				break receive
			}
		}
		switch message.Kind {
		case offload.MessageProgress:
			s.logger.Debug().
				Str("job_id", message.JobID).
				Int("percent", message.Percent).
				Msg("coarse clustering progress")
		case offload.MessageError:
			return dedup.ClusterResult{}, fmt.Errorf("coarse clustering failed: %s", message.Message)
		case offload.MessageResult:
			result, ok := message.Data.(offload.ClusterTaskResult)
			if !ok {
				return dedup.ClusterResult{}, fmt.Errorf("unexpected cluster task payload %T", message.Data)
			}
			coarse = result
			haveResult = true
		}
	}
	if !haveResult {
		return dedup.ClusterResult{}, fmt.Errorf("coarse clustering returned no result")
	}

	byID := make(map[string]dedup.AssetRecord, len(records))
	for _, record := range records {
		byID[record.ID] = record
	}

	var combined dedup.ClusterResult
	for _, group := range coarse.Groups {
		members := make([]dedup.AssetRecord, 0, len(group))
		for _, id := range group {
			record, ok := byID[id]
			if !ok {
				return dedup.ClusterResult{}, fmt.Errorf("coarse group references unknown asset %q", id)
			}
			members = append(members, record)
		}
		refined := dedup.BuildClusters(members, w)
		combined.Clusters = append(combined.Clusters, refined.Clusters...)
		combined.Unique = append(combined.Unique, refined.Unique...)
	}
	for _, id := range coarse.Unique {
		record, ok := byID[id]
		if !ok {
			return dedup.ClusterResult{}, fmt.Errorf("coarse unique references unknown asset %q", id)
		}
		combined.Unique = append(combined.Unique, record)
	}

	return combined, nil
}

// Suggestions scores the catalog at the looser suggestion threshold;
// threshold overrides the configured value when > 0. The result is
// advisory and never persisted.
func (s *Service) Suggestions(ctx context.Context, threshold float64) (dedup.ClusterResult, error) {
	if s == nil || s.pool == nil {
		return dedup.ClusterResult{}, fmt.Errorf("pipeline service is not initialized")
	}

	_, records, err := s.loadCorpus(ctx)
	if err != nil {
		return dedup.ClusterResult{}, err
	}
	return dedup.MergeSuggestions(records, suggestionWeights(s.weights, threshold)), nil
}

func suggestionWeights(w dedup.Weights, threshold float64) dedup.Weights {
	if threshold > 0 {
		w.SuggestionThreshold = threshold
	}
	return w
}

// Similar returns catalog records similar to one anchor asset.
func (s *Service) Similar(ctx context.Context, assetUUID string, minSimilarity float64) ([]dedup.SimilarityMatch, error) {
	if s == nil || s.pool == nil {
		return nil, fmt.Errorf("pipeline service is not initialized")
	}

	anchor, err := s.pool.GetAssetByUUID(ctx, assetUUID)
	if err != nil {
		return nil, err
	}
	target, err := recordFromAsset(anchor)
	if err != nil {
		return nil, err
	}

	_, records, err := s.loadCorpus(ctx)
	if err != nil {
		return nil, err
	}

	if minSimilarity <= 0 {
		minSimilarity = s.weights.SuggestionThreshold
	}
	return dedup.FindSimilar(target, records, minSimilarity, s.weights), nil
}

// ManualMerge executes a curator merge and persists the resulting cluster
// with its audit event.
func (s *Service) ManualMerge(ctx context.Context, req dedup.ManualMergeRequest) (dedup.DuplicateCluster, error) {
	if s == nil || s.pool == nil {
		return dedup.DuplicateCluster{}, fmt.Errorf("pipeline service is not initialized")
	}

	_, records, err := s.loadCorpus(ctx)
	if err != nil {
		return dedup.DuplicateCluster{}, err
	}

	cluster, err := dedup.ManualMerge(records, req)
	if err != nil {
		return dedup.DuplicateCluster{}, err
	}

	assetIDs, err := s.pool.ResolveExternalIDs(ctx, clusterMemberIDs(cluster))
	if err != nil {
		return dedup.DuplicateCluster{}, err
	}
	row, err := clusterForStorage(cluster, assetIDs, s.weights)
	if err != nil {
		return dedup.DuplicateCluster{}, err
	}

	var customTitle *string
	if req.CustomTitle != "" {
		value := req.CustomTitle
		customTitle = &value
	}

	if err := s.pool.SaveManualCluster(ctx, row, req.IDs, customTitle); err != nil {
		return dedup.DuplicateCluster{}, err
	}

	s.logger.Info().
		Str("cluster_uuid", cluster.ID).
		Str("primary", cluster.Primary.ID).
		Int("members", len(cluster.Duplicates)+1).
		Msg("manual merge persisted")

	return cluster, nil
}

// Stats reports catalog and detection run counters.
func (s *Service) Stats(ctx context.Context) (*db.CatalogStats, error) {
	if s == nil || s.pool == nil {
		return nil, fmt.Errorf("pipeline service is not initialized")
	}
	return s.pool.QueryCatalogStats(ctx)
}

// ListClusters lists persisted clusters, newest first.
func (s *Service) ListClusters(ctx context.Context, limit int) ([]db.ClusterSummary, error) {
	if s == nil || s.pool == nil {
		return nil, fmt.Errorf("pipeline service is not initialized")
	}
	return s.pool.ListClusters(ctx, limit)
}

// GetCluster loads one persisted cluster with members.
func (s *Service) GetCluster(ctx context.Context, clusterUUID string) (db.ClusterDetail, error) {
	if s == nil || s.pool == nil {
		return db.ClusterDetail{}, fmt.Errorf("pipeline service is not initialized")
	}
	return s.pool.GetClusterByUUID(ctx, clusterUUID)
}

func (s *Service) loadCorpus(ctx context.Context) ([]db.Asset, []dedup.AssetRecord, error) {
	assets, err := s.pool.ListActiveAssets(ctx)
	if err != nil {
		return nil, nil, err
	}

	records := make([]dedup.AssetRecord, 0, len(assets))
	for _, asset := range assets {
		record, err := recordFromAsset(asset)
		if err != nil {
			return nil, nil, err
		}
		records = append(records, record)
	}
	return assets, records, nil
}

// clusterMemberIDs lists a cluster's member external ids, primary first.
func clusterMemberIDs(cluster dedup.DuplicateCluster) []string {
	ids := make([]string, 0, len(cluster.Duplicates)+1)
	ids = append(ids, cluster.Primary.ID)
	for _, duplicate := range cluster.Duplicates {
		ids = append(ids, duplicate.ID)
	}
	return ids
}

func assetIDIndex(assets []db.Asset) map[string]int64 {
	ids := make(map[string]int64, len(assets))
	for _, asset := range assets {
		ids[asset.ExternalID] = asset.AssetID
	}
	return ids
}
