package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/curio/internal/dedup"
	"horse.fit/curio/internal/offload"
)

func TestSuggestionWeights(t *testing.T) {
	t.Parallel()

	base := dedup.DefaultWeights()
	base.SuggestionThreshold = 0.35

	if got := suggestionWeights(base, 0.6).SuggestionThreshold; got != 0.6 {
		t.Fatalf("expected override to apply, got %f", got)
	}
	if got := suggestionWeights(base, 0).SuggestionThreshold; got != 0.35 {
		t.Fatalf("zero override must keep the configured threshold, got %f", got)
	}
}

func TestClusterMemberIDs(t *testing.T) {
	t.Parallel()

	cluster := dedup.DuplicateCluster{
		Primary: dedup.AssetRecord{ID: "ASSET-1"},
		Duplicates: []dedup.AssetRecord{
			{ID: "ASSET-2"},
			{ID: "ASSET-3"},
		},
	}

	ids := clusterMemberIDs(cluster)
	if len(ids) != 3 {
		t.Fatalf("expected three member ids, got %v", ids)
	}
	if ids[0] != "ASSET-1" {
		t.Fatalf("primary must come first, got %v", ids)
	}
	if ids[1] != "ASSET-2" || ids[2] != "ASSET-3" {
		t.Fatalf("duplicates out of order: %v", ids)
	}
}

func TestClusterOffloadedFailsAfterWorkerShutdown(t *testing.T) {
	t.Parallel()

	workerCtx, cancel := context.WithCancel(context.Background())
	worker := offload.NewWorker(zerolog.Nop())
	worker.Start(workerCtx)
	cancel()

	select {
	case <-worker.Done():
	case <-time.After(5 * time.Second):
		t.Fatalf("worker did not stop after cancellation")
	}

	svc := &Service{logger: zerolog.Nop(), weights: dedup.DefaultWeights(), worker: worker}
	records := []dedup.AssetRecord{
		{ID: "a", Title: "Fountain dedication"},
		{ID: "b", Title: "Fountain dedication"},
	}

	if _, err := svc.clusterOffloaded(context.Background(), records, svc.weights); err == nil {
		t.Fatalf("expected coarse clustering to fail once the worker stopped")
	}
}

func TestClusterOffloadedStopsWhenContextExpires(t *testing.T) {
	t.Parallel()

	// An unstarted worker accepts the job into its buffer but never
	// replies; the receive loop must bail out on the context instead of
	// blocking forever.
	worker := offload.NewWorker(zerolog.Nop())
	svc := &Service{logger: zerolog.Nop(), weights: dedup.DefaultWeights(), worker: worker}
	records := []dedup.AssetRecord{
		{ID: "a", Title: "Fountain dedication"},
		{ID: "b", Title: "Fountain dedication"},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := svc.clusterOffloaded(ctx, records, svc.weights)
	if err == nil {
		t.Fatalf("expected coarse clustering to stop when the context expires")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
}
