package offload

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/curio/internal/dedup"
)

func startTestWorker(t *testing.T) (*Worker, context.Context) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	w := NewWorker(zerolog.Nop())
	w.Start(ctx)
	return w, ctx
}

func collectReplies(t *testing.T, replies <-chan Message) []Message {
	t.Helper()
	var messages []Message
	deadline := time.After(30 * time.Second)
	for {
		select {
		case message, ok := <-replies:
			if !ok {
				return messages
			}
			messages = append(messages, message)
		case <-deadline:
			t.Fatalf("timed out waiting for worker replies")
		}
	}
}

func TestWorker_SimilarityBatchProgress(t *testing.T) {
	t.Parallel()

	w, ctx := startTestWorker(t)

	assets := make([]dedup.AssetRecord, 1000)
	for i := range assets {
		assets[i] = dedup.AssetRecord{
			ID:    fmt.Sprintf("asset-%d", i),
			Title: fmt.Sprintf("Catalog item %d from shelf %d", i, i%37),
		}
	}

	replies, err := w.Submit(ctx, Request{
		Task:    TaskSimilarityBatch,
		Payload: TaskPayload{Assets: assets, Threshold: 0.9},
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	messages := collectReplies(t, replies)
	if len(messages) < 3 {
		t.Fatalf("expected progress stream plus terminal message, got %d messages", len(messages))
	}

	terminal := messages[len(messages)-1]
	if terminal.Kind != MessageResult {
		t.Fatalf("expected terminal result, got %+v", terminal)
	}
	if terminal.JobID == "" {
		t.Fatalf("expected assigned job id")
	}

	progress := messages[:len(messages)-1]
	if progress[0].Percent != 0 {
		t.Fatalf("expected progress to start at 0, got %d", progress[0].Percent)
	}
	if progress[len(progress)-1].Percent != 100 {
		t.Fatalf("expected progress to end at 100, got %d", progress[len(progress)-1].Percent)
	}
	for i, message := range progress {
		if message.Kind != MessageProgress {
			t.Fatalf("unexpected non-progress message before terminal: %+v", message)
		}
		if message.JobID != terminal.JobID {
			t.Fatalf("progress job id mismatch: %q vs %q", message.JobID, terminal.JobID)
		}
		if i > 0 && message.Percent < progress[i-1].Percent {
			t.Fatalf("progress regressed at index %d: %d -> %d", i, progress[i-1].Percent, message.Percent)
		}
	}

	result, ok := terminal.Data.(BatchSimilarityResult)
	if !ok {
		t.Fatalf("unexpected result payload type %T", terminal.Data)
	}
	if result.Comparisons != 1000*999/2 {
		t.Fatalf("unexpected comparison count: %d", result.Comparisons)
	}
}

func TestWorker_SimilarityBatchFindsNearDuplicates(t *testing.T) {
	t.Parallel()

	w, ctx := startTestWorker(t)

	assets := []dedup.AssetRecord{
		{ID: "a", Title: "Grand Opening Ceremony 1950"},
		{ID: "b", Title: "Grand Opening Ceremony 1950"},
		{ID: "c", Title: "Chemistry Laboratory Interior"},
	}

	replies, err := w.Submit(ctx, Request{
		Task:    TaskSimilarityBatch,
		JobID:   "batch-1",
		Payload: TaskPayload{Assets: assets, Threshold: 0.8},
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	messages := collectReplies(t, replies)
	terminal := messages[len(messages)-1]
	result, ok := terminal.Data.(BatchSimilarityResult)
	if !ok {
		t.Fatalf("unexpected result payload type %T", terminal.Data)
	}
	if len(result.Matches) != 1 {
		t.Fatalf("expected exactly the identical pair, got %+v", result.Matches)
	}
	if result.Matches[0].AssetA != "a" || result.Matches[0].AssetB != "b" {
		t.Fatalf("unexpected matched pair: %+v", result.Matches[0])
	}
	if result.Matches[0].Score < 0.999 {
		t.Fatalf("identical titles should triage to ~1.0, got %f", result.Matches[0].Score)
	}
}

func TestWorker_ClusterTask(t *testing.T) {
	t.Parallel()

	w, ctx := startTestWorker(t)

	assets := []dedup.AssetRecord{
		{ID: "a", Title: "Fountain dedication crowd photograph"},
		{ID: "b", Title: "Fountain dedication crowd photograph"},
		{ID: "c", Title: "Fountain dedication crowd"},
		{ID: "d", Title: "Chemistry laboratory bench"},
	}

	replies, err := w.Submit(ctx, Request{
		Task:    TaskCluster,
		JobID:   "cluster-1",
		Payload: TaskPayload{Assets: assets, Threshold: 0.5},
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	messages := collectReplies(t, replies)
	terminal := messages[len(messages)-1]
	if terminal.Kind != MessageResult {
		t.Fatalf("expected result, got %+v", terminal)
	}
	result, ok := terminal.Data.(ClusterTaskResult)
	if !ok {
		t.Fatalf("unexpected result payload type %T", terminal.Data)
	}
	if len(result.Groups) != 1 {
		t.Fatalf("expected one duplicate group, got %+v", result.Groups)
	}
	if len(result.Groups[0]) != 3 {
		t.Fatalf("expected three grouped assets, got %v", result.Groups[0])
	}
	if len(result.Unique) != 1 || result.Unique[0] != "d" {
		t.Fatalf("expected d unique, got %v", result.Unique)
	}

	// every asset appears exactly once across groups and unique
	seen := map[string]int{}
	for _, group := range result.Groups {
		for _, id := range group {
			seen[id]++
		}
	}
	for _, id := range result.Unique {
		seen[id]++
	}
	for _, asset := range assets {
		if seen[asset.ID] != 1 {
			t.Fatalf("asset %q appears %d times", asset.ID, seen[asset.ID])
		}
	}
}

func TestWorker_FingerprintTask(t *testing.T) {
	t.Parallel()

	w, ctx := startTestWorker(t)

	replies, err := w.Submit(ctx, Request{
		Task: TaskFingerprint,
		Payload: TaskPayload{Texts: []string{
			"Grand Opening Ceremony 1950",
			"Grand Opening Ceremony 1950",
			"Chemistry Laboratory Interior",
		}},
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	messages := collectReplies(t, replies)
	terminal := messages[len(messages)-1]
	result, ok := terminal.Data.(FingerprintResult)
	if !ok {
		t.Fatalf("unexpected result payload type %T", terminal.Data)
	}
	if len(result.Fingerprints) != 3 {
		t.Fatalf("expected three fingerprints, got %d", len(result.Fingerprints))
	}
	if HammingDistance(result.Fingerprints[0], result.Fingerprints[1]) != 0 {
		t.Fatalf("identical texts must fingerprint identically")
	}
	if HammingDistance(result.Fingerprints[0], result.Fingerprints[2]) == 0 {
		t.Fatalf("unrelated texts should not collide")
	}
}

func TestWorker_UnknownTaskReportsError(t *testing.T) {
	t.Parallel()

	w, ctx := startTestWorker(t)

	replies, err := w.Submit(ctx, Request{Task: TaskType("bogus"), JobID: "job-x"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	messages := collectReplies(t, replies)
	if len(messages) != 1 {
		t.Fatalf("expected single error message, got %d", len(messages))
	}
	if messages[0].Kind != MessageError || messages[0].JobID != "job-x" {
		t.Fatalf("unexpected error message: %+v", messages[0])
	}

	// a failed job must not poison the worker
	replies, err = w.Submit(ctx, Request{
		Task:    TaskFingerprint,
		Payload: TaskPayload{Texts: []string{"still alive"}},
	})
	if err != nil {
		t.Fatalf("submit after error: %v", err)
	}
	messages = collectReplies(t, replies)
	if messages[len(messages)-1].Kind != MessageResult {
		t.Fatalf("worker did not recover after error: %+v", messages)
	}
}

func TestWorker_PayloadCopied(t *testing.T) {
	t.Parallel()

	w, ctx := startTestWorker(t)

	assets := []dedup.AssetRecord{
		{ID: "a", Title: "Fountain"},
		{ID: "b", Title: "Fountain"},
	}
	replies, err := w.Submit(ctx, Request{
		Task:    TaskSimilarityBatch,
		Payload: TaskPayload{Assets: assets, Threshold: 0.5},
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	// mutating the caller's slice after submit must not affect the job
	assets[1].ID = "mutated"
	assets[1].Title = "something else entirely"

	messages := collectReplies(t, replies)
	result, ok := messages[len(messages)-1].Data.(BatchSimilarityResult)
	if !ok {
		t.Fatalf("unexpected result payload type %T", messages[len(messages)-1].Data)
	}
	if len(result.Matches) != 1 || result.Matches[0].AssetB != "b" {
		t.Fatalf("worker observed caller mutation: %+v", result.Matches)
	}
}

func TestWorker_SubmitFailsAfterShutdown(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	w := NewWorker(zerolog.Nop())
	w.Start(ctx)
	cancel()

	select {
	case <-w.Done():
	case <-time.After(5 * time.Second):
		t.Fatalf("worker did not stop after cancellation")
	}

	// The queue buffer still has room; a stopped worker must refuse the
	// job instead of stranding a reply channel nobody will serve.
	if _, err := w.Submit(context.Background(), Request{
		Task:    TaskFingerprint,
		Payload: TaskPayload{Texts: []string{"bronze plaque"}},
	}); err == nil {
		t.Fatalf("expected submit to fail after the worker stopped")
	}
}

func TestQuickScore_IsNotTheAuthoritativeScorer(t *testing.T) {
	t.Parallel()

	// The triage score only blends three lexical overlaps; entity and
	// geo signals that move the authoritative scorer must not move it.
	a := newTextSig("Fountain dedication")
	b := newTextSig("Fountain dedication")
	if score := quickScore(a, b); score < 0.999 {
		t.Fatalf("identical text should triage to ~1.0, got %f", score)
	}

	c := newTextSig("Completely different words here")
	if score := quickScore(a, c); score != 0 {
		t.Fatalf("disjoint text should triage to 0, got %f", score)
	}
}
