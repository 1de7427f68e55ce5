package offload

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"horse.fit/curio/internal/dedup"
)

const (
	// Yield cadence: batch scoring emits progress every 100 comparisons,
	// clustering every 50. Cooperative only; one job runs at a time.
	similarityYieldEvery = 100
	clusterYieldEvery    = 50

	defaultQueueSize = 16
)

type job struct {
	req     Request
	replies chan Message
}

// Worker owns a single goroutine that drains submitted jobs in order.
// All replies for a job arrive on that job's own channel, which is
// closed after the terminal message.
type Worker struct {
	logger zerolog.Logger
	jobs   chan job
	done   chan struct{}
}

// NewWorker returns an unstarted worker.
func NewWorker(logger zerolog.Logger) *Worker {
	return &Worker{
		logger: logger,
		jobs:   make(chan job, defaultQueueSize),
		done:   make(chan struct{}),
	}
}

// Done is closed once the worker loop has exited; Submit fails after
// that point.
func (w *Worker) Done() <-chan struct{} {
	return w.done
}

// Start launches the worker loop; it exits when ctx is done. Jobs left
// in the queue at shutdown receive an error message.
func (w *Worker) Start(ctx context.Context) {
	go w.run(ctx)
}

func (w *Worker) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(w.done)
			w.drain()
			return
		case next := <-w.jobs:
			w.execute(next)
		}
	}
}

func (w *Worker) drain() {
	for {
		select {
		case next := <-w.jobs:
			next.replies <- Message{
				Kind:    MessageError,
				JobID:   next.req.JobID,
				Message: "worker shut down before job started",
			}
			close(next.replies)
		default:
			return
		}
	}
}

// Submit queues a request and returns the channel its replies arrive
// on. The payload is copied before the worker sees it, so the caller
// may keep mutating its own slices. A missing JobID is assigned.
func (w *Worker) Submit(ctx context.Context, req Request) (<-chan Message, error) {
	if req.JobID == "" {
		req.JobID = uuid.NewString()
	}
	req.Payload = clonePayload(req.Payload)

	// Checked first so a stopped worker refuses new jobs even while the
	// buffered queue still has room.
	select {
	case <-w.done:
		return nil, fmt.Errorf("submit job %s: worker stopped", req.JobID)
	default:
	}

	replies := make(chan Message, replyCapacity(req))
	select {
	case w.jobs <- job{req: req, replies: replies}:
		return replies, nil
	case <-w.done:
		return nil, fmt.Errorf("submit job %s: worker stopped", req.JobID)
	case <-ctx.Done():
		return nil, fmt.Errorf("submit job %s: %w", req.JobID, ctx.Err())
	}
}

// replyCapacity buffers every possible progress message plus the
// terminal one, so a slow caller can never wedge the worker.
func replyCapacity(req Request) int {
	n := len(req.Payload.Assets)
	comparisons := n * (n - 1) / 2
	yieldEvery := similarityYieldEvery
	if req.Task == TaskCluster {
		yieldEvery = clusterYieldEvery
	}
	return comparisons/yieldEvery + 4
}

func (w *Worker) execute(next job) {
	defer close(next.replies)
	defer func() {
		if recovered := recover(); recovered != nil {
			w.logger.Error().
				Str("job_id", next.req.JobID).
				Str("task_type", string(next.req.Task)).
				Interface("panic", recovered).
				Msg("offload task panicked")
			next.replies <- Message{
				Kind:    MessageError,
				JobID:   next.req.JobID,
				Message: fmt.Sprintf("task panicked: %v", recovered),
			}
		}
	}()

	var (
		data any
		err  error
	)
	switch next.req.Task {
	case TaskSimilarityBatch:
		data, err = w.runSimilarityBatch(next)
	case TaskCluster:
		data, err = w.runCluster(next)
	case TaskFingerprint:
		data, err = w.runFingerprint(next)
	default:
		err = fmt.Errorf("unknown task type %q", next.req.Task)
	}

	if err != nil {
		next.replies <- Message{
			Kind:    MessageError,
			JobID:   next.req.JobID,
			Message: err.Error(),
		}
		return
	}
	next.replies <- Message{
		Kind:  MessageResult,
		JobID: next.req.JobID,
		Data:  data,
	}
}

func (w *Worker) progress(next job, percent int) {
	next.replies <- Message{
		Kind:    MessageProgress,
		JobID:   next.req.JobID,
		Percent: percent,
	}
}

func (w *Worker) runSimilarityBatch(next job) (BatchSimilarityResult, error) {
	assets := next.req.Payload.Assets
	threshold := next.req.Payload.Threshold
	if threshold <= 0 {
		threshold = dedup.DefaultWeights().Threshold
	}

	sigs := make([]textSig, len(assets))
	for i, asset := range assets {
		sigs[i] = newTextSig(assetText(asset))
	}

	total := len(assets) * (len(assets) - 1) / 2
	result := BatchSimilarityResult{Comparisons: total}

	w.progress(next, 0)
	done := 0
	for i := 0; i < len(assets); i++ {
		for j := i + 1; j < len(assets); j++ {
			score := quickScore(sigs[i], sigs[j])
			if score >= threshold {
				result.Matches = append(result.Matches, BatchMatch{
					AssetA: assets[i].ID,
					AssetB: assets[j].ID,
					Score:  score,
				})
			}
			done++
			if done%similarityYieldEvery == 0 && done < total {
				w.progress(next, done*100/total)
			}
		}
	}
	w.progress(next, 100)
	return result, nil
}

func (w *Worker) runCluster(next job) (ClusterTaskResult, error) {
	assets := next.req.Payload.Assets
	threshold := next.req.Payload.Threshold
	if threshold <= 0 {
		threshold = dedup.DefaultWeights().Threshold
	}

	sigs := make([]textSig, len(assets))
	for i, asset := range assets {
		sigs[i] = newTextSig(assetText(asset))
	}

	parent := map[string]string{}
	find := func(id string) string {
		if _, ok := parent[id]; !ok {
			parent[id] = id
		}
		root := id
		for parent[root] != root {
			root = parent[root]
		}
		for parent[id] != root {
			id, parent[id] = parent[id], root
		}
		return root
	}

	total := len(assets) * (len(assets) - 1) / 2
	w.progress(next, 0)
	done := 0
	for i := 0; i < len(assets); i++ {
		for j := i + 1; j < len(assets); j++ {
			if quickScore(sigs[i], sigs[j]) >= threshold {
				parent[find(assets[i].ID)] = find(assets[j].ID)
			}
			done++
			if done%clusterYieldEvery == 0 && done < total {
				w.progress(next, done*100/total)
			}
		}
	}

	groupOf := map[string][]string{}
	var rootOrder []string
	for _, asset := range assets {
		root := find(asset.ID)
		if _, seen := groupOf[root]; !seen {
			rootOrder = append(rootOrder, root)
		}
		groupOf[root] = append(groupOf[root], asset.ID)
	}

	result := ClusterTaskResult{}
	for _, root := range rootOrder {
		members := groupOf[root]
		if len(members) < 2 {
			result.Unique = append(result.Unique, members[0])
			continue
		}
		result.Groups = append(result.Groups, members)
	}

	w.progress(next, 100)
	return result, nil
}

func (w *Worker) runFingerprint(next job) (FingerprintResult, error) {
	texts := next.req.Payload.Texts
	result := FingerprintResult{Fingerprints: make([]uint64, len(texts))}
	for i, text := range texts {
		fingerprint, _ := Fingerprint(text)
		result.Fingerprints[i] = fingerprint
	}
	return result, nil
}

func assetText(asset dedup.AssetRecord) string {
	if asset.Description == "" {
		return asset.Title
	}
	return asset.Title + " " + asset.Description
}

func clonePayload(payload TaskPayload) TaskPayload {
	cloned := TaskPayload{Threshold: payload.Threshold}
	if len(payload.Assets) > 0 {
		cloned.Assets = make([]dedup.AssetRecord, len(payload.Assets))
		copy(cloned.Assets, payload.Assets)
		for i := range cloned.Assets {
			cloned.Assets[i].Entities = append([]string(nil), cloned.Assets[i].Entities...)
			cloned.Assets[i].Keywords = append([]string(nil), cloned.Assets[i].Keywords...)
			if cloned.Assets[i].Location != nil {
				location := *cloned.Assets[i].Location
				cloned.Assets[i].Location = &location
			}
		}
	}
	if len(payload.Texts) > 0 {
		cloned.Texts = append([]string(nil), payload.Texts...)
	}
	return cloned
}
