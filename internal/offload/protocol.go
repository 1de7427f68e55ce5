// Package offload runs the expensive O(n²) comparison work in an
// isolated worker reachable only through typed request/reply messages,
// so large batch corpora never block the caller's control flow.
//
// The worker carries its own copies of the text primitives and a
// from-scratch union-find, plus a deliberately cheaper three-way blended
// score used for triage only — it is not the authoritative scorer in
// package dedup and the two must not be unified.
//
// The protocol has no cancel message: a caller may stop reading a job's
// reply channel, but the worker finishes the CPU work regardless.
package offload

import "horse.fit/curio/internal/dedup"

// TaskType names the work a request asks for.
type TaskType string

const (
	TaskSimilarityBatch TaskType = "similarity_batch"
	TaskCluster         TaskType = "cluster"
	TaskFingerprint     TaskType = "fingerprint"
)

// MessageKind discriminates worker replies.
type MessageKind string

const (
	MessageProgress MessageKind = "progress"
	MessageResult   MessageKind = "result"
	MessageError    MessageKind = "error"
)

// Message is one worker reply. A job sees zero or more progress
// messages followed by exactly one result or error.
type Message struct {
	Kind    MessageKind `json:"kind"`
	JobID   string      `json:"job_id"`
	Percent int         `json:"percent,omitempty"`
	Data    any         `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

// Request is one unit of work submitted to the worker. Payloads are
// copied across the channel boundary; the worker never aliases caller
// memory.
type Request struct {
	Task    TaskType    `json:"task_type"`
	JobID   string      `json:"job_id"`
	Payload TaskPayload `json:"payload"`
}

// TaskPayload carries the inputs for any task type; unused fields stay
// zero.
type TaskPayload struct {
	Assets    []dedup.AssetRecord `json:"assets,omitempty"`
	Threshold float64             `json:"threshold,omitempty"`
	Texts     []string            `json:"texts,omitempty"`
}

// BatchMatch is one above-threshold pair from a similarity batch.
type BatchMatch struct {
	AssetA string  `json:"asset_a"`
	AssetB string  `json:"asset_b"`
	Score  float64 `json:"score"`
}

// BatchSimilarityResult is the terminal payload of a similarity batch.
type BatchSimilarityResult struct {
	Matches     []BatchMatch `json:"matches"`
	Comparisons int          `json:"comparisons"`
}

// ClusterTaskResult is the terminal payload of a clustering task:
// duplicate groups as ordered member-id lists plus unmatched ids.
type ClusterTaskResult struct {
	Groups [][]string `json:"groups"`
	Unique []string   `json:"unique"`
}

// FingerprintResult carries one simhash fingerprint per input text, in
// input order.
type FingerprintResult struct {
	Fingerprints []uint64 `json:"fingerprints"`
}
