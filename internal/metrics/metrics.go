// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Gateway operation labels.
const (
	OpListTransactions = "list_transactions"
	OpCreateLink       = "create_link"
	OpDeleteLink       = "delete_link"
)

// Auth outcome labels.
const (
	StatusSuccess   = "success"
	StatusFailed    = "failed"
	StatusDuplicate = "duplicate"
)

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus, StatsD, etc.
type Recorder interface {
	// Auth metrics
	IncSignup(status string) // status: "success" or "duplicate"
	IncSignin(status string) // status: "success" or "failed"

	// Profile cache metrics
	IncProfileCacheHit()
	IncProfileCacheMiss()

	// Account management metrics
	IncAccountCreated()
	IncAccountUpdated()
	IncAccountDeleted()

	// Upstream gateway metrics
	IncUpstreamFailure(op string)
	ObserveUpstreamDuration(op string, duration time.Duration)
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
