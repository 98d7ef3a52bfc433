package store

import (
	"time"

	"github.com/jpalmerr/aquaboard/series"
)

// Snapshot is the published state of the dashboard: the latest status and
// the window it refers to.
//
// Snapshot is the storage representation used by the REST API and SSE. It
// is decoupled from the poller's outcome type to allow independent
// evolution.
type Snapshot struct {
	// Status is the presentation status ("loading", "ready", "empty",
	// "config_error" or "query_error").
	Status string `json:"status"`

	// Message is a human-readable description of Status.
	Message string `json:"message"`

	// Retryable reports whether the poller will retry on its own.
	Retryable bool `json:"retryable"`

	// Window is the current series window. Served separately from the
	// status summary.
	Window series.Window `json:"-"`

	// Samples is the number of samples in Window.
	Samples int `json:"samples"`

	// Latest is the most recent sample, if any.
	Latest *series.Sample `json:"latest,omitempty"`

	// FetchedAt is when the last fetch was issued. nil before the first
	// fetch and after config errors.
	FetchedAt *time.Time `json:"fetched_at"`

	// UpdatedAt is when the snapshot was stored.
	UpdatedAt time.Time `json:"updated_at"`

	// FetchID identifies the fetch that produced the snapshot.
	FetchID string `json:"fetch_id,omitempty"`

	// Error contains the error message for the error statuses.
	Error *string `json:"error"`
}

// Store defines the interface for storing and subscribing to snapshots.
//
// Store implementations must be safe for concurrent access. The pub/sub
// mechanism allows real-time updates to be pushed to connected clients
// (e.g., via Server-Sent Events).
type Store interface {
	// Update replaces the current snapshot and notifies all subscribers.
	Update(snapshot Snapshot)

	// Get returns the current snapshot.
	Get() Snapshot

	// Subscribe returns a channel that receives snapshot updates.
	// The returned channel has a buffer; slow consumers may miss updates.
	// Caller must call Unsubscribe when done to prevent resource leaks.
	Subscribe() <-chan Snapshot

	// Unsubscribe removes a subscription and closes the channel.
	// Safe to call with a channel that was already unsubscribed.
	Unsubscribe(ch <-chan Snapshot)
}
