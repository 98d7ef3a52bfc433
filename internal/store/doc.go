// Package store holds AquaBoard's published snapshot and fans it out to
// subscribers.
//
// The main components are:
//
//   - [Store]: Interface defining storage and subscription operations
//   - [MemoryStore]: In-memory implementation of Store with pub/sub
//   - [Snapshot]: Status, message and window as shown to the dashboard
//
// The store is designed for concurrent access with proper synchronization.
// Subscribers receive updates via channels with non-blocking sends (slow
// subscribers will miss updates rather than block the poller).
//
// Users of the aquaboard library should not need to interact with this
// package directly. Storage is managed internally by AquaBoard.
package store
