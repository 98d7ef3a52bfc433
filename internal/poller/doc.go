// Package poller periodically fetches a time-series window for AquaBoard.
//
// A [Poller] runs one range query against a [source.Source] every polling
// interval, pivots the returned rows into samples and merges them into an
// immutable [series.Window]. Every fetch produces an [Outcome]:
//
//   - [KindSuccess]: at least one sample was kept; a new window is published
//   - [KindEmpty]: the query worked but nothing usable was in range
//   - [KindConfigError]: the connection is incomplete; no query is issued
//     and the loop stops until the poller is reconfigured and restarted
//   - [KindQueryError]: the query failed or timed out; retried on the next tick
//
// At most one fetch runs at a time. The timer and any number of callers of
// [Poller.FetchOnce] share the in-flight fetch. [Poller.Stop] guarantees that
// no outcome is delivered after it returns, even if a fetch was in flight.
//
// Users of the aquaboard library should not need to interact with this
// package directly. Configuration is done through the main aquaboard package.
package poller
