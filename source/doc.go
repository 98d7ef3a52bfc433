// Package source defines how AquaBoard reads raw readings from a
// time-series store.
//
// A [Source] runs one range query per [Request] and returns the matching
// readings as a lazily consumed [Rows] stream. The poller drains the stream
// through [series.Pivot] via [Collect], so rows are never buffered in full.
//
// [Influx] is the production implementation for InfluxDB 2.x and InfluxDB
// Cloud. Tests and the example program use [Func] and [NewRows] to supply
// readings without a server.
//
// Connection settings are plain values. [Connection.Validate] reports
// missing or malformed settings as a [*ConfigError]; a poller never calls a
// Source while its connection is invalid.
package source
