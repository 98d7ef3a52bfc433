// Package dashboard holds the single-page AquaBoard UI, embedded at compile
// time and served by the server package at "/".
//
// The page offers four views of the series window:
//
//   - total: every field on one combined chart
//   - individual: one chart per field
//   - all: the combined chart above the per-field charts
//   - table: timestamped rows with N/A for absent readings, from /api/table
//
// The chart views draw from /api/series.
//
// Field labels, units and colors come from /api/fields. The page redraws on
// every /api/sse event and its refresh button posts to /api/refresh.
package dashboard

import "embed"

// Assets holds assets/index.html, a self-contained page (Chart.js from a
// CDN, inline CSS and JavaScript) whose {{.Title}} placeholders the server
// fills in.
//
//go:embed assets/*
var Assets embed.FS
