// Package server provides the HTTP server for the AquaBoard dashboard and API.
//
// This package is internal to AquaBoard and handles all HTTP concerns:
//
//   - Dashboard serving: Serves the embedded HTML/CSS/JS dashboard at "/"
//   - REST API: JSON views of the current window under "/api"
//   - Server-Sent Events: Real-time status updates at "/api/sse"
//   - Operations: "/healthz" and Prometheus "/metrics"
//
// Routing uses gorilla/mux; gorilla/handlers provides panic recovery, CORS
// for the API and request logging. The server supports graceful shutdown
// via context cancellation, with a 5-second timeout for in-flight requests.
//
// Users of the aquaboard library should not need to interact with this
// package directly. The server is started automatically by [aquaboard.AquaBoard.Start].
package server
