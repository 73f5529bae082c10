// Package app wires the micromes components together and owns their
// lifecycle.
//
// New builds everything from a loaded configuration: logger, telemetry,
// parameter registry, measurement store, ingestion service, chart service
// and the HTTP router. One-shot CLI commands use the services directly
// and Close the application; the serve command calls Serve, which runs
// the HTTP server until the context is cancelled and then shuts down
// gracefully.
//
// # Routes
//
//	GET  /api/health               liveness
//	GET  /api/health/ready         readiness (database ping)
//	GET  /api/spc/parameters       registry entries
//	GET  /api/spc/selections       chartable part numbers and months
//	GET  /api/spc/chart            X-bar/R control chart as JSON
//	GET  /api/spc/chart/export     the same chart as an xlsx workbook
//	POST /api/spc/ingest           run one ingestion batch
//	GET  /ws                       ingestion progress events
//	GET  /metrics                  Prometheus metrics
package app
