// Package http implements the HTTP handlers of the SPC service.
//
// Handlers only parse requests and render responses; every rule lives in
// the services and ingestion packages. Errors are rendered as RFC 7807
// problem details by the shared ErrorHandler:
//
//	GET  /api/health
//	GET  /api/health/ready
//	GET  /api/spc/parameters
//	GET  /api/spc/selections
//	GET  /api/spc/chart?part_number=&parameter=&month=YYYY-MM
//	GET  /api/spc/chart/export?part_number=&parameter=&month=YYYY-MM
//	POST /api/spc/ingest
package http
