// Package services implements the application layer between the HTTP/CLI
// surfaces and the SPC core.
//
// ChartService answers what can be charted (Selections), builds charts
// with request validation (Chart) and exports them (ExportChart).
// HealthService backs the liveness and readiness endpoints.
//
// Services accept small interfaces so handlers and tests can substitute
// the store and engine:
//
//	svc := services.NewChartService(engine, store, registry, metrics, logger)
//	chart, err := svc.Chart(ctx, domain.ChartRequest{PartNumber: pn, Parameter: name})
package services
