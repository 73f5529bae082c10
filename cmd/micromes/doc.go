// Command micromes ingests quality-inspection workbooks into the
// measurement store and builds X-bar/R control charts from it.
//
//	micromes ingest                  process every workbook in the intake directory
//	micromes params                  list the parameter registry
//	micromes selections              list chartable part numbers, parameters and months
//	micromes chart -p PN -m NAME     compute a control chart (optionally --month, --export)
//	micromes serve                   run the HTTP API and WebSocket progress feed
//
// Every command accepts --config; otherwise $MES_CONFIG, config.yaml and
// configs/config.yaml are tried before falling back to defaults.
package main
