// Package websocket pushes ingestion progress to browser clients.
//
// A Hub fans messages out to connected clients; it implements the
// ingestion ProgressPublisher so a running batch can report each file.
// Handler upgrades GET /ws requests and registers the client.
package websocket
