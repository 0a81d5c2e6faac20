// Package daemon hosts the long-running nassav process: single-instance
// locking, persisted state restore, the orchestrator lifecycle, and the HTTP
// API with its server-sent event streams.
package daemon
