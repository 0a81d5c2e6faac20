// Package runner supervises the external acquisition tool: one child process
// at a time, launched in its own process group, with merged output streamed
// line by line and a graceful-then-forced termination sequence covering the
// whole group.
package runner
