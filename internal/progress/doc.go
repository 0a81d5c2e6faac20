// Package progress maps unstructured acquisition-tool console output to
// integer percentages and flags the stuck-lock anomaly. It is pure string
// processing: no I/O, no state beyond the caller-supplied previous percent.
package progress
