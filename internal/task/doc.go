// Package task defines the task record model and the in-memory store that
// tracks every acquisition request from enqueue to terminal state.
package task
