package main

import (
	"strings"
	"testing"
	"time"

	"nassav/internal/testsupport"
)

func TestShowListsQueuedTasks(t *testing.T) {
	socket := startTestDaemon(t)

	if _, _, err := runCLI(t, []string{"fetch", "abc-123"}, socket); err != nil {
		t.Fatalf("fetch: %v", err)
	}

	testsupport.WaitFor(t, 10*time.Second, func() bool {
		out, _, err := runCLI(t, []string{"show"}, socket)
		return err == nil && strings.Contains(out, "done")
	}, "task never reached done in show output")

	out, _, err := runCLI(t, []string{"show"}, socket)
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	requireContains(t, out, "ID")
	requireContains(t, out, "KEY")
	requireContains(t, out, "ABC-123")
}

func TestShowNoTasks(t *testing.T) {
	socket := startTestDaemon(t)
	out, _, err := runCLI(t, []string{"show"}, socket)
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	requireContains(t, out, "No tasks")
}

func TestShowUnknownTask(t *testing.T) {
	socket := startTestDaemon(t)
	if _, _, err := runCLI(t, []string{"show", "missing"}, socket); err == nil {
		t.Fatal("expected an error for an unknown task id")
	}
}
