package fileutil_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"nassav/internal/fileutil"
)

func writeFile(t *testing.T, path string, size int) {
	t.Helper()
	if err := os.WriteFile(path, make([]byte, size), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestFindArtifactPrefersConventionalName(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "ABC-123.mp4"), 10)
	writeFile(t, filepath.Join(dir, "bigger.mkv"), 1000)

	got := fileutil.FindArtifact(dir, "ABC-123")
	if got != filepath.Join(dir, "ABC-123.mp4") {
		t.Fatalf("expected conventional artifact, got %q", got)
	}
}

func TestFindArtifactFallsBackToLargestVideo(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "part1.ts"), 100)
	writeFile(t, filepath.Join(dir, "final.mkv"), 5000)
	writeFile(t, filepath.Join(dir, "notes.txt"), 9000)

	got := fileutil.FindArtifact(dir, "ABC-123")
	if got != filepath.Join(dir, "final.mkv") {
		t.Fatalf("expected largest video file, got %q", got)
	}
}

func TestFindArtifactEmptyDir(t *testing.T) {
	if got := fileutil.FindArtifact(t.TempDir(), "KEY"); got != "" {
		t.Fatalf("expected empty result, got %q", got)
	}
}

func TestWaitForArtifactSeesLateFile(t *testing.T) {
	dir := t.TempDir()
	go func() {
		time.Sleep(30 * time.Millisecond)
		_ = os.WriteFile(filepath.Join(dir, "KEY.mp4"), []byte("x"), 0o644)
	}()

	got := fileutil.WaitForArtifact(context.Background(), dir, "KEY", time.Second, 10*time.Millisecond)
	if got == "" {
		t.Fatal("expected artifact to appear within deadline")
	}
}

func TestWithinRoot(t *testing.T) {
	cases := []struct {
		root, path string
		want       bool
	}{
		{"/data/out", "/data/out/ABC", true},
		{"/data/out", "/data/out/ABC/file.mp4", true},
		{"/data/out", "/data/out", false},
		{"/data/out", "/data/out-x/ABC", false},
		{"/data/out", "/data/other", false},
		{"/data/out", "/data/out/../other", false},
		{"/", "/anything", false},
		{"", "/anything", false},
	}
	for _, tc := range cases {
		if got := fileutil.WithinRoot(tc.root, tc.path); got != tc.want {
			t.Fatalf("WithinRoot(%q, %q) = %v, want %v", tc.root, tc.path, got, tc.want)
		}
	}
}

func TestRemoveTaskDirRefusesOutsideRoot(t *testing.T) {
	outside := t.TempDir()
	if _, err := fileutil.RemoveTaskDir("/data/out", outside); err == nil {
		t.Fatal("expected refusal for outside path")
	}
	if _, err := os.Stat(outside); err != nil {
		t.Fatalf("outside dir should survive: %v", err)
	}
}

func TestRemoveTaskDirRemovesInsideRoot(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "ABC-123")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeFile(t, filepath.Join(dir, "partial.ts"), 10)

	removed, err := fileutil.RemoveTaskDir(root, dir)
	if err != nil {
		t.Fatalf("RemoveTaskDir failed: %v", err)
	}
	if !removed {
		t.Fatal("expected removal")
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Fatal("directory should be gone")
	}

	removed, err = fileutil.RemoveTaskDir(root, dir)
	if err != nil || removed {
		t.Fatalf("second removal should be a no-op, removed=%v err=%v", removed, err)
	}
}
