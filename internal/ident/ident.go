// Package ident canonicalizes asset keys shared by the CLI, HTTP API, and
// orchestrator. A key names exactly one asset and doubles as the task
// directory name under the output root, so normalization also rejects input
// that could escape that directory.
package ident

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ErrEmptyKey reports blank input.
var ErrEmptyKey = errors.New("asset key is empty")

var upper = cases.Upper(language.Und)

// Normalize trims and upper-cases an asset key into its canonical form.
func Normalize(key string) (string, error) {
	trimmed := strings.TrimSpace(key)
	if trimmed == "" {
		return "", ErrEmptyKey
	}
	if strings.ContainsAny(trimmed, "/\\") || trimmed == "." || trimmed == ".." {
		return "", fmt.Errorf("asset key %q contains path separators", trimmed)
	}
	for _, r := range trimmed {
		if r < ' ' || r == 0x7f {
			return "", fmt.Errorf("asset key %q contains control characters", trimmed)
		}
	}
	return upper.String(trimmed), nil
}

// NormalizeBatch splits newline-separated input into canonical keys,
// de-duplicating while preserving first-seen order. Blank lines are skipped.
// An error is returned when no valid key remains.
func NormalizeBatch(input string) ([]string, error) {
	seen := make(map[string]struct{})
	var keys []string
	for _, line := range strings.Split(input, "\n") {
		key, err := Normalize(line)
		if err != nil {
			if errors.Is(err, ErrEmptyKey) {
				continue
			}
			return nil, err
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}
	if len(keys) == 0 {
		return nil, ErrEmptyKey
	}
	return keys, nil
}
