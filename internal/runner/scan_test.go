package runner

import (
	"bufio"
	"strings"
	"testing"
)

func scanAll(t *testing.T, input string) []string {
	t.Helper()
	scanner := bufio.NewScanner(strings.NewReader(input))
	scanner.Split(scanConsoleLines)
	var out []string
	for scanner.Scan() {
		out = append(out, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}
	return out
}

func TestScanConsoleLines(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  []string
	}{
		{"newlines", "a\nb\nc\n", []string{"a", "b", "c"}},
		{"carriage returns", "10%\r20%\r30%\r", []string{"10%", "20%", "30%"}},
		{"crlf", "a\r\nb\r\n", []string{"a", "b"}},
		{"mixed", "start\n10%\r20%\rdone\n", []string{"start", "10%", "20%", "done"}},
		{"no trailing terminator", "tail", []string{"tail"}},
		{"empty segments", "\n\r\n", []string{"", ""}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := scanAll(t, tc.input)
			if len(got) != len(tc.want) {
				t.Fatalf("got %d tokens %q, want %d %q", len(got), got, len(tc.want), tc.want)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Fatalf("token %d = %q, want %q", i, got[i], tc.want[i])
				}
			}
		})
	}
}
