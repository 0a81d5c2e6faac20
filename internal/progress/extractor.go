package progress

import (
	"regexp"
	"strconv"
	"strings"
)

// RunningCap is the highest percent shown while the child process is alive.
// Completion is only declared after the exit code and artifact are verified,
// so a "100%" console line must not look finished to observers.
const RunningCap = 99

// SynthCeiling bounds the synthesized one-point increments used during
// phases with no machine-readable progress output.
const SynthCeiling = 95

var (
	ratioPattern   = regexp.MustCompile(`(\d+)\s*/\s*(\d+)`)
	percentPattern = regexp.MustCompile(`(\d{1,3})\s*%`)
)

// Extract searches one cleaned line of tool output for an explicit progress
// value. A count/total ratio takes priority over a bare percentage. The
// second return reports whether either pattern matched.
func Extract(line string) (int, bool) {
	if m := ratioPattern.FindStringSubmatch(line); m != nil {
		count, err1 := strconv.Atoi(m[1])
		total, err2 := strconv.Atoi(m[2])
		if err1 == nil && err2 == nil && total > 0 {
			// Round to nearest so 173/1731 reads as 10, not 9.
			return clamp((count*100 + total/2) / total), true
		}
	}
	if m := percentPattern.FindStringSubmatch(line); m != nil {
		if value, err := strconv.Atoi(m[1]); err == nil {
			return clamp(value), true
		}
	}
	return 0, false
}

// Next folds one output line into the running percent. Explicit values are
// honored when they do not regress; lines with no recognizable progress bump
// the percent by one point up to SynthCeiling so observers can tell the job
// is still moving. The result never exceeds RunningCap.
func Next(prev int, line string) int {
	value, ok := Extract(line)
	if !ok {
		if prev < SynthCeiling {
			return prev + 1
		}
		return prev
	}
	if value < prev {
		return prev
	}
	if value > RunningCap {
		return RunningCap
	}
	return value
}

var lockStuckMarkers = []string{
	"another instance is already running",
	"download lock is held",
	"lock file exists",
}

// IsLockStuck reports whether a line indicates the external tool refused to
// start because it believes another instance holds its singleton lock. The
// supervisor treats this as an anomaly requiring forced lock recovery, not
// as ordinary output.
func IsLockStuck(line string) bool {
	lowered := strings.ToLower(line)
	for _, marker := range lockStuckMarkers {
		if strings.Contains(lowered, marker) {
			return true
		}
	}
	return false
}

func clamp(value int) int {
	if value < 0 {
		return 0
	}
	if value > 100 {
		return 100
	}
	return value
}
