package runner

import "bytes"

// scanConsoleLines is a bufio.SplitFunc treating both newlines and carriage
// returns as line terminators. Downloaders repaint progress with bare CRs;
// each repaint must surface as its own line or progress stalls until exit.
func scanConsoleLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	i := bytes.IndexAny(data, "\r\n")
	if i < 0 {
		if atEOF {
			return len(data), data, nil
		}
		return 0, nil, nil
	}
	advance = i + 1
	if data[i] == '\r' {
		if i+1 == len(data) && !atEOF {
			// Hold back until we know whether a LF follows this CR.
			return 0, nil, nil
		}
		if i+1 < len(data) && data[i+1] == '\n' {
			advance++
		}
	}
	return advance, data[:i], nil
}
