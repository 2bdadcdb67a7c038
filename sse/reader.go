package sse

import (
	"bufio"
	"bytes"
	"io"
	"strconv"
	"strings"
	"time"
)

const maxLineSize = 1 << 20

// Reader decodes a text/event-stream body back into Events. Comment lines,
// such as keep-alives, are skipped.
type Reader struct {
	scanner *bufio.Scanner
}

// NewReader creates a Reader over r.
func NewReader(r io.Reader) *Reader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 4096), maxLineSize)
	sc.Split(scanLines)
	return &Reader{scanner: sc}
}

// scanLines is bufio.ScanLines extended to the event-stream line endings:
// CRLF, LF, or a CR on its own.
func scanLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		if data[i] == '\n' {
			return i + 1, data[:i], nil
		}
		// A CR at the end of the buffer may be the first half of a CRLF.
		if i+1 == len(data) && !atEOF {
			return 0, nil, nil
		}
		if i+1 < len(data) && data[i+1] == '\n' {
			return i + 2, data[:i], nil
		}
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

// Next returns the next event. It returns io.EOF when the stream ends
// without a pending event.
func (r *Reader) Next() (Event, error) {
	var (
		ev      Event
		data    []string
		hasData bool
	)

	for r.scanner.Scan() {
		line := r.scanner.Text()
		if line == "" {
			if hasData {
				ev.Data = []byte(strings.Join(data, "\n"))
				return ev, nil
			}
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value := parseLine(line)
		switch field {
		case "data":
			data = append(data, value)
			hasData = true
		case "event":
			ev.Type = value
		case "id":
			ev.ID = value
		case "retry":
			if ms, err := strconv.Atoi(value); err == nil {
				ev.Retry = time.Duration(ms) * time.Millisecond
			}
		}
	}

	if err := r.scanner.Err(); err != nil {
		return Event{}, err
	}
	if hasData {
		ev.Data = []byte(strings.Join(data, "\n"))
		return ev, nil
	}
	return Event{}, io.EOF
}

// parseLine splits "field: value", dropping one leading space from the value.
func parseLine(line string) (field, value string) {
	idx := strings.IndexByte(line, ':')
	if idx < 0 {
		return line, ""
	}
	field, value = line[:idx], line[idx+1:]
	return field, strings.TrimPrefix(value, " ")
}
