package notify

import (
	"bufio"
	"io"
	"strings"
)

// eventReader decodes a text/event-stream body into data payloads.
// Only the data field matters to this protocol; comments (heartbeats)
// and event/id/retry fields are skipped. Transport-level reconnect
// hints are deliberately ignored: the Sync engine owns its own
// reconnect loop and backoff bookkeeping.
type eventReader struct {
	scanner *bufio.Scanner
}

func newEventReader(r io.Reader) *eventReader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &eventReader{scanner: sc}
}

// Next returns the data payload of the next event. Multi-line data
// fields are joined with newlines, per the event-stream format. It
// returns io.EOF when the stream ends cleanly, or the underlying read
// error when the connection drops.
func (r *eventReader) Next() ([]byte, error) {
	var data []string

	for r.scanner.Scan() {
		line := strings.TrimRight(r.scanner.Text(), "\r")

		if line == "" {
			if len(data) > 0 {
				return []byte(strings.Join(data, "\n")), nil
			}
			continue
		}

		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		if field == "data" {
			data = append(data, value)
		}
	}

	if err := r.scanner.Err(); err != nil {
		return nil, err
	}
	if len(data) > 0 {
		return []byte(strings.Join(data, "\n")), nil
	}
	return nil, io.EOF
}
