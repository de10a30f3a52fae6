package nvapi

import (
	"bufio"
	"io"
	"strings"
)

// doneSentinel terminates the event stream.
const doneSentinel = "[DONE]"

// lineReader turns a byte-oriented event-stream body into logical data
// payloads. Multiple consecutive data: lines form one logical payload,
// delimited by a blank line; comment lines and other fields are skipped.
type lineReader struct {
	r *bufio.Reader
}

func newLineReader(r io.Reader) *lineReader {
	return &lineReader{r: bufio.NewReaderSize(r, 64*1024)}
}

// Next returns the next logical payload with the data: marker stripped.
// It returns io.EOF when the underlying body ends; deciding whether that
// end is legitimate (sentinel seen) is the caller's job.
func (lr *lineReader) Next() (string, error) {
	var parts []string
	for {
		line, err := lr.r.ReadString('\n')
		if err != nil {
			line = strings.TrimRight(line, "\r\n")
			if v, ok := dataValue(line); ok {
				parts = append(parts, v)
			}
			if len(parts) > 0 {
				return strings.Join(parts, "\n"), nil
			}
			return "", err
		}

		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			if len(parts) == 0 {
				continue
			}
			return strings.Join(parts, "\n"), nil
		}
		if strings.HasPrefix(line, ":") {
			continue // keep-alive comment
		}
		if v, ok := dataValue(line); ok {
			parts = append(parts, v)
		}
	}
}

// dataValue strips the data: field marker, tolerating the optional space
// after the colon. Non-data fields (event:, id:, retry:) are ignored.
func dataValue(line string) (string, bool) {
	if !strings.HasPrefix(line, "data:") {
		return "", false
	}
	v := line[len("data:"):]
	if strings.HasPrefix(v, " ") {
		v = v[1:]
	}
	return v, true
}
