// Package sse reconstructs line-delimited event-stream frames from an
// upstream body that arrives in arbitrarily sized pieces.
package sse

import (
	"bytes"
	"io"
	"iter"
)

// DataPrefix starts every event line that carries a payload.
const DataPrefix = "data: "

// Done is the payload of the termination sentinel frame.
const Done = "[DONE]"

const readBufferSize = 32 * 1024

// Reassembler buffers the trailing incomplete line between chunks. The zero
// value is ready to use. A Reassembler belongs to exactly one stream.
type Reassembler struct {
	buf []byte
}

// Feed appends chunk to the pending buffer and returns every line completed
// by it, in order, without the terminating newline. A trailing "\r" is
// dropped so CRLF upstreams frame the same way as LF ones.
func (r *Reassembler) Feed(chunk []byte) []string {
	r.buf = append(r.buf, chunk...)

	var lines []string
	start := 0
	for {
		i := bytes.IndexByte(r.buf[start:], '\n')
		if i < 0 {
			break
		}
		line := r.buf[start : start+i]
		line = bytes.TrimSuffix(line, []byte("\r"))
		lines = append(lines, string(line))
		start += i + 1
	}
	if start > 0 {
		r.buf = append(r.buf[:0], r.buf[start:]...)
	}
	return lines
}

// Pending reports how many bytes of an unterminated line are buffered.
func (r *Reassembler) Pending() int {
	return len(r.buf)
}

// Reset discards any buffered partial line.
func (r *Reassembler) Reset() {
	r.buf = r.buf[:0]
}

// Frames reads src chunk by chunk and yields each complete line as soon as its
// terminator arrives. A fragment still unterminated at EOF is discarded. A
// read error is yielded once and ends the sequence. Stopping the range loop
// stops reading from src; closing it is left to the caller.
func Frames(src io.Reader) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		var re Reassembler
		defer re.Reset()

		buf := make([]byte, readBufferSize)
		for {
			n, err := src.Read(buf)
			if n > 0 {
				for _, line := range re.Feed(buf[:n]) {
					if !yield(line, nil) {
						return
					}
				}
			}
			if err == io.EOF {
				return
			}
			if err != nil {
				yield("", err)
				return
			}
		}
	}
}
