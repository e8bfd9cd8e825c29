// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"bufio"
	"bytes"
	"io"
)

// STREAMING: Robust SSE parsing with error handling

// DoneSentinel is the OpenAI data payload that terminates a stream.
const DoneSentinel = "[DONE]"

// =============================================================================
// SSE READER
// =============================================================================

// SSEReader reads "data:" payloads from a Server-Sent Events body.
//
// Each data line is returned as its own payload. Both OpenAI and Gemini put
// one complete JSON object on every data line, so a missing blank separator
// between events never merges two objects. event:, id:, retry: and comment
// lines are ignored.
type SSEReader struct {
	reader *bufio.Reader
	lineNo int
}

// NewSSEReader creates a new SSE reader from an io.Reader.
func NewSSEReader(r io.Reader) *SSEReader {
	return &SSEReader{
		reader: bufio.NewReader(r),
	}
}

// Next returns the next data payload with the "data:" prefix and one
// optional leading space removed. It returns io.EOF when the body ends.
func (s *SSEReader) Next() ([]byte, error) {
	for {
		line, err := s.reader.ReadBytes('\n')
		if err != nil && (err != io.EOF || len(line) == 0) {
			return nil, err
		}
		s.lineNo++

		line = bytes.TrimRight(line, "\r\n")
		if !bytes.HasPrefix(line, []byte("data:")) {
			if err == io.EOF {
				return nil, io.EOF
			}
			continue
		}

		data := line[len("data:"):]
		data = bytes.TrimPrefix(data, []byte(" "))
		data = bytes.TrimSpace(data)
		if len(data) == 0 {
			continue
		}
		return data, nil
	}
}

// Line returns the number of lines consumed so far, for log context.
func (s *SSEReader) Line() int {
	return s.lineNo
}

// IsDone reports whether a payload is the [DONE] sentinel.
func IsDone(data []byte) bool {
	return bytes.Equal(data, []byte(DoneSentinel))
}
