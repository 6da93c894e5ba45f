// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package gemini

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"

	"github.com/jeranaias/lumenarc/internal/completion"
	"github.com/jeranaias/lumenarc/internal/model"
)

// MaxEventSize is the maximum accepted size of one SSE event (1MB).
const MaxEventSize = 1024 * 1024

// maxLineSize leaves room for the field name and line ending around a
// full-size data payload.
const maxLineSize = MaxEventSize + 64

// =============================================================================
// SSE READER
// =============================================================================

// SSEReader parses Server-Sent Events from a stream.
type SSEReader struct {
	reader *bufio.Reader
}

// NewSSEReader creates a new SSE reader from an io.Reader.
func NewSSEReader(r io.Reader) *SSEReader {
	return &SSEReader{reader: bufio.NewReader(r)}
}

// ReadEvent returns the data of the next event, joining multi-line data with
// newlines. Comments and other fields are skipped. Returns io.EOF at the end.
func (s *SSEReader) ReadEvent() ([]byte, error) {
	var dataLines [][]byte
	size := 0

	for {
		line, err := s.readLine()
		if err != nil && !(err == io.EOF && len(line) > 0) {
			if err == io.EOF && len(dataLines) > 0 {
				return bytes.Join(dataLines, []byte("\n")), nil
			}
			return nil, err
		}

		line = bytes.TrimRight(line, "\r\n")

		// Empty line ends the event.
		if len(line) == 0 {
			if len(dataLines) > 0 {
				return bytes.Join(dataLines, []byte("\n")), nil
			}
			continue
		}

		if bytes.HasPrefix(line, []byte("data:")) {
			data := bytes.TrimPrefix(line[5:], []byte(" "))
			size += len(data)
			if size > MaxEventSize {
				return nil, errEventTooLarge()
			}
			dataLines = append(dataLines, append([]byte(nil), data...))
		}
		// id:, event:, retry: and ":" comments carry nothing we use.
	}
}

// readLine behaves like ReadBytes('\n') but gives up once a line grows past
// maxLineSize instead of buffering it whole.
func (s *SSEReader) readLine() ([]byte, error) {
	var line []byte
	for {
		part, err := s.reader.ReadSlice('\n')
		if len(line)+len(part) > maxLineSize {
			return nil, errEventTooLarge()
		}
		line = append(line, part...)
		if err == bufio.ErrBufferFull {
			continue
		}
		return line, err
	}
}

func errEventTooLarge() error {
	return &ClientError{Type: ErrTypeInvalidResponse, Message: "stream event too large"}
}

// =============================================================================
// STREAM
// =============================================================================

// streamEvent is a response event that may instead carry an API error.
type streamEvent struct {
	GenerateResponse
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

type stream struct {
	ctx    context.Context
	body   io.ReadCloser
	reader *SSEReader

	cur  completion.Chunk
	err  error
	done bool
}

func newStream(ctx context.Context, body io.ReadCloser) *stream {
	return &stream{ctx: ctx, body: body, reader: NewSSEReader(body)}
}

func (s *stream) Next() bool {
	for !s.done {
		if s.ctx.Err() != nil {
			s.finish(nil)
			return false
		}

		data, err := s.reader.ReadEvent()
		if err != nil {
			if err == io.EOF || completion.Canceled(s.ctx, err) {
				s.finish(nil)
			} else {
				s.finish(&ClientError{Type: ErrTypeConnection, Message: "stream interrupted", Cause: err})
			}
			return false
		}
		if bytes.Equal(data, []byte("[DONE]")) {
			s.finish(nil)
			return false
		}

		chunk, err := decodeEvent(data)
		if err != nil {
			s.finish(err)
			return false
		}
		if chunk.Text == "" && len(chunk.Citations) == 0 {
			continue
		}
		s.cur = chunk
		return true
	}
	return false
}

func (s *stream) Chunk() completion.Chunk { return s.cur }

func (s *stream) Err() error { return s.err }

func (s *stream) Close() error {
	s.done = true
	return s.body.Close()
}

func (s *stream) finish(err error) {
	s.done = true
	s.err = err
	s.cur = completion.Chunk{}
}

// decodeEvent converts one SSE data payload into a chunk.
func decodeEvent(data []byte) (completion.Chunk, error) {
	var ev streamEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return completion.Chunk{}, &ClientError{Type: ErrTypeInvalidResponse, Message: "malformed stream event", Cause: err}
	}
	if ev.Error != nil {
		return completion.Chunk{}, &ClientError{Type: ErrTypeInvalidResponse, Status: ev.Error.Code, Message: ev.Error.Message}
	}
	if ev.PromptFeedback != nil && ev.PromptFeedback.BlockReason != "" {
		return completion.Chunk{}, &ClientError{Type: ErrTypeBlocked, Message: "prompt blocked: " + ev.PromptFeedback.BlockReason}
	}
	if len(ev.Candidates) == 0 {
		return completion.Chunk{}, nil
	}

	cand := ev.Candidates[0]
	var text strings.Builder
	for _, p := range cand.Content.Parts {
		if p.Thought {
			continue
		}
		text.WriteString(p.Text)
	}
	return completion.Chunk{
		Text:      text.String(),
		Citations: citationsFrom(cand.GroundingMetadata),
	}, nil
}

// citationsFrom maps web grounding sources to citations keyed by URI.
func citationsFrom(meta *GroundingMetadata) []model.Citation {
	if meta == nil {
		return nil
	}
	var out []model.Citation
	for _, gc := range meta.GroundingChunks {
		if gc.Web == nil || gc.Web.URI == "" {
			continue
		}
		out = append(out, model.Citation{
			ID:    gc.Web.URI,
			URL:   gc.Web.URI,
			Title: gc.Web.Title,
		})
	}
	return out
}

// emptyStream is returned when the request was cancelled before a response.
type emptyStream struct{}

func (emptyStream) Next() bool { return false }
func (emptyStream) Chunk() completion.Chunk { return completion.Chunk{} }
func (emptyStream) Err() error { return nil }
func (emptyStream) Close() error { return nil }
