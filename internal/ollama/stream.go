// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"

	"github.com/jeranaias/lumenarc/internal/completion"
)

// =============================================================================
// STREAM READER
// =============================================================================

// StreamReader handles line-by-line JSON parsing of streaming responses.
// It implements completion.Stream.
type StreamReader struct {
	ctx    context.Context
	body   io.ReadCloser
	reader *bufio.Reader

	cur  completion.Chunk
	err  error
	done bool

	model string
}

// NewStreamReader creates a new stream reader over a response body.
func NewStreamReader(ctx context.Context, body io.ReadCloser) *StreamReader {
	return &StreamReader{
		ctx:    ctx,
		body:   body,
		reader: bufio.NewReader(body),
	}
}

// Next advances to the next chunk with visible content.
func (s *StreamReader) Next() bool {
	for !s.done {
		if s.ctx.Err() != nil {
			s.finish(nil)
			return false
		}

		line, err := s.readLine()
		if err != nil {
			if err == io.EOF || completion.Canceled(s.ctx, err) {
				s.finish(nil)
			} else {
				s.finish(&ClientError{Type: ErrTypeConnection, Message: "stream interrupted", Cause: err})
			}
			return false
		}
		if line == nil {
			continue
		}

		if line.Error != "" {
			s.finish(&ClientError{Type: ErrTypeInvalidResponse, Message: line.Error})
			return false
		}
		if line.Model != "" {
			s.model = line.Model
		}
		if line.Done {
			s.finish(nil)
			// The final line may still carry content.
			if line.Message.Content != "" {
				s.cur = completion.Chunk{Text: line.Message.Content}
				return true
			}
			return false
		}
		if line.Message.Content == "" {
			continue
		}
		s.cur = completion.Chunk{Text: line.Message.Content}
		return true
	}
	return false
}

// Chunk returns the current chunk.
func (s *StreamReader) Chunk() completion.Chunk { return s.cur }

// Err returns the failure that ended the stream, if any.
func (s *StreamReader) Err() error { return s.err }

// Close releases the response body.
func (s *StreamReader) Close() error {
	s.done = true
	if s.body == nil {
		return nil
	}
	return s.body.Close()
}

// Model returns the model name reported by the server.
func (s *StreamReader) Model() string { return s.model }

func (s *StreamReader) finish(err error) {
	s.done = true
	s.err = err
	s.cur = completion.Chunk{}
}

// readLine reads and parses a single line. A nil line means "skip".
func (s *StreamReader) readLine() (*chatStreamLine, error) {
	raw, err := s.reader.ReadBytes('\n')
	if err != nil && !(err == io.EOF && len(raw) > 0) {
		return nil, err
	}

	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, nil
	}

	var line chatStreamLine
	if err := json.Unmarshal(raw, &line); err != nil {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "malformed stream line", Cause: err}
	}
	return &line, nil
}
