// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/lumenarc/internal/completion"
	"github.com/jeranaias/lumenarc/internal/model"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClientWithConfig(&ClientConfig{APIKey: "test-key", BaseURL: server.URL})
}

func sse(w http.ResponseWriter, events ...string) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.WriteHeader(http.StatusOK)
	for _, ev := range events {
		fmt.Fprintf(w, "data: %s\r\n\r\n", ev)
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
	}
}

func drain(t *testing.T, s completion.Stream) []completion.Chunk {
	t.Helper()
	defer s.Close()
	var out []completion.Chunk
	for s.Next() {
		out = append(out, s.Chunk())
	}
	return out
}

// =============================================================================
// REQUEST TRANSLATION
// =============================================================================

func TestBuildRequest(t *testing.T) {
	req := completion.Request{
		Variant: model.VariantPro,
		Contents: []completion.Content{
			{Role: model.RoleUser, Parts: []completion.Part{{Text: "Hi"}}},
			{Role: model.RoleAssistant, Parts: []completion.Part{{Text: "Hello"}}},
			{Role: model.RoleUser, Parts: []completion.Part{
				{Text: "What is this?"},
				{Inline: &completion.Blob{MIMEType: "image/png", Data: "aGk="}},
			}},
		},
		Temperature:     0.7,
		Grounding:       true,
		ReasoningBudget: 32768,
	}

	data, err := json.Marshal(BuildRequest(req))
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))

	contents := got["contents"].([]any)
	require.Len(t, contents, 3)
	assert.Equal(t, "model", contents[1].(map[string]any)["role"])

	parts := contents[2].(map[string]any)["parts"].([]any)
	require.Len(t, parts, 2)
	assert.Equal(t, "What is this?", parts[0].(map[string]any)["text"])
	inline := parts[1].(map[string]any)["inlineData"].(map[string]any)
	assert.Equal(t, "image/png", inline["mimeType"])
	assert.Equal(t, "aGk=", inline["data"])

	genCfg := got["generationConfig"].(map[string]any)
	assert.Equal(t, 0.7, genCfg["temperature"])
	assert.Equal(t, float64(32768), genCfg["thinkingConfig"].(map[string]any)["thinkingBudget"])

	tools := got["tools"].([]any)
	require.Len(t, tools, 1)
	assert.Contains(t, tools[0].(map[string]any), "googleSearch")
}

func TestBuildRequestWithoutToggles(t *testing.T) {
	data, err := json.Marshal(BuildRequest(completion.Request{Temperature: 0}))
	require.NoError(t, err)
	s := string(data)

	assert.NotContains(t, s, "tools")
	assert.NotContains(t, s, "thinkingConfig")
	assert.Contains(t, s, `"temperature":0`, "zero temperature is still sent")
}

// =============================================================================
// STREAMING
// =============================================================================

func TestStreamTextAndCitations(t *testing.T) {
	var gotPath, gotKey string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path + "?" + r.URL.RawQuery
		gotKey = r.Header.Get("x-goog-api-key")
		sse(w,
			`{"candidates":[{"content":{"role":"model","parts":[{"text":"The capital is "}]}}]}`,
			`{"candidates":[{"content":{"parts":[{"text":"thinking...","thought":true}]}}]}`,
			`{"candidates":[{"content":{"parts":[{"text":"Paris."}]},"groundingMetadata":{"groundingChunks":[{"web":{"uri":"https://x","title":"X"}},{"retrievedContext":{}}]}}]}`,
		)
	})

	s, err := client.Stream(context.Background(), completion.Request{Variant: model.VariantFlash})
	require.NoError(t, err)
	chunks := drain(t, s)
	require.NoError(t, s.Err())

	assert.Equal(t, "/v1beta/models/gemini-2.5-flash:streamGenerateContent?alt=sse", gotPath)
	assert.Equal(t, "test-key", gotKey)

	require.Len(t, chunks, 2, "thought-only events produce no chunk")
	assert.Equal(t, "The capital is ", chunks[0].Text)
	assert.Empty(t, chunks[0].Citations)
	assert.Equal(t, "Paris.", chunks[1].Text)
	assert.Equal(t, []model.Citation{{ID: "https://x", URL: "https://x", Title: "X"}}, chunks[1].Citations)
}

func TestStreamProModel(t *testing.T) {
	var gotPath string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		sse(w)
	})

	s, err := client.Stream(context.Background(), completion.Request{Variant: model.VariantPro})
	require.NoError(t, err)
	assert.Empty(t, drain(t, s))
	assert.Equal(t, "/v1beta/models/gemini-2.5-pro:streamGenerateContent", gotPath)
}

func TestStreamHTTPErrors(t *testing.T) {
	tests := []struct {
		status int
		check  func(error) bool
	}{
		{http.StatusUnauthorized, IsAuth},
		{http.StatusForbidden, IsAuth},
		{http.StatusTooManyRequests, IsRateLimited},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, `{"error":{"code":1,"message":"nope","status":"X"}}`)
			})
			_, err := client.Stream(context.Background(), completion.Request{})
			require.Error(t, err)
			assert.True(t, tt.check(err), "unexpected error type: %v", err)
			assert.Contains(t, err.Error(), "nope")
		})
	}
}

func TestStreamErrorEvent(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		sse(w,
			`{"candidates":[{"content":{"parts":[{"text":"partial"}]}}]}`,
			`{"error":{"code":500,"message":"internal"}}`,
		)
	})

	s, err := client.Stream(context.Background(), completion.Request{})
	require.NoError(t, err)
	chunks := drain(t, s)
	assert.Len(t, chunks, 1)
	require.Error(t, s.Err())
	assert.Contains(t, s.Err().Error(), "internal")
}

func TestStreamMalformedEvent(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		sse(w, `{not json`)
	})

	s, err := client.Stream(context.Background(), completion.Request{})
	require.NoError(t, err)
	drain(t, s)
	assert.Error(t, s.Err())
}

func TestStreamCancelIsSilent(t *testing.T) {
	release := make(chan struct{})
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		sse(w, `{"candidates":[{"content":{"parts":[{"text":"first"}]}}]}`)
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	s, err := client.Stream(ctx, completion.Request{})
	require.NoError(t, err)
	defer s.Close()

	require.True(t, s.Next())
	assert.Equal(t, "first", s.Chunk().Text)

	cancel()
	done := make(chan bool)
	go func() { done <- s.Next() }()
	select {
	case more := <-done:
		assert.False(t, more)
	case <-time.After(5 * time.Second):
		t.Fatal("Next did not return after cancel")
	}
	assert.NoError(t, s.Err(), "cancellation is not an error")
}

func TestStreamNotConfigured(t *testing.T) {
	client := NewClientWithConfig(&ClientConfig{})
	_, err := client.Stream(context.Background(), completion.Request{})
	assert.True(t, IsNotConfigured(err))
}

// =============================================================================
// SSE READER
// =============================================================================

func TestSSEReader(t *testing.T) {
	input := ": keep-alive\n" +
		"event: message\n" +
		"data: line one\n" +
		"data: line two\n" +
		"\n" +
		"id: 7\n" +
		"data:{\"x\":1}\n" +
		"\n" +
		"data: trailing"

	r := NewSSEReader(strings.NewReader(input))

	ev, err := r.ReadEvent()
	require.NoError(t, err)
	assert.Equal(t, "line one\nline two", string(ev))

	ev, err = r.ReadEvent()
	require.NoError(t, err)
	assert.Equal(t, `{"x":1}`, string(ev))

	ev, err = r.ReadEvent()
	require.NoError(t, err)
	assert.Equal(t, "trailing", string(ev))

	_, err = r.ReadEvent()
	assert.Equal(t, io.EOF, err)
}

// endlessLine yields "data: " followed by a line that never ends.
type endlessLine struct{ started bool }

func (r *endlessLine) Read(p []byte) (int, error) {
	if !r.started {
		r.started = true
		return copy(p, "data: "), nil
	}
	for i := range p {
		p[i] = 'a'
	}
	return len(p), nil
}

func TestSSEReaderRejectsOversizedLine(t *testing.T) {
	r := NewSSEReader(&endlessLine{})

	_, err := r.ReadEvent()
	require.Error(t, err)
	var ce *ClientError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, ErrTypeInvalidResponse, ce.Type)
}

func TestSSEReaderRejectsOversizedEvent(t *testing.T) {
	line := "data: " + strings.Repeat("b", MaxEventSize/2+1) + "\n"
	r := NewSSEReader(strings.NewReader(line + line + "\n"))

	_, err := r.ReadEvent()
	var ce *ClientError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, ErrTypeInvalidResponse, ce.Type)
}
