package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"nbclient/internal/logging"
	"nbclient/internal/notebook"
)

// Provider selects the AI backend behind the proxy.
type Provider string

const (
	ProviderClaude Provider = "claude"
	ProviderOpenAI Provider = "openai"
	ProviderGemini Provider = "gemini"
)

// ChatMessage is one turn of the conversation.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is sent to the backend AI proxy. Context carries the
// serialized notebook snapshot used as grounding.
type ChatRequest struct {
	Provider     Provider          `json:"provider,omitempty"`
	Messages     []ChatMessage     `json:"messages"`
	SystemPrompt string            `json:"system_prompt,omitempty"`
	MaxTokens    int               `json:"max_tokens,omitempty"`
	Temperature  float64           `json:"temperature,omitempty"`
	Stream       bool              `json:"stream,omitempty"`
	Context      *notebook.Context `json:"context,omitempty"`
}

// ChatResponse is the provider's reply.
type ChatResponse struct {
	Provider     Provider       `json:"provider"`
	Content      string         `json:"content"`
	Model        string         `json:"model"`
	Usage        map[string]int `json:"usage,omitempty"`
	FinishReason string         `json:"finish_reason,omitempty"`
}

// Chat sends one chat turn and waits for the full reply.
func (c *Client) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	req.Stream = false
	var resp ChatResponse
	if err := c.post(ctx, "/ai/chat", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ChatStream sends one chat turn and delivers the reply incrementally as
// SSE chunks. onChunk is called once per data line, in order, on the
// calling goroutine. The accumulated text is returned when the stream ends.
//
// Streaming bypasses the client timeout: long generations must not be
// killed by the transport layer.
func (c *Client) ChatStream(ctx context.Context, req ChatRequest, onChunk func(chunk string)) (string, error) {
	req.Stream = true
	data, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/ai/chat/stream", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")

	// A dedicated client without a timeout; cancellation comes from ctx.
	streamClient := &http.Client{Transport: c.httpClient.Transport}
	resp, err := streamClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("POST /ai/chat/stream: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return "", &APIError{
			StatusCode: resp.StatusCode,
			Body:       string(body),
			Method:     http.MethodPost,
			Path:       "/ai/chat/stream",
		}
	}

	var full strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		chunk := strings.TrimPrefix(line, "data: ")
		if chunk == "[DONE]" {
			break
		}
		full.WriteString(chunk)
		if onChunk != nil {
			onChunk(chunk)
		}
	}
	if err := scanner.Err(); err != nil {
		return full.String(), fmt.Errorf("read stream: %w", err)
	}

	logging.APIDebug("chat stream finished (%d bytes)", full.Len())
	return full.String(), nil
}
