// Package ocr implements the client for the upstream inference
// endpoint: a vLLM server exposing the PaddleOCR-VL model through the
// OpenAI-compatible chat completions API. The wire format is owned by
// that deployment and consumed as-is here.
package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/lumina-docs/ocr-gateway/internal/domain"
	"github.com/lumina-docs/ocr-gateway/internal/observability"
)

// recognitionPrompt instructs the model to return the page transcription
// as markdown followed by a single fenced JSON layout block.
const recognitionPrompt = `Transcribe this document page.

Return the full page content as Markdown, preserving reading order,
headings, and tables. After the Markdown, append exactly one fenced
` + "```json" + ` block containing the structured layout:
{"width": <int>, "height": <int>, "parsing_res_list": [{"block_label":
<string>, "block_content": <string>, "block_bbox": [x1, y1, x2, y2],
"block_id": <int>}]}. Do not add commentary.`

// Config holds OCR client settings.
type Config struct {
	BaseURL        string
	Model          string
	Timeout        time.Duration
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// Client handles communication with the upstream inference endpoint.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *observability.Logger
}

// NewClient creates a new OCR client.
func NewClient(cfg Config, logger *observability.Logger) *Client {
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger.WithComponent("ocr-client"),
	}
}

// message represents a chat message
type message struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

// contentPart represents a part of message content (text or image)
type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

// imageURL represents an image URL in the message
type imageURL struct {
	URL string `json:"url"`
}

// chatRequest represents the API request structure
type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	Temperature float64   `json:"temperature"`
	Stream      bool      `json:"stream"`
}

// chatResponse represents the API response structure
type chatResponse struct {
	ID      string   `json:"id"`
	Choices []choice `json:"choices"`
}

// choice represents a single completion choice
type choice struct {
	Message      replyMessage `json:"message"`
	FinishReason string       `json:"finish_reason"`
}

// replyMessage is the assistant message inside a choice
type replyMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Recognize sends one page image to the inference endpoint and returns
// its markdown plus structured layout. Each call is bounded by the
// configured timeout; unreachable or timed-out upstream surfaces as
// InferenceUnavailable, a bad response as InferenceError.
func (c *Client) Recognize(ctx context.Context, page domain.PageImage) (*domain.PageResult, error) {
	body, err := json.Marshal(c.buildRequest(page))
	if err != nil {
		return nil, domain.InternalError("failed to marshal inference request", err)
	}

	start := time.Now()

	resp, err := c.retryWithBackoff(ctx, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			strings.TrimRight(c.cfg.BaseURL, "/")+"/chat/completions", bytes.NewReader(body))
		if err != nil {
			return nil, err
		}

		req.Header.Set("Content-Type", "application/json")

		return c.httpClient.Do(req)
	})
	if err != nil {
		if ctx.Err() != nil {
			err = ctx.Err()
		}
		return nil, domain.InferenceUnavailableError("inference endpoint unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, domain.InferenceError(
			fmt.Sprintf("inference endpoint returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody))), nil)
	}

	var reply chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return nil, domain.InferenceError("malformed inference response", err)
	}

	if len(reply.Choices) == 0 {
		return nil, domain.InferenceError("inference response contains no choices", nil)
	}

	result, err := splitReply(reply.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}

	c.logger.Debug().
		Int("page", page.Index).
		Dur("elapsed", time.Since(start)).
		Int("markdown_bytes", len(result.Markdown)).
		Msg("page recognized")

	return result, nil
}

// buildRequest constructs the chat completion request carrying the
// page image as a base64 data URL.
func (c *Client) buildRequest(page domain.PageImage) *chatRequest {
	dataURL := "data:" + page.MIME + ";base64," + base64.StdEncoding.EncodeToString(page.Data)

	msg := message{
		Role: "user",
		Content: []contentPart{
			{
				Type: "text",
				Text: recognitionPrompt,
			},
			{
				Type: "image_url",
				ImageURL: &imageURL{
					URL: dataURL,
				},
			},
		},
	}

	return &chatRequest{
		Model:       c.cfg.Model,
		Messages:    []message{msg},
		Temperature: 0,
		Stream:      false,
	}
}

// splitReply separates the model reply into markdown and the trailing
// fenced JSON layout block. A reply without a layout block yields a
// nil layout.
func splitReply(content string) (*domain.PageResult, error) {
	const fence = "```json"

	idx := strings.LastIndex(content, fence)
	if idx < 0 {
		return &domain.PageResult{Markdown: strings.TrimSpace(content)}, nil
	}

	rest := content[idx+len(fence):]
	end := strings.Index(rest, "```")
	if end < 0 {
		return nil, domain.InferenceError("unterminated layout block in inference response", nil)
	}

	layout := strings.TrimSpace(rest[:end])
	if !json.Valid([]byte(layout)) {
		return nil, domain.InferenceError("layout block in inference response is not valid JSON", nil)
	}

	markdown := strings.TrimSpace(content[:idx] + rest[end+3:])

	return &domain.PageResult{
		Markdown: markdown,
		Layout:   json.RawMessage(layout),
	}, nil
}
