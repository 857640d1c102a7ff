package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// eventBuffer decouples the network reader from the consumer; a full buffer
// applies backpressure rather than dropping deltas.
const eventBuffer = 64

// ChatMessage is one role/content pair of conversation history on the wire.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// StreamRequest describes one streaming conversation turn.
type StreamRequest struct {
	// Mode selects the backend target and wire format.
	Mode Mode

	// Model overrides the configured default when non-empty.
	Model string

	// Messages is the full conversation history, newest last.
	Messages []ChatMessage
}

// Client issues streaming requests and normalizes both wire formats into
// StreamEvents.
type Client struct {
	config *Config
	http   *http.Client
	log    *slog.Logger
}

// NewClient creates a new streaming client.
func NewClient(config *Config, log *slog.Logger) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	config.SetDefaults()

	if log == nil {
		log = slog.Default()
	}

	return &Client{
		config: config,
		http: &http.Client{
			Transport: &http.Transport{
				ResponseHeaderTimeout: config.HeaderTimeout,
			},
		},
		log: log,
	}, nil
}

// Stream opens one backend request and returns the normalized event sequence.
// Credential and request-start failures are returned synchronously; failures
// after the stream begins arrive as a final EventError. The channel closes
// after a terminal event, or without one when ctx is cancelled — cancellation
// is not an error.
func (c *Client) Stream(ctx context.Context, req StreamRequest) (<-chan StreamEvent, error) {
	url, key, err := c.config.endpoint(req.Mode)
	if err != nil {
		return nil, err
	}

	adapter, err := NewAdapter(req.Mode, c.log)
	if err != nil {
		return nil, err
	}

	body, err := c.requestBody(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	switch req.Mode {
	case ModeAnthropic:
		httpReq.Header.Set("x-api-key", key)
		httpReq.Header.Set("anthropic-version", "2023-06-01")
	case ModeOpenAI:
		httpReq.Header.Set("Authorization", "Bearer "+key)
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.log.Error("stream request failed", "mode", req.Mode, "error", err)
		return nil, NewNetworkError(err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		var errBody bytes.Buffer
		if _, err := errBody.ReadFrom(io.LimitReader(resp.Body, 4096)); err != nil {
			return nil, NewAPIError(resp.StatusCode, fmt.Sprintf("status %d", resp.StatusCode))
		}
		return nil, NewAPIError(resp.StatusCode, errBody.String())
	}

	c.log.Debug("stream opened",
		"mode", req.Mode,
		"status_code", resp.StatusCode,
		"wait", time.Since(start),
	)

	events := make(chan StreamEvent, eventBuffer)
	go c.readStream(ctx, resp.Body, adapter, events)
	return events, nil
}

// readStream decodes the response body frame by frame until a terminal event,
// end of input, or cancellation.
func (c *Client) readStream(ctx context.Context, body io.ReadCloser, adapter Adapter, events chan<- StreamEvent) {
	defer close(events)
	defer body.Close()

	emit := func(ev StreamEvent) bool {
		select {
		case events <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}

	decoder := NewDecoder()
	buf := make([]byte, 4096)
	for {
		n, err := body.Read(buf)
		if n > 0 {
			for _, payload := range decoder.Feed(string(buf[:n])) {
				ev, ok := adapter.Decode(payload)
				if !ok {
					continue
				}
				if !emit(ev) {
					return
				}
				if ev.Kind == EventDone || ev.Kind == EventError {
					return
				}
			}
		}
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if err == io.EOF {
				// End of input without a completion frame still finalizes.
				emit(DoneEvent())
				return
			}
			c.log.Error("stream read failed", "error", err)
			emit(ErrorEvent(NewNetworkError(err)))
			return
		}
	}
}

// anthropicBody is the event-typed backend request shape.
type anthropicBody struct {
	Model     string        `json:"model"`
	MaxTokens int           `json:"max_tokens"`
	Stream    bool          `json:"stream"`
	Messages  []ChatMessage `json:"messages"`
}

// chatBody is the request shape shared by the choice-delta backend and the
// server-side agent.
type chatBody struct {
	Model    string        `json:"model"`
	Stream   bool          `json:"stream"`
	Messages []ChatMessage `json:"messages"`
}

func (c *Client) requestBody(req StreamRequest) ([]byte, error) {
	model := req.Model
	if model == "" {
		model = c.config.DefaultModel
	}

	if req.Mode == ModeAnthropic {
		return json.Marshal(anthropicBody{
			Model:     model,
			MaxTokens: c.config.MaxTokens,
			Stream:    true,
			Messages:  req.Messages,
		})
	}
	return json.Marshal(chatBody{
		Model:    model,
		Stream:   true,
		Messages: req.Messages,
	})
}
