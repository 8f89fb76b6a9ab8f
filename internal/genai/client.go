package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/vincent-petithory/dataurl"

	"github.com/inkwellpress/inkwell/internal/ratelimit"
)

const (
	// Outbound limit per endpoint: 2 requests per second, burst of 4.
	defaultRPS   = 2.0
	defaultBurst = 4

	defaultTimeout = 90 * time.Second

	// maxResponseSize bounds a response body; generated images are a few MB.
	maxResponseSize = 64 << 20
)

// Config configures a Client.
type Config struct {
	BaseURL    string
	APIKey     string
	ImageModel string
	TextModel  string
	// Timeout bounds each request, including reading the body.
	Timeout time.Duration
}

// Client talks JSON over HTTP to the generative backend.
type Client struct {
	http    *http.Client
	limiter *ratelimit.KeyedRateLimiter
	cfg     Config
	logger  *slog.Logger
}

var (
	_ ImageGenerator = (*Client)(nil)
	_ ImageEditor    = (*Client)(nil)
	_ TextGenerator  = (*Client)(nil)
)

// New creates a backend client.
func New(cfg Config, logger *slog.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{
		http:    &http.Client{},
		limiter: ratelimit.New(defaultRPS, defaultBurst),
		cfg:     cfg,
		logger:  logger,
	}
}

// Close releases resources held by the client.
func (c *Client) Close() {
	c.limiter.Stop()
}

type wireImage struct {
	MIMEType string `json:"mimeType,omitempty"`
	Data     []byte `json:"data,omitempty"`
	DataURL  string `json:"dataUrl,omitempty"`
}

func (w wireImage) payload() (Payload, error) {
	if w.DataURL != "" {
		du, err := dataurl.DecodeString(w.DataURL)
		if err != nil {
			return Payload{}, fmt.Errorf("decode data url: %w", err)
		}
		return Payload{MIME: du.ContentType(), Data: du.Data}, nil
	}
	return Payload{MIME: w.MIMEType, Data: w.Data}, nil
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Count  int    `json:"count"`
}

type generateResponse struct {
	Images []wireImage `json:"images"`
}

// GenerateImages requests n images for prompt.
func (c *Client) GenerateImages(ctx context.Context, prompt string, n int) ([]Payload, error) {
	var resp generateResponse
	req := generateRequest{Model: c.cfg.ImageModel, Prompt: prompt, Count: n}
	if err := c.post(ctx, "generate", "/v1/images:generate", req, &resp); err != nil {
		return nil, err
	}

	out := make([]Payload, 0, len(resp.Images))
	for _, img := range resp.Images {
		p, err := img.payload()
		if err != nil {
			return nil, wrapError("generate", http.StatusOK, err)
		}
		if len(p.Data) == 0 {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

type editRequest struct {
	Model       string    `json:"model"`
	Instruction string    `json:"instruction"`
	Image       wireImage `json:"image"`
}

type editResponse struct {
	Image *wireImage `json:"image"`
}

// EditImage asks the backend to edit image per instruction. A response
// without image data returns nil, nil.
func (c *Client) EditImage(ctx context.Context, image []byte, mime, instruction string) (*Payload, error) {
	var resp editResponse
	req := editRequest{
		Model:       c.cfg.ImageModel,
		Instruction: instruction,
		Image:       wireImage{MIMEType: mime, Data: image},
	}
	if err := c.post(ctx, "edit", "/v1/images:edit", req, &resp); err != nil {
		return nil, err
	}
	if resp.Image == nil {
		return nil, nil
	}
	p, err := resp.Image.payload()
	if err != nil {
		return nil, wrapError("edit", http.StatusOK, err)
	}
	if len(p.Data) == 0 {
		return nil, nil
	}
	return &p, nil
}

type textRequest struct {
	Model     string `json:"model"`
	System    string `json:"system,omitempty"`
	Prompt    string `json:"prompt"`
	MaxTokens int    `json:"maxTokens,omitempty"`
}

type textResponse struct {
	Text string `json:"text"`
}

// GenerateText returns the trimmed text for req.
func (c *Client) GenerateText(ctx context.Context, req TextRequest) (string, error) {
	var resp textResponse
	wire := textRequest{
		Model:     c.cfg.TextModel,
		System:    req.System,
		Prompt:    req.Prompt,
		MaxTokens: req.MaxTokens,
	}
	if err := c.post(ctx, "text", "/v1/text:generate", wire, &resp); err != nil {
		return "", err
	}
	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", wrapError("text", http.StatusOK, ErrEmptyResponse)
	}
	return text, nil
}

// post sends one JSON request. It never retries.
func (c *Client) post(ctx context.Context, op, path string, body, out any) error {
	if err := c.limiter.Wait(ctx, op); err != nil {
		return wrapError(op, 0, fmt.Errorf("rate limit wait: %w", err))
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	payload, err := json.Marshal(body)
	if err != nil {
		return wrapError(op, 0, fmt.Errorf("marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return wrapError(op, 0, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "Inkwell/1.0")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return wrapError(op, 0, fmt.Errorf("execute request: %w", err))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return wrapError(op, resp.StatusCode, fmt.Errorf("read response: %w", err))
	}

	c.logger.Debug("genai request",
		"op", op,
		"status", resp.StatusCode,
		"bytes", len(data),
		"elapsed", time.Since(start),
	)

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusTooManyRequests:
		return wrapError(op, resp.StatusCode, ErrRateLimited)
	case resp.StatusCode == http.StatusBadRequest, resp.StatusCode == http.StatusUnprocessableEntity:
		return wrapError(op, resp.StatusCode, ErrInvalidInput)
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return wrapError(op, resp.StatusCode, ErrUnauthorized)
	case resp.StatusCode >= 500:
		return wrapError(op, resp.StatusCode, ErrServer)
	default:
		return wrapError(op, resp.StatusCode, fmt.Errorf("unexpected status: %s", truncate(string(data), 200)))
	}

	if err := json.Unmarshal(data, out); err != nil {
		return wrapError(op, resp.StatusCode, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
