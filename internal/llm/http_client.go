package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Config controls the chat-completions HTTP client.
type Config struct {
	// BaseURL is the API root, e.g. https://api.groq.com/openai/v1.
	BaseURL string
	// APIKey is sent as a Bearer token.
	APIKey string
	// Model is the completion model identifier.
	Model string
	// Temperature is passed through to the API.
	Temperature float64
	// Timeout bounds a single HTTP request.
	Timeout time.Duration
	// MaxRetries caps retry attempts for retryable transport failures.
	MaxRetries int
}

// HTTPClient implements Client against an OpenAI-compatible
// chat-completions endpoint.
type HTTPClient struct {
	cfg    Config
	client *http.Client
	retry  *retryPolicy
	logger *zap.Logger
}

// NewHTTPClient builds an HTTPClient. BaseURL, APIKey and Model are required.
func NewHTTPClient(cfg Config, logger *zap.Logger) (*HTTPClient, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errors.New("llm base url is required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("llm api key is required")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, errors.New("llm model is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPClient{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		retry:  newRetryPolicy(cfg.MaxRetries),
		logger: logger,
	}, nil
}

type chatRequest struct {
	Model       string        `json:"model"`
	Temperature float64       `json:"temperature"`
	Messages    []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Complete sends the prompt as a single user message and returns the first
// choice's content.
func (c *HTTPClient) Complete(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:       c.cfg.Model,
		Temperature: c.cfg.Temperature,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("marshal completion request: %w", err)
	}

	var lastErr error
	for attempt := 0; ; attempt++ {
		text, err := c.doRequest(ctx, body)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if !c.retry.shouldRetry(err, attempt) {
			break
		}
		wait := c.retry.backoff(attempt)
		c.logger.Warn("completion attempt failed, retrying",
			zap.Int("attempt", attempt+1),
			zap.Duration("backoff", wait),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			return "", fmt.Errorf("completion canceled: %w", ctx.Err())
		case <-time.After(wait):
		}
	}
	return "", lastErr
}

func (c *HTTPClient) doRequest(ctx context.Context, body []byte) (string, error) {
	url := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("completion request: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.logger.Debug("close completion response body", zap.Error(cerr))
		}
	}()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read completion response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", &statusError{code: resp.StatusCode, body: truncate(string(data), 256)}
	}

	var parsed chatResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("decode completion response: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("completion API error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", errors.New("completion response has no choices")
	}

	c.logger.Debug("completion succeeded",
		zap.String("model", c.cfg.Model),
		zap.Duration("dur", time.Since(start)),
	)
	return parsed.Choices[0].Message.Content, nil
}

// statusError marks non-2xx responses so the retry policy can branch on the
// status code.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("completion API returned %d: %s", e.code, e.body)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
