// Package llm implements panchang.Generator on top of any OpenAI-compatible
// chat completion endpoint.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/zapponejosh/panchang-api/internal/metrics"
	"github.com/zapponejosh/panchang-api/internal/panchang"
)

// ErrEmptyResponse is returned when the endpoint answers without content.
var ErrEmptyResponse = errors.New("empty chat response")

// Config holds the generator configuration.
type Config struct {
	BaseURL           string
	APIKey            string
	DayModel          string
	MonthModel        string
	MaxRetries        int
	Timeout           time.Duration
	RequestsPerMinute int

	// BaseBackoff is the wait before the first retry; it doubles on each
	// following attempt.
	BaseBackoff time.Duration
	Logger      *slog.Logger
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		BaseURL:           "https://api.openai.com/v1",
		DayModel:          "gpt-4o",
		MonthModel:        "gpt-4o-mini",
		MaxRetries:        3,
		Timeout:           60 * time.Second,
		RequestsPerMinute: 30,
		BaseBackoff:       time.Second,
	}
}

// Client sends structured-output requests and returns the raw JSON text.
type Client struct {
	client  *openai.Client
	config  Config
	limiter *rate.Limiter
	log     *slog.Logger
}

var _ panchang.Generator = (*Client)(nil)

// New creates a client. Unset fields fall back to DefaultConfig.
func New(cfg Config) *Client {
	def := DefaultConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.DayModel == "" {
		cfg.DayModel = def.DayModel
	}
	if cfg.MonthModel == "" {
		cfg.MonthModel = def.MonthModel
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = def.MaxRetries
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = def.RequestsPerMinute
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = def.BaseBackoff
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	clientConfig.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	clientConfig.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	return &Client{
		client:  openai.NewClientWithConfig(clientConfig),
		config:  cfg,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1),
		log:     log.With("component", "llm"),
	}
}

// Model returns the model used for a request kind. Day almanacs use the
// stronger model, month highlights the faster one.
func (c *Client) Model(kind panchang.Kind) string {
	if kind == panchang.KindMonth {
		return c.config.MonthModel
	}
	return c.config.DayModel
}

// Generate implements panchang.Generator.
func (c *Client) Generate(ctx context.Context, req panchang.Request) (string, error) {
	chatReq := c.buildRequest(req)
	kind := string(req.Kind)

	start := time.Now()
	defer func() {
		metrics.LLMRequestDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	}()

	var result string
	err := c.doWithRetry(ctx, kind, func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		resp, err := c.client.CreateChatCompletion(ctx, chatReq)
		if err != nil {
			return err
		}
		if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
			return ErrEmptyResponse
		}
		result = resp.Choices[0].Message.Content

		c.log.Debug("chat completion finished",
			"kind", kind,
			"model", chatReq.Model,
			"tokens", resp.Usage.TotalTokens)
		return nil
	})
	if err != nil {
		metrics.LLMRequestsTotal.WithLabelValues(kind, "error").Inc()
		return "", fmt.Errorf("failed to complete chat: %w", err)
	}

	metrics.LLMRequestsTotal.WithLabelValues(kind, "success").Inc()
	return result, nil
}

func (c *Client) buildRequest(req panchang.Request) openai.ChatCompletionRequest {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Prompt,
	})

	format := &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
	if req.Schema != nil {
		format = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   req.SchemaName,
				Strict: true,
				Schema: req.Schema,
			},
		}
	}

	return openai.ChatCompletionRequest{
		Model:          c.Model(req.Kind),
		Messages:       messages,
		Temperature:    0.2,
		ResponseFormat: format,
	}
}

// doWithRetry executes fn with exponential backoff. Client errors other
// than rate limiting are not retried.
func (c *Client) doWithRetry(ctx context.Context, kind string, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt < c.config.MaxRetries; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !retryable(err) || attempt == c.config.MaxRetries-1 {
			break
		}

		waitTime := time.Duration(math.Pow(2, float64(attempt))) * c.config.BaseBackoff
		metrics.LLMRequestsTotal.WithLabelValues(kind, "retry").Inc()
		c.log.Debug("chat request failed, retrying",
			"attempt", attempt+1,
			"wait_time", waitTime,
			"error", err)
		select {
		case <-time.After(waitTime):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return lastErr
}

func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}
	if status == http.StatusTooManyRequests || status >= 500 {
		return true
	}
	return status == 0
}
