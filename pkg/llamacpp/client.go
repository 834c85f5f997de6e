// Package llamacpp talks to OpenAI-compatible multimodal servers such as the
// llama.cpp server, vLLM or the OpenAI API itself.
package llamacpp

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
	"go.uber.org/zap"

	"github.com/menta2k/character-extractor/pkg/modeljson"
	"github.com/menta2k/character-extractor/pkg/types"
)

const (
	// DefaultURL is the llama.cpp server default listen address
	DefaultURL = "http://localhost:8080"
	// DefaultTimeout applies when the caller's context has no deadline
	DefaultTimeout = 300 * time.Second

	// llama.cpp ignores the key but the SDK always sends one
	placeholderAPIKey = "sk-no-key-required"
)

// ErrNoChoices is returned when the server answers without any choice
var ErrNoChoices = errors.New("no choices in response")

// Client is a VisionClient backed by the OpenAI chat completions API
type Client struct {
	client  openai.Client
	timeout time.Duration
	logger  *zap.Logger
}

// NewClient creates a new client. A server URL without a path gets /v1 appended.
func NewClient(serverURL, apiKey string, logger *zap.Logger) (*Client, error) {
	baseURL, err := normalizeBaseURL(serverURL)
	if err != nil {
		return nil, err
	}
	if apiKey == "" {
		apiKey = placeholderAPIKey
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(baseURL),
		option.WithMaxRetries(0),
	)

	return &Client{client: client, timeout: DefaultTimeout, logger: logger}, nil
}

// WithTimeout sets the per-request timeout used when the caller's context
// has no deadline. Non-positive values keep the current timeout.
func (c *Client) WithTimeout(d time.Duration) *Client {
	if d > 0 {
		c.timeout = d
	}
	return c
}

func normalizeBaseURL(serverURL string) (string, error) {
	if serverURL == "" {
		serverURL = DefaultURL
	}
	parsed, err := url.Parse(serverURL)
	if err != nil {
		return "", fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return "", fmt.Errorf("invalid URL: %q", serverURL)
	}

	path := strings.TrimSuffix(parsed.Path, "/")
	path = strings.TrimSuffix(path, "/chat/completions")
	if path == "" {
		path = "/v1"
	}
	parsed.Path = path + "/"
	return parsed.String(), nil
}

// SimpleQuery asks a free-text question about an image
func (c *Client) SimpleQuery(ctx context.Context, model, prompt, imgB64 string) (string, error) {
	return c.complete(ctx, model, prompt, imgB64, 0.2, 256)
}

// DetectObjects asks the model for object boxes and parses its JSON answer
func (c *Client) DetectObjects(ctx context.Context, model, prompt, imgB64 string) (*types.DetectionResult, error) {
	content, err := c.complete(ctx, model, prompt, imgB64, 0.1, 2048)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("empty response from server")
	}
	return modeljson.ParseDetections(content)
}

func (c *Client) complete(ctx context.Context, model, prompt, imgB64 string, temperature float64, maxTokens int64) (string, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	parts := []openai.ChatCompletionContentPartUnionParam{
		openai.TextContentPart(prompt),
	}
	if imgB64 != "" {
		parts = append(parts, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
			URL: "data:image/jpeg;base64," + imgB64,
		}))
	}

	req := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(parts),
		},
		Temperature: openai.Float(temperature),
		MaxTokens:   openai.Int(maxTokens),
	}

	start := time.Now()
	resp, err := c.client.Chat.Completions.New(ctx, req)
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrNoChoices
	}

	content := resp.Choices[0].Message.Content
	c.logger.Debug("chat completion",
		zap.String("model", model),
		zap.Int("prompt_length", len(prompt)),
		zap.Int("response_length", len(content)),
		zap.Duration("latency", time.Since(start)),
	)
	return content, nil
}
