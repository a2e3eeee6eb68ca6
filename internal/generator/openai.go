package generator

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/sakif/pet-namer/internal/apperror"
)

const systemPrompt = "You are a helpful assistant that names pets. Always answer with a single JSON object."

// OpenAIConfig configures the OpenAI-compatible chat completions client.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string // empty means api.openai.com
	Model   string
	Timeout time.Duration

	// PerMinute caps outgoing requests across the whole process. Each request costs
	// money, so a burst of clicks must not turn into a burst of API calls.
	PerMinute int
}

// OpenAI implements Generator over the chat completions API.
type OpenAI struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	limiter *rate.Limiter
}

var _ Generator = (*OpenAI)(nil)

func NewOpenAI(cfg OpenAIConfig) (*OpenAI, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("generator: OpenAI API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = openai.GPT4oMini
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.PerMinute <= 0 {
		cfg.PerMinute = 30
	}

	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}

	return &OpenAI{
		client:  openai.NewClientWithConfig(oc),
		model:   cfg.Model,
		timeout: cfg.Timeout,
		limiter: rate.NewLimiter(rate.Limit(float64(cfg.PerMinute)/60), cfg.PerMinute),
	}, nil
}

// Complete asks the model for a JSON object answering prompt.
//
// The whole call, including any wait for the rate limiter, is bounded by the
// configured timeout. A wait that cannot finish inside it fails immediately
// with ErrRateLimited instead of blocking the request.
func (o *OpenAI) Complete(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	if err := o.limiter.Wait(ctx); err != nil {
		return "", apperror.RateLimited("Too many name suggestion requests, try again shortly")
	}

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusTooManyRequests {
			return "", apperror.RateLimited("Name suggestions are busy, try again shortly")
		}
		return "", apperror.Upstream("generator: chat completion", err)
	}

	if len(resp.Choices) == 0 {
		return "", apperror.Upstream("generator: chat completion", fmt.Errorf("response has no choices"))
	}
	return resp.Choices[0].Message.Content, nil
}
