// Package rewrite turns scraped posts into rewritten text through an
// OpenAI-compatible chat completion API.
package rewrite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"

	"github.com/tgrewrite/tgrewrite/internal/scrape"
)

// minTextLen is the shortest post body worth rewriting, in runes.
const minTextLen = 10

// tooShortNotice is returned for posts below minTextLen.
const tooShortNotice = "The post is too short to rewrite."

// Service wraps go-openai with rewrite-specific behavior. Errors never
// escape Rewrite: the delivery path always needs something to send, so
// failures surface as a visible error string instead.
type Service struct {
	client        *openai.Client
	defaultModel  string
	defaultPrompt string
	temperature   float32
	timeout       time.Duration
	log           zerolog.Logger
}

// Config holds the configuration for the rewrite service.
type Config struct {
	BaseURL       string
	APIKey        string
	DefaultModel  string
	DefaultPrompt string
	Temperature   float32
	Timeout       time.Duration
	Logger        zerolog.Logger
}

// New creates a rewrite service.
func New(cfg Config) *Service {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}

	return &Service{
		client:        openai.NewClientWithConfig(clientCfg),
		defaultModel:  cfg.DefaultModel,
		defaultPrompt: cfg.DefaultPrompt,
		temperature:   cfg.Temperature,
		timeout:       timeout,
		log:           cfg.Logger,
	}
}

// Rewrite produces a rewritten version of the post text. An empty
// customPrompt or model falls back to the configured defaults. Fails soft:
// any API or transport error is logged and returned as a visible error
// string, never as an error value.
func (s *Service) Rewrite(ctx context.Context, post scrape.Post, customPrompt, model string) string {
	text := strings.TrimSpace(post.Text)
	if len([]rune(text)) < minTextLen {
		return tooShortNotice
	}

	instruction := customPrompt
	if instruction == "" {
		instruction = s.defaultPrompt
	}
	if model == "" {
		model = s.defaultModel
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: fmt.Sprintf("%s\n\nOriginal post:\n%s\n\nRewrite:", instruction, text),
			},
		},
		Temperature: s.temperature,
	})
	if err != nil {
		s.log.Error().Err(err).Str("post_link", post.PostLink).Str("model", model).Msg("rewrite failed")
		return fmt.Sprintf("[rewrite error: %v]", err)
	}
	if len(resp.Choices) == 0 {
		s.log.Error().Str("post_link", post.PostLink).Str("model", model).Msg("rewrite returned no choices")
		return "[rewrite error: empty response]"
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content)
}
