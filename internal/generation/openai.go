package generation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	openaisdk "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/packages/param"
)

// OpenAIPort generates answer drafts through an OpenAI-compatible chat
// completion endpoint.
type OpenAIPort struct {
	client  openaisdk.Client
	model   string
	timeout time.Duration
}

// OpenAIOption configures an OpenAIPort.
type OpenAIOption func(*openAIConfig)

type openAIConfig struct {
	baseURL string
	timeout time.Duration
}

// WithBaseURL points the port at a non-default endpoint, e.g. a local
// OpenAI-compatible server.
func WithBaseURL(url string) OpenAIOption {
	return func(c *openAIConfig) { c.baseURL = url }
}

// WithTimeout bounds each generation call.
func WithTimeout(d time.Duration) OpenAIOption {
	return func(c *openAIConfig) { c.timeout = d }
}

// NewOpenAIPort creates a port for the given model and API key.
func NewOpenAIPort(apiKey, model string, opts ...OpenAIOption) *OpenAIPort {
	cfg := openAIConfig{timeout: 30 * time.Second}
	for _, opt := range opts {
		opt(&cfg)
	}
	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	return &OpenAIPort{
		client:  openaisdk.NewClient(reqOpts...),
		model:   model,
		timeout: cfg.timeout,
	}
}

// Generate runs one chat completion and parses the JSON draft out of it.
func (p *OpenAIPort) Generate(ctx context.Context, pc PromptContext) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	params := openaisdk.ChatCompletionNewParams{
		Messages: []openaisdk.ChatCompletionMessageParamUnion{
			openaisdk.SystemMessage(systemPrompt),
			openaisdk.UserMessage(BuildPrompt(pc)),
		},
		Model: openaisdk.ChatModel(p.model),
	}
	params.Temperature = param.NewOpt(0.0)

	completion, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("generation: chat completion: %w", err)
	}
	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("generation: empty completion")
	}
	return ParseResult(completion.Choices[0].Message.Content)
}

// ParseResult decodes a generation response. It tolerates a fenced code
// block around the JSON but nothing else; anything unparseable is an
// error so the caller can fall back to the deterministic digest.
func ParseResult(raw string) (*Result, error) {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
		s = strings.TrimSpace(s)
	}

	var res Result
	if err := json.Unmarshal([]byte(s), &res); err != nil {
		return nil, fmt.Errorf("generation: parse response: %w", err)
	}
	if strings.TrimSpace(res.Text) == "" {
		return nil, fmt.Errorf("generation: response has no answer text")
	}
	if res.Confidence < 0 {
		res.Confidence = 0
	}
	if res.Confidence > 1 {
		res.Confidence = 1
	}
	return &res, nil
}
