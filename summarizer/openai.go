package summarizer

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// DefaultOpenAIModel is used when no model is configured.
const DefaultOpenAIModel = "gpt-4o"

// OpenAI summarizes with the Chat Completions API.
type OpenAI struct {
	client *openai.Client
	model  string
}

// OpenAIConfig holds the OpenAI provider settings. BaseURL and HTTPClient are
// optional.
type OpenAIConfig struct {
	APIKey     string
	Model      string
	BaseURL    string
	HTTPClient *http.Client
}

// NewOpenAI creates an OpenAI provider. SDK retries are off; a failed call is
// retried by the next scheduled run.
func NewOpenAI(cfg OpenAIConfig) (*OpenAI, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key not set")
	}
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}

	model := cfg.Model
	if model == "" {
		model = DefaultOpenAIModel
	}

	client := openai.NewClient(opts...)
	return &OpenAI{client: &client, model: model}, nil
}

func (p *OpenAI) Name() string {
	return "OpenAI"
}

// Summarize sends the transcript as the user message behind the fixed
// developer instruction and renders the structured reply.
func (p *OpenAI) Summarize(ctx context.Context, transcript string) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: p.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.DeveloperMessage(Instruction),
			openai.UserMessage(transcript),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:        "chat_summary",
					Description: openai.String("Conversation summary JSON"),
					Schema:      summarySchema,
					Strict:      openai.Bool(true),
				},
			},
		},
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai: %w", ErrNoSummary)
	}

	choice := resp.Choices[0]
	if choice.Message.Refusal != "" {
		return "", fmt.Errorf("openai refused: %s: %w", choice.Message.Refusal, ErrNoSummary)
	}
	slog.Debug("openai summary received",
		"model", resp.Model,
		"finish_reason", choice.FinishReason,
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens)

	summary, err := parseSummary(choice.Message.Content)
	if err != nil {
		return "", fmt.Errorf("openai: %w", err)
	}
	return summary, nil
}
