package nlp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/claimtrust/claimtrust/internal/common"
)

const entityPrompt = `Extract named entities from the medical claim document below.
Respond with only a JSON object mapping the categories DATE, MONEY, PROVIDER
and CODE to arrays of the exact text spans found. Omit empty categories.

Document:
%s`

// chatClient is the slice of the OpenAI client used here, split out so tests
// can substitute a fake.
type chatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAIExtractor asks a chat model to label entity spans. Calls are rate
// limited; callers should treat errors as "backend unavailable" and fall back
// to the regex extractor.
type OpenAIExtractor struct {
	client  chatClient
	limiter *rate.Limiter
	model   string
}

// NewOpenAIExtractor creates a model-backed extractor, or an error when no
// API key is configured.
func NewOpenAIExtractor(apiKey, model string) (*OpenAIExtractor, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: OpenAI API key not configured", common.ErrMissingConfig)
	}
	if model == "" {
		model = openai.GPT4oMini
	}

	return &OpenAIExtractor{
		client:  openai.NewClient(apiKey),
		limiter: rate.NewLimiter(rate.Limit(2), 4),
		model:   model,
	}, nil
}

// Entities sends the text to the chat model and parses the JSON reply.
func (e *OpenAIExtractor) Entities(ctx context.Context, text string) (map[string][]string, error) {
	if strings.TrimSpace(text) == "" {
		return map[string][]string{}, nil
	}

	if err := e.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait: %w", err)
	}

	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       e.model,
		Temperature: 0,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: fmt.Sprintf(entityPrompt, text),
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: entity extraction call failed: %v", common.ErrModelUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: empty completion", common.ErrModelUnavailable)
	}

	return parseEntityReply(resp.Choices[0].Message.Content)
}

// parseEntityReply decodes the model's JSON object, tolerating markdown code
// fences around it.
func parseEntityReply(content string) (map[string][]string, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	var entities map[string][]string
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &entities); err != nil {
		return nil, fmt.Errorf("%w: unparseable entity reply: %v", common.ErrModelUnavailable, err)
	}

	for category, spans := range entities {
		entities[category] = dedup(spans)
	}
	return entities, nil
}
