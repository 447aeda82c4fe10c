package ai

import (
	"context"
	"net/http"
	"sort"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/doeshing/dexter/internal/domain"
)

// openAIClient speaks the chat completions API.
type openAIClient struct {
	client     openai.Client
	providerID string
	model      string
}

func newOpenAIClient(ep endpoint, model string, httpClient *http.Client) *openAIClient {
	opts := []option.RequestOption{
		option.WithMaxRetries(0),
		option.WithHTTPClient(httpClient),
	}
	if ep.preset.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(ep.preset.BaseURL))
	}
	switch ep.preset.Auth {
	case domain.AuthAPIKey:
		opts = append(opts, option.WithAPIKey(ep.secret), option.WithHeader("Authorization", "Api-Key "+ep.secret))
	case domain.AuthNone:
		// keep an OPENAI_API_KEY from the environment away from local runtimes
		opts = append(opts, option.WithHeaderDel("Authorization"))
	default:
		opts = append(opts, option.WithAPIKey(ep.secret))
	}
	return &openAIClient{
		client:     openai.NewClient(opts...),
		providerID: ep.providerID,
		model:      model,
	}
}

func (c *openAIClient) Complete(ctx context.Context, req domain.ModelRequest) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.System),
			openai.UserMessage(req.User),
		},
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(req.MaxTokens))
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}

	completion, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", classify(c.providerID, err)
	}
	if completion == nil || len(completion.Choices) == 0 {
		return "", nil
	}
	return strings.TrimSpace(completion.Choices[0].Message.Content), nil
}

func (c *openAIClient) ListModels(ctx context.Context) ([]string, error) {
	page, err := c.client.Models.List(ctx)
	if err != nil {
		return nil, classify(c.providerID, err)
	}
	var names []string
	for _, model := range page.Data {
		if model.ID != "" {
			names = append(names, model.ID)
		}
	}
	sort.Strings(names)
	return names, nil
}
