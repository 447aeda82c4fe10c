package ai

import (
	"context"
	"net/http"
	"sort"
	"strings"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/param"

	"github.com/doeshing/dexter/internal/domain"
)

// anthropicClient speaks the messages API.
type anthropicClient struct {
	client     anthropicsdk.Client
	providerID string
	model      string
}

func newAnthropicClient(ep endpoint, model string, httpClient *http.Client) *anthropicClient {
	opts := []option.RequestOption{
		option.WithMaxRetries(0),
		option.WithHTTPClient(httpClient),
	}
	if ep.preset.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(ep.preset.BaseURL))
	}
	switch ep.preset.Auth {
	case domain.AuthBearer:
		opts = append(opts, option.WithAuthToken(ep.secret))
	case domain.AuthNone:
	default:
		opts = append(opts, option.WithAPIKey(ep.secret))
	}
	return &anthropicClient{
		client:     anthropicsdk.NewClient(opts...),
		providerID: ep.providerID,
		model:      model,
	}
}

func (c *anthropicClient) Complete(ctx context.Context, req domain.ModelRequest) (string, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = domain.DefaultMaxTokens
	}
	params := anthropicsdk.MessageNewParams{
		Model:     anthropicsdk.Model(c.model),
		MaxTokens: int64(maxTokens),
		Messages: []anthropicsdk.MessageParam{{
			Role:    anthropicsdk.MessageParamRoleUser,
			Content: []anthropicsdk.ContentBlockParamUnion{anthropicsdk.NewTextBlock(req.User)},
		}},
	}
	if strings.TrimSpace(req.System) != "" {
		params.System = []anthropicsdk.TextBlockParam{{Text: req.System}}
	}
	if req.Temperature > 0 {
		params.Temperature = param.NewOpt(req.Temperature)
	}

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return "", classify(c.providerID, err)
	}
	var builder strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			builder.WriteString(block.Text)
		}
	}
	return strings.TrimSpace(builder.String()), nil
}

func (c *anthropicClient) ListModels(ctx context.Context) ([]string, error) {
	page, err := c.client.Models.List(ctx, anthropicsdk.ModelListParams{})
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
