package gemini

import (
	"context"
	"fmt"
	"strings"

	legacygenai "github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/deusflow/batterynews/internal/news"
)

const DefaultFallbackModel = "gemini-1.5-flash"

// LegacyClient is the older SDK path without search grounding. It is only used
// when the primary model is unavailable, so its citations are the only sources.
type LegacyClient struct {
	client *legacygenai.Client
	model  string
}

func NewLegacyClient(ctx context.Context, apiKey, model string) (*LegacyClient, error) {
	client, err := legacygenai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create legacy Gemini client: %w", err)
	}
	if model == "" {
		model = DefaultFallbackModel
	}
	return &LegacyClient{client: client, model: model}, nil
}

func (c *LegacyClient) Close() {
	if c.client != nil {
		c.client.Close()
	}
}

func (c *LegacyClient) Discover(ctx context.Context, req news.DiscoveryRequest) (news.DiscoveryResult, error) {
	model := c.client.GenerativeModel(c.model)
	model.SystemInstruction = legacygenai.NewUserContent(legacygenai.Text(systemInstruction))
	model.ResponseMIMEType = "application/json"

	resp, err := model.GenerateContent(ctx, legacygenai.Text(BuildDiscoveryPrompt(req)))
	if err != nil {
		return news.DiscoveryResult{}, fmt.Errorf("discovery with %s: %w", c.model, err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return news.DiscoveryResult{}, fmt.Errorf("no response from %s", c.model)
	}

	cand := resp.Candidates[0]
	var b strings.Builder
	for _, part := range cand.Content.Parts {
		if t, ok := part.(legacygenai.Text); ok {
			b.WriteString(string(t))
		}
	}
	if strings.TrimSpace(b.String()) == "" {
		return news.DiscoveryResult{}, fmt.Errorf("empty response from %s", c.model)
	}

	var sources []news.GroundingSource
	if cand.CitationMetadata != nil {
		for _, cs := range cand.CitationMetadata.CitationSources {
			if cs == nil || cs.URI == nil || *cs.URI == "" {
				continue
			}
			sources = append(sources, news.GroundingSource{URI: *cs.URI})
		}
	}

	return news.DiscoveryResult{Text: b.String(), Sources: sources, Model: c.model}, nil
}
