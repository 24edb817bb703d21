package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"

	"github.com/deusflow/batterynews/internal/news"
)

const (
	DefaultDiscoveryModel = "gemini-2.5-flash"
	DefaultImageModel     = "gemini-2.5-flash-image"
	DefaultAspectRatio    = "16:9"
)

// Client runs discovery with Google Search grounding and renders illustrations.
type Client struct {
	client      *genai.Client
	model       string
	imageModel  string
	aspectRatio string
	logger      *slog.Logger
}

type Config struct {
	APIKey      string
	Model       string
	ImageModel  string
	AspectRatio string
	Logger      *slog.Logger

	// BaseURL overrides the Gemini API endpoint.
	BaseURL string
}

func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      cfg.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: cfg.BaseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	c := &Client{
		client:      client,
		model:       cfg.Model,
		imageModel:  cfg.ImageModel,
		aspectRatio: cfg.AspectRatio,
		logger:      cfg.Logger,
	}
	if c.model == "" {
		c.model = DefaultDiscoveryModel
	}
	if c.imageModel == "" {
		c.imageModel = DefaultImageModel
	}
	if c.aspectRatio == "" {
		c.aspectRatio = DefaultAspectRatio
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c, nil
}

// Discover asks the model for candidate stories. The raw text is returned
// unparsed together with the grounding sources the search tool attached.
func (c *Client) Discover(ctx context.Context, req news.DiscoveryRequest) (news.DiscoveryResult, error) {
	contents := []*genai.Content{{
		Parts: []*genai.Part{{Text: BuildDiscoveryPrompt(req)}},
		Role:  "user",
	}}
	config := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: systemInstruction}}},
		Tools:             []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}},
		Temperature:       genai.Ptr(float32(0.4)),
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, config)
	if err != nil {
		return news.DiscoveryResult{}, fmt.Errorf("discovery with %s: %w", c.model, err)
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return news.DiscoveryResult{}, fmt.Errorf("empty response from %s", c.model)
	}

	sources := groundingSources(resp)
	c.logger.Debug("discovery response", "model", c.model, "chars", len(text), "sources", len(sources))

	return news.DiscoveryResult{Text: text, Sources: sources, Model: c.model}, nil
}

// Illustrate renders a visual prompt and returns the first inline image.
func (c *Client) Illustrate(ctx context.Context, visualPrompt string) ([]byte, error) {
	contents := []*genai.Content{{
		Parts: []*genai.Part{{Text: BuildImagePrompt(visualPrompt, c.aspectRatio)}},
		Role:  "user",
	}}

	config := &genai.GenerateContentConfig{
		ImageConfig: &genai.ImageConfig{AspectRatio: c.aspectRatio},
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.imageModel, contents, config)
	if err != nil {
		return nil, fmt.Errorf("image with %s: %w", c.imageModel, err)
	}

	if data := inlineImage(resp); len(data) > 0 {
		return data, nil
	}
	return nil, ErrNoImage
}

func inlineImage(resp *genai.GenerateContentResponse) []byte {
	if resp == nil {
		return nil
	}
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part != nil && part.InlineData != nil && len(part.InlineData.Data) > 0 {
				return part.InlineData.Data
			}
		}
	}
	return nil
}

// groundingSources flattens the first candidate's grounding chunks and attaches
// to each the answer segments that cite it.
func groundingSources(resp *genai.GenerateContentResponse) []news.GroundingSource {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
		return nil
	}
	meta := resp.Candidates[0].GroundingMetadata
	if meta == nil {
		return nil
	}

	sources := make([]news.GroundingSource, len(meta.GroundingChunks))
	for i, chunk := range meta.GroundingChunks {
		if chunk == nil || chunk.Web == nil {
			continue
		}
		sources[i] = news.GroundingSource{URI: chunk.Web.URI, Title: chunk.Web.Title}
	}

	for _, support := range meta.GroundingSupports {
		if support == nil || support.Segment == nil || support.Segment.Text == "" {
			continue
		}
		for _, idx := range support.GroundingChunkIndices {
			if int(idx) < 0 || int(idx) >= len(sources) {
				continue
			}
			sources[idx].Segments = append(sources[idx].Segments, support.Segment.Text)
		}
	}

	out := sources[:0]
	for _, s := range sources {
		if s.URI != "" {
			out = append(out, s)
		}
	}
	return out
}
