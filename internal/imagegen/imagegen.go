// Package imagegen renders article illustrations, trying providers in order.
package imagegen

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sashabaranov/go-openai"
)

// Illustrator turns a visual prompt into image bytes.
type Illustrator interface {
	Illustrate(ctx context.Context, prompt string) ([]byte, error)
}

// Named pairs a provider with a label for logs.
type Named struct {
	Name string
	Illustrator
}

// Chain returns the first successful image. All errors are joined when every
// provider fails.
type Chain struct {
	providers []Named
	logger    *slog.Logger
}

func NewChain(logger *slog.Logger, providers ...Named) *Chain {
	if logger == nil {
		logger = slog.Default()
	}
	return &Chain{providers: providers, logger: logger}
}

func (c *Chain) Len() int { return len(c.providers) }

func (c *Chain) Illustrate(ctx context.Context, prompt string) ([]byte, error) {
	if len(c.providers) == 0 {
		return nil, errors.New("no image providers configured")
	}

	var errs []error
	for _, p := range c.providers {
		data, err := p.Illustrate(ctx, prompt)
		if err == nil && len(data) > 0 {
			c.logger.Info("image generated", "provider", p.Name, "bytes", len(data))
			return data, nil
		}
		if err == nil {
			err = errors.New("empty image")
		}
		c.logger.Warn("image provider failed", "provider", p.Name, "error", err)
		errs = append(errs, fmt.Errorf("%s: %w", p.Name, err))

		if ctx.Err() != nil {
			break
		}
	}
	return nil, errors.Join(errs...)
}

// OpenAI renders images with the images API and base64 responses.
type OpenAI struct {
	client *openai.Client
	model  string
}

func NewOpenAI(apiKey, model string) *OpenAI {
	return NewOpenAIWithConfig(openai.DefaultConfig(apiKey), model)
}

func NewOpenAIWithConfig(cfg openai.ClientConfig, model string) *OpenAI {
	if model == "" {
		model = openai.CreateImageModelDallE3
	}
	return &OpenAI{client: openai.NewClientWithConfig(cfg), model: model}
}

func (o *OpenAI) Illustrate(ctx context.Context, prompt string) ([]byte, error) {
	resp, err := o.client.CreateImage(ctx, openai.ImageRequest{
		Prompt:         prompt,
		Model:          o.model,
		N:              1,
		Size:           openai.CreateImageSize1792x1024,
		ResponseFormat: openai.CreateImageResponseFormatB64JSON,
	})
	if err != nil {
		return nil, fmt.Errorf("openai image: %w", err)
	}
	if len(resp.Data) == 0 || resp.Data[0].B64JSON == "" {
		return nil, errors.New("openai image: empty response")
	}

	data, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		return nil, fmt.Errorf("openai image: decode: %w", err)
	}
	return data, nil
}
