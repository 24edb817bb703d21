package gemini

import (
	"context"
	"log/slog"

	"github.com/deusflow/batterynews/internal/news"
)

// Discoverer is anything that can answer a discovery request.
type Discoverer interface {
	Discover(ctx context.Context, req news.DiscoveryRequest) (news.DiscoveryResult, error)
}

// Fallback tries Primary and, only when its model is unavailable, Secondary.
// Rate limits are returned as is.
type Fallback struct {
	Primary   Discoverer
	Secondary Discoverer
	Logger    *slog.Logger
}

func (f *Fallback) Discover(ctx context.Context, req news.DiscoveryRequest) (news.DiscoveryResult, error) {
	res, err := f.Primary.Discover(ctx, req)
	if err == nil || f.Secondary == nil || !IsModelUnavailable(err) {
		return res, err
	}

	logger := f.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Warn("primary model unavailable, using fallback model", "error", err)
	return f.Secondary.Discover(ctx, req)
}
