package telegram

import (
	"context"
	"log/slog"
	"unicode/utf8"

	"github.com/deusflow/batterynews/internal/format"
)

const (
	DefaultCaptionLimit  = 1024
	DefaultCaptionMargin = 80
	DefaultTextLimit     = 4096
	TruncationMarker     = "..."
)

// Result is the outcome of one Publish call.
type Result struct {
	OK          bool
	Description string
}

// Sender is the subset of the Bot API the publisher needs.
type Sender interface {
	SendMessage(ctx context.Context, dest Destination, text string) error
	SendPhoto(ctx context.Context, dest Destination, image []byte, caption string) error
}

// Publisher posts a caption with an optional image. A failed photo upload
// falls back to exactly one text message; nothing else is retried.
type Publisher struct {
	sender        Sender
	logger        *slog.Logger
	CaptionLimit  int
	CaptionMargin int
	TextLimit     int
}

func NewPublisher(sender Sender, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		sender:        sender,
		logger:        logger,
		CaptionLimit:  DefaultCaptionLimit,
		CaptionMargin: DefaultCaptionMargin,
		TextLimit:     DefaultTextLimit,
	}
}

func (p *Publisher) Publish(ctx context.Context, dest Destination, caption string, image []byte) Result {
	if len(image) == 0 {
		return p.sendText(ctx, dest, caption)
	}

	photoCaption := caption
	if n := utf8.RuneCountInString(caption); n > p.CaptionLimit {
		target := p.CaptionLimit - p.CaptionMargin
		if target <= 0 {
			target = p.CaptionLimit
		}
		photoCaption = format.TruncateHTML(caption, target, TruncationMarker)
		p.logger.Info("caption truncated for photo",
			"original", n, "truncated", utf8.RuneCountInString(photoCaption))
	}

	err := p.sender.SendPhoto(ctx, dest, image, photoCaption)
	if err == nil {
		p.logger.Info("photo sent to Telegram")
		return Result{OK: true}
	}

	p.logger.Warn("photo send failed, falling back to text", "error", err)
	res := p.sendText(ctx, dest, caption)
	if !res.OK {
		res.Description = "photo: " + err.Error() + "; text: " + res.Description
	}
	return res
}

func (p *Publisher) sendText(ctx context.Context, dest Destination, caption string) Result {
	text := caption
	if utf8.RuneCountInString(text) > p.TextLimit {
		text = format.TruncateHTML(text, p.TextLimit, TruncationMarker)
	}

	if err := p.sender.SendMessage(ctx, dest, text); err != nil {
		p.logger.Error("message send failed", "error", err)
		return Result{Description: err.Error()}
	}
	p.logger.Info("message sent to Telegram")
	return Result{OK: true}
}
