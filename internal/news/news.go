package news

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Status is the lifecycle state of an Article.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
)

// Trigger says who started a discovery cycle.
type Trigger string

const (
	TriggerScheduled Trigger = "scheduled"
	TriggerManual    Trigger = "manual"
)

// Article is a discovered story, published or about to be.
type Article struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Summary        string    `json:"summary,omitempty"`
	Body           string    `json:"telegramPost"`
	VisualPrompt   string    `json:"visualPrompt,omitempty"`
	SourceURL      string    `json:"sourceUrl,omitempty"`
	SourceVerified bool      `json:"sourceVerified"`
	ImageData      []byte    `json:"-"`
	ImageURL       string    `json:"imageUrl,omitempty"`
	Status         Status    `json:"status"`
	CreatedAt      time.Time `json:"createdAt"`
	PublishedAt    time.Time `json:"publishedAt"`
}

// AttachImage stores the image bytes and the matching data URL.
func (a *Article) AttachImage(data []byte) {
	if len(data) == 0 {
		a.ImageData, a.ImageURL = nil, ""
		return
	}
	a.ImageData = data
	a.ImageURL = fmt.Sprintf("data:%s;base64,%s", http.DetectContentType(data), base64.StdEncoding.EncodeToString(data))
}

// Candidate is one item of a discovery response, not yet deduplicated.
type Candidate struct {
	Title        string
	Summary      string
	Body         string
	VisualPrompt string
	SourceURL    string
}

// Validate checks the fields every publishable candidate needs.
func (c Candidate) Validate() error {
	if strings.TrimSpace(c.Title) == "" {
		return fmt.Errorf("candidate has empty title")
	}
	if strings.TrimSpace(c.Body) == "" {
		return fmt.Errorf("candidate %q has empty body", c.Title)
	}
	return nil
}

// DiscoveryRequest is what the pipeline asks the discovery collaborator for.
type DiscoveryRequest struct {
	Topic     string
	Language  string
	Exclude   []string
	Headlines []string
}

// GroundingSource is a citation the collaborator attached to its answer.
// Segments holds the answer fragments this source supports.
type GroundingSource struct {
	URI      string
	Title    string
	Segments []string
}

// DiscoveryResult is the raw answer plus any grounding metadata.
type DiscoveryResult struct {
	Text    string
	Sources []GroundingSource
	Model   string
}
