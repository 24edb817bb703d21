package news

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	// ErrNoJSONArray means the response had no [...] section at all.
	ErrNoJSONArray = errors.New("no JSON array in response")

	trailingCommaRe = regexp.MustCompile(`,(\s*[}\]])`)
	codeFenceRe     = regexp.MustCompile("(?s)```(?:json|javascript|js)?\\s*\\n?(.*?)\\n?```")
)

// Field aliases seen in model output, compared after key normalization.
var (
	titleKeys  = []string{"title", "headline"}
	summaryKey = []string{"summary", "description"}
	bodyKeys   = []string{"telegrampost", "body", "post", "text", "content"}
	visualKeys = []string{"visualprompt", "imageprompt", "visual", "illustration"}
	sourceKeys = []string{"sourceurl", "source", "url", "link"}
)

// ExtractJSONArray returns the text between the first '[' and the last ']'.
func ExtractJSONArray(text string) (string, error) {
	if m := codeFenceRe.FindStringSubmatch(text); m != nil && strings.Contains(m[1], "[") {
		text = m[1]
	}
	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start < 0 || end <= start {
		return "", ErrNoJSONArray
	}
	return text[start : end+1], nil
}

// RepairJSON strips trailing commas before closing brackets and braces.
func RepairJSON(s string) string {
	return trailingCommaRe.ReplaceAllString(s, "$1")
}

// ParseCandidates pulls candidate items out of untrusted model output.
// Items that are not objects or fail validation are dropped; the number
// dropped is returned so callers can log it.
func ParseCandidates(text string) ([]Candidate, int, error) {
	raw, err := ExtractJSONArray(text)
	if err != nil {
		return nil, 0, err
	}

	var items []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		if err2 := json.Unmarshal([]byte(RepairJSON(raw)), &items); err2 != nil {
			return nil, 0, fmt.Errorf("parse candidates: %w", err2)
		}
	}

	candidates := make([]Candidate, 0, len(items))
	dropped := 0
	for _, item := range items {
		var fields map[string]any
		if err := json.Unmarshal(item, &fields); err != nil {
			dropped++
			continue
		}
		c := candidateFromFields(fields)
		if c.Validate() != nil {
			dropped++
			continue
		}
		candidates = append(candidates, c)
	}

	return candidates, dropped, nil
}

func candidateFromFields(fields map[string]any) Candidate {
	norm := make(map[string]string, len(fields))
	for k, v := range fields {
		s, ok := v.(string)
		if !ok {
			continue
		}
		norm[normalizeKey(k)] = strings.TrimSpace(s)
	}

	c := Candidate{
		Title:        pick(norm, titleKeys),
		Summary:      pick(norm, summaryKey),
		Body:         pick(norm, bodyKeys),
		VisualPrompt: pick(norm, visualKeys),
		SourceURL:    pick(norm, sourceKeys),
	}
	if c.Body == "" {
		c.Body = c.Summary
	}
	if !strings.HasPrefix(c.SourceURL, "http://") && !strings.HasPrefix(c.SourceURL, "https://") {
		c.SourceURL = ""
	}
	return c
}

func pick(fields map[string]string, keys []string) string {
	for _, k := range keys {
		if v := fields[k]; v != "" {
			return v
		}
	}
	return ""
}

func normalizeKey(k string) string {
	k = strings.ToLower(k)
	return strings.NewReplacer("_", "", "-", "", " ", "").Replace(k)
}
