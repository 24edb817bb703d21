package gemini

import (
	"fmt"
	"strings"

	"github.com/deusflow/batterynews/internal/news"
)

const systemInstruction = `You are a news editor for a Telegram channel. You only report real, recent,
verifiable news and you never invent events, companies, numbers or links.
Answer with a JSON array only, no commentary.`

// maxPromptHeadlines bounds how many feed headlines go into the prompt.
const maxPromptHeadlines = 20

// BuildDiscoveryPrompt renders the discovery request. Excluded titles are
// listed so the model does not repeat already published stories.
func BuildDiscoveryPrompt(req news.DiscoveryRequest) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Find the most important news from the last 48 hours about: %s.\n", req.Topic)
	fmt.Fprintf(&b, "Write every post in %s.\n\n", languageName(req.Language))

	if len(req.Headlines) > 0 {
		b.WriteString("Recent headlines from news feeds, prefer these stories:\n")
		for i, h := range req.Headlines {
			if i == maxPromptHeadlines {
				break
			}
			fmt.Fprintf(&b, "- %s\n", h)
		}
		b.WriteString("\n")
	}

	if len(req.Exclude) > 0 {
		b.WriteString("Do NOT report these already published stories or close variants of them:\n")
		for _, t := range req.Exclude {
			fmt.Fprintf(&b, "- %s\n", t)
		}
		b.WriteString("\n")
	}

	b.WriteString(`Return a JSON array (0 to 3 items). Each item has:
  "title": short headline,
  "summary": one sentence,
  "telegramPost": 2-4 short paragraphs, Markdown **bold** and *italic* allowed, no links,
  "visualPrompt": description of a photorealistic illustration without text or logos,
  "sourceUrl": the URL of the article you used.
Return [] if there is no genuinely new story.`)

	return b.String()
}

// BuildImagePrompt wraps a visual prompt with the rendering constraints.
func BuildImagePrompt(visualPrompt, aspectRatio string) string {
	if aspectRatio == "" {
		aspectRatio = DefaultAspectRatio
	}
	return fmt.Sprintf("Create a %s editorial illustration. No text, no letters, no logos.\n\n%s",
		aspectRatio, strings.TrimSpace(visualPrompt))
}

func languageName(code string) string {
	switch strings.ToLower(code) {
	case "", "ru":
		return "Russian"
	case "uk":
		return "Ukrainian"
	case "da":
		return "Danish"
	case "en":
		return "English"
	default:
		return code
	}
}
