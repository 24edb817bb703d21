package news

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSONArray(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"bare array", `[{"title":"a"}]`, `[{"title":"a"}]`, false},
		{"prose around array", "Here you go:\n[{\"title\":\"a\"}]\nHope this helps!", `[{"title":"a"}]`, false},
		{"code fence", "```json\n[{\"title\":\"a\"}]\n```", `[{"title":"a"}]`, false},
		{"object wrapper", `{"items":[{"title":"a"}]}`, `[{"title":"a"}]`, false},
		{"no array", "Nothing new today.", "", true},
		{"reversed brackets", "] oops [", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractJSONArray(tt.input)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrNoJSONArray)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRepairJSON(t *testing.T) {
	tests := []string{
		`[{"title": "a",},]`,
		"[\n  {\"title\": \"a\"},\n]",
		`[{"tags": ["x", "y",], "title": "b",}]`,
	}

	for _, in := range tests {
		var out any
		assert.NoError(t, json.Unmarshal([]byte(RepairJSON(in)), &out), "repaired %q", in)
	}
}

func TestParseCandidates(t *testing.T) {
	text := "Sure! Here are the stories:\n```json\n[\n" +
		`{"title": "Toyota confirms solid-state EV for 2027", "summary": "short", "telegramPost": "**Toyota** confirms.", "visualPrompt": "battery cell", "sourceUrl": "https://example.com/toyota"},` + "\n" +
		`{"Title": "QuantumScape ships B1 samples", "telegram_post": "QS ships.", "Visual_Prompt": "", "source_url": "not a url"},` + "\n" +
		`{"headline": "Summary only item", "description": "Used as body"},` + "\n" +
		`{"title": "", "telegramPost": "missing title"},` + "\n" +
		`"just a string",` + "\n" +
		"]\n```"

	candidates, dropped, err := ParseCandidates(text)
	require.NoError(t, err)
	require.Len(t, candidates, 3)
	assert.Equal(t, 2, dropped)

	assert.Equal(t, Candidate{
		Title:        "Toyota confirms solid-state EV for 2027",
		Summary:      "short",
		Body:         "**Toyota** confirms.",
		VisualPrompt: "battery cell",
		SourceURL:    "https://example.com/toyota",
	}, candidates[0])

	assert.Equal(t, "QuantumScape ships B1 samples", candidates[1].Title)
	assert.Equal(t, "QS ships.", candidates[1].Body)
	assert.Empty(t, candidates[1].SourceURL, "non-http source must be discarded")

	assert.Equal(t, "Summary only item", candidates[2].Title)
	assert.Equal(t, "Used as body", candidates[2].Body)
}

func TestParseCandidates_Malformed(t *testing.T) {
	_, _, err := ParseCandidates("[{\"title\": \"a\" \"body\": }]")
	assert.Error(t, err)

	_, _, err = ParseCandidates("the model refused")
	assert.ErrorIs(t, err, ErrNoJSONArray)
}

func TestParseCandidates_EmptyArray(t *testing.T) {
	candidates, dropped, err := ParseCandidates("[]")
	require.NoError(t, err)
	assert.Empty(t, candidates)
	assert.Zero(t, dropped)
}

func TestCandidateValidate(t *testing.T) {
	assert.Error(t, Candidate{Title: "  ", Body: "x"}.Validate())
	assert.Error(t, Candidate{Title: "x"}.Validate())
	assert.NoError(t, Candidate{Title: "x", Body: "y"}.Validate())
}

func TestArticleAttachImage(t *testing.T) {
	var a Article
	a.AttachImage([]byte("\x89PNG\r\n\x1a\n0000"))
	assert.Equal(t, "data:image/png;base64,iVBORw0KGgowMDAw", a.ImageURL)

	a.AttachImage(nil)
	assert.Empty(t, a.ImageURL)
	assert.Nil(t, a.ImageData)
}
