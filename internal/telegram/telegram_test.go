package telegram

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deusflow/batterynews/internal/logger"
	"github.com/deusflow/batterynews/internal/state"
)

type call struct {
	method  string
	text    string
	caption string
	photo   []byte
}

type fakeAPI struct {
	mu        sync.Mutex
	calls     []call
	photoFail bool
	textFail  bool
}

func (f *fakeAPI) handler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var c call
		switch {
		case strings.HasSuffix(r.URL.Path, "/sendPhoto"):
			require.NoError(t, r.ParseMultipartForm(1<<20))
			c.method = "sendPhoto"
			c.caption = r.FormValue("caption")
			assert.Equal(t, "HTML", r.FormValue("parse_mode"))
			assert.Equal(t, "@chan", r.FormValue("chat_id"))
			file, _, err := r.FormFile("photo")
			require.NoError(t, err)
			c.photo, _ = io.ReadAll(file)
		case strings.HasSuffix(r.URL.Path, "/sendMessage"):
			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			c.method = "sendMessage"
			c.text, _ = body["text"].(string)
			assert.Equal(t, "HTML", body["parse_mode"])
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		assert.Contains(t, r.URL.Path, "/botTOKEN/")

		f.mu.Lock()
		f.calls = append(f.calls, c)
		fail := (c.method == "sendPhoto" && f.photoFail) || (c.method == "sendMessage" && f.textFail)
		f.mu.Unlock()

		if fail {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"ok":false,"error_code":400,"description":"Bad Request: can't parse entities"}`))
			return
		}
		_, _ = w.Write([]byte(`{"ok":true,"result":{}}`))
	})
}

func (f *fakeAPI) got() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.calls...)
}

func newTestPublisher(t *testing.T, api *fakeAPI) *Publisher {
	srv := httptest.NewServer(api.handler(t))
	t.Cleanup(srv.Close)
	return NewPublisher(NewClient(WithBaseURL(srv.URL)), nil)
}

var (
	dest = Destination{Token: "TOKEN", ChatID: "@chan"}
	png  = []byte("\x89PNG\r\n\x1a\n0000")
)

func TestPublish_TextOnly(t *testing.T) {
	api := &fakeAPI{}
	p := newTestPublisher(t, api)

	res := p.Publish(context.Background(), dest, "<b>Title</b>\n\nBody", nil)

	assert.True(t, res.OK)
	calls := api.got()
	require.Len(t, calls, 1)
	assert.Equal(t, "sendMessage", calls[0].method)
	assert.Equal(t, "<b>Title</b>\n\nBody", calls[0].text)
}

func TestPublish_PhotoWithLongCaption(t *testing.T) {
	api := &fakeAPI{}
	p := newTestPublisher(t, api)

	caption := strings.Repeat("a", 1100)
	res := p.Publish(context.Background(), dest, caption, png)

	assert.True(t, res.OK)
	calls := api.got()
	require.Len(t, calls, 1)
	got := calls[0]
	assert.Equal(t, "sendPhoto", got.method)
	assert.Equal(t, png, got.photo)
	assert.LessOrEqual(t, utf8.RuneCountInString(got.caption), 1024-80)
	assert.True(t, strings.HasSuffix(got.caption, "..."))
}

func TestPublish_ShortCaptionUntouched(t *testing.T) {
	api := &fakeAPI{}
	p := newTestPublisher(t, api)

	res := p.Publish(context.Background(), dest, "<b>Short</b>", png)

	assert.True(t, res.OK)
	calls := api.got()
	require.Len(t, calls, 1)
	assert.Equal(t, "<b>Short</b>", calls[0].caption)
}

func TestPublish_PhotoFailureFallsBackOnce(t *testing.T) {
	api := &fakeAPI{photoFail: true}
	p := newTestPublisher(t, api)

	caption := "<b>Title</b>\n\n" + strings.Repeat("b", 1500)
	res := p.Publish(context.Background(), dest, caption, png)

	assert.True(t, res.OK)
	calls := api.got()
	require.Len(t, calls, 2)
	assert.Equal(t, "sendPhoto", calls[0].method)
	assert.Equal(t, "sendMessage", calls[1].method)
	// The text fallback carries the full caption, not the photo-truncated one.
	assert.Equal(t, caption, calls[1].text)
}

func TestPublish_BothFail(t *testing.T) {
	api := &fakeAPI{photoFail: true, textFail: true}
	p := newTestPublisher(t, api)

	res := p.Publish(context.Background(), dest, "caption", png)

	assert.False(t, res.OK)
	assert.Contains(t, res.Description, "can't parse entities")
	assert.Len(t, api.got(), 2)
}

func TestPublish_TextTruncatedToLimit(t *testing.T) {
	api := &fakeAPI{}
	p := newTestPublisher(t, api)

	res := p.Publish(context.Background(), dest, strings.Repeat("c", 5000), nil)

	assert.True(t, res.OK)
	calls := api.got()
	require.Len(t, calls, 1)
	assert.LessOrEqual(t, utf8.RuneCountInString(calls[0].text), 4096)
}

func TestClient_APIError(t *testing.T) {
	api := &fakeAPI{textFail: true}
	srv := httptest.NewServer(api.handler(t))
	defer srv.Close()

	err := NewClient(WithBaseURL(srv.URL)).SendMessage(context.Background(), dest, "hi")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 400, apiErr.ErrorCode)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
}

func TestPublish_TransportErrorDoesNotLeakToken(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	const token = "123456:SECRET-BOT-TOKEN"
	store := state.New(0, 0)
	log := slog.New(logger.NewRingHandler(slog.NewTextHandler(io.Discard, nil), store))
	p := NewPublisher(NewClient(WithBaseURL(srv.URL), WithLogger(log)), log)

	res := p.Publish(context.Background(), Destination{Token: token, ChatID: "@chan"}, "hi", png)

	assert.False(t, res.OK)
	assert.NotEmpty(t, res.Description)
	assert.NotContains(t, res.Description, token)
	assert.Contains(t, res.Description, "sendPhoto")

	logs := store.Logs()
	require.NotEmpty(t, logs)
	for _, line := range logs {
		assert.NotContains(t, line, "SECRET-BOT-TOKEN")
	}
}
