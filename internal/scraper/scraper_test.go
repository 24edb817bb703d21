package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSite(t *testing.T) (*httptest.Server, *int32) {
	var hits int32
	mux := http.NewServeMux()
	mux.HandleFunc("/redirect", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		http.Redirect(w, r, "/article?utm_source=x", http.StatusFound)
	})
	mux.HandleFunc("/article", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(`<html><head>
<title>Site | Toyota pilot line</title>
<link rel="canonical" href="/news/toyota-pilot-line">
<meta property="og:title" content="Toyota confirms solid-state pilot line">
</head><body><h1>Toyota</h1></body></html>`))
	})
	mux.HandleFunc("/plain", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><body><h1>Plain headline</h1></body></html>`))
	})
	mux.HandleFunc("/gone", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestResolver_FollowsRedirectToCanonical(t *testing.T) {
	srv, hits := newSite(t)
	r := NewResolver(nil)

	page, err := r.Resolve(context.Background(), srv.URL+"/redirect")

	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/news/toyota-pilot-line", page.URL)
	assert.Equal(t, "Toyota confirms solid-state pilot line", page.Title)

	// Cached on the second call.
	_, err = r.Resolve(context.Background(), srv.URL+"/redirect")
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(hits))
}

func TestResolver_NoCanonical(t *testing.T) {
	srv, _ := newSite(t)

	page, err := NewResolver(nil).Resolve(context.Background(), srv.URL+"/plain")

	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/plain", page.URL)
	assert.Equal(t, "Plain headline", page.Title)
}

func TestResolver_Unreachable(t *testing.T) {
	srv, _ := newSite(t)
	r := NewResolver(nil)

	_, err := r.Resolve(context.Background(), srv.URL+"/gone")
	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusNotFound, httpErr.StatusCode)

	_, err = r.Resolve(context.Background(), "javascript:alert(1)")
	assert.Error(t, err)
	_, err = r.Resolve(context.Background(), "")
	assert.Error(t, err)
}
