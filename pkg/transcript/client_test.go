package transcript

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brendonia/brendonia-backend/pkg/config"
)

func TestParseVideoID(t *testing.T) {
	cases := []struct {
		name string
		url  string
		want string
		ok   bool
	}{
		{"short link", "https://youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"watch", "https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"watch with params", "https://www.youtube.com/watch?t=10&v=dQw4w9WgXcQ&list=x", "dQw4w9WgXcQ", true},
		{"shorts", "https://youtube.com/shorts/abc123DEF45", "abc123DEF45", true},
		{"embed", "https://www.youtube.com/embed/abc123DEF45", "abc123DEF45", true},
		{"whitespace padded", "  https://youtu.be/abc123DEF45  ", "abc123DEF45", true},
		{"not youtube", "https://vimeo.com/12345678", "", false},
		{"empty", "", "", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ParseVideoID(tc.url)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

const captionXML = `<?xml version="1.0" encoding="utf-8"?>
<transcript>
  <text start="0.4" dur="2.1">primeira   fala</text>
  <text start="2.5" dur="3.0">segunda &amp; terceira</text>
  <text start="5.5" dur="1.0">   </text>
  <text start="6.5" dur="2.0">ultima fala</text>
</transcript>`

func watchPage(tracksJSON string) string {
	return `<html><script>var ytInitialPlayerResponse = {"captions":{"playerCaptionsTracklistRenderer":{"captionTracks":` + tracksJSON + `}}};</script></html>`
}

func newTestTranscriptClient(baseURL string) *Client {
	return NewClient(config.TranscriptConfig{
		BaseURL:  baseURL,
		Language: "pt",
		Timeout:  5 * time.Second,
	}, nil)
}

func TestFetch_PrefersManualTrackForLanguage(t *testing.T) {
	var servedTrack string
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/watch", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "vid123abc", r.URL.Query().Get("v"))
		tracks := fmt.Sprintf(
			`[{"baseUrl":"%s/caps/auto","languageCode":"pt","kind":"asr"},{"baseUrl":"%s/caps/manual","languageCode":"pt","kind":""},{"baseUrl":"%s/caps/en","languageCode":"en","kind":""}]`,
			server.URL, server.URL, server.URL,
		)
		fmt.Fprint(w, watchPage(tracks))
	})
	mux.HandleFunc("/caps/", func(w http.ResponseWriter, r *http.Request) {
		servedTrack = r.URL.Path
		w.Header().Set("Content-Type", "text/xml")
		fmt.Fprint(w, captionXML)
	})

	client := newTestTranscriptClient(server.URL)
	items, err := client.Fetch(context.Background(), "vid123abc")
	require.NoError(t, err)

	assert.Equal(t, "/caps/manual", servedTrack)

	require.Len(t, items, 3)
	assert.Equal(t, Item{Text: "primeira fala", StartSec: 0, DurSec: 2}, items[0])
	assert.Equal(t, "segunda & terceira", items[1].Text)
	assert.Equal(t, 2, items[1].StartSec)
	assert.Equal(t, "ultima fala", items[2].Text)
}

func TestFetch_FallsBackToFirstTrack(t *testing.T) {
	var servedTrack string
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/watch", func(w http.ResponseWriter, r *http.Request) {
		tracks := fmt.Sprintf(`[{"baseUrl":"%s/caps/en","languageCode":"en","kind":""}]`, server.URL)
		fmt.Fprint(w, watchPage(tracks))
	})
	mux.HandleFunc("/caps/", func(w http.ResponseWriter, r *http.Request) {
		servedTrack = r.URL.Path
		fmt.Fprint(w, captionXML)
	})

	client := newTestTranscriptClient(server.URL)
	_, err := client.Fetch(context.Background(), "vid123abc")
	require.NoError(t, err)
	assert.Equal(t, "/caps/en", servedTrack)
}

func TestFetch_NoCaptionTracks(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>sem legendas</body></html>`)
	}))
	defer server.Close()

	client := newTestTranscriptClient(server.URL)
	_, err := client.Fetch(context.Background(), "vid123abc")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoCaptions))
}

func TestFetch_RequiresVideoID(t *testing.T) {
	client := newTestTranscriptClient("http://unused.invalid")
	_, err := client.Fetch(context.Background(), "  ")
	require.Error(t, err)
}
