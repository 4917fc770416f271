package transcript

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"regexp"
	"strings"

	"github.com/brendonia/brendonia-backend/pkg/config"
	"github.com/brendonia/brendonia-backend/pkg/logger"
)

var (
	// ErrNoCaptions is returned when the watch page exposes no caption tracks.
	ErrNoCaptions = errors.New("video has no caption tracks")

	reShort  = regexp.MustCompile(`youtu\.be/([a-zA-Z0-9_-]{6,})`)
	reWatch  = regexp.MustCompile(`[?&]v=([a-zA-Z0-9_-]{6,})`)
	reShorts = regexp.MustCompile(`youtube\.com/shorts/([a-zA-Z0-9_-]{6,})`)
	reEmbed  = regexp.MustCompile(`youtube\.com/embed/([a-zA-Z0-9_-]{6,})`)

	reCaptionTracks = regexp.MustCompile(`"captionTracks":(\[.*?\])`)
)

// ParseVideoID extracts a YouTube video id from any of the supported URL
// shapes (youtu.be short links, watch, shorts, embed).
func ParseVideoID(rawURL string) (string, bool) {
	u := strings.TrimSpace(rawURL)
	for _, re := range []*regexp.Regexp{reShort, reWatch, reShorts, reEmbed} {
		if m := re.FindStringSubmatch(u); len(m) == 2 {
			return m[1], true
		}
	}
	return "", false
}

// Item is one caption cue with second-resolution timing.
type Item struct {
	Text     string
	StartSec int
	DurSec   int
}

// Client fetches caption tracks from the YouTube watch page without
// downloading the video.
type Client struct {
	cfg        config.TranscriptConfig
	httpClient *http.Client
}

func NewClient(cfg config.TranscriptConfig, logg *logger.Logger) *Client {
	if logg != nil {
		logg.Info(context.Background(), "transcript client initialized")
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

type captionTrack struct {
	BaseURL      string `json:"baseUrl"`
	LanguageCode string `json:"languageCode"`
	Kind         string `json:"kind"`
}

// Fetch returns the caption cues for the video id, preferring the configured
// language and falling back to the first available track.
func (c *Client) Fetch(ctx context.Context, videoID string) ([]Item, error) {
	if strings.TrimSpace(videoID) == "" {
		return nil, errors.New("video id is required")
	}

	tracks, err := c.fetchTracks(ctx, videoID)
	if err != nil {
		return nil, err
	}

	track := pickTrack(tracks, c.cfg.Language)
	return c.fetchCues(ctx, track.BaseURL)
}

func (c *Client) fetchTracks(ctx context.Context, videoID string) ([]captionTrack, error) {
	watchURL := fmt.Sprintf("%s/watch?v=%s", strings.TrimRight(c.cfg.BaseURL, "/"), videoID)
	body, err := c.get(ctx, watchURL)
	if err != nil {
		return nil, fmt.Errorf("fetching watch page: %w", err)
	}

	m := reCaptionTracks.FindSubmatch(body)
	if len(m) != 2 {
		return nil, ErrNoCaptions
	}

	var tracks []captionTrack
	if err := json.Unmarshal(m[1], &tracks); err != nil {
		return nil, fmt.Errorf("decoding caption tracks: %w", err)
	}
	if len(tracks) == 0 {
		return nil, ErrNoCaptions
	}
	return tracks, nil
}

func pickTrack(tracks []captionTrack, language string) captionTrack {
	lang := strings.TrimSpace(strings.ToLower(language))
	if lang != "" {
		// manual captions for the language win over ASR ones
		for _, t := range tracks {
			if strings.EqualFold(t.LanguageCode, lang) && t.Kind != "asr" {
				return t
			}
		}
		for _, t := range tracks {
			if strings.EqualFold(t.LanguageCode, lang) {
				return t
			}
		}
	}
	return tracks[0]
}

type timedText struct {
	Texts []struct {
		Start float64 `xml:"start,attr"`
		Dur   float64 `xml:"dur,attr"`
		Body  string  `xml:",chardata"`
	} `xml:"text"`
}

var reWhitespace = regexp.MustCompile(`\s+`)

func (c *Client) fetchCues(ctx context.Context, trackURL string) ([]Item, error) {
	raw, err := c.get(ctx, html.UnescapeString(trackURL))
	if err != nil {
		return nil, fmt.Errorf("fetching caption track: %w", err)
	}

	var doc timedText
	if err := xml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decoding caption xml: %w", err)
	}

	items := make([]Item, 0, len(doc.Texts))
	for _, t := range doc.Texts {
		text := reWhitespace.ReplaceAllString(html.UnescapeString(t.Body), " ")
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		items = append(items, Item{
			Text:     text,
			StartSec: int(t.Start),
			DurSec:   int(t.Dur),
		})
	}
	return items, nil
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept-Language", c.cfg.Language+",en;q=0.8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, 8<<20))
}
