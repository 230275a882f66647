package transcript

import (
	"context"
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"

	"github.com/spherical/source-ingest/internal/domain"
	"github.com/spherical/source-ingest/internal/retry"
)

const (
	defaultBaseURL   = "https://www.youtube.com"
	playerMarker     = "ytInitialPlayerResponse"
	captionTracksKey = "captions.playerCaptionsTracklistRenderer.captionTracks"
	userAgent        = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
	maxPageBytes     = 8 << 20
)

var videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// YouTubeFetcher reads caption tracks from YouTube watch pages.
type YouTubeFetcher struct {
	baseURL    string
	httpClient *http.Client
	retry      retry.Config
	logger     zerolog.Logger
}

// YouTubeOptions configures NewYouTubeFetcher.
type YouTubeOptions struct {
	BaseURL    string
	HTTPClient *http.Client
	Retry      retry.Config
	Logger     zerolog.Logger
}

// NewYouTubeFetcher creates a fetcher.
func NewYouTubeFetcher(opts YouTubeOptions) *YouTubeFetcher {
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = defaultBaseURL
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	return &YouTubeFetcher{
		baseURL:    base,
		httpClient: hc,
		retry:      opts.Retry,
		logger:     opts.Logger,
	}
}

// captionTrack is one entry of the player response's caption list.
type captionTrack struct {
	BaseURL      string
	LanguageCode string
	Kind         string
}

// FetchSegments returns the caption segments of link's track for locale.
func (f *YouTubeFetcher) FetchSegments(ctx context.Context, link, locale string) ([]string, error) {
	id, err := ParseVideoID(link)
	if err != nil {
		return nil, err
	}

	tracks, err := f.captionTracks(ctx, id, locale)
	if err != nil {
		return nil, err
	}
	if len(tracks) == 0 {
		return nil, fmt.Errorf("video %s has no captions", id)
	}

	track, ok := pickTrack(tracks, locale)
	if !ok {
		available := make([]string, 0, len(tracks))
		for _, t := range tracks {
			available = append(available, t.LanguageCode)
		}
		return nil, fmt.Errorf("no captions in %s (available: %s)", locale, strings.Join(available, ", "))
	}

	trackURL, err := f.resolve(track.BaseURL)
	if err != nil {
		return nil, err
	}

	body, err := f.get(ctx, trackURL, locale)
	if err != nil {
		return nil, err
	}

	segments, err := parseTimedText(body)
	if err != nil {
		return nil, err
	}
	if len(segments) == 0 {
		return nil, fmt.Errorf("caption track %s is empty", locale)
	}
	return segments, nil
}

func (f *YouTubeFetcher) captionTracks(ctx context.Context, id, locale string) ([]captionTrack, error) {
	page, err := f.get(ctx, fmt.Sprintf("%s/watch?v=%s&hl=%s", f.baseURL, id, url.QueryEscape(locale)), locale)
	if err != nil {
		return nil, err
	}

	text := string(page)
	start := strings.Index(text, playerMarker)
	if start < 0 {
		return nil, fmt.Errorf("video %s: player response not found", id)
	}
	brace := strings.IndexByte(text[start:], '{')
	if brace < 0 {
		return nil, fmt.Errorf("video %s: malformed player response", id)
	}

	// gjson stops at the end of the matched value, so trailing page script is harmless.
	result := gjson.Get(text[start+brace:], captionTracksKey)
	if !result.Exists() {
		return nil, nil
	}

	var tracks []captionTrack
	result.ForEach(func(_, value gjson.Result) bool {
		tracks = append(tracks, captionTrack{
			BaseURL:      value.Get("baseUrl").String(),
			LanguageCode: value.Get("languageCode").String(),
			Kind:         value.Get("kind").String(),
		})
		return true
	})
	return tracks, nil
}

// pickTrack prefers a manual track over an auto-generated one for the same language.
func pickTrack(tracks []captionTrack, locale string) (captionTrack, bool) {
	var auto *captionTrack
	for i := range tracks {
		if !strings.EqualFold(tracks[i].LanguageCode, locale) {
			continue
		}
		if tracks[i].Kind != "asr" {
			return tracks[i], true
		}
		if auto == nil {
			auto = &tracks[i]
		}
	}
	if auto != nil {
		return *auto, true
	}
	return captionTrack{}, false
}

func (f *YouTubeFetcher) resolve(ref string) (string, error) {
	if ref == "" {
		return "", fmt.Errorf("caption track has no url")
	}
	base, err := url.Parse(f.baseURL + "/")
	if err != nil {
		return "", err
	}
	u, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("caption track url: %w", err)
	}
	return base.ResolveReference(u).String(), nil
}

func (f *YouTubeFetcher) get(ctx context.Context, target, locale string) ([]byte, error) {
	var body []byte
	err := retry.Do(ctx, f.retry, f.logger, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return err
		}
		req.Header.Set("User-Agent", userAgent)
		req.Header.Set("Accept-Language", locale)

		resp, err := f.httpClient.Do(req)
		if err != nil {
			return retry.TransportError(err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return retry.StatusError(resp.StatusCode, string(snippet))
		}

		body, err = io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
		if err != nil {
			return retry.TransportError(err)
		}
		return nil
	})
	return body, err
}

// timedText covers both the legacy <transcript><text> and the srv3
// <timedtext><body><p> caption formats.
type timedText struct {
	Texts []struct {
		Value string `xml:",chardata"`
	} `xml:"text"`
	Body struct {
		Paragraphs []struct {
			Value string   `xml:",chardata"`
			Spans []string `xml:"s"`
		} `xml:"p"`
	} `xml:"body"`
}

func parseTimedText(data []byte) ([]string, error) {
	var doc timedText
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse caption track: %w", err)
	}

	// Track text arrives entity-escaped a second time; past that, segments
	// are kept as published.
	var segments []string
	add := func(s string) {
		segments = append(segments, html.UnescapeString(s))
	}

	for _, t := range doc.Texts {
		add(t.Value)
	}
	for _, p := range doc.Body.Paragraphs {
		if len(p.Spans) > 0 {
			add(strings.Join(p.Spans, ""))
			continue
		}
		add(p.Value)
	}
	return segments, nil
}

// ParseVideoID extracts the 11-character video id from a watch, short,
// embed, live or youtu.be link, or accepts a bare id.
func ParseVideoID(link string) (string, error) {
	link = strings.TrimSpace(link)
	if videoIDPattern.MatchString(link) {
		return link, nil
	}

	u, err := url.Parse(link)
	if err != nil || u.Host == "" {
		return "", domain.ValidationError(fmt.Sprintf("not a video link: %q", link), err)
	}

	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	host = strings.TrimPrefix(host, "m.")

	var candidate string
	switch host {
	case "youtu.be":
		candidate = strings.Trim(u.Path, "/")
	case "youtube.com", "music.youtube.com", "youtube-nocookie.com":
		if v := u.Query().Get("v"); v != "" {
			candidate = v
			break
		}
		parts := strings.Split(strings.Trim(u.Path, "/"), "/")
		if len(parts) == 2 {
			switch parts[0] {
			case "shorts", "embed", "live", "v":
				candidate = parts[1]
			}
		}
	}

	if !videoIDPattern.MatchString(candidate) {
		return "", domain.ValidationError(fmt.Sprintf("no video id in %q", link), nil)
	}
	return candidate, nil
}
