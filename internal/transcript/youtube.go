package transcript

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"tubesum/internal/domain"

	"github.com/PuerkitoBio/goquery"
	"github.com/tidwall/gjson"
)

const (
	DefaultBaseURL = "https://www.youtube.com"

	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
		"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/127.0.0.0 Safari/537.36"

	innertubeClientName    = "ANDROID"
	innertubeClientVersion = "20.10.38"

	consentFormAction = "https://consent.youtube.com/s"
	generatedKind     = "asr"
	maxResponseBytes  = 16 << 20
)

var innertubeAPIKeyRe = regexp.MustCompile(`"INNERTUBE_API_KEY":\s*"([a-zA-Z0-9_-]+)"`)

type captionTrack struct {
	BaseURL      string
	LanguageCode string
	Name         string
	Generated    bool
}

type timedText struct {
	Texts []struct {
		Start string `xml:"start,attr"`
		Dur   string `xml:"dur,attr"`
		Text  string `xml:",chardata"`
	} `xml:"text"`
}

type YouTube struct {
	client    *http.Client
	baseURL   string
	languages []string
	log       *slog.Logger
}

type Option func(*YouTube)

// WithBaseURL points the fetcher at another host, e.g. a test server.
func WithBaseURL(baseURL string) Option {
	return func(y *YouTube) {
		y.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// NewYouTube creates a fetcher that prefers the given caption languages in order.
// Manually created captions are preferred over generated ones for each language.
func NewYouTube(client *http.Client, languages []string, log *slog.Logger, opts ...Option) *YouTube {
	if client == nil {
		client = http.DefaultClient
	}

	var langs []string
	for _, l := range languages {
		if l = strings.TrimSpace(l); l != "" {
			langs = append(langs, l)
		}
	}
	if len(langs) == 0 {
		langs = []string{"en"}
	}

	y := &YouTube{
		client:    client,
		baseURL:   DefaultBaseURL,
		languages: langs,
		log:       log,
	}

	for _, opt := range opts {
		opt(y)
	}

	return y
}

func (y *YouTube) Fetch(ctx context.Context, videoID string) ([]domain.Segment, error) {
	segments, err := y.fetch(ctx, videoID)
	if err != nil {
		return nil, &Error{VideoID: videoID, Err: err}
	}

	return segments, nil
}

func (y *YouTube) fetch(ctx context.Context, videoID string) ([]domain.Segment, error) {
	page, err := y.fetchWatchPage(ctx, videoID)
	if err != nil {
		return nil, fmt.Errorf("fetch watch page: %w", err)
	}

	apiKey, err := extractInnertubeAPIKey(page)
	if err != nil {
		return nil, err
	}

	player, err := y.fetchPlayerResponse(ctx, videoID, apiKey)
	if err != nil {
		return nil, fmt.Errorf("fetch player response: %w", err)
	}

	tracks, err := parseCaptionTracks(player)
	if err != nil {
		return nil, err
	}

	track, err := selectTrack(tracks, y.languages)
	if err != nil {
		return nil, err
	}

	y.log.DebugContext(ctx, "Caption track is selected",
		"videoID", videoID,
		"languageCode", track.LanguageCode,
		"generated", track.Generated)

	segments, err := y.fetchTrack(ctx, track)
	if err != nil {
		return nil, fmt.Errorf("fetch caption track: %w", err)
	}

	if len(segments) == 0 {
		return nil, ErrEmptyTranscript
	}

	return segments, nil
}

func (y *YouTube) fetchWatchPage(ctx context.Context, videoID string) ([]byte, error) {
	watchURL := y.baseURL + "/watch?v=" + url.QueryEscape(videoID)

	page, err := y.do(ctx, http.MethodGet, watchURL, nil, "")
	if err != nil {
		return nil, err
	}

	if !bytes.Contains(page, []byte(`action="`+consentFormAction)) {
		return page, nil
	}

	consentValue, err := consentCookieValue(page)
	if err != nil {
		return nil, err
	}

	y.log.DebugContext(ctx, "Consent page is received, retrying with cookie",
		"videoID", videoID)

	page, err = y.do(ctx, http.MethodGet, watchURL, nil, "CONSENT=YES+"+consentValue)
	if err != nil {
		return nil, err
	}

	if bytes.Contains(page, []byte(`action="`+consentFormAction)) {
		return nil, errors.New("consent cookie is not accepted")
	}

	return page, nil
}

func (y *YouTube) fetchPlayerResponse(ctx context.Context, videoID string, apiKey string) ([]byte, error) {
	payload, err := json.Marshal(map[string]any{
		"context": map[string]any{
			"client": map[string]any{
				"clientName":    innertubeClientName,
				"clientVersion": innertubeClientVersion,
			},
		},
		"videoId": videoID,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	playerURL := y.baseURL + "/youtubei/v1/player?key=" + url.QueryEscape(apiKey)

	return y.do(ctx, http.MethodPost, playerURL, payload, "")
}

func (y *YouTube) fetchTrack(ctx context.Context, track captionTrack) ([]domain.Segment, error) {
	trackURL := strings.Replace(track.BaseURL, "&fmt=srv3", "", 1)

	body, err := y.do(ctx, http.MethodGet, trackURL, nil, "")
	if err != nil {
		return nil, err
	}

	return parseTimedText(body)
}

func (y *YouTube) do(
	ctx context.Context,
	method string,
	rawURL string,
	body []byte,
	cookie string,
) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept-Language", "en-US")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cookie != "" {
		req.Header.Set("Cookie", cookie)
	}

	resp, err := y.client.Do(req) //nolint:gosec // YouTube URL
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer func() {
		if err = resp.Body.Close(); err != nil {
			y.log.ErrorContext(ctx, "Failed to close response body",
				"error", err,
				"url", rawURL,
				"operation", "do")
		}
	}()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, ErrTooManyRequests
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("do request: unexpected status: %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	return data, nil
}

func consentCookieValue(page []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return "", fmt.Errorf("create document from reader: %w", err)
	}

	value, ok := doc.Find(`form[action="` + consentFormAction + `"] input[name="v"]`).Attr("value")
	if !ok || strings.TrimSpace(value) == "" {
		return "", errors.New("consent cookie value is not found")
	}

	return strings.TrimSpace(value), nil
}

func extractInnertubeAPIKey(page []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return "", fmt.Errorf("create document from reader: %w", err)
	}

	var apiKey string
	doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if m := innertubeAPIKeyRe.FindStringSubmatch(s.Text()); m != nil {
			apiKey = m[1]
			return false
		}
		return true
	})

	if apiKey != "" {
		return apiKey, nil
	}

	if doc.Find(".g-recaptcha").Length() > 0 {
		return "", ErrRequestBlocked
	}

	return "", ErrAPIKeyNotFound
}

func parseCaptionTracks(player []byte) ([]captionTrack, error) {
	if !gjson.ValidBytes(player) {
		return nil, errors.New("player response is not valid JSON")
	}

	status := gjson.GetBytes(player, "playabilityStatus.status").String()
	reason := gjson.GetBytes(player, "playabilityStatus.reason").String()

	if err := playabilityError(status, reason); err != nil {
		return nil, err
	}

	rawTracks := gjson.GetBytes(player, "captions.playerCaptionsTracklistRenderer.captionTracks")
	if !rawTracks.IsArray() || len(rawTracks.Array()) == 0 {
		return nil, ErrTranscriptsDisabled
	}

	var tracks []captionTrack
	for _, t := range rawTracks.Array() {
		baseURL := t.Get("baseUrl").String()
		if baseURL == "" {
			continue
		}

		name := t.Get("name.simpleText").String()
		if name == "" {
			name = t.Get("name.runs.0.text").String()
		}

		tracks = append(tracks, captionTrack{
			BaseURL:      baseURL,
			LanguageCode: t.Get("languageCode").String(),
			Name:         name,
			Generated:    t.Get("kind").String() == generatedKind,
		})
	}

	if len(tracks) == 0 {
		return nil, ErrTranscriptsDisabled
	}

	return tracks, nil
}

func playabilityError(status string, reason string) error {
	switch status {
	case "", "OK":
		return nil
	case "ERROR":
		return withReason(ErrVideoUnavailable, reason)
	case "LOGIN_REQUIRED":
		lower := strings.ToLower(reason)
		switch {
		case strings.Contains(lower, "not a bot"):
			return withReason(ErrRequestBlocked, reason)
		case strings.Contains(lower, "age") || strings.Contains(lower, "inappropriate"):
			return withReason(ErrAgeRestricted, reason)
		}
	}

	return withReason(ErrVideoUnplayable, reason)
}

func withReason(err error, reason string) error {
	if reason = strings.TrimSpace(reason); reason == "" {
		return err
	}

	return fmt.Errorf("%w (%s)", err, reason)
}

// selectTrack walks the preferred languages in order and, for each, takes a
// manually created track before a generated one.
func selectTrack(tracks []captionTrack, languages []string) (captionTrack, error) {
	for _, lang := range languages {
		for _, generated := range []bool{false, true} {
			for _, t := range tracks {
				if t.LanguageCode == lang && t.Generated == generated {
					return t, nil
				}
			}
		}
	}

	var (
		available []string
		seen      = make(map[string]struct{})
	)
	for _, t := range tracks {
		if _, ok := seen[t.LanguageCode]; ok {
			continue
		}
		seen[t.LanguageCode] = struct{}{}

		label := t.LanguageCode
		if t.Name != "" {
			label = fmt.Sprintf("%s (%s)", t.LanguageCode, t.Name)
		}
		available = append(available, label)
	}

	return captionTrack{}, fmt.Errorf("%w (requested: %s, available: %s)",
		ErrNoTranscriptFound,
		strings.Join(languages, ", "),
		strings.Join(available, ", "))
}

func parseTimedText(body []byte) ([]domain.Segment, error) {
	var tt timedText
	if err := xml.Unmarshal(body, &tt); err != nil {
		return nil, fmt.Errorf("unmarshal timed text: %w", err)
	}

	segments := make([]domain.Segment, 0, len(tt.Texts))
	for _, t := range tt.Texts {
		text, err := cleanCaptionText(t.Text)
		if err != nil {
			return nil, err
		}
		if text == "" {
			continue
		}

		start, err := parseSeconds(t.Start)
		if err != nil {
			return nil, fmt.Errorf("parse start: %w", err)
		}

		duration, err := parseSeconds(t.Dur)
		if err != nil {
			return nil, fmt.Errorf("parse dur: %w", err)
		}

		segments = append(segments, domain.Segment{
			Text:     text,
			Start:    start,
			Duration: duration,
		})
	}

	return segments, nil
}

// cleanCaptionText unescapes HTML entities and drops formatting markup.
func cleanCaptionText(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", nil
	}

	if !strings.ContainsAny(raw, "&<") {
		return strings.TrimSpace(raw), nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("create document from reader: %w", err)
	}

	return strings.TrimSpace(doc.Text()), nil
}

func parseSeconds(raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}

	return strconv.ParseFloat(raw, 64)
}
