package speech

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	// DefaultGTTSURL is the Google Translate speech endpoint.
	DefaultGTTSURL = "https://translate.google.com/translate_tts"

	// gttsMaxChars is the longest text the endpoint accepts per request.
	gttsMaxChars = 100

	gttsUserAgent = "Mozilla/5.0 (X11; Linux x86_64) mudra"
)

// GTTS synthesizes MP3 speech with the Google Translate TTS endpoint. Long
// text is split on word boundaries and the MP3 parts are concatenated.
type GTTS struct {
	baseURL    string
	httpClient *http.Client
}

// GTTSOption configures a GTTS.
type GTTSOption func(*GTTS)

// WithBaseURL points the synthesizer at another endpoint.
func WithBaseURL(u string) GTTSOption {
	return func(g *GTTS) {
		g.baseURL = u
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) GTTSOption {
	return func(g *GTTS) {
		g.httpClient = c
	}
}

// WithRequestTimeout sets the per-request HTTP timeout.
func WithRequestTimeout(d time.Duration) GTTSOption {
	return func(g *GTTS) {
		g.httpClient.Timeout = d
	}
}

// NewGTTS creates the synthesizer.
func NewGTTS(opts ...GTTSOption) *GTTS {
	g := &GTTS{
		baseURL:    DefaultGTTSURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Synthesize implements Synthesizer.
func (g *GTTS) Synthesize(ctx context.Context, text, lang string) ([]byte, error) {
	parts := splitText(text, gttsMaxChars)
	if len(parts) == 0 {
		return nil, ErrEmptyText
	}

	var audio []byte
	for i, part := range parts {
		b, err := g.fetch(ctx, part, lang, i, len(parts))
		if err != nil {
			return nil, fmt.Errorf("gtts part %d/%d: %w", i+1, len(parts), err)
		}
		audio = append(audio, b...)
	}
	return audio, nil
}

func (g *GTTS) fetch(ctx context.Context, text, lang string, idx, total int) ([]byte, error) {
	q := url.Values{}
	q.Set("ie", "UTF-8")
	q.Set("q", text)
	q.Set("tl", lang)
	q.Set("client", "tw-ob")
	q.Set("total", strconv.Itoa(total))
	q.Set("idx", strconv.Itoa(idx))
	q.Set("textlen", strconv.Itoa(utf8.RuneCountInString(text)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", gttsUserAgent)
	req.Header.Set("Referer", "https://translate.google.com/")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read audio: %w", err)
	}
	return data, nil
}

// splitText breaks text into pieces of at most max runes, preferring word
// boundaries. Words longer than max are cut.
func splitText(text string, max int) []string {
	var (
		parts []string
		cur   strings.Builder
		n     int
	)
	flush := func() {
		if n > 0 {
			parts = append(parts, cur.String())
			cur.Reset()
			n = 0
		}
	}

	for _, word := range strings.Fields(text) {
		runes := []rune(word)
		for len(runes) > max {
			flush()
			parts = append(parts, string(runes[:max]))
			runes = runes[max:]
		}
		wl := len(runes)
		if wl == 0 {
			continue
		}
		if n > 0 && n+1+wl > max {
			flush()
		}
		if n > 0 {
			cur.WriteByte(' ')
			n++
		}
		cur.WriteString(string(runes))
		n += wl
	}
	flush()
	return parts
}
