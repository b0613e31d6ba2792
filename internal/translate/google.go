package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"sjsage522/opinionworker/services/metrics"
)

// GoogleTranslator calls the public Google translate endpoint
type GoogleTranslator struct {
	endpoint string
	hc       *http.Client
	rl       *rate.Limiter
}

// NewGoogleTranslator creates a translator limited to rps requests per second
func NewGoogleTranslator(endpoint string, rps int, hc *http.Client) *GoogleTranslator {
	if rps <= 0 {
		rps = 5
	}
	if hc == nil {
		hc = &http.Client{Timeout: 20 * time.Second}
	}
	return &GoogleTranslator{
		endpoint: endpoint,
		hc:       hc,
		rl:       rate.NewLimiter(rate.Limit(rps), rps),
	}
}

// Translate translates text from source to target
func (g *GoogleTranslator) Translate(ctx context.Context, text, source, target string) (string, error) {
	if err := ValidateLocale(source); err != nil {
		return "", err
	}
	if err := ValidateLocale(target); err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return text, nil
	}

	out, err := g.translate(ctx, text, source, target)
	if err != nil {
		metrics.ObserveTranslation("error")
		return "", err
	}
	metrics.ObserveTranslation("ok")
	return out, nil
}

func (g *GoogleTranslator) translate(ctx context.Context, text, source, target string) (string, error) {
	if err := g.rl.Wait(ctx); err != nil {
		return "", err
	}

	q := url.Values{}
	q.Set("client", "gtx")
	q.Set("sl", source)
	q.Set("tl", target)
	q.Set("dt", "t")
	q.Set("q", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := g.hc.Do(req)
	if err != nil {
		return "", fmt.Errorf("translate request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return "", fmt.Errorf("translate unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read translate response: %w", err)
	}
	return parseResponse(body)
}

// parseResponse joins the translated segments of a response shaped like
// [[["translated","original",...],...],...]
func parseResponse(body []byte) (string, error) {
	var top []json.RawMessage
	if err := json.Unmarshal(body, &top); err != nil {
		return "", fmt.Errorf("invalid translate response: %w", err)
	}
	if len(top) == 0 {
		return "", fmt.Errorf("empty translate response")
	}

	var segments [][]interface{}
	if err := json.Unmarshal(top[0], &segments); err != nil {
		return "", fmt.Errorf("invalid translate segments: %w", err)
	}

	var sb strings.Builder
	for _, seg := range segments {
		if len(seg) == 0 {
			continue
		}
		if s, ok := seg[0].(string); ok {
			sb.WriteString(s)
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("translate response has no text")
	}
	return sb.String(), nil
}
