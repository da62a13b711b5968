package venue

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/omniarb/omniarbbot/internal/domain"
)

// HTTPSource polls a REST tickers endpoint. The venue is expected to expose
// GET {base}/tickers returning a JSON array of ticks.
type HTTPSource struct {
	name       string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewHTTPSource creates a polling source for the given base URL.
func NewHTTPSource(baseURL string, logger *slog.Logger) *HTTPSource {
	name := baseURL
	if u, err := url.Parse(baseURL); err == nil && u.Host != "" {
		name = u.Host
	}

	return &HTTPSource{
		name:    name,
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger.With(slog.String("component", "venue"), slog.String("venue", name)),
	}
}

// Name implements Source.
func (s *HTTPSource) Name() string { return s.name }

// Fetch implements Source by requesting the venue's tickers endpoint.
func (s *HTTPSource) Fetch(ctx context.Context) ([]domain.Observation, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/tickers", nil)
	if err != nil {
		return nil, fmt.Errorf("venue/http: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("venue/http: %s: %w", s.name, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("venue/http: %s: read response: %w", s.name, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("venue/http: %s: HTTP %d", s.name, resp.StatusCode)
	}

	var ticks []tickerMessage
	if err := json.Unmarshal(body, &ticks); err != nil {
		return nil, fmt.Errorf("venue/http: %s: decode tickers: %w", s.name, err)
	}

	now := time.Now().UTC()
	out := make([]domain.Observation, 0, len(ticks))
	for _, tk := range ticks {
		out = append(out, tk.toObservation(s.name, now))
	}

	s.logger.Debug("fetched tickers", slog.Int("count", len(out)))
	return out, nil
}
