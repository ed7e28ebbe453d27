// Package poster resolves movie poster URLs through the TMDB API.
//
// The API key is read from the environment variable named in the config
// (TMDB_API_KEY by default). Requests time out after 10 seconds.
package poster

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	gobreaker "github.com/sony/gobreaker/v2"

	"movierec/internal/logging"
	"movierec/internal/metrics"
)

// TMDBMovie holds the fields of a TMDB movie this package uses.
type TMDBMovie struct {
	ID         int    `json:"id"`
	Title      string `json:"title"`
	PosterPath string `json:"poster_path"`
}

// Config configures the TMDB client.
type Config struct {
	BaseURL        string
	APIKeyEnv      string
	APIKey         string // takes precedence over APIKeyEnv
	Language       string
	Timeout        time.Duration
	CircuitBreaker bool
}

// Client is a minimal TMDB API client.
type Client struct {
	baseURL  string
	apiKey   string
	language string
	client   *http.Client
	cb       *gobreaker.CircuitBreaker[any]
}

// NewClient creates a TMDB client. A missing API key is not an error;
// HasKey reports it so callers can skip the network.
func NewClient(cfg Config) *Client {
	key := cfg.APIKey
	if key == "" && cfg.APIKeyEnv != "" {
		key = os.Getenv(cfg.APIKeyEnv)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.themoviedb.org/3"
	}
	if cfg.Language == "" {
		cfg.Language = "en-US"
	}
	t := cfg.Timeout
	if t == 0 {
		t = 10 * time.Second
	}
	c := &Client{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:   key,
		language: cfg.Language,
		client:   &http.Client{Timeout: t},
	}
	if cfg.CircuitBreaker {
		c.cb = newBreaker("tmdb")
	}
	return c
}

// HasKey reports whether an API key is configured.
func (c *Client) HasKey() bool { return c.apiKey != "" }

// MovieDetails fetches a movie by TMDB id.
func (c *Client) MovieDetails(ctx context.Context, id int) (*TMDBMovie, error) {
	q := url.Values{}
	q.Set("api_key", c.apiKey)
	q.Set("language", c.language)

	var movie TMDBMovie
	if err := c.get(ctx, "details", fmt.Sprintf("/movie/%d", id), q, &movie); err != nil {
		return nil, err
	}
	return &movie, nil
}

// SearchMovie searches TMDB by title and returns the results in API order.
func (c *Client) SearchMovie(ctx context.Context, title string) ([]TMDBMovie, error) {
	q := url.Values{}
	q.Set("api_key", c.apiKey)
	q.Set("query", title)

	var result struct {
		Results []TMDBMovie `json:"results"`
	}
	if err := c.get(ctx, "search", "/search/movie", q, &result); err != nil {
		return nil, err
	}
	return result.Results, nil
}

func (c *Client) get(ctx context.Context, endpoint, path string, q url.Values, out any) error {
	call := func() (any, error) {
		return nil, c.do(ctx, path, q, out)
	}
	var err error
	if c.cb != nil {
		_, err = c.cb.Execute(call)
	} else {
		_, err = call()
	}
	outcome := "ok"
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		outcome = "rejected"
	case err != nil:
		outcome = "error"
	}
	metrics.TMDBRequests.WithLabelValues(endpoint, outcome).Inc()
	return err
}

func (c *Client) do(ctx context.Context, path string, q url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return errors.Wrap(err, "tmdb: build request")
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.client.Do(req)
	if err != nil {
		return errors.Wrapf(err, "tmdb: GET %s", path)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Path: path, Code: resp.StatusCode, Status: resp.Status}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrapf(err, "tmdb: decode %s", path)
	}
	return nil
}

// StatusError is returned for non-2xx TMDB responses.
type StatusError struct {
	Path   string
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("tmdb: GET %s: %s", e.Path, e.Status)
}

// 4xx answers mean the service is up, so they do not count against the breaker.
func breakerSuccess(err error) bool {
	if err == nil {
		return true
	}
	var se *StatusError
	return errors.As(err, &se) && se.Code < 500
}

func newBreaker(name string) *gobreaker.CircuitBreaker[any] {
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)
	return gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:         name,
		MaxRequests:  1,
		Interval:     time.Minute,
		Timeout:      30 * time.Second,
		IsSuccessful: breakerSuccess,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state change")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateValue(to))
		},
	})
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
