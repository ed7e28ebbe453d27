package poster

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/testutil"
	gobreaker "github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"movierec/internal/domain"
	"movierec/internal/metrics"
)

const imageBase = "https://img.test/t/p/w500"

type fakeTMDB struct {
	details   http.HandlerFunc
	search    http.HandlerFunc
	hits      atomic.Int32
	searchHit atomic.Int32
}

func (f *fakeTMDB) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.hits.Add(1)
	if r.URL.Path == "/search/movie" {
		f.searchHit.Add(1)
		if f.search != nil {
			f.search(w, r)
			return
		}
		http.NotFound(w, r)
		return
	}
	if f.details != nil {
		f.details(w, r)
		return
	}
	http.NotFound(w, r)
}

func jsonBody(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}
}

func status(code int) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(code)
	}
}

func newLookup(t *testing.T, fake *fakeTMDB, mutate func(*Config)) (*Lookup, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	cfg := Config{BaseURL: srv.URL, APIKey: "secret", Timeout: time.Second}
	if mutate != nil {
		mutate(&cfg)
	}
	return NewLookup(NewClient(cfg), LookupConfig{ImageBaseURL: imageBase + "/", Concurrency: 3}), srv
}

func TestFetchPosterFromDetails(t *testing.T) {
	var gotQuery string
	var gotPath string
	fake := &fakeTMDB{details: func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		jsonBody(`{"id": 19995, "title": "Avatar", "poster_path": "/kyeqWdyUXW608qlYkRqosgbbJyK.jpg"}`)(w, r)
	}}
	l, _ := newLookup(t, fake, nil)
	before := testutil.ToFloat64(metrics.PosterLookups.WithLabelValues(metrics.PosterSourceDetails))

	url := l.FetchPoster(context.Background(), 19995, "Avatar")

	assert.Equal(t, imageBase+"/kyeqWdyUXW608qlYkRqosgbbJyK.jpg", url)
	assert.Equal(t, "/movie/19995", gotPath)
	assert.Contains(t, gotQuery, "api_key=secret")
	assert.Contains(t, gotQuery, "language=en-US")
	assert.Zero(t, fake.searchHit.Load())
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.PosterLookups.WithLabelValues(metrics.PosterSourceDetails)))
}

func TestFetchPosterFallsBackToSearch(t *testing.T) {
	var gotTitle string
	fake := &fakeTMDB{
		details: status(http.StatusNotFound),
		search: func(w http.ResponseWriter, r *http.Request) {
			gotTitle = r.URL.Query().Get("query")
			jsonBody(`{"results": [{"id": 1, "poster_path": "/first.jpg"}, {"id": 2, "poster_path": "/second.jpg"}]}`)(w, r)
		},
	}
	l, _ := newLookup(t, fake, nil)

	url := l.FetchPoster(context.Background(), 1, "The Dark Knight")

	assert.Equal(t, imageBase+"/first.jpg", url)
	assert.Equal(t, "The Dark Knight", gotTitle)
}

func TestFetchPosterEmptyPosterPathTriggersSearch(t *testing.T) {
	fake := &fakeTMDB{
		details: jsonBody(`{"id": 1, "poster_path": null}`),
		search:  jsonBody(`{"results": [{"poster_path": "/found.jpg"}]}`),
	}
	l, _ := newLookup(t, fake, nil)

	assert.Equal(t, imageBase+"/found.jpg", l.FetchPoster(context.Background(), 1, "Title"))
}

func TestFetchPosterPlaceholderWhenEverythingFails(t *testing.T) {
	cases := map[string]*fakeTMDB{
		"server errors":  {details: status(http.StatusInternalServerError), search: status(http.StatusInternalServerError)},
		"malformed json": {details: jsonBody(`{"poster_path": `), search: jsonBody(`not json`)},
		"no results":     {details: status(http.StatusNotFound), search: jsonBody(`{"results": []}`)},
		"first result has no poster": {
			details: status(http.StatusNotFound),
			search:  jsonBody(`{"results": [{"poster_path": ""}, {"poster_path": "/second.jpg"}]}`),
		},
	}
	for name, fake := range cases {
		fake := fake
		t.Run(name, func(t *testing.T) {
			l, _ := newLookup(t, fake, nil)
			assert.Equal(t, DefaultPlaceholderURL, l.FetchPoster(context.Background(), 1, "Title"))
		})
	}
}

func TestFetchPosterWithoutFallbackTitleSkipsSearch(t *testing.T) {
	fake := &fakeTMDB{details: status(http.StatusNotFound), search: jsonBody(`{"results": [{"poster_path": "/x.jpg"}]}`)}
	l, _ := newLookup(t, fake, nil)

	assert.Equal(t, DefaultPlaceholderURL, l.FetchPoster(context.Background(), 1, ""))
	assert.Zero(t, fake.searchHit.Load())
}

func TestFetchPosterUnreachableService(t *testing.T) {
	fake := &fakeTMDB{}
	l, srv := newLookup(t, fake, nil)
	srv.Close()

	assert.NotPanics(t, func() {
		assert.Equal(t, DefaultPlaceholderURL, l.FetchPoster(context.Background(), 1, "Title"))
	})
}

func TestFetchPosterTimeoutFallsBack(t *testing.T) {
	fake := &fakeTMDB{
		details: func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		},
		search: jsonBody(`{"results": [{"poster_path": "/late.jpg"}]}`),
	}
	l, _ := newLookup(t, fake, func(c *Config) { c.Timeout = 50 * time.Millisecond })

	assert.Equal(t, imageBase+"/late.jpg", l.FetchPoster(context.Background(), 1, "Title"))
}

func TestFetchPosterWithoutKeySkipsNetwork(t *testing.T) {
	fake := &fakeTMDB{details: jsonBody(`{"poster_path": "/x.jpg"}`)}
	l, _ := newLookup(t, fake, func(c *Config) {
		c.APIKey = ""
		c.APIKeyEnv = "MOVIEREC_TEST_UNSET_KEY"
	})

	assert.Equal(t, DefaultPlaceholderURL, l.FetchPoster(context.Background(), 1, "Title"))
	assert.Zero(t, fake.hits.Load())
}

func TestNewClientReadsKeyFromEnv(t *testing.T) {
	t.Setenv("MOVIEREC_TEST_KEY", "from-env")
	c := NewClient(Config{APIKeyEnv: "MOVIEREC_TEST_KEY"})
	assert.True(t, c.HasKey())
	assert.Equal(t, "https://api.themoviedb.org/3", c.baseURL)
}

func TestResolvePostersPreservesOrder(t *testing.T) {
	fake := &fakeTMDB{details: func(w http.ResponseWriter, r *http.Request) {
		jsonBody(`{"poster_path": "`+r.URL.Path+`.jpg"}`)(w, r)
	}}
	l, _ := newLookup(t, fake, nil)
	movies := []domain.Movie{{ExternalID: 3}, {ExternalID: 1}, {ExternalID: 2}}

	urls := l.ResolvePosters(context.Background(), movies)

	assert.Equal(t, []string{
		imageBase + "/movie/3.jpg",
		imageBase + "/movie/1.jpg",
		imageBase + "/movie/2.jpg",
	}, urls)
}

func TestResolvePostersEmpty(t *testing.T) {
	l, _ := newLookup(t, &fakeTMDB{}, nil)
	assert.Empty(t, l.ResolvePosters(context.Background(), nil))
}

func TestCircuitBreakerOpensOnServerErrors(t *testing.T) {
	fake := &fakeTMDB{details: status(http.StatusBadGateway)}
	l, _ := newLookup(t, fake, func(c *Config) { c.CircuitBreaker = true })

	for i := 0; i < 5; i++ {
		_, err := l.client.MovieDetails(context.Background(), 1)
		var se *StatusError
		require.True(t, errors.As(err, &se))
		assert.Equal(t, http.StatusBadGateway, se.Code)
	}
	_, err := l.client.MovieDetails(context.Background(), 1)
	assert.True(t, errors.Is(err, gobreaker.ErrOpenState))
	assert.Equal(t, int32(5), fake.hits.Load())

	assert.Equal(t, DefaultPlaceholderURL, l.FetchPoster(context.Background(), 1, "Title"))
	assert.Equal(t, int32(5), fake.hits.Load())
}

func TestCircuitBreakerIgnoresClientErrors(t *testing.T) {
	fake := &fakeTMDB{details: status(http.StatusNotFound)}
	l, _ := newLookup(t, fake, func(c *Config) { c.CircuitBreaker = true })

	for i := 0; i < 8; i++ {
		_, err := l.client.MovieDetails(context.Background(), 1)
		assert.Error(t, err)
		assert.False(t, errors.Is(err, gobreaker.ErrOpenState))
	}
	assert.Equal(t, int32(8), fake.hits.Load())
}
