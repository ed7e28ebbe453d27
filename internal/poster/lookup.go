package poster

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"movierec/internal/domain"
	"movierec/internal/logging"
	"movierec/internal/metrics"
)

// DefaultPlaceholderURL is returned when no poster can be found.
const DefaultPlaceholderURL = "https://via.placeholder.com/500x750?text=No+Poster"

// DefaultImageBaseURL prefixes TMDB poster paths.
const DefaultImageBaseURL = "https://image.tmdb.org/t/p/w500"

var _ domain.PosterResolver = (*Lookup)(nil)

// Lookup resolves poster URLs, falling back from the details endpoint to a
// title search and finally to a placeholder. It never returns an error.
type Lookup struct {
	client      *Client
	imageBase   string
	placeholder string
	concurrency int
}

// LookupConfig configures URL construction and batch fan-out.
type LookupConfig struct {
	ImageBaseURL   string
	PlaceholderURL string
	// Concurrency bounds parallel lookups in ResolvePosters; 1 is sequential.
	Concurrency int
}

// NewLookup wraps client.
func NewLookup(client *Client, cfg LookupConfig) *Lookup {
	if cfg.ImageBaseURL == "" {
		cfg.ImageBaseURL = DefaultImageBaseURL
	}
	if cfg.PlaceholderURL == "" {
		cfg.PlaceholderURL = DefaultPlaceholderURL
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	return &Lookup{
		client:      client,
		imageBase:   strings.TrimRight(cfg.ImageBaseURL, "/"),
		placeholder: cfg.PlaceholderURL,
		concurrency: cfg.Concurrency,
	}
}

// FetchPoster returns a poster URL for the movie with the given TMDB id.
// fallbackTitle, when non-empty, is searched if the id lookup yields nothing.
func (l *Lookup) FetchPoster(ctx context.Context, externalID int, fallbackTitle string) string {
	log := logging.With("poster")
	if !l.client.HasKey() {
		log.Debug().Int("movie_id", externalID).Msg("no TMDB API key, using placeholder")
		metrics.PosterLookups.WithLabelValues(metrics.PosterSourcePlaceholder).Inc()
		return l.placeholder
	}

	movie, err := l.client.MovieDetails(ctx, externalID)
	if err == nil && movie.PosterPath != "" {
		metrics.PosterLookups.WithLabelValues(metrics.PosterSourceDetails).Inc()
		return l.imageURL(movie.PosterPath)
	}
	if err != nil {
		log.Debug().Err(err).Int("movie_id", externalID).Msg("details lookup failed")
	}

	if fallbackTitle != "" {
		results, err := l.client.SearchMovie(ctx, fallbackTitle)
		switch {
		case err != nil:
			log.Debug().Err(err).Str("title", fallbackTitle).Msg("search lookup failed")
		case len(results) > 0 && results[0].PosterPath != "":
			metrics.PosterLookups.WithLabelValues(metrics.PosterSourceSearch).Inc()
			return l.imageURL(results[0].PosterPath)
		}
	}

	metrics.PosterLookups.WithLabelValues(metrics.PosterSourcePlaceholder).Inc()
	return l.placeholder
}

// ResolvePosters fetches posters for movies, preserving order.
func (l *Lookup) ResolvePosters(ctx context.Context, movies []domain.Movie) []string {
	urls := make([]string, len(movies))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.concurrency)
	for i, m := range movies {
		i, m := i, m
		g.Go(func() error {
			urls[i] = l.FetchPoster(gctx, m.ExternalID, m.Title)
			return nil
		})
	}
	_ = g.Wait()
	return urls
}

// Placeholder returns the URL used when no poster is available.
func (l *Lookup) Placeholder() string { return l.placeholder }

func (l *Lookup) imageURL(path string) string {
	return l.imageBase + "/" + strings.TrimLeft(path, "/")
}
