package service

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"movierec/internal/catalog"
	"movierec/internal/chat"
	"movierec/internal/config"
	"movierec/internal/domain"
	"movierec/internal/logging"
	"movierec/internal/poster"
	"movierec/internal/recommender"
	"movierec/internal/resolver"
	"movierec/internal/similarity"
)

// MovieServiceImpl is the application core shared by the TUI, HTTP API and CLI.
type MovieServiceImpl struct {
	catalog     *catalog.Catalog
	recommender *recommender.Recommender
	resolver    *resolver.Resolver
	bot         *chat.Bot
}

// Options tunes ranking and matching.
type Options struct {
	TopN   int
	Cutoff float64
}

// NewMovieService wires the core over an already loaded catalog and index.
func NewMovieService(c *catalog.Catalog, idx *similarity.Index, posters domain.PosterResolver, opts Options) (*MovieServiceImpl, error) {
	rec, err := recommender.New(c, idx, posters, opts.TopN)
	if err != nil {
		return nil, err
	}
	res := resolver.New(c, opts.Cutoff)
	return &MovieServiceImpl{
		catalog:     c,
		recommender: rec,
		resolver:    res,
		bot:         chat.NewBot(res, rec),
	}, nil
}

// Load reads both artifacts named in cfg and builds the service with a TMDB poster lookup.
// Any load or consistency failure is returned; callers treat it as fatal.
func Load(cfg *config.AppConfig) (*MovieServiceImpl, error) {
	log := logging.With("service")
	start := time.Now()

	c, err := catalog.Load(cfg.Catalog.MoviesPath)
	if err != nil {
		return nil, errors.Wrap(err, "load catalog")
	}
	idx, err := similarity.Load(cfg.Catalog.SimilarityPath)
	if err != nil {
		return nil, errors.Wrap(err, "load similarity index")
	}

	client := poster.NewClient(poster.Config{
		BaseURL:        cfg.TMDB.BaseURL,
		APIKeyEnv:      cfg.TMDB.APIKeyEnv,
		Language:       cfg.TMDB.Language,
		Timeout:        time.Duration(cfg.TMDB.TimeoutSecs) * time.Second,
		CircuitBreaker: cfg.TMDB.CircuitBreaker,
	})
	if !client.HasKey() {
		log.Warn().Str("env", cfg.TMDB.APIKeyEnv).Msg("TMDB API key not set, posters will use the placeholder")
	}
	lookup := poster.NewLookup(client, poster.LookupConfig{
		ImageBaseURL:   cfg.TMDB.ImageBaseURL,
		PlaceholderURL: cfg.TMDB.PlaceholderURL,
		Concurrency:    cfg.TMDB.Concurrency,
	})

	svc, err := NewMovieService(c, idx, lookup, Options{TopN: cfg.Recommender.TopN, Cutoff: cfg.Resolver.Cutoff})
	if err != nil {
		return nil, err
	}
	log.Info().Int("movies", c.Len()).Dur("took", time.Since(start)).Msg("artifacts loaded")
	return svc, nil
}

// Titles returns every catalog title in order, for selectors.
func (s *MovieServiceImpl) Titles() []string { return s.catalog.Titles() }

// Recommend returns the top movies for an exact title, with posters.
func (s *MovieServiceImpl) Recommend(ctx context.Context, title string) ([]domain.Recommendation, error) {
	recs, err := s.recommender.Recommend(ctx, title)
	if err != nil {
		return nil, err
	}
	logging.With("service").Debug().Str("title", title).Int("results", len(recs)).Msg("recommend")
	return recs, nil
}

// Resolve maps free text to a catalog title.
func (s *MovieServiceImpl) Resolve(text string) (string, bool) { return s.resolver.Resolve(text) }

// Chat runs one conversational turn on sess.
func (s *MovieServiceImpl) Chat(ctx context.Context, sess chat.Session, message string) (chat.Session, string, error) {
	return s.bot.Handle(ctx, sess, message)
}
