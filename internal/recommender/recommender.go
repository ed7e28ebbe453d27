// Package recommender ranks catalog entries by precomputed similarity.
//
// Ranking is pure and never touches the network. Posters are attached in a
// separate stage by a domain.PosterResolver.
package recommender

import (
	"context"
	"math"
	"sort"

	"github.com/pkg/errors"

	"movierec/internal/catalog"
	"movierec/internal/domain"
	"movierec/internal/metrics"
	"movierec/internal/similarity"
)

// DefaultTopN is the number of recommendations returned when n <= 0.
const DefaultTopN = 5

// Recommender ranks movies against a catalog and similarity index of equal dimension.
type Recommender struct {
	catalog *catalog.Catalog
	index   *similarity.Index
	posters domain.PosterResolver
	topN    int
}

// New checks that the catalog and index agree in size.
// posters may be nil when only ranking is needed.
func New(c *catalog.Catalog, idx *similarity.Index, posters domain.PosterResolver, topN int) (*Recommender, error) {
	if c.Len() != idx.Dimension() {
		return nil, errors.Wrapf(domain.ErrDimensionMismatch, "catalog has %d movies, index has %d rows", c.Len(), idx.Dimension())
	}
	if topN <= 0 {
		topN = DefaultTopN
	}
	return &Recommender{catalog: c, index: idx, posters: posters, topN: topN}, nil
}

// Rank returns up to n movies most similar to title, best first.
// Ties keep catalog order and the queried movie itself is never included.
func (r *Recommender) Rank(title string, n int) ([]domain.Scored, error) {
	if n <= 0 {
		n = r.topN
	}
	qi, ok := r.catalog.IndexOf(title)
	if !ok {
		metrics.Recommendations.WithLabelValues("not_found").Inc()
		return nil, errors.Wrapf(domain.ErrNotFound, "title %q", title)
	}
	row := r.index.Row(qi)
	order := make([]int, 0, len(row))
	for i := range row {
		if i != qi {
			order = append(order, i)
		}
	}
	sort.SliceStable(order, func(a, b int) bool {
		return rankKey(row[order[a]]) > rankKey(row[order[b]])
	})
	if n > len(order) {
		n = len(order)
	}
	out := make([]domain.Scored, n)
	for i := 0; i < n; i++ {
		j := order[i]
		out[i] = domain.Scored{Movie: r.catalog.At(j), Score: row[j]}
	}
	metrics.Recommendations.WithLabelValues("ok").Inc()
	return out, nil
}

// NaN sorts after every real score.
func rankKey(v float64) float64 {
	if math.IsNaN(v) {
		return math.Inf(-1)
	}
	return v
}

// Titles returns the ranked titles for title using the configured top N.
func (r *Recommender) Titles(title string) ([]string, error) {
	ranked, err := r.Rank(title, 0)
	if err != nil {
		return nil, err
	}
	titles := make([]string, len(ranked))
	for i, s := range ranked {
		titles[i] = s.Movie.Title
	}
	return titles, nil
}

// Recommend ranks title and resolves a poster for every result.
func (r *Recommender) Recommend(ctx context.Context, title string) ([]domain.Recommendation, error) {
	ranked, err := r.Rank(title, 0)
	if err != nil {
		return nil, err
	}
	movies := make([]domain.Movie, len(ranked))
	for i, s := range ranked {
		movies[i] = s.Movie
	}
	var urls []string
	if r.posters != nil {
		urls = r.posters.ResolvePosters(ctx, movies)
	}
	out := make([]domain.Recommendation, len(ranked))
	for i, s := range ranked {
		out[i] = domain.Recommendation{Movie: s.Movie, Score: s.Score}
		if i < len(urls) {
			out[i].PosterURL = urls[i]
		}
	}
	return out, nil
}
