package recommender

import (
	"context"
	"fmt"
	"math"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"movierec/internal/catalog"
	"movierec/internal/domain"
	"movierec/internal/similarity"
)

type fakePosters struct {
	calls int
}

func (f *fakePosters) FetchPoster(_ context.Context, id int, _ string) string {
	return fmt.Sprintf("poster://%d", id)
}

func (f *fakePosters) ResolvePosters(ctx context.Context, movies []domain.Movie) []string {
	f.calls++
	out := make([]string, len(movies))
	for i, m := range movies {
		out[i] = f.FetchPoster(ctx, m.ExternalID, m.Title)
	}
	return out
}

func newFixture(t *testing.T, titles []string, rows [][]float64, posters domain.PosterResolver) *Recommender {
	t.Helper()
	entries := make([]domain.Movie, len(titles))
	for i, title := range titles {
		entries[i] = domain.Movie{Title: title, ExternalID: 100 + i}
	}
	idx, err := similarity.New(rows)
	require.NoError(t, err)
	r, err := New(catalog.New(entries), idx, posters, 5)
	require.NoError(t, err)
	return r
}

func sevenMovies(t *testing.T, posters domain.PosterResolver) *Recommender {
	titles := []string{"A", "B", "C", "D", "E", "F", "G"}
	rows := [][]float64{
		{1, 0.1, 0.9, 0.5, 0.5, 0.3, 0.7},
		{0.1, 1, 0.2, 0.2, 0.2, 0.2, 0.2},
		{0.9, 0.2, 1, 0.1, 0.1, 0.1, 0.1},
		{0.5, 0.2, 0.1, 1, 0.1, 0.1, 0.1},
		{0.5, 0.2, 0.1, 0.1, 1, 0.1, 0.1},
		{0.3, 0.2, 0.1, 0.1, 0.1, 1, 0.1},
		{0.7, 0.2, 0.1, 0.1, 0.1, 0.1, 1},
	}
	return newFixture(t, titles, rows, posters)
}

func titlesOf(s []domain.Scored) []string {
	out := make([]string, len(s))
	for i, x := range s {
		out[i] = x.Movie.Title
	}
	return out
}

func TestRankOrdersByScoreWithStableTies(t *testing.T) {
	r := sevenMovies(t, nil)

	ranked, err := r.Rank("A", 0)
	require.NoError(t, err)
	// D and E tie at 0.5 and keep catalog order.
	assert.Equal(t, []string{"C", "G", "D", "E", "F"}, titlesOf(ranked))
	assert.InDelta(t, 0.9, ranked[0].Score, 1e-12)
	assert.Equal(t, 2, ranked[0].Movie.Index)
}

func TestRankAllTiesKeepsCatalogOrderAndSkipsSelf(t *testing.T) {
	r := sevenMovies(t, nil)

	ranked, err := r.Rank("B", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"C", "D", "E", "F", "G"}, titlesOf(ranked))
}

func TestRankNeverReturnsQueryEvenWhenOutscored(t *testing.T) {
	r := newFixture(t, []string{"X", "Y", "Z"}, [][]float64{
		{0.5, 0.9, 0.1},
		{0.9, 1, 0.3},
		{0.1, 0.3, 1},
	}, nil)

	ranked, err := r.Rank("X", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"Y", "Z"}, titlesOf(ranked))
}

func TestRankReturnsFewerForSmallCatalogs(t *testing.T) {
	r := newFixture(t, []string{"Only", "Other"}, [][]float64{{1, 0.4}, {0.4, 1}}, nil)

	ranked, err := r.Rank("Only", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"Other"}, titlesOf(ranked))

	single := newFixture(t, []string{"Solo"}, [][]float64{{1}}, nil)
	ranked, err = single.Rank("Solo", 0)
	require.NoError(t, err)
	assert.Empty(t, ranked)
}

func TestRankCountProperty(t *testing.T) {
	r := sevenMovies(t, nil)
	for _, title := range []string{"A", "B", "C", "D", "E", "F", "G"} {
		ranked, err := r.Rank(title, 0)
		require.NoError(t, err)
		assert.Len(t, ranked, 5)
		for i, s := range ranked {
			assert.NotEqual(t, title, s.Movie.Title)
			if i > 0 {
				assert.GreaterOrEqual(t, ranked[i-1].Score, s.Score)
			}
		}
	}
}

func TestRankNaNSortsLast(t *testing.T) {
	r := newFixture(t, []string{"A", "B", "C"}, [][]float64{
		{1, math.NaN(), 0.2},
		{0, 1, 0},
		{0, 0, 1},
	}, nil)

	ranked, err := r.Rank("A", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"C", "B"}, titlesOf(ranked))
}

func TestRankUnknownTitle(t *testing.T) {
	r := sevenMovies(t, nil)

	_, err := r.Rank("a", 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestRankIsIdempotent(t *testing.T) {
	r := sevenMovies(t, nil)
	first, err := r.Rank("A", 0)
	require.NoError(t, err)
	second, err := r.Rank("A", 0)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestNewRejectsDimensionMismatch(t *testing.T) {
	idx, err := similarity.New([][]float64{{1, 0}, {0, 1}})
	require.NoError(t, err)
	c := catalog.New([]domain.Movie{{Title: "A"}, {Title: "B"}, {Title: "C"}})

	_, err = New(c, idx, nil, 5)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrDimensionMismatch))
}

func TestRecommendAttachesPosters(t *testing.T) {
	posters := &fakePosters{}
	r := sevenMovies(t, posters)

	recs, err := r.Recommend(context.Background(), "A")
	require.NoError(t, err)
	require.Len(t, recs, 5)
	assert.Equal(t, 1, posters.calls)
	assert.Equal(t, "C", recs[0].Movie.Title)
	assert.Equal(t, "poster://102", recs[0].PosterURL)
	assert.Equal(t, "poster://106", recs[1].PosterURL)
}

func TestRecommendUnknownTitleSkipsPosters(t *testing.T) {
	posters := &fakePosters{}
	r := sevenMovies(t, posters)

	_, err := r.Recommend(context.Background(), "Nope")
	assert.Error(t, err)
	assert.Zero(t, posters.calls)
}

func TestTitles(t *testing.T) {
	r := sevenMovies(t, nil)
	titles, err := r.Titles("C")
	require.NoError(t, err)
	assert.Equal(t, "A", titles[0])
	assert.Len(t, titles, 5)
}
