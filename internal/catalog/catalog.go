// Package catalog holds the in-memory movie table loaded once at startup.
package catalog

import (
	"bytes"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"

	"movierec/internal/domain"
)

// Catalog is an ordered, read-only table of movies. Position equals Movie.Index.
type Catalog struct {
	movies []domain.Movie
}

type record struct {
	MovieID int    `json:"movie_id"`
	Title   string `json:"title"`
}

// columns is the shape written by json.dump(DataFrame.to_dict()).
type columns struct {
	MovieID map[string]int    `json:"movie_id"`
	Title   map[string]string `json:"title"`
}

// New builds a catalog from titles and external ids given in row order.
func New(entries []domain.Movie) *Catalog {
	movies := make([]domain.Movie, len(entries))
	for i, e := range entries {
		e.Index = i
		movies[i] = e
	}
	return &Catalog{movies: movies}
}

// Load reads a catalog artifact from disk.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read catalog %s", path)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "parse catalog %s", path)
	}
	return c, nil
}

// Parse decodes either a JSON array of {movie_id, title} records or a
// column-oriented object keyed by row number.
func Parse(data []byte) (*Catalog, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, errors.New("empty catalog")
	}
	var entries []domain.Movie
	switch trimmed[0] {
	case '[':
		var recs []record
		if err := json.Unmarshal(trimmed, &recs); err != nil {
			return nil, err
		}
		for _, r := range recs {
			entries = append(entries, domain.Movie{Title: r.Title, ExternalID: r.MovieID})
		}
	case '{':
		var cols columns
		if err := json.Unmarshal(trimmed, &cols); err != nil {
			return nil, err
		}
		rows, err := sortedRowKeys(cols.Title)
		if err != nil {
			return nil, err
		}
		for _, k := range rows {
			id, ok := cols.MovieID[k]
			if !ok {
				return nil, errors.Errorf("row %s has no movie_id", k)
			}
			entries = append(entries, domain.Movie{Title: cols.Title[k], ExternalID: id})
		}
	default:
		return nil, errors.New("catalog must be a JSON array or object")
	}
	if len(entries) == 0 {
		return nil, errors.New("empty catalog")
	}
	return New(entries), nil
}

func sortedRowKeys(m map[string]string) ([]string, error) {
	type row struct {
		key string
		n   int
	}
	rows := make([]row, 0, len(m))
	for k := range m {
		n, err := strconv.Atoi(k)
		if err != nil {
			return nil, errors.Wrapf(err, "row key %q", k)
		}
		rows = append(rows, row{k, n})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].n < rows[j].n })
	keys := make([]string, len(rows))
	for i, r := range rows {
		keys[i] = r.key
	}
	return keys, nil
}

// Len returns the number of movies.
func (c *Catalog) Len() int { return len(c.movies) }

// At returns the movie at position i.
func (c *Catalog) At(i int) domain.Movie { return c.movies[i] }

// Titles returns all titles in catalog order.
func (c *Catalog) Titles() []string {
	out := make([]string, len(c.movies))
	for i, m := range c.movies {
		out[i] = m.Title
	}
	return out
}

// IndexOf returns the first entry whose title matches exactly.
func (c *Catalog) IndexOf(title string) (int, bool) {
	for i, m := range c.movies {
		if m.Title == title {
			return i, true
		}
	}
	return -1, false
}

// IndexOfFold returns the first entry whose lower-cased title equals lower.
func (c *Catalog) IndexOfFold(lower string) (int, bool) {
	for i, m := range c.movies {
		if strings.ToLower(m.Title) == lower {
			return i, true
		}
	}
	return -1, false
}
