// Package similarity stores the precomputed pairwise similarity matrix.
package similarity

import (
	"os"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
)

// Index is a read-only square matrix of similarity scores.
// Score(i, j) is the similarity of catalog entry i to entry j.
type Index struct {
	dimension int
	rows      [][]float64
}

// New validates that rows form a non-empty square matrix.
func New(rows [][]float64) (*Index, error) {
	if len(rows) == 0 {
		return nil, errors.New("empty similarity matrix")
	}
	for i, r := range rows {
		if len(r) != len(rows) {
			return nil, errors.Errorf("row %d has %d columns, want %d", i, len(r), len(rows))
		}
	}
	return &Index{dimension: len(rows), rows: rows}, nil
}

// Load reads a JSON array of rows from disk.
func Load(path string) (*Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read similarity %s", path)
	}
	var rows [][]float64
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, errors.Wrapf(err, "parse similarity %s", path)
	}
	idx, err := New(rows)
	if err != nil {
		return nil, errors.Wrapf(err, "similarity %s", path)
	}
	return idx, nil
}

// Dimension returns the number of rows (and columns).
func (x *Index) Dimension() int { return x.dimension }

// Row returns the scores of entry i against every entry. Callers must not modify it.
func (x *Index) Row(i int) []float64 { return x.rows[i] }

// Score returns the similarity of entry i to entry j.
func (x *Index) Score(i, j int) float64 { return x.rows[i][j] }
