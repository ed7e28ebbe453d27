// Package resolver maps free-text chat input to a catalog title.
package resolver

import (
	"sort"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"movierec/internal/catalog"
	"movierec/internal/domain"
)

// DefaultCutoff is the minimum similarity ratio accepted as a match.
const DefaultCutoff = 0.6

var _ domain.TitleResolver = (*Resolver)(nil)

// Resolver finds the closest catalog title to a chat message.
type Resolver struct {
	catalog *catalog.Catalog
	lowered []string
	cutoff  float64
}

// New builds a resolver over c. A cutoff outside (0, 1] falls back to DefaultCutoff.
func New(c *catalog.Catalog, cutoff float64) *Resolver {
	if cutoff <= 0 || cutoff > 1 {
		cutoff = DefaultCutoff
	}
	titles := c.Titles()
	lowered := make([]string, len(titles))
	for i, t := range titles {
		lowered[i] = strings.ToLower(t)
	}
	return &Resolver{catalog: c, lowered: lowered, cutoff: cutoff}
}

// ExtractTitle returns the lower-cased text after the last "like", trimmed.
// Without "like" the trimmed input is returned unchanged.
func ExtractTitle(text string) string {
	lower := strings.ToLower(text)
	if i := strings.LastIndex(lower, "like"); i >= 0 {
		return strings.TrimSpace(lower[i+len("like"):])
	}
	return strings.TrimSpace(text)
}

// Resolve returns the stored title closest to text, or false when nothing
// reaches the cutoff.
func (r *Resolver) Resolve(text string) (string, bool) {
	query := ExtractTitle(text)
	matches := CloseMatches(query, r.lowered, 1, r.cutoff)
	if len(matches) == 0 {
		return "", false
	}
	i, ok := r.catalog.IndexOfFold(matches[0])
	if !ok {
		return "", false
	}
	return r.catalog.At(i).Title, true
}

// CloseMatches returns up to n possibilities whose character similarity ratio
// with word is at least cutoff, best first. Equal scores order by the larger string.
func CloseMatches(word string, possibilities []string, n int, cutoff float64) []string {
	if n <= 0 {
		return nil
	}
	type scored struct {
		score float64
		text  string
	}
	var hits []scored
	m := difflib.NewMatcher(nil, chars(word))
	for _, p := range possibilities {
		m.SetSeq1(chars(p))
		if m.RealQuickRatio() < cutoff || m.QuickRatio() < cutoff {
			continue
		}
		if ratio := m.Ratio(); ratio >= cutoff {
			hits = append(hits, scored{ratio, p})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		return hits[i].text > hits[j].text
	})
	if len(hits) > n {
		hits = hits[:n]
	}
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.text
	}
	return out
}

// Ratio reports the similarity of a and b on a 0-1 scale.
func Ratio(a, b string) float64 {
	return difflib.NewMatcher(chars(a), chars(b)).Ratio()
}

func chars(s string) []string {
	return strings.Split(s, "")
}
