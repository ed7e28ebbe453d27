package domain

import (
	"context"

	"github.com/pkg/errors"
)

var (
	// ErrNotFound is returned when a title has no exact catalog match.
	ErrNotFound = errors.New("movie not found")
	// ErrDimensionMismatch is returned when the catalog and similarity index disagree in size.
	ErrDimensionMismatch = errors.New("catalog and similarity index dimensions differ")
)

// Movie is one catalog entry. Index matches the row/column of the similarity index.
type Movie struct {
	Index      int
	Title      string
	ExternalID int
}

// Scored pairs a catalog entry with its similarity to a query entry.
type Scored struct {
	Movie Movie
	Score float64
}

// Recommendation is a ranked movie together with its display poster.
type Recommendation struct {
	Movie     Movie
	Score     float64
	PosterURL string
}

// Sender identifies who wrote a chat message.
type Sender string

const (
	SenderUser Sender = "You"
	SenderBot  Sender = "Bot"
)

// Message is a single chat line.
type Message struct {
	Sender Sender
	Text   string
}

// PosterResolver turns catalog entries into display image URLs.
// Implementations never fail; they degrade to a placeholder.
type PosterResolver interface {
	FetchPoster(ctx context.Context, externalID int, fallbackTitle string) string
	ResolvePosters(ctx context.Context, movies []Movie) []string
}

// TitleResolver maps free text to a stored catalog title.
type TitleResolver interface {
	Resolve(text string) (string, bool)
}
