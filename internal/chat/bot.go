// Package chat implements the conversational front-end.
//
// A Session is a plain value owned by the caller; Bot.Handle takes one and
// returns the updated copy.
package chat

import (
	"context"
	"strings"

	"movierec/internal/domain"
	"movierec/internal/logging"
	"movierec/internal/metrics"
	"movierec/internal/resolver"
)

// Fixed replies.
const (
	NotFoundReply = "❌ Sorry, I couldn't find that movie. Try another title!"
	HelpReply     = "🤖 I can recommend movies! Try asking: *Recommend me a movie like Inception.*"
)

// Session is an append-only chat history.
type Session struct {
	ID       string
	Messages []domain.Message
}

// Append returns s with msgs added. The receiver's backing array is never shared.
func (s Session) Append(msgs ...domain.Message) Session {
	out := make([]domain.Message, 0, len(s.Messages)+len(msgs))
	out = append(out, s.Messages...)
	out = append(out, msgs...)
	s.Messages = out
	return s
}

// TitleRanker returns recommended titles for an exact catalog title.
type TitleRanker interface {
	Titles(title string) ([]string, error)
}

// Bot answers "recommend ... like X" messages.
type Bot struct {
	resolver domain.TitleResolver
	ranker   TitleRanker
}

// NewBot builds a bot.
func NewBot(r domain.TitleResolver, ranker TitleRanker) *Bot {
	return &Bot{resolver: r, ranker: ranker}
}

// Reply produces the bot's answer to one message.
func (b *Bot) Reply(_ context.Context, message string) (string, error) {
	if !strings.Contains(strings.ToLower(message), "recommend") {
		metrics.ChatTurns.WithLabelValues("help").Inc()
		return HelpReply, nil
	}
	title, ok := b.resolver.Resolve(message)
	if !ok {
		metrics.ChatTurns.WithLabelValues("unresolved").Inc()
		logging.With("chat").Debug().Str("query", resolver.ExtractTitle(message)).Msg("no close title")
		return NotFoundReply, nil
	}
	titles, err := b.ranker.Titles(title)
	if err != nil {
		return "", err
	}
	metrics.ChatTurns.WithLabelValues("recommend").Inc()
	return "I recommend: " + strings.Join(titles, ", "), nil
}

// Handle runs one turn: it appends the user message and the reply to s.
// Blank messages leave the session unchanged.
func (b *Bot) Handle(ctx context.Context, s Session, message string) (Session, string, error) {
	if strings.TrimSpace(message) == "" {
		return s, "", nil
	}
	reply, err := b.Reply(ctx, message)
	if err != nil {
		return s, "", err
	}
	s = s.Append(
		domain.Message{Sender: domain.SenderUser, Text: message},
		domain.Message{Sender: domain.SenderBot, Text: reply},
	)
	return s, reply, nil
}
