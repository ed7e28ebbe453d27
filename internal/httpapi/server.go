// Package httpapi exposes the recommender over JSON HTTP.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"movierec/internal/chat"
	"movierec/internal/domain"
	"movierec/internal/logging"
)

// MoviePort is the subset of the movie service the API needs.
type MoviePort interface {
	Titles() []string
	Recommend(ctx context.Context, title string) ([]domain.Recommendation, error)
	Chat(ctx context.Context, sess chat.Session, message string) (chat.Session, string, error)
}

// Server routes API requests to a MoviePort. Chat sessions are kept per id.
type Server struct {
	svc      MoviePort
	sessions *chat.Store
}

// New creates a server whose session store holds at most maxSessions
// conversations; a non-positive value uses chat.DefaultMaxSessions.
func New(svc MoviePort, maxSessions int) *Server {
	return &Server{svc: svc, sessions: chat.NewStore(maxSessions)}
}

type recommendationJSON struct {
	Title     string  `json:"title"`
	MovieID   int     `json:"movie_id"`
	Score     float64 `json:"score"`
	PosterURL string  `json:"poster_url"`
}

type recommendResponse struct {
	Title           string               `json:"title"`
	Recommendations []recommendationJSON `json:"recommendations"`
}

type chatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

type messageJSON struct {
	Sender string `json:"sender"`
	Text   string `json:"text"`
}

type chatResponse struct {
	SessionID string        `json:"session_id"`
	Reply     string        `json:"reply"`
	Messages  []messageJSON `json:"messages"`
}

// Router builds the chi router.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())
	r.Route("/api", func(r chi.Router) {
		r.Get("/movies", s.handleMovies)
		r.Get("/recommendations", s.handleRecommendations)
		r.Post("/chat", s.handleChat)
		r.Delete("/chat/{sessionID}", s.handleEndChat)
	})
	return r
}

// ListenAndServe runs the API until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logging.With("http").Info().Str("addr", addr).Msg("listening")
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleMovies(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"titles": s.svc.Titles()})
}

func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	title := r.URL.Query().Get("title")
	if title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}
	recs, err := s.svc.Recommend(r.Context(), title)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		logging.With("http").Error().Err(err).Str("title", title).Msg("recommend failed")
		writeError(w, http.StatusInternalServerError, "recommendation failed")
		return
	}
	resp := recommendResponse{Title: title, Recommendations: make([]recommendationJSON, len(recs))}
	for i, rec := range recs {
		resp.Recommendations[i] = recommendationJSON{
			Title:     rec.Movie.Title,
			MovieID:   rec.Movie.ExternalID,
			Score:     rec.Score,
			PosterURL: rec.PosterURL,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	var reply string
	sess, err := s.sessions.Update(req.SessionID, func(cur chat.Session) (chat.Session, error) {
		next, text, err := s.svc.Chat(r.Context(), cur, req.Message)
		reply = text
		return next, err
	})
	if err != nil {
		if errors.Is(err, chat.ErrUnknownSession) {
			writeError(w, http.StatusNotFound, "unknown session")
			return
		}
		logging.With("http").Error().Err(err).Str("session", req.SessionID).Msg("chat failed")
		writeError(w, http.StatusInternalServerError, "chat failed")
		return
	}

	resp := chatResponse{SessionID: sess.ID, Reply: reply, Messages: make([]messageJSON, len(sess.Messages))}
	for i, m := range sess.Messages {
		resp.Messages[i] = messageJSON{Sender: string(m.Sender), Text: m.Text}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleEndChat(w http.ResponseWriter, r *http.Request) {
	s.sessions.Delete(chi.URLParam(r, "sessionID"))
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.With("http").Debug().Err(err).Msg("write response")
	}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		logging.With("http").Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("took", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("request")
	})
}
