package chat

import (
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// DefaultMaxSessions bounds a store created with a non-positive capacity.
const DefaultMaxSessions = 1000

// ErrUnknownSession is returned for a session id the store never issued or has dropped.
var ErrUnknownSession = errors.New("unknown chat session")

type storedSession struct {
	mu       sync.Mutex // held for a whole turn
	sess     Session
	lastUsed uint64 // guarded by Store.mu
}

// Store keeps sessions for callers that cannot hold them, such as HTTP clients.
// Sessions live only as long as the process. When full, the least recently
// used session is dropped.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*storedSession
	max      int
	tick     uint64
}

// NewStore returns an empty store holding at most capacity sessions.
func NewStore(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultMaxSessions
	}
	return &Store{sessions: make(map[string]*storedSession), max: capacity}
}

// Get returns a copy of the session stored under id.
func (s *Store) Get(id string) (Session, bool) {
	s.mu.Lock()
	e, ok := s.sessions[id]
	s.mu.Unlock()
	if !ok {
		return Session{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sess, true
}

// Update runs one turn. An empty id starts a new session; any other id must
// name a stored session. Turns on the same session are serialized, so fn always
// sees the result of the previous turn. A new session is kept only when fn
// returns no error and leaves it non-empty; otherwise Update returns a session
// without an ID.
func (s *Store) Update(id string, fn func(Session) (Session, error)) (Session, error) {
	e, created, err := s.entry(id)
	if err != nil {
		return Session{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	next, err := fn(e.sess)
	if err != nil {
		if created {
			return Session{}, err
		}
		return e.sess, err
	}
	next.ID = e.sess.ID
	if created && len(next.Messages) == 0 {
		return Session{Messages: next.Messages}, nil
	}
	e.sess = next
	s.touch(e, created)
	return next, nil
}

func (s *Store) entry(id string) (*storedSession, bool, error) {
	if id == "" {
		return &storedSession{sess: Session{ID: uuid.NewString()}}, true, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sessions[id]
	if !ok {
		return nil, false, errors.Wrapf(ErrUnknownSession, "session %q", id)
	}
	return e, false, nil
}

func (s *Store) touch(e *storedSession, insert bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tick++
	e.lastUsed = s.tick
	if !insert {
		return
	}
	if len(s.sessions) >= s.max {
		s.evictOldest()
	}
	s.sessions[e.sess.ID] = e
}

func (s *Store) evictOldest() {
	var (
		oldestID string
		oldest   uint64
		found    bool
	)
	for id, e := range s.sessions {
		if !found || e.lastUsed < oldest {
			oldestID, oldest, found = id, e.lastUsed, true
		}
	}
	if found {
		delete(s.sessions, oldestID)
	}
}

// Delete ends a session.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
