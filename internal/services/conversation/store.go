// Package conversation holds per-conversation turn history in memory.
package conversation

import (
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/madhura1396/rocbot/internal/interfaces"
	"github.com/madhura1396/rocbot/internal/models"
)

// DefaultWindow is the number of recent turns sent with each prompt
const DefaultWindow = 10

type session struct {
	turns      []models.ConversationTurn
	lastActive time.Time
}

// Store is an in-memory ConversationStore. Full history is retained;
// only the window is exposed to prompting.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*session
	window   int
	now      func() time.Time
	logger   arbor.ILogger
}

// NewStore creates a conversation store with the given prompt window
func NewStore(window int, logger arbor.ILogger) *Store {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Store{
		sessions: make(map[string]*session),
		window:   window,
		now:      time.Now,
		logger:   logger,
	}
}

// Window returns a copy of the most recent turns for id
func (s *Store) Window(id string) []models.ConversationTurn {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return []models.ConversationTurn{}
	}
	start := 0
	if len(sess.turns) > s.window {
		start = len(sess.turns) - s.window
	}
	return copyTurns(sess.turns[start:])
}

func (s *Store) History(id string) []models.ConversationTurn {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return []models.ConversationTurn{}
	}
	return copyTurns(sess.turns)
}

func (s *Store) Len(id string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if sess, ok := s.sessions[id]; ok {
		return len(sess.turns)
	}
	return 0
}

// Append adds all turns under one lock so readers never observe half an exchange
func (s *Store) Append(id string, turns ...models.ConversationTurn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		sess = &session{}
		s.sessions[id] = sess
	}
	sess.turns = append(sess.turns, turns...)
	sess.lastActive = s.now()
}

func (s *Store) Clear(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// Prune removes sessions whose last append is older than idle
func (s *Store) Prune(idle time.Duration) int {
	if idle <= 0 {
		return 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-idle)
	removed := 0
	for id, sess := range s.sessions {
		if sess.lastActive.Before(cutoff) {
			delete(s.sessions, id)
			removed++
		}
	}

	if removed > 0 {
		s.logger.Debug().
			Int("removed", removed).
			Int("remaining", len(s.sessions)).
			Msg("Pruned idle conversations")
	}
	return removed
}

func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func copyTurns(turns []models.ConversationTurn) []models.ConversationTurn {
	out := make([]models.ConversationTurn, len(turns))
	copy(out, turns)
	return out
}

var _ interfaces.ConversationStore = (*Store)(nil)
