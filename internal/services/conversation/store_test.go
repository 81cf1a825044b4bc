package conversation

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/madhura1396/rocbot/internal/models"
)

func exchange(n int) []models.ConversationTurn {
	return []models.ConversationTurn{
		{Role: models.RoleUser, Content: fmt.Sprintf("q%d", n)},
		{Role: models.RoleAssistant, Content: fmt.Sprintf("a%d", n)},
	}
}

func TestStore_UnknownSessionIsEmpty(t *testing.T) {
	s := NewStore(10, arbor.NewLogger())

	assert.Empty(t, s.Window("nope"))
	assert.Empty(t, s.History("nope"))
	assert.Zero(t, s.Len("nope"))
	assert.Zero(t, s.Count())
}

func TestStore_WindowKeepsMostRecentTurns(t *testing.T) {
	s := NewStore(10, arbor.NewLogger())
	for i := 1; i <= 6; i++ {
		s.Append("c1", exchange(i)...)
	}

	assert.Equal(t, 12, s.Len("c1"))
	assert.Len(t, s.History("c1"), 12, "older turns are retained")

	window := s.Window("c1")
	require.Len(t, window, 10)
	assert.Equal(t, "q2", window[0].Content)
	assert.Equal(t, "a6", window[9].Content)
}

func TestStore_ReturnsCopies(t *testing.T) {
	s := NewStore(10, arbor.NewLogger())
	s.Append("c1", exchange(1)...)

	w := s.Window("c1")
	w[0].Content = "changed"
	assert.Equal(t, "q1", s.Window("c1")[0].Content)
}

func TestStore_ClearIsIdempotent(t *testing.T) {
	s := NewStore(10, arbor.NewLogger())
	s.Append("c1", exchange(1)...)
	s.Append("c2", exchange(1)...)

	s.Clear("c1")
	s.Clear("c1")
	s.Clear("never-seen")

	assert.Zero(t, s.Len("c1"))
	assert.Equal(t, 2, s.Len("c2"))
	assert.Equal(t, 1, s.Count())
}

func TestStore_AppendIsAtomicPerExchange(t *testing.T) {
	s := NewStore(10, arbor.NewLogger())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			s.Append("c1", exchange(n)...)
		}(i)
	}
	wg.Wait()

	history := s.History("c1")
	require.Len(t, history, 100)
	for i := 0; i < len(history); i += 2 {
		assert.Equal(t, models.RoleUser, history[i].Role)
		assert.Equal(t, models.RoleAssistant, history[i+1].Role)
		assert.Equal(t, "a"+history[i].Content[1:], history[i+1].Content)
	}
}

func TestStore_PruneIdleSessions(t *testing.T) {
	s := NewStore(10, arbor.NewLogger())
	now := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	s.Append("old", exchange(1)...)
	now = now.Add(20 * time.Minute)
	s.Append("fresh", exchange(1)...)
	now = now.Add(15 * time.Minute)

	assert.Zero(t, s.Prune(0), "zero idle disables pruning")
	assert.Equal(t, 1, s.Prune(30*time.Minute))
	assert.Zero(t, s.Len("old"))
	assert.Equal(t, 2, s.Len("fresh"))
}
