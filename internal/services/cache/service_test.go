package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/madhura1396/rocbot/internal/models"
)

func TestFingerprint_NormalisesCaseAndWhitespace(t *testing.T) {
	assert.Equal(t, Fingerprint("When is trash pickup?"), Fingerprint("  when IS trash PICKUP?\n"))
	assert.NotEqual(t, Fingerprint("When is trash pickup?"), Fingerprint("When is recycling pickup?"))
	assert.NotEmpty(t, Fingerprint(""))
}

func TestMemoryCache_PutGet(t *testing.T) {
	c := NewMemoryCache(0, arbor.NewLogger())
	ctx := context.Background()

	_, ok := c.Get(ctx, "missing")
	assert.False(t, ok)

	result := &models.AnswerResult{
		Answer:         "Weekly on Tuesdays.",
		Sources:        []models.Citation{{Title: "Trash Pickup", URL: "https://example.org/trash"}},
		Query:          "When is trash pickup?",
		ConversationID: "c1",
	}
	require.NoError(t, c.Put(ctx, "fp", result))

	got, ok := c.Get(ctx, "fp")
	require.True(t, ok)
	assert.Equal(t, result, got)

	got.Sources[0].Title = "mutated"
	again, _ := c.Get(ctx, "fp")
	assert.Equal(t, "Trash Pickup", again.Sources[0].Title, "cached entries are isolated from callers")
	assert.Equal(t, 1, c.Len(ctx))
}

func TestMemoryCache_TTL(t *testing.T) {
	c := NewMemoryCache(time.Minute, arbor.NewLogger())
	ctx := context.Background()

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	require.NoError(t, c.Put(ctx, "old", &models.AnswerResult{Answer: "a"}))
	now = now.Add(30 * time.Second)
	require.NoError(t, c.Put(ctx, "new", &models.AnswerResult{Answer: "b"}))

	_, ok := c.Get(ctx, "old")
	assert.True(t, ok)

	now = now.Add(45 * time.Second)
	_, ok = c.Get(ctx, "old")
	assert.False(t, ok, "entry older than ttl is a miss")
	_, ok = c.Get(ctx, "new")
	assert.True(t, ok)

	removed, err := c.Prune(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, c.Len(ctx))
}

func TestMemoryCache_NoTTLNeverPrunes(t *testing.T) {
	c := NewMemoryCache(0, arbor.NewLogger())
	ctx := context.Background()
	require.NoError(t, c.Put(ctx, "k", &models.AnswerResult{}))

	removed, err := c.Prune(ctx)
	require.NoError(t, err)
	assert.Zero(t, removed)
	assert.Equal(t, 1, c.Len(ctx))
}
