package llm

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsRateLimitError(t *testing.T) {
	assert.True(t, IsRateLimitError(errors.New("Error 429, Status: RESOURCE_EXHAUSTED")))
	assert.True(t, IsRateLimitError(errors.New(`{"type":"rate_limit_error"}`)))
	assert.False(t, IsRateLimitError(errors.New("connection refused")))
	assert.False(t, IsRateLimitError(nil))
}

func TestExtractRetryDelay(t *testing.T) {
	err := errors.New("Error 429, Message: quota exceeded. Please retry in 45.5s., Status: RESOURCE_EXHAUSTED")
	assert.Equal(t, 45500*time.Millisecond, ExtractRetryDelay(err))
	assert.Zero(t, ExtractRetryDelay(errors.New("boom")))
}

func TestCalculateBackoff(t *testing.T) {
	c := NewDefaultRetryConfig()

	assert.Equal(t, DefaultInitialBackoff, c.CalculateBackoff(0, 0))
	assert.Equal(t, 15*time.Second, c.CalculateBackoff(1, 0))
	assert.Equal(t, 21*time.Second, c.CalculateBackoff(0, 20*time.Second))
	assert.Equal(t, DefaultMaxBackoff, c.CalculateBackoff(10, 0))
}

func TestBackoffFor(t *testing.T) {
	c := NewDefaultRetryConfig()
	assert.Equal(t, 4*time.Second, c.backoffFor(1, errors.New("timeout")))
	assert.Equal(t, DefaultInitialBackoff, c.backoffFor(0, errors.New("429")))
}
