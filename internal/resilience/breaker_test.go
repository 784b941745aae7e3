package resilience

import (
	"errors"
	"testing"
	"time"

	"github.com/hyperjump/kotae/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBreaker_TripsAfterConsecutiveFailures(t *testing.T) {
	b := NewBreaker("test", config.BreakerConfig{MaxFailures: 2, OpenTimeout: time.Hour}, nil)
	boom := errors.New("boom")
	calls := 0
	fail := func() (int, error) {
		calls++
		return 0, boom
	}

	_, err := Call(b, fail)
	assert.ErrorIs(t, err, boom)
	_, err = Call(b, fail)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "open", b.State())

	_, err = Call(b, fail)
	assert.ErrorIs(t, err, ErrOpen)
	assert.Equal(t, 2, calls, "open breaker must not invoke fn")
}

func TestBreaker_PassesResults(t *testing.T) {
	b := NewBreaker("ok", config.BreakerConfig{}, nil)
	out, err := Call(b, func() ([]string, error) { return []string{"a"}, nil })
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, out)
	assert.Equal(t, "closed", b.State())
}

func TestCall_NilBreaker(t *testing.T) {
	out, err := Call(nil, func() (string, error) { return "direct", nil })
	require.NoError(t, err)
	assert.Equal(t, "direct", out)
}
