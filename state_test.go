package launchprobe

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	forward := []State{
		StateUnstarted,
		StateLaunching,
		StateAwaitingReady,
		StateCapturing,
		StateAttached,
		StateReported,
	}
	for i := 0; i < len(forward)-1; i++ {
		assert.True(t, canTransition(forward[i], forward[i+1]), "%s → %s", forward[i], forward[i+1])
		assert.True(t, canTransition(forward[i], StateFailed), "%s → failed", forward[i])
	}

	t.Run("no skipping", func(t *testing.T) {
		assert.False(t, canTransition(StateUnstarted, StateAwaitingReady))
		assert.False(t, canTransition(StateLaunching, StateCapturing))
		assert.False(t, canTransition(StateAwaitingReady, StateAttached))
	})

	t.Run("no going back", func(t *testing.T) {
		assert.False(t, canTransition(StateCapturing, StateLaunching))
		assert.False(t, canTransition(StateAttached, StateAttached))
	})

	t.Run("terminal states are final", func(t *testing.T) {
		for _, s := range []State{StateReported, StateFailed} {
			assert.True(t, s.Terminal())
			assert.False(t, canTransition(s, StateFailed))
			assert.False(t, canTransition(s, StateUnstarted))
		}
	})
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "awaiting-ready", StateAwaitingReady.String())
	assert.Equal(t, "failed", StateFailed.String())
	assert.Equal(t, "State(42)", State(42).String())
}

func TestRetentionText(t *testing.T) {
	b, err := KeepAlways.MarshalText()
	assert.NoError(t, err)
	assert.Equal(t, "keep-always", string(b))
	assert.Equal(t, "unknown", Retention(0).String())

	var r Retention
	assert.NoError(t, r.UnmarshalText(b))
	assert.Equal(t, KeepAlways, r)
	assert.Error(t, r.UnmarshalText([]byte("delete-on-success")))
}
