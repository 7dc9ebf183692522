package notice

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroker(t *testing.T) {
	t.Run("delivers to every subscriber", func(t *testing.T) {
		broker := NewBroker()
		t.Cleanup(broker.Reset)

		ch1 := make(chan Notice, 1)
		ch2 := make(chan Notice, 1)
		require.NoError(t, broker.Subscribe("cli", ch1))
		require.NoError(t, broker.Subscribe("gui", ch2))

		n := New(Upgraded, "demo/Parabola", "using demo/Parabola-v1")
		require.NoError(t, broker.Publish(n))

		for _, ch := range []chan Notice{ch1, ch2} {
			select {
			case got := <-ch:
				assert.Equal(t, n, got)
			case <-time.After(time.Second):
				t.Fatal("timeout waiting for notice")
			}
		}
	})

	t.Run("full channel does not block", func(t *testing.T) {
		broker := NewBroker()
		t.Cleanup(broker.Reset)

		ch := make(chan Notice, 1)
		require.NoError(t, broker.Subscribe("slow", ch))

		require.NoError(t, broker.Publish(New(OutOfDate, "a-v0", "first")))
		err := broker.Publish(New(OutOfDate, "a-v0", "second"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "slow")
		assert.Len(t, broker.History(), 2, "history keeps notices nobody received")
	})

	t.Run("subscription bookkeeping", func(t *testing.T) {
		broker := NewBroker()
		t.Cleanup(broker.Reset)

		ch := make(chan Notice, 1)
		require.NoError(t, broker.Subscribe("cli", ch))
		assert.Error(t, broker.Subscribe("cli", ch))
		require.NoError(t, broker.Unsubscribe("cli"))
		assert.Error(t, broker.Unsubscribe("cli"))

		require.NoError(t, broker.Publish(New(PluginError, "demo", "boom")))
		select {
		case n := <-ch:
			t.Errorf("unsubscribed channel received %v", n)
		default:
		}
	})
}

func TestHistory(t *testing.T) {
	h := NewHistory(2)
	h.Store(New(Upgraded, "a", "1"))
	h.Store(New(Upgraded, "b", "2"))
	h.Store(New(Upgraded, "c", "3"))

	all := h.All()
	require.Len(t, all, 2)
	assert.Equal(t, "b", all[0].Subject)
	assert.Equal(t, "c", all[1].Subject)

	last := h.Last(1)
	require.Len(t, last, 1)
	assert.Equal(t, "c", last[0].Subject)
	assert.Len(t, h.Last(10), 2)

	h.Reset()
	assert.Empty(t, h.All())
}

func TestNotice_String(t *testing.T) {
	assert.Equal(t, "upgraded demo/X: use v2", New(Upgraded, "demo/X", "use v2").String())
	assert.Equal(t, "plugin_error: boom", New(PluginError, "", "boom").String())
}
