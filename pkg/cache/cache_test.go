package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTTLCache_SetGet(t *testing.T) {
	c, err := New(4, time.Minute)
	require.NoError(t, err)

	c.Set("a", 1)
	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	_, ok = c.Get("missing")
	assert.False(t, ok)
}

func TestTTLCache_Expiry(t *testing.T) {
	c, err := New(4, time.Minute)
	require.NoError(t, err)

	now := time.Date(2026, 8, 10, 12, 0, 0, 0, time.UTC)
	c.SetClock(func() time.Time { return now })

	c.Set("a", "value")

	now = now.Add(59 * time.Second)
	_, ok := c.Get("a")
	assert.True(t, ok)

	now = now.Add(2 * time.Second)
	_, ok = c.Get("a")
	assert.False(t, ok)
	assert.Zero(t, c.Len(), "expired entry evicted on access")
}

func TestTTLCache_Bounded(t *testing.T) {
	c, err := New(2, 0)
	require.NoError(t, err)

	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("c", 3)

	assert.Equal(t, 2, c.Len())
	_, ok := c.Get("a")
	assert.False(t, ok, "oldest entry evicted")
}
