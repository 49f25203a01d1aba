package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryPutGet(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	_, ok := m.Get(ctx, "missing")
	assert.False(t, ok)

	m.Put(ctx, "k", []byte("v"), time.Minute)
	got, ok := m.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, []byte("v"), got)
}

func TestMemoryExpiry(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	m.Put(ctx, "k", []byte("v"), time.Minute)
	_, ok := m.Get(ctx, "k")
	assert.True(t, ok)

	now = now.Add(2 * time.Minute)
	_, ok = m.Get(ctx, "k")
	assert.False(t, ok)
	// The expired entry was dropped on read.
	assert.Equal(t, 0, m.Len())
}

func TestMemoryOverwrite(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	m.Put(ctx, "k", []byte("old"), time.Minute)
	m.Put(ctx, "k", []byte("new"), time.Minute)
	got, ok := m.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, []byte("new"), got)
	assert.Equal(t, 1, m.Len())
}

func TestMemorySweep(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	m.Put(ctx, "stale", []byte("v"), time.Second)
	now = now.Add(time.Hour)
	for i := 0; i < sweepEvery; i++ {
		m.Put(ctx, "live", []byte("v"), time.Hour)
	}
	// The sweep triggered by the writes removed the stale entry without it
	// ever being read.
	assert.Equal(t, 1, m.Len())
}
