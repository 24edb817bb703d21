package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuota_UseAndReset(t *testing.T) {
	now := time.Date(2025, 10, 1, 8, 0, 0, 0, time.UTC)
	q := NewQuota(map[Kind]int{KindDiscovery: 2})
	q.now = func() time.Time { return now }
	q.resetTime = now.Add(q.window)

	require.NoError(t, q.Use(KindDiscovery))
	require.NoError(t, q.Use(KindDiscovery))
	assert.Equal(t, 0, q.Remaining(KindDiscovery))

	err := q.Use(KindDiscovery)
	assert.ErrorIs(t, err, ErrQuotaExceeded)

	now = now.Add(25 * time.Hour)
	assert.NoError(t, q.Use(KindDiscovery))
	assert.Equal(t, 1, q.Remaining(KindDiscovery))
}

func TestQuota_Unlimited(t *testing.T) {
	q := NewQuota(map[Kind]int{KindDiscovery: 1})

	for i := 0; i < 10; i++ {
		require.NoError(t, q.Use(KindImage))
	}
	assert.Equal(t, -1, q.Remaining(KindImage))

	stats := q.GetStats()
	assert.Equal(t, 10, stats["image_used"])
	assert.Equal(t, 1, stats["discovery_limit"])
}
