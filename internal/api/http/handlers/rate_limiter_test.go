package handlers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRateLimiter_CapsPerSenderWindow(t *testing.T) {
	limiter := NewRateLimiter(3, 10*time.Minute)
	base := time.Now()
	limiter.now = func() time.Time { return base }

	for i := 0; i < 3; i++ {
		require.True(t, limiter.Allow("+15551230001"))
	}
	require.False(t, limiter.Allow("+15551230001"))

	// Another sender has their own bucket.
	require.True(t, limiter.Allow("+15551230002"))

	// Still refused just inside the window.
	limiter.now = func() time.Time { return base.Add(9 * time.Minute) }
	require.False(t, limiter.Allow("+15551230001"))

	// A lapsed window drops the bucket and starts counting again.
	limiter.now = func() time.Time { return base.Add(11 * time.Minute) }
	require.True(t, limiter.Allow("+15551230001"))
	require.True(t, limiter.Allow("+15551230001"))
}
