package fwenable

import (
	"bytes"
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRandomDelayBounds(t *testing.T) {
	d := RandomDelay{Min: time.Second, Max: 3 * time.Second, Rand: rand.New(rand.NewSource(1))}
	for i := 0; i < 1000; i++ {
		got := d.duration()
		require.GreaterOrEqual(t, got, time.Second)
		require.Less(t, got, 3*time.Second)
	}
}

func TestRandomDelayFixed(t *testing.T) {
	d := RandomDelay{Min: 5 * time.Millisecond, Max: 5 * time.Millisecond}
	require.Equal(t, 5*time.Millisecond, d.duration())
}

func TestRandomDelaySleepsAndNarrates(t *testing.T) {
	var out bytes.Buffer
	d := RandomDelay{Min: 10 * time.Millisecond, Max: 10 * time.Millisecond, Out: &out}

	start := time.Now()
	require.NoError(t, d.Delay(context.Background()))
	require.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)
	require.Equal(t, "  Sleeping 0.01 seconds\n", out.String())
}

func TestRandomDelayCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d := RandomDelay{Min: time.Hour, Max: time.Hour}
	require.ErrorIs(t, d.Delay(ctx), context.Canceled)
}
