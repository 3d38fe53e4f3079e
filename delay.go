package fwenable

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"time"
)

const (
	DefaultMinDelay = time.Second
	DefaultMaxDelay = 3 * time.Second
)

// Delayer pauses between portal requests.
type Delayer interface {
	Delay(ctx context.Context) error
}

// RandomDelay sleeps for a uniformly random duration in [Min, Max) and
// narrates it to Out.
type RandomDelay struct {
	Min, Max time.Duration
	Out      io.Writer
	// Rand defaults to the global source when nil.
	Rand *rand.Rand
}

func (d RandomDelay) duration() time.Duration {
	if d.Max <= d.Min {
		return d.Min
	}
	span := float64(d.Max - d.Min)
	var f float64
	if d.Rand != nil {
		f = d.Rand.Float64()
	} else {
		f = rand.Float64()
	}
	return d.Min + time.Duration(f*span)
}

func (d RandomDelay) Delay(ctx context.Context) error {
	wait := d.duration()
	if d.Out != nil {
		fmt.Fprintf(d.Out, "  Sleeping %.2f seconds\n", wait.Seconds())
	}
	t := time.NewTimer(wait)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// NoDelay never waits.
type NoDelay struct{}

func (NoDelay) Delay(ctx context.Context) error {
	return ctx.Err()
}
