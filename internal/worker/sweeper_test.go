package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type countingExpirer struct {
	calls atomic.Int32
}

func (c *countingExpirer) ExpireOverdue(_ context.Context, limit int) (int, error) {
	c.calls.Add(1)
	return 0, nil
}

func TestDeadlineSweeperTicksUntilCancelled(t *testing.T) {
	expirer := &countingExpirer{}
	sweeper := NewDeadlineSweeper(expirer, 5*time.Millisecond, 10, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sweeper.Start(ctx)
		close(done)
	}()

	time.Sleep(60 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after cancellation")
	}

	if expirer.calls.Load() == 0 {
		t.Error("sweeper never invoked the expirer")
	}
}
