package config

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaverCoalesces(t *testing.T) {
	var writes atomic.Int32
	d := Defaults()

	s := NewSaver(func() *Device { return d }, func(*Device) error {
		writes.Add(1)
		return nil
	}, nil)
	s.delay = 20 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.Run(ctx)
	}()

	for i := 0; i < 10; i++ {
		s.Notify()
	}
	require.Eventually(t, func() bool { return writes.Load() == 1 }, time.Second, 5*time.Millisecond)

	// Give a second write the chance to happen if coalescing failed
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(1), writes.Load())

	s.Notify()
	require.Eventually(t, func() bool { return writes.Load() == 2 }, time.Second, 5*time.Millisecond)

	cancel()
	wg.Wait()
}

func TestSaverFlushesOnShutdown(t *testing.T) {
	var writes atomic.Int32
	s := NewSaver(Defaults, func(*Device) error {
		writes.Add(1)
		return errors.New("disk full")
	}, nil)
	s.delay = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	s.Notify()
	time.Sleep(10 * time.Millisecond)
	cancel()
	<-done

	assert.Equal(t, int32(1), writes.Load())
}
