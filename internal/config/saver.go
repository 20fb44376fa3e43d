package config

import (
	"context"
	"log/slog"
	"time"
)

// SaveDelay is how long the saver waits for a burst of changes to settle
const SaveDelay = 500 * time.Millisecond

// Saver coalesces change notifications into deferred writes. Notify never
// blocks: a pending notification absorbs any further ones.
type Saver struct {
	pending  chan struct{}
	snapshot func() *Device
	write    func(*Device) error
	delay    time.Duration
	log      *slog.Logger
}

// NewSaver creates a saver that writes snapshot() with write after each burst
func NewSaver(snapshot func() *Device, write func(*Device) error, log *slog.Logger) *Saver {
	if log == nil {
		log = slog.Default()
	}
	return &Saver{
		pending:  make(chan struct{}, 1),
		snapshot: snapshot,
		write:    write,
		delay:    SaveDelay,
		log:      log,
	}
}

// FileWriter returns a write function for NewSaver that saves to path
func FileWriter(path string) func(*Device) error {
	return func(d *Device) error {
		return d.SaveFile(path)
	}
}

// Notify schedules a save
func (s *Saver) Notify() {
	select {
	case s.pending <- struct{}{}:
	default:
	}
}

// Run waits for notifications until ctx is cancelled. A notification still
// pending at shutdown is flushed before returning.
func (s *Saver) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			select {
			case <-s.pending:
				s.flush()
			default:
			}
			return
		case <-s.pending:
		}

		timer := time.NewTimer(s.delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			s.drain()
			s.flush()
			return
		case <-timer.C:
		}

		// Anything that arrived during the delay is covered by this write
		s.drain()
		s.flush()
	}
}

func (s *Saver) drain() {
	select {
	case <-s.pending:
	default:
	}
}

func (s *Saver) flush() {
	if err := s.write(s.snapshot()); err != nil {
		s.log.Error("config: save failed", "err", err)
		return
	}
	s.log.Debug("config: saved")
}
