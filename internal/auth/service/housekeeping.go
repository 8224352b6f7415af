package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/veilauth/veil/internal/auth/handshake"
)

// HousekeepingService periodically sweeps abandoned handshakes out of the
// ephemeral store so a burst of never-completed logins cannot grow the map
// without bound.
type HousekeepingService struct {
	Handshakes handshake.Store
	Logger     *slog.Logger
	Interval   time.Duration

	// Internal channels for lifecycle management
	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a new housekeeping service with the given
// interval. If interval is 0 or negative, defaults to 1 minute.
func NewHousekeepingService(hs handshake.Store, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = time.Minute
	}

	return &HousekeepingService{
		Handshakes: hs,
		Logger:     logger,
		Interval:   interval,
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
	}
}

// Start begins the background worker that periodically runs the sweep.
// This is non-blocking. Call Stop() to gracefully shut the worker down.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop gracefully shuts down the background worker. Blocks until the
// worker has finished any in-progress sweep.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.stopCh:
			return
		}
	}
}

func (s *HousekeepingService) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	dropped, err := s.Handshakes.Sweep(ctx)
	if err != nil {
		s.Logger.Error("handshake sweep failed", "error", err)
		return
	}
	if dropped > 0 {
		s.Logger.Debug("swept expired handshakes", "dropped", dropped)
	}
}
