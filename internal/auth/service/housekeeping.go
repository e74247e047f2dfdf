package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/trackforge/trackforge/internal/auth/blacklist"
	"github.com/trackforge/trackforge/internal/auth/store"
	"github.com/trackforge/trackforge/internal/auth/tokencache"
)

// HousekeepingService periodically drops expired refresh token records and
// lapsed blacklist entries so neither grows without bound.
type HousekeepingService struct {
	Store     store.Store
	Blacklist blacklist.Blacklist
	Cache     *tokencache.Cache
	Logger    *slog.Logger
	Interval  time.Duration

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService builds the service. A zero or negative interval
// defaults to one hour.
func NewHousekeepingService(st store.Store, bl blacklist.Blacklist, cache *tokencache.Cache, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = time.Hour
	}
	return &HousekeepingService{
		Store:     st,
		Blacklist: bl,
		Cache:     cache,
		Logger:    logger,
		Interval:  interval,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// Start launches the background worker. Non-blocking; call Stop to shut
// it down.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping started", slog.Duration("interval", s.Interval))
}

// Stop shuts the worker down, blocking until any in-progress sweep ends.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	s.sweep()

	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.stopCh:
			return
		}
	}
}

// sweep runs the cleanups independently so one failure does not stop the
// others. Expired refresh records can never validate again, so deleting
// them is pure retention.
func (s *HousekeepingService) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	now := time.Now()

	if err := s.Store.RefreshTokens().DeleteExpiredRefreshTokens(ctx, now); err != nil {
		s.Logger.Error("delete expired refresh tokens failed", slog.String("error", err.Error()))
	}
	if err := s.Blacklist.PurgeExpired(ctx); err != nil {
		s.Logger.Error("blacklist purge failed", slog.String("error", err.Error()))
	}

	if s.Cache != nil {
		s.Logger.Debug("housekeeping sweep complete", slog.Int("cache_entries", s.Cache.Len()))
	}
}
