package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/benxgao/certifai-gateway/internal/gateway/store"
	"github.com/benxgao/certifai-gateway/internal/gateway/upstream"
)

// ReconcilerService periodically retries user links that were issued a
// local fallback id while the backend was unreachable, upgrading them to
// backend-confirmed ids, and prunes fallbacks the backend never accepted.
type ReconcilerService struct {
	Store        store.Store
	Backend      UserResolver
	Logger       *slog.Logger
	Interval     time.Duration
	BatchSize    int
	StaleAfter   time.Duration
	ServiceToken string

	// Internal channels for lifecycle management
	stopCh chan struct{}
	doneCh chan struct{}
}

// NewReconcilerService creates a reconciler. Non-positive interval or batch
// size select the defaults (15 minutes, 100 links per pass).
func NewReconcilerService(st store.Store, backend UserResolver, logger *slog.Logger, interval time.Duration) *ReconcilerService {
	if interval <= 0 {
		interval = 15 * time.Minute
	}

	return &ReconcilerService{
		Store:      st,
		Backend:    backend,
		Logger:     logger,
		Interval:   interval,
		BatchSize:  100,
		StaleAfter: 30 * 24 * time.Hour,
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
	}
}

// Start begins the background worker. Non-blocking; call Stop() to shut
// down gracefully.
func (s *ReconcilerService) Start() {
	go s.run()
	s.Logger.Info("fallback reconciler started", "interval", s.Interval)
}

// Stop shuts down the background worker, blocking until any in-progress
// pass finishes.
func (s *ReconcilerService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("fallback reconciler stopped")
}

func (s *ReconcilerService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	// Run a pass immediately on startup
	s.pass()

	for {
		select {
		case <-ticker.C:
			s.pass()
		case <-s.stopCh:
			return
		}
	}
}

func (s *ReconcilerService) pass() {
	ctx := context.Background()

	confirmed, err := s.ReconcileOnce(ctx)
	if err != nil {
		s.Logger.Error("reconcile pass failed", "error", err)
		return
	}
	if confirmed > 0 {
		s.Logger.Info("reconcile pass completed", "confirmed", confirmed)
	}

	if s.StaleAfter > 0 {
		cutoff := time.Now().UTC().Add(-s.StaleAfter)
		removed, err := s.Store.UserLinks().DeleteStaleFallbacks(ctx, cutoff)
		if err != nil {
			s.Logger.Error("failed to delete stale fallback links", "error", err)
		} else if removed > 0 {
			s.Logger.Info("deleted stale fallback links", "removed", removed)
		}
	}
}

// ReconcileOnce runs a single pass: list pending fallback links, ask the
// backend to resolve each, and confirm the ones it now knows. Returns the
// number of links upgraded. A backend outage aborts the pass early; the
// remaining links wait for the next tick.
func (s *ReconcilerService) ReconcileOnce(ctx context.Context) (int, error) {
	batch := s.BatchSize
	if batch <= 0 {
		batch = 100
	}

	links, err := s.Store.UserLinks().ListFallbacks(ctx, batch)
	if err != nil {
		return 0, err
	}

	var confirmed int
	for _, link := range links {
		id, err := s.Backend.ResolveUser(ctx, s.ServiceToken, link.Subject, link.Email)
		switch {
		case err == nil:
			if err := s.Store.UserLinks().Confirm(ctx, link.Subject, id, time.Now().UTC()); err != nil {
				s.Logger.Error("failed to confirm user link", "subject", link.Subject, "error", err)
				continue
			}
			confirmed++

		case errors.Is(err, upstream.ErrUnavailable):
			// Backend is down again; no point hammering it for the rest of
			// the batch.
			return confirmed, err

		case errors.Is(err, upstream.ErrUserUnknown):
			// Still unknown to the backend. Leave it for a later pass or
			// the stale sweep.
			continue

		default:
			s.Logger.Error("unexpected resolve failure", "subject", link.Subject, "error", err)
		}
	}

	return confirmed, nil
}
