package service_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/benxgao/certifai-gateway/internal/gateway/domain"
	"github.com/benxgao/certifai-gateway/internal/gateway/service"
	"github.com/benxgao/certifai-gateway/internal/gateway/upstream"
)

// mapResolver resolves per subject, for driving mixed reconcile outcomes.
type mapResolver struct {
	ids   map[string]string
	errs  map[string]error
	calls []string
}

func (r *mapResolver) ResolveUser(_ context.Context, _, subject, _ string) (string, error) {
	r.calls = append(r.calls, subject)
	if err, ok := r.errs[subject]; ok {
		return "", err
	}
	if id, ok := r.ids[subject]; ok {
		return id, nil
	}
	return "", upstream.ErrUserUnknown
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fallbackLink(subject string, updatedAt time.Time) domain.UserLink {
	return domain.UserLink{
		ID:         subject,
		Subject:    subject,
		Email:      subject + "@example.com",
		InternalID: domain.FallbackID(subject),
		Status:     domain.LinkFallback,
		CreatedAt:  updatedAt,
		UpdatedAt:  updatedAt,
	}
}

func TestReconcileOnceUpgradesFallbacks(t *testing.T) {
	ctx := context.Background()
	st := newMemStore()
	now := time.Now().UTC()

	require.NoError(t, st.Upsert(ctx, fallbackLink("sub-a", now)))
	require.NoError(t, st.Upsert(ctx, fallbackLink("sub-b", now)))
	require.NoError(t, st.Upsert(ctx, domain.UserLink{
		ID: "c", Subject: "sub-c", InternalID: "user-3",
		Status: domain.LinkConfirmed, CreatedAt: now, UpdatedAt: now,
	}))

	resolver := &mapResolver{ids: map[string]string{
		"sub-a": "user-1",
		// sub-b still unknown to the backend
	}}

	r := service.NewReconcilerService(st, resolver, discardLogger(), time.Minute)
	confirmed, err := r.ReconcileOnce(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, confirmed)

	// Confirmed links are never retried.
	require.ElementsMatch(t, []string{"sub-a", "sub-b"}, resolver.calls)

	a, err := st.GetBySubject(ctx, "sub-a")
	require.NoError(t, err)
	require.Equal(t, domain.LinkConfirmed, a.Status)
	require.Equal(t, "user-1", a.InternalID)

	b, err := st.GetBySubject(ctx, "sub-b")
	require.NoError(t, err)
	require.Equal(t, domain.LinkFallback, b.Status)
}

func TestReconcileOnceAbortsOnOutage(t *testing.T) {
	ctx := context.Background()
	st := newMemStore()
	now := time.Now().UTC()

	require.NoError(t, st.Upsert(ctx, fallbackLink("sub-a", now)))
	require.NoError(t, st.Upsert(ctx, fallbackLink("sub-b", now)))

	resolver := &mapResolver{errs: map[string]error{
		"sub-a": upstream.ErrUnavailable,
	}}

	r := service.NewReconcilerService(st, resolver, discardLogger(), time.Minute)
	confirmed, err := r.ReconcileOnce(ctx)
	require.ErrorIs(t, err, upstream.ErrUnavailable)
	require.Zero(t, confirmed)
	require.Len(t, resolver.calls, 1, "outage aborts the rest of the batch")
}

func TestReconcilerStartStop(t *testing.T) {
	ctx := context.Background()
	st := newMemStore()
	require.NoError(t, st.Upsert(ctx, fallbackLink("sub-a", time.Now().UTC())))

	resolver := &mapResolver{ids: map[string]string{"sub-a": "user-1"}}

	r := service.NewReconcilerService(st, resolver, discardLogger(), time.Hour)
	r.Start()
	r.Stop()

	// The startup pass ran before Stop returned.
	a, err := st.GetBySubject(ctx, "sub-a")
	require.NoError(t, err)
	require.Equal(t, domain.LinkConfirmed, a.Status)
}
