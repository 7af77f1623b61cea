package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/benxgao/certifai-gateway/internal/gateway/domain"
	"github.com/benxgao/certifai-gateway/internal/gateway/identity"
	"github.com/benxgao/certifai-gateway/internal/gateway/store"
	"github.com/benxgao/certifai-gateway/internal/gateway/upstream"
	"github.com/benxgao/certifai-gateway/pkg/idx"
	"github.com/benxgao/certifai-gateway/pkg/slogx"
	"github.com/benxgao/certifai-gateway/pkg/wraptoken"
)

var (
	ErrInvalidToken = errors.New("invalid_token")
	ErrTokenExpired = errors.New("token_expired")
)

// UserResolver resolves an identity subject to the application's internal
// user id. Satisfied by upstream.Client; stubbed in tests.
type UserResolver interface {
	ResolveUser(ctx context.Context, identityToken, subject, email string) (string, error)
}

// SessionService owns the session lifecycle: exchanging a verified identity
// token for a wrapper cookie at login, classifying presented cookies on
// every request, and the emergency cache reset.
type SessionService struct {
	Codec    *wraptoken.Codec
	Verifier identity.Verifier
	Cache    *identity.Cache
	Store    store.Store
	Backend  UserResolver
}

// LoginResult is what a successful login hands the HTTP layer.
type LoginResult struct {
	Wrapper  string
	UserID   string
	Fallback bool
}

// Login verifies a client-presented identity token, resolves the internal
// user id (falling back to a deterministic local id when the backend cannot
// answer), records the subject link, and mints the first wrapper token.
func (s *SessionService) Login(ctx context.Context, identityToken string) (*LoginResult, error) {
	l := slogx.FromContext(ctx)

	claims, err := s.Verifier.Verify(ctx, identityToken)
	if err != nil {
		switch {
		case errors.Is(err, identity.ErrExpired):
			return nil, ErrTokenExpired
		case errors.Is(err, identity.ErrInvalidSignature):
			return nil, ErrInvalidToken
		default:
			return nil, err
		}
	}

	internalID := claims.APIUserID
	status := domain.LinkConfirmed
	if internalID == "" {
		internalID, err = s.Backend.ResolveUser(ctx, identityToken, claims.Subject, claims.Email)
		if err != nil {
			if !errors.Is(err, upstream.ErrUnavailable) && !errors.Is(err, upstream.ErrUserUnknown) {
				return nil, err
			}
			// Backend can't answer right now. Login still succeeds with a
			// local id; the reconciler upgrades it once the backend recovers.
			internalID = domain.FallbackID(claims.Subject)
			status = domain.LinkFallback
			l.Warn("backend resolve failed, issuing fallback id",
				slog.String("subject", claims.Subject),
				slog.String("error", err.Error()))
		}
	}

	now := time.Now().UTC()
	link := domain.UserLink{
		ID:         idx.New().String(),
		Subject:    claims.Subject,
		Email:      claims.Email,
		InternalID: internalID,
		Status:     status,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.Store.UserLinks().Upsert(ctx, link); err != nil {
		// The link is a side record; its persistence must not fail login.
		l.Error("persist user link", slog.String("subject", claims.Subject), slog.String("error", err.Error()))
	}

	wrapper, err := s.Codec.Encode(identityToken)
	if err != nil {
		return nil, err
	}

	return &LoginResult{
		Wrapper:  wrapper,
		UserID:   internalID,
		Fallback: status == domain.LinkFallback,
	}, nil
}

// Classify turns a presented cookie value into one of the four terminal
// session states. Every client-triggerable failure lands in a state, never
// in the returned error; a non-nil error means an infrastructure problem
// (provider unreachable, missing secret) and the caller answers 500 with
// the cookie deleted, failing closed.
func (s *SessionService) Classify(ctx context.Context, cookieValue string) (domain.Classification, error) {
	if cookieValue == "" {
		return domain.Classification{
			State:  domain.SessionUnauthenticated,
			Cookie: domain.CookieKeep,
		}, nil
	}

	claims, err := s.Codec.Decode(cookieValue)
	switch {
	case err == nil:
		return s.classifyVerified(ctx, claims.IdentityToken, domain.CookieKeep, time.Time{})

	case errors.Is(err, wraptoken.ErrExpired):
		// The wrapper's own lifetime ran out but its signature held. Recover
		// the embedded identity token and let it stand on its own.
		inner, uerr := wraptoken.UnsafeDecode(cookieValue)
		if uerr != nil {
			return deleteAs(domain.SessionUnauthenticated), nil
		}
		return s.classifyVerified(ctx, inner.IdentityToken, domain.CookieOverwrite, time.Now().UTC())

	case errors.Is(err, wraptoken.ErrNoSecret):
		return deleteAs(domain.SessionUnauthenticated), err

	default:
		// Bad signature or garbage. No recovery path exists for these.
		return deleteAs(domain.SessionUnauthenticated), nil
	}
}

// classifyVerified verifies the identity token and finishes the
// classification. A zero mintAt means the wrapper is still valid and kept;
// otherwise a replacement wrapper is minted at that instant.
func (s *SessionService) classifyVerified(ctx context.Context, identityToken string, onValid domain.CookieAction, mintAt time.Time) (domain.Classification, error) {
	claims, err := s.Verifier.Verify(ctx, identityToken)
	if err != nil {
		switch {
		case errors.Is(err, identity.ErrExpired):
			return deleteAs(domain.SessionNeedsReauth), nil
		case errors.Is(err, identity.ErrInvalidSignature):
			return deleteAs(domain.SessionUnauthenticated), nil
		default:
			return deleteAs(domain.SessionUnauthenticated), err
		}
	}

	c := domain.Classification{
		State:         domain.SessionFresh,
		UserID:        claims.InternalUserID(),
		IdentityToken: identityToken,
		Cookie:        onValid,
	}

	if onValid == domain.CookieOverwrite {
		wrapper, err := s.Codec.EncodeAt(identityToken, mintAt)
		if err != nil {
			return deleteAs(domain.SessionUnauthenticated), err
		}
		c.State = domain.SessionWrapperRefreshed
		c.NewValue = wrapper
	}

	return c, nil
}

// Reset clears the process-wide verification cache. It is idempotent, never
// fails, and reports the before/after sizes for observability.
func (s *SessionService) Reset(ctx context.Context) (before, after int) {
	if s.Cache == nil {
		return 0, 0
	}
	before, after = s.Cache.InvalidateAll()
	slogx.FromContext(ctx).Info("verification cache reset",
		slog.Int("before", before),
		slog.Int("after", after))
	return before, after
}

func deleteAs(state domain.SessionState) domain.Classification {
	return domain.Classification{State: state, Cookie: domain.CookieDelete}
}
