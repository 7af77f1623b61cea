package domain

import "time"

// LinkStatus distinguishes backend-confirmed internal ids from locally
// generated fallbacks minted while the backend was unreachable.
type LinkStatus string

const (
	LinkConfirmed LinkStatus = "confirmed"
	LinkFallback  LinkStatus = "fallback"
)

// UserLink records the mapping from an identity-provider subject to the
// application's internal user id. Fallback links are retried by the
// reconciler until the backend confirms them.
type UserLink struct {
	ID         string
	Subject    string
	Email      string
	InternalID string
	Status     LinkStatus
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// IsFallback reports whether the link still carries a locally generated id.
func (l UserLink) IsFallback() bool { return l.Status == LinkFallback }

// FallbackID returns the deterministic local id for a subject, used when the
// backend cannot resolve or create the user at login time.
func FallbackID(subject string) string { return "fb_" + subject }
