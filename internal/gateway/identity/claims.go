package identity

import (
	"github.com/golang-jwt/jwt/v5"

	"github.com/benxgao/certifai-gateway/internal/gateway/domain"
)

// Claims are the decoded identity-token claims this service cares about.
// The provider attaches arbitrary custom claims; we only surface the ones
// the session layer uses.
type Claims struct {
	jwt.RegisteredClaims

	// Email as asserted by the identity provider.
	Email string `json:"email,omitempty"`

	// APIUserID is the custom claim bridging the provider identity to the
	// application's own user record. Absent until the first login persists it.
	APIUserID string `json:"api_user_id,omitempty"`
}

// InternalUserID returns the id the rest of the system should treat as the
// user: the backend-confirmed custom claim when present, otherwise the
// deterministic local fallback for the subject.
func (c Claims) InternalUserID() string {
	if c.APIUserID != "" {
		return c.APIUserID
	}
	return domain.FallbackID(c.Subject)
}
