// Package revocation keeps the list of revoked access-token ids (jti) until
// the tokens would have expired anyway.
package revocation

import (
	"fmt"
	"time"

	"kycgate/pkg/domain"
	"kycgate/pkg/platform/sentinel"
)

// Clock returns the current time.
type Clock func() time.Time

// Entry is one revoked token. Subject is kept for operators tracing a logout
// back to an identity; lookups only use JTI.
type Entry struct {
	JTI       string
	Subject   domain.Identity
	ExpiresAt time.Time
}

// live reports whether e still needs to be stored at now. Entries with no
// jti or an expiry in the past are dropped silently.
func (e Entry) live(now time.Time) (bool, error) {
	if e.JTI == "" {
		return false, nil
	}
	if e.ExpiresAt.IsZero() {
		return false, fmt.Errorf("revocation of %s has no expiry: %w", e.JTI, sentinel.ErrInvalidState)
	}
	return e.ExpiresAt.After(now), nil
}
