package models

import (
	"fmt"
	"time"

	"kycgate/pkg/domain"
	dErrors "kycgate/pkg/domain-errors"
)

// Assignment records that an identity holds a capability.
type Assignment struct {
	Identity   domain.Identity
	Capability domain.Capability
	GrantedBy  domain.Identity
	GrantedAt  time.Time
}

// Authorization is the outcome of a capability check. It is returned by
// value so callers can log the decision and still fail with Err().
type Authorization struct {
	Identity   domain.Identity
	Capability domain.Capability
	Allowed    bool
	// cause is set when the check itself could not be completed.
	cause error
}

// Allow builds a granted Authorization.
func Allow(who domain.Identity, capability domain.Capability) Authorization {
	return Authorization{Identity: who, Capability: capability, Allowed: true}
}

// Deny builds a refused Authorization.
func Deny(who domain.Identity, capability domain.Capability) Authorization {
	return Authorization{Identity: who, Capability: capability}
}

// Failed builds an Authorization for a check that errored. It never allows.
func Failed(who domain.Identity, capability domain.Capability, cause error) Authorization {
	return Authorization{Identity: who, Capability: capability, cause: cause}
}

// Err returns nil when allowed, Unauthorized when refused, and Internal when
// the check failed.
func (a Authorization) Err() error {
	switch {
	case a.cause != nil:
		return dErrors.Wrap(a.cause, dErrors.CodeInternal, "failed to check capability")
	case !a.Allowed:
		return dErrors.New(dErrors.CodeUnauthorized,
			fmt.Sprintf("%s does not hold the %s capability", a.Identity, a.Capability))
	default:
		return nil
	}
}

// CapabilitySet is the response shape for capability lookups.
type CapabilitySet struct {
	Identity     domain.Identity     `json:"identity"`
	Capabilities []domain.Capability `json:"capabilities"`
}
