package domain

import dErrors "kycgate/pkg/domain-errors"

// Capability is a privilege an identity may hold.
// Invariant: the value must be one of the supported capabilities.
//
// Usage: construct via ParseCapability at trust boundaries to enforce the
// allowlist; direct casting bypasses validation.
type Capability string

const (
	CapabilityAdmin           Capability = "admin"
	CapabilityVerifier        Capability = "verifier"
	CapabilityThresholdSigner Capability = "threshold_signer"
)

var validCapabilities = map[Capability]bool{
	CapabilityAdmin:           true,
	CapabilityVerifier:        true,
	CapabilityThresholdSigner: true,
}

// AllCapabilities lists every capability in a stable order.
func AllCapabilities() []Capability {
	return []Capability{CapabilityAdmin, CapabilityVerifier, CapabilityThresholdSigner}
}

// ParseCapability constructs a Capability from external input.
//
// Errors: returns CodeInvalidArgument when the value is empty or unsupported.
func ParseCapability(s string) (Capability, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidArgument, "capability cannot be empty")
	}
	c := Capability(s)
	if !c.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidArgument, "invalid capability")
	}
	return c, nil
}

func (c Capability) IsValid() bool {
	return validCapabilities[c]
}

func (c Capability) String() string {
	return string(c)
}
