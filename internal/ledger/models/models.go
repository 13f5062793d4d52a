package models

import (
	"time"

	"kycgate/pkg/domain"
	dErrors "kycgate/pkg/domain-errors"
)

// Record is the verification state of one identity. Absent records read as
// unverified. Records are created on first write and only ever flipped.
type Record struct {
	Identity  domain.Identity
	Verified  bool
	UpdatedAt time.Time
	UpdatedBy domain.Identity
}

// Status is the response shape for a verification lookup.
type Status struct {
	Identity domain.Identity `json:"identity"`
	Verified bool            `json:"verified"`
}

// BatchVerifyRequest is the body of POST /v1/ledger/batch-verify.
type BatchVerifyRequest struct {
	Identities []string `json:"identities"`

	parsed []domain.Identity
}

// Validate parses every entry. Null identities are kept; the ledger skips them.
func (r *BatchVerifyRequest) Validate() error {
	if len(r.Identities) > MaxBatchSize {
		return dErrors.Newf(dErrors.CodeInvalidArgument, "batch exceeds %d identities", MaxBatchSize)
	}
	r.parsed = make([]domain.Identity, 0, len(r.Identities))
	for _, raw := range r.Identities {
		id, err := domain.ParseIdentity(raw)
		if err != nil {
			return err
		}
		r.parsed = append(r.parsed, id)
	}
	return nil
}

// Parsed returns the identities decoded by Validate.
func (r *BatchVerifyRequest) Parsed() []domain.Identity {
	return r.parsed
}

// MaxBatchSize bounds one batch request.
const MaxBatchSize = 500

// BatchVerifyResponse lists the identities the batch actually verified.
type BatchVerifyResponse struct {
	Verified []domain.Identity `json:"verified"`
}

// VerifiedList is the response of GET /v1/ledger/identities.
type VerifiedList struct {
	Ledger     string            `json:"ledger"`
	Identities []domain.Identity `json:"identities"`
}
