package models

import (
	"slices"
	"time"

	"kycgate/pkg/domain"
	dErrors "kycgate/pkg/domain-errors"
)

// Operation is a pending privileged action awaiting threshold approval. The
// proposer is its first signer. Signers only grow, and once Executed is set
// the operation never changes again.
type Operation struct {
	ID         domain.OperationID   `json:"id"`
	Kind       domain.OperationKind `json:"kind"`
	Target     domain.Identity      `json:"target"`
	Signers    []domain.Identity    `json:"signers"`
	CreatedBy  domain.Identity      `json:"created_by"`
	Executed   bool                 `json:"executed"`
	CreatedAt  time.Time            `json:"created_at"`
	ExecutedAt *time.Time           `json:"executed_at,omitempty"`
}

// HasSigned reports whether who is among the operation's signers.
func (o *Operation) HasSigned(who domain.Identity) bool {
	return slices.Contains(o.Signers, who)
}

// SignatureCount is the number of distinct signers so far.
func (o *Operation) SignatureCount() int {
	return len(o.Signers)
}

// Clone returns a copy that shares no slices with o.
func (o *Operation) Clone() *Operation {
	c := *o
	c.Signers = slices.Clone(o.Signers)
	if o.ExecutedAt != nil {
		at := *o.ExecutedAt
		c.ExecutedAt = &at
	}
	return &c
}

// Config is the engine's quorum configuration. Signers are the current
// threshold_signer holders.
type Config struct {
	RequiredSignatures int               `json:"required_signatures"`
	Signers            []domain.Identity `json:"signers"`
}

// ProposeRequest is the body of POST /v1/governance/operations.
type ProposeRequest struct {
	Kind   string `json:"kind"`
	Target string `json:"target"`

	kind   domain.OperationKind
	target domain.Identity
}

func (r *ProposeRequest) Validate() error {
	kind, err := domain.ParseOperationKind(r.Kind)
	if err != nil {
		return err
	}
	target, err := domain.RequireIdentity(r.Target)
	if err != nil {
		return err
	}
	r.kind, r.target = kind, target
	return nil
}

// Parsed returns the kind and target decoded by Validate.
func (r *ProposeRequest) Parsed() (domain.OperationKind, domain.Identity) {
	return r.kind, r.target
}

// QuorumRequest is the body of PUT /v1/governance/quorum.
type QuorumRequest struct {
	RequiredSignatures int `json:"required_signatures"`
}

func (r *QuorumRequest) Validate() error {
	if r.RequiredSignatures < 1 {
		return dErrors.New(dErrors.CodeInvalidArgument, "required_signatures must be at least 1")
	}
	return nil
}

// SignResponse reports whether the signature triggered execution.
type SignResponse struct {
	Executed bool `json:"executed"`
}

// SignedResponse answers whether an identity signed an operation.
type SignedResponse struct {
	Operation domain.OperationID `json:"operation"`
	Identity  domain.Identity    `json:"identity"`
	Signed    bool               `json:"signed"`
}

// OperationList is the response of GET /v1/governance/operations.
type OperationList struct {
	Operations []*Operation `json:"operations"`
}
