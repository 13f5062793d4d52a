package domain

import dErrors "kycgate/pkg/domain-errors"

// OperationKind names the privileged action a pending operation executes.
// It is stored verbatim next to the operation target; kind and target are
// never packed into a single word.
type OperationKind string

const (
	OperationVerifyIdentity OperationKind = "verify_identity"
	OperationRevokeIdentity OperationKind = "revoke_identity"
)

// ParseOperationKind constructs an OperationKind from external input.
//
// Errors: returns CodeInvalidArgument when the value is empty or unsupported.
func ParseOperationKind(s string) (OperationKind, error) {
	switch k := OperationKind(s); k {
	case OperationVerifyIdentity, OperationRevokeIdentity:
		return k, nil
	case "":
		return "", dErrors.New(dErrors.CodeInvalidArgument, "operation kind cannot be empty")
	default:
		return "", dErrors.New(dErrors.CodeInvalidArgument, "invalid operation kind")
	}
}

func (k OperationKind) IsValid() bool {
	return k == OperationVerifyIdentity || k == OperationRevokeIdentity
}

func (k OperationKind) String() string {
	return string(k)
}
