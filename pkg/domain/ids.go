package domain

import (
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/google/uuid"

	dErrors "kycgate/pkg/domain-errors"
)

// IdentityLength is the byte length of an Identity.
const IdentityLength = 20

// Identity is an opaque participant handle. Only equality is interpreted; the
// zero value is the null sentinel and is never a valid argument.
//
// Usage: construct via ParseIdentity at trust boundaries. Direct construction
// from bytes is fine inside tests.
type Identity [IdentityLength]byte

// NilIdentity is the reserved null sentinel.
var NilIdentity Identity

// ParseIdentity parses "0x" followed by 40 hex characters. Case is ignored.
//
// Errors: CodeInvalidArgument on malformed input. The null identity parses
// successfully; callers reject it with RequireIdentity where it is an argument.
func ParseIdentity(s string) (Identity, error) {
	raw, ok := strings.CutPrefix(s, "0x")
	if !ok {
		raw, ok = strings.CutPrefix(s, "0X")
	}
	if !ok || len(raw) != 2*IdentityLength {
		return NilIdentity, dErrors.New(dErrors.CodeInvalidArgument, "identity must be 0x followed by 40 hex characters")
	}
	var out Identity
	if _, err := hex.Decode(out[:], []byte(raw)); err != nil {
		return NilIdentity, dErrors.New(dErrors.CodeInvalidArgument, "identity is not valid hex")
	}
	return out, nil
}

// MustParseIdentity panics on malformed input. Intended for tests and constants.
func MustParseIdentity(s string) Identity {
	id, err := ParseIdentity(s)
	if err != nil {
		panic(err)
	}
	return id
}

// RequireIdentity parses s and rejects the null sentinel.
func RequireIdentity(s string) (Identity, error) {
	id, err := ParseIdentity(s)
	if err != nil {
		return NilIdentity, err
	}
	if id.IsNil() {
		return NilIdentity, dErrors.New(dErrors.CodeInvalidArgument, "identity cannot be the null identity")
	}
	return id, nil
}

// IsNil reports whether id is the null sentinel.
func (id Identity) IsNil() bool {
	return id == NilIdentity
}

// String renders the lowercase 0x form.
func (id Identity) String() string {
	return "0x" + hex.EncodeToString(id[:])
}

func (id Identity) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *Identity) UnmarshalText(b []byte) error {
	parsed, err := ParseIdentity(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// OperationID numbers pending operations in creation order, starting at 0.
type OperationID uint64

// ParseOperationID parses a decimal operation id.
func ParseOperationID(s string) (OperationID, error) {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, dErrors.New(dErrors.CodeInvalidArgument, "operation id must be a non-negative integer")
	}
	return OperationID(n), nil
}

func (id OperationID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// AssetID identifies a guarded asset instance.
type AssetID uuid.UUID

// ParseAssetID parses a non-nil UUID.
func ParseAssetID(s string) (AssetID, error) {
	if s == "" {
		return AssetID{}, dErrors.New(dErrors.CodeInvalidArgument, "asset id cannot be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return AssetID{}, dErrors.New(dErrors.CodeInvalidArgument, "asset id must be a valid UUID")
	}
	if u == uuid.Nil {
		return AssetID{}, dErrors.New(dErrors.CodeInvalidArgument, "asset id cannot be nil")
	}
	return AssetID(u), nil
}

// NewAssetID returns a fresh random asset id.
func NewAssetID() AssetID {
	return AssetID(uuid.New())
}

func (id AssetID) IsNil() bool {
	return uuid.UUID(id) == uuid.Nil
}

func (id AssetID) String() string {
	return uuid.UUID(id).String()
}

func (id AssetID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *AssetID) UnmarshalText(b []byte) error {
	parsed, err := ParseAssetID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
