package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	"kycgate/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose so sinks
// can route them to different retention tiers.
type EventCategory string

const (
	// CategoryCompliance covers changes to who may hold or move the asset:
	// verification flips, executed operations, rejected transfers.
	CategoryCompliance EventCategory = "compliance"

	// CategoryGovernance covers capability and signer-set housekeeping plus
	// the proposal/signature trail of pending operations.
	CategoryGovernance EventCategory = "governance"

	// CategoryOperations covers routine asset activity.
	CategoryOperations EventCategory = "operations"
)

// Action names an observable state change.
type Action string

const (
	// Ledger events
	EventIdentityVerified Action = "identity_verified"
	EventIdentityRevoked  Action = "identity_revoked"

	// Role events
	EventCapabilityGranted Action = "capability_granted"
	EventCapabilityRevoked Action = "capability_revoked"

	// Operation engine events
	EventOperationProposed Action = "operation_proposed"
	EventOperationSigned   Action = "operation_signed"
	EventOperationExecuted Action = "operation_executed"
	EventSignerAdded       Action = "signer_added"
	EventSignerRemoved     Action = "signer_removed"
	EventQuorumChanged     Action = "quorum_changed"

	// Asset events
	EventAssetCreated          Action = "asset_created"
	EventAssetTransferred      Action = "asset_transferred"
	EventTransferRejected      Action = "transfer_rejected"
	EventAssetBurned           Action = "asset_burned"
	EventAssetValuationChanged Action = "asset_valuation_changed"
	EventAssetDocumentChanged  Action = "asset_document_changed"
	EventAssetLedgerChanged    Action = "asset_ledger_changed"
)

var eventCategories = map[Action]EventCategory{
	EventIdentityVerified:  CategoryCompliance,
	EventIdentityRevoked:   CategoryCompliance,
	EventOperationExecuted: CategoryCompliance,
	EventTransferRejected:  CategoryCompliance,

	EventCapabilityGranted: CategoryGovernance,
	EventCapabilityRevoked: CategoryGovernance,
	EventOperationProposed: CategoryGovernance,
	EventOperationSigned:   CategoryGovernance,
	EventSignerAdded:       CategoryGovernance,
	EventSignerRemoved:     CategoryGovernance,
	EventQuorumChanged:     CategoryGovernance,
}

// Category returns the EventCategory for this action.
// Unknown actions default to CategoryOperations.
func (a Action) Category() EventCategory {
	if cat, ok := eventCategories[a]; ok {
		return cat
	}
	return CategoryOperations
}

func (a Action) String() string { return string(a) }

// Event is emitted from domain logic after a unit commits. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	ID        uuid.UUID
	Action    Action
	Timestamp time.Time
	// Actor is the caller whose command produced the event. For ledger
	// changes driven by a quorum it is the signer that completed it.
	Actor domain.Identity
	// Subject is the identity the event is about (verified party, grantee,
	// new signer, transfer sender).
	Subject     domain.Identity
	Counterpart domain.Identity
	OperationID *domain.OperationID
	Kind        domain.OperationKind
	Capability  domain.Capability
	AssetID     domain.AssetID
	Amount      uint64
	// Detail carries a short free-form value: the new quorum, the rejected
	// party role, the new ledger reference.
	Detail    string
	RequestID string
}

//go:generate mockgen -source=models.go -destination=mocks/mocks.go -package=mocks

// Sink receives committed events. Sinks are write-only.
type Sink interface {
	Append(ctx context.Context, event Event) error
}

// Store is a Sink that can also be queried.
type Store interface {
	Sink
	ListBySubject(ctx context.Context, subject domain.Identity) ([]Event, error)
	ListByOperation(ctx context.Context, opID domain.OperationID) ([]Event, error)
	ListRecent(ctx context.Context, limit int) ([]Event, error)
}

// Emitter is what services depend on.
type Emitter interface {
	Emit(ctx context.Context, event Event) error
}

// OperationRef returns a pointer suitable for Event.OperationID.
func OperationRef(id domain.OperationID) *domain.OperationID {
	return &id
}
