package audit

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"kycgate/pkg/domain"
)

// Envelope is the wire form sinks publish. Field names are stable; consumers
// outside this service decode them.
type Envelope struct {
	ID          string `json:"id"`
	Category    string `json:"category"`
	Action      string `json:"action"`
	Timestamp   string `json:"timestamp"`
	Actor       string `json:"actor,omitempty"`
	Subject     string `json:"subject,omitempty"`
	Counterpart string `json:"counterpart,omitempty"`
	OperationID string `json:"operation_id,omitempty"`
	Kind        string `json:"kind,omitempty"`
	Capability  string `json:"capability,omitempty"`
	AssetID     string `json:"asset_id,omitempty"`
	Amount      uint64 `json:"amount,omitempty"`
	Detail      string `json:"detail,omitempty"`
	RequestID   string `json:"request_id,omitempty"`
}

// ToEnvelope flattens an event into its wire form.
func ToEnvelope(e Event) Envelope {
	env := Envelope{
		ID:         e.ID.String(),
		Category:   string(e.Action.Category()),
		Action:     string(e.Action),
		Timestamp:  e.Timestamp.UTC().Format(time.RFC3339Nano),
		Kind:       string(e.Kind),
		Capability: string(e.Capability),
		Amount:     e.Amount,
		Detail:     e.Detail,
		RequestID:  e.RequestID,
	}
	if !e.Actor.IsNil() {
		env.Actor = e.Actor.String()
	}
	if !e.Subject.IsNil() {
		env.Subject = e.Subject.String()
	}
	if !e.Counterpart.IsNil() {
		env.Counterpart = e.Counterpart.String()
	}
	if e.OperationID != nil {
		env.OperationID = e.OperationID.String()
	}
	if !e.AssetID.IsNil() {
		env.AssetID = e.AssetID.String()
	}
	return env
}

// Marshal renders the event envelope as JSON.
func Marshal(e Event) ([]byte, error) {
	b, err := json.Marshal(ToEnvelope(e))
	if err != nil {
		return nil, fmt.Errorf("marshal audit envelope: %w", err)
	}
	return b, nil
}

// FromEnvelope reverses ToEnvelope. Empty optional fields stay zero.
func FromEnvelope(env Envelope) (Event, error) {
	var (
		e   Event
		err error
	)
	if e.ID, err = uuid.Parse(env.ID); err != nil {
		return Event{}, fmt.Errorf("parse event id: %w", err)
	}
	e.Action = Action(env.Action)
	if e.Timestamp, err = time.Parse(time.RFC3339Nano, env.Timestamp); err != nil {
		return Event{}, fmt.Errorf("parse event timestamp: %w", err)
	}
	for _, f := range []struct {
		raw string
		dst *domain.Identity
	}{{env.Actor, &e.Actor}, {env.Subject, &e.Subject}, {env.Counterpart, &e.Counterpart}} {
		if f.raw == "" {
			continue
		}
		if *f.dst, err = domain.ParseIdentity(f.raw); err != nil {
			return Event{}, err
		}
	}
	if env.OperationID != "" {
		n, err := strconv.ParseUint(env.OperationID, 10, 64)
		if err != nil {
			return Event{}, fmt.Errorf("parse operation id: %w", err)
		}
		e.OperationID = OperationRef(domain.OperationID(n))
	}
	if env.AssetID != "" {
		if e.AssetID, err = domain.ParseAssetID(env.AssetID); err != nil {
			return Event{}, err
		}
	}
	e.Kind = domain.OperationKind(env.Kind)
	e.Capability = domain.Capability(env.Capability)
	e.Amount = env.Amount
	e.Detail = env.Detail
	e.RequestID = env.RequestID
	return e, nil
}
