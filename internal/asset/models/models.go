package models

import (
	"math"
	"strconv"
	"strings"
	"time"

	"kycgate/pkg/domain"
	dErrors "kycgate/pkg/domain-errors"
)

// MaxSupply bounds supply and balances to what every store can hold.
const MaxSupply = math.MaxInt64

// Asset is a guarded asset record. ID, Name, Symbol and Description never
// change; the controller may update Valuation, DocumentHash and LedgerRef.
type Asset struct {
	ID           domain.AssetID  `json:"id"`
	Name         string          `json:"name"`
	Symbol       string          `json:"symbol"`
	Description  string          `json:"description,omitempty"`
	Valuation    Valuation       `json:"valuation"`
	DocumentHash string          `json:"document_hash"`
	Controller   domain.Identity `json:"controller"`
	LedgerRef    string          `json:"ledger"`
	Supply       uint64          `json:"supply"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// Valuation is a positive amount in whole units. Currency is an optional
// three-letter code kept next to the amount, never parsed out of it.
type Valuation struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency,omitempty"`
}

// Normalize upper-cases the currency and rejects non-positive amounts and
// malformed currency codes.
func (v Valuation) Normalize() (Valuation, error) {
	v.Currency = strings.ToUpper(strings.TrimSpace(v.Currency))
	if v.Amount <= 0 {
		return v, dErrors.Newf(dErrors.CodeInvalidArgument, "valuation must be positive, got %d", v.Amount)
	}
	if v.Currency != "" && !isCurrencyCode(v.Currency) {
		return v, dErrors.Newf(dErrors.CodeInvalidArgument, "currency %q is not a three-letter code", v.Currency)
	}
	return v, nil
}

func (v Valuation) String() string {
	amount := strconv.FormatInt(v.Amount, 10)
	if v.Currency == "" {
		return amount
	}
	return v.Currency + " " + amount
}

func isCurrencyCode(s string) bool {
	if len(s) != 3 {
		return false
	}
	for _, c := range s {
		if c < 'A' || c > 'Z' {
			return false
		}
	}
	return true
}

// Balance is one holder's position in an asset.
type Balance struct {
	AssetID domain.AssetID  `json:"asset_id"`
	Holder  domain.Identity `json:"holder"`
	Balance uint64          `json:"balance"`
}

// CreateAssetRequest is the body of POST /v1/assets and the registry input.
type CreateAssetRequest struct {
	Name          string `json:"name"`
	Symbol        string `json:"symbol"`
	Description   string `json:"description"`
	Valuation     Valuation `json:"valuation"`
	DocumentHash  string    `json:"document_hash"`
	InitialSupply uint64    `json:"initial_supply"`
	LedgerRef     string    `json:"ledger"`
}

// Validate trims and checks the metadata. Ledger resolution happens in the
// registry.
func (r *CreateAssetRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	r.Symbol = strings.TrimSpace(r.Symbol)
	r.LedgerRef = strings.TrimSpace(r.LedgerRef)
	valuation, err := r.Valuation.Normalize()
	if err != nil {
		return err
	}
	r.Valuation = valuation
	switch {
	case r.Name == "":
		return dErrors.New(dErrors.CodeInvalidArgument, "name is required")
	case r.Symbol == "":
		return dErrors.New(dErrors.CodeInvalidArgument, "symbol is required")
	case r.DocumentHash == "":
		return dErrors.New(dErrors.CodeInvalidArgument, "document_hash is required")
	case r.LedgerRef == "":
		return dErrors.New(dErrors.CodeInvalidArgument, "ledger is required")
	case r.InitialSupply > MaxSupply:
		return dErrors.New(dErrors.CodeInvalidArgument, "initial_supply is too large")
	}
	return nil
}

// TransferRequest is the body of POST /v1/assets/{id}/transfers.
type TransferRequest struct {
	To     string `json:"to"`
	Amount uint64 `json:"amount"`

	to domain.Identity
}

func (r *TransferRequest) Validate() error {
	to, err := domain.ParseIdentity(r.To)
	if err != nil {
		return err
	}
	r.to = to
	return nil
}

// Recipient returns the identity decoded by Validate.
func (r *TransferRequest) Recipient() domain.Identity {
	return r.to
}

// ValuationRequest is the body of PUT /v1/assets/{id}/valuation:
// {"amount":1300000,"currency":"EUR"}. Range checks happen in the service,
// after the controller check.
type ValuationRequest struct {
	Valuation
}

func (r *ValuationRequest) Validate() error {
	r.Currency = strings.TrimSpace(r.Currency)
	return nil
}

// DocumentRequest is the body of PUT /v1/assets/{id}/document.
type DocumentRequest struct {
	DocumentHash string `json:"document_hash"`
}

func (r *DocumentRequest) Validate() error {
	r.DocumentHash = strings.TrimSpace(r.DocumentHash)
	return nil
}

// LedgerRequest is the body of PUT /v1/assets/{id}/ledger.
type LedgerRequest struct {
	Ledger string `json:"ledger"`
}

func (r *LedgerRequest) Validate() error {
	r.Ledger = strings.TrimSpace(r.Ledger)
	return nil
}

// BurnRequest is the body of POST /v1/assets/{id}/burn.
type BurnRequest struct {
	Amount uint64 `json:"amount"`
}

func (r *BurnRequest) Validate() error {
	if r.Amount > MaxSupply {
		return dErrors.New(dErrors.CodeInvalidArgument, "amount is too large")
	}
	return nil
}
