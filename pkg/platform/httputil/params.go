package httputil

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"kycgate/pkg/domain"
	dErrors "kycgate/pkg/domain-errors"
	"kycgate/pkg/requestcontext"
)

// IdentityParam parses a path parameter as an Identity.
func IdentityParam(r *http.Request, name string) (domain.Identity, error) {
	return domain.ParseIdentity(chi.URLParam(r, name))
}

// OperationIDParam parses a path parameter as an OperationID.
func OperationIDParam(r *http.Request, name string) (domain.OperationID, error) {
	return domain.ParseOperationID(chi.URLParam(r, name))
}

// AssetIDParam parses a path parameter as an AssetID.
func AssetIDParam(r *http.Request, name string) (domain.AssetID, error) {
	return domain.ParseAssetID(chi.URLParam(r, name))
}

// RequireCaller returns the authenticated caller or an Unauthenticated error.
func RequireCaller(r *http.Request) (domain.Identity, error) {
	caller := requestcontext.Caller(r.Context())
	if caller.IsNil() {
		return domain.NilIdentity, dErrors.New(dErrors.CodeUnauthenticated, "authentication required")
	}
	return caller, nil
}
