package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"kycgate/internal/governance/handler/mocks"
	"kycgate/internal/governance/models"
	"kycgate/pkg/domain"
	dErrors "kycgate/pkg/domain-errors"
	"kycgate/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

var (
	signer = domain.MustParseIdentity("0x000000000000000000000000000000000000000a")
	target = domain.MustParseIdentity("0x0000000000000000000000000000000000001111")
)

type GovernanceHandlerSuite struct {
	suite.Suite
	service *mocks.MockService
	router  chi.Router
}

func TestGovernanceHandlerSuite(t *testing.T) {
	suite.Run(t, new(GovernanceHandlerSuite))
}

func (s *GovernanceHandlerSuite) SetupTest() {
	s.service = mocks.NewMockService(gomock.NewController(s.T()))
	s.router = chi.NewRouter()
	New(s.service, slog.New(slog.NewTextHandler(io.Discard, nil))).Register(s.router)
}

func (s *GovernanceHandlerSuite) do(method, path, body string, authenticated bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	if authenticated {
		req = req.WithContext(requestcontext.WithCaller(req.Context(), signer))
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *GovernanceHandlerSuite) TestPropose() {
	s.Run("created", func() {
		created := &models.Operation{
			ID:        0,
			Kind:      domain.OperationVerifyIdentity,
			Target:    target,
			Signers:   []domain.Identity{signer},
			CreatedBy: signer,
			CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		}
		s.service.EXPECT().Propose(gomock.Any(), signer, domain.OperationVerifyIdentity, target).Return(created, nil)

		w := s.do(http.MethodPost, "/v1/governance/operations",
			`{"kind":"verify_identity","target":"`+target.String()+`"}`, true)

		s.Equal(http.StatusCreated, w.Code)
		var resp map[string]any
		s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
		s.Equal(float64(0), resp["id"])
		s.Equal("verify_identity", resp["kind"])
		s.Equal(target.String(), resp["target"])
		s.Equal(false, resp["executed"])
		s.NotContains(resp, "executed_at")
	})

	s.Run("unknown kind never reaches the engine", func() {
		w := s.do(http.MethodPost, "/v1/governance/operations",
			`{"kind":"mint","target":"`+target.String()+`"}`, true)
		s.Equal(http.StatusBadRequest, w.Code)
	})

	s.Run("null target is rejected", func() {
		w := s.do(http.MethodPost, "/v1/governance/operations",
			`{"kind":"verify_identity","target":"`+domain.NilIdentity.String()+`"}`, true)
		s.Equal(http.StatusBadRequest, w.Code)
	})

	s.Run("requires a caller", func() {
		w := s.do(http.MethodPost, "/v1/governance/operations",
			`{"kind":"verify_identity","target":"`+target.String()+`"}`, false)
		s.Equal(http.StatusUnauthorized, w.Code)
	})
}

func (s *GovernanceHandlerSuite) TestSign() {
	s.Run("reports execution", func() {
		s.service.EXPECT().Sign(gomock.Any(), signer, domain.OperationID(3)).Return(true, nil)
		w := s.do(http.MethodPost, "/v1/governance/operations/3/sign", "", true)
		s.Equal(http.StatusOK, w.Code)
		s.JSONEq(`{"executed":true}`, w.Body.String())
	})

	s.Run("engine refusals map to status codes", func() {
		cases := map[dErrors.Code]int{
			dErrors.CodeUnknownOperation: http.StatusNotFound,
			dErrors.CodeAlreadyExecuted:  http.StatusConflict,
			dErrors.CodeAlreadySigned:    http.StatusConflict,
			dErrors.CodeUnauthorized:     http.StatusForbidden,
		}
		for code, status := range cases {
			s.service.EXPECT().Sign(gomock.Any(), signer, domain.OperationID(3)).Return(false, dErrors.New(code, "refused"))
			w := s.do(http.MethodPost, "/v1/governance/operations/3/sign", "", true)
			s.Equal(status, w.Code, code)
		}
	})

	s.Run("malformed id", func() {
		w := s.do(http.MethodPost, "/v1/governance/operations/abc/sign", "", true)
		s.Equal(http.StatusBadRequest, w.Code)
	})
}

func (s *GovernanceHandlerSuite) TestReads() {
	s.service.EXPECT().List(gomock.Any()).Return(nil, nil)
	w := s.do(http.MethodGet, "/v1/governance/operations", "", false)
	s.Equal(http.StatusOK, w.Code)
	s.JSONEq(`{"operations":[]}`, w.Body.String())

	s.service.EXPECT().HasSigned(gomock.Any(), domain.OperationID(1), target).Return(false, nil)
	w = s.do(http.MethodGet, "/v1/governance/operations/1/signers/"+target.String(), "", false)
	s.Equal(http.StatusOK, w.Code)
	s.JSONEq(`{"operation":1,"identity":"`+target.String()+`","signed":false}`, w.Body.String())

	s.service.EXPECT().Config(gomock.Any()).Return(&models.Config{RequiredSignatures: 2, Signers: []domain.Identity{signer}}, nil)
	w = s.do(http.MethodGet, "/v1/governance/config", "", false)
	s.Equal(http.StatusOK, w.Code)
	s.JSONEq(`{"required_signatures":2,"signers":["`+signer.String()+`"]}`, w.Body.String())

	s.service.EXPECT().Get(gomock.Any(), domain.OperationID(9)).Return(nil, dErrors.New(dErrors.CodeUnknownOperation, "operation 9 does not exist"))
	w = s.do(http.MethodGet, "/v1/governance/operations/9", "", false)
	s.Equal(http.StatusNotFound, w.Code)
}

func (s *GovernanceHandlerSuite) TestSignerManagement() {
	s.service.EXPECT().AddSigner(gomock.Any(), signer, target).Return(nil)
	s.Equal(http.StatusNoContent, s.do(http.MethodPost, "/v1/governance/signers/"+target.String(), "", true).Code)

	s.service.EXPECT().RemoveSigner(gomock.Any(), signer, target).Return(nil)
	s.Equal(http.StatusNoContent, s.do(http.MethodDelete, "/v1/governance/signers/"+target.String(), "", true).Code)

	s.service.EXPECT().SetRequiredSignatures(gomock.Any(), signer, 2).Return(nil)
	s.Equal(http.StatusNoContent, s.do(http.MethodPut, "/v1/governance/quorum", `{"required_signatures":2}`, true).Code)

	w := s.do(http.MethodPut, "/v1/governance/quorum", `{"required_signatures":0}`, true)
	s.Equal(http.StatusBadRequest, w.Code)
}
