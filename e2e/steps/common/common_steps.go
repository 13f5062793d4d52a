package common

import (
	"context"
	"fmt"
	"net/http"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body any) error
	GET(path string) error
	GetResponseField(field string) (any, error)
	GetLastResponseStatus() int
	GetLastResponseBody() []byte
	Identity(alias string) string
	ActAs(alias string)
}

// RegisterSteps registers caller selection, ledger and assertion steps
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &commonSteps{tc: tc}

	ctx.Step(`^I am "([^"]*)"$`, steps.iAm)
	ctx.Step(`^"([^"]*)" is verified$`, steps.isVerified)
	ctx.Step(`^"([^"]*)" should be verified$`, steps.shouldBeVerified)
	ctx.Step(`^"([^"]*)" should not be verified$`, steps.shouldNotBeVerified)

	ctx.Step(`^the response status should be (\d+)$`, steps.statusShouldBe)
	ctx.Step(`^the response error should be "([^"]*)"$`, steps.errorShouldBe)
	ctx.Step(`^the response field "([^"]*)" should name "([^"]*)"$`, steps.fieldShouldName)
}

type commonSteps struct {
	tc TestContext
}

func (s *commonSteps) iAm(ctx context.Context, alias string) error {
	s.tc.ActAs(alias)
	return nil
}

// isVerified verifies directly as admin. A 409 means an earlier run already did.
func (s *commonSteps) isVerified(ctx context.Context, alias string) error {
	s.tc.ActAs("admin")
	if err := s.tc.POST("/v1/ledger/identities/"+s.tc.Identity(alias)+"/verify", nil); err != nil {
		return err
	}
	switch s.tc.GetLastResponseStatus() {
	case http.StatusNoContent, http.StatusConflict:
		return nil
	default:
		return fmt.Errorf("verify %s: status %d: %s", alias, s.tc.GetLastResponseStatus(), s.tc.GetLastResponseBody())
	}
}

func (s *commonSteps) shouldBeVerified(ctx context.Context, alias string) error {
	return s.expectVerified(alias, true)
}

func (s *commonSteps) shouldNotBeVerified(ctx context.Context, alias string) error {
	return s.expectVerified(alias, false)
}

func (s *commonSteps) expectVerified(alias string, want bool) error {
	if err := s.tc.GET("/v1/ledger/identities/" + s.tc.Identity(alias)); err != nil {
		return err
	}
	if err := s.statusShouldBe(context.Background(), http.StatusOK); err != nil {
		return err
	}
	got, err := s.tc.GetResponseField("verified")
	if err != nil {
		return err
	}
	if got != want {
		return fmt.Errorf("expected %s verified=%v, got %v", alias, want, got)
	}
	return nil
}

func (s *commonSteps) statusShouldBe(ctx context.Context, want int) error {
	if got := s.tc.GetLastResponseStatus(); got != want {
		return fmt.Errorf("expected status %d, got %d: %s", want, got, s.tc.GetLastResponseBody())
	}
	return nil
}

func (s *commonSteps) errorShouldBe(ctx context.Context, code string) error {
	got, err := s.tc.GetResponseField("error")
	if err != nil {
		return err
	}
	if got != code {
		return fmt.Errorf("expected error %q, got %v", code, got)
	}
	return nil
}

func (s *commonSteps) fieldShouldName(ctx context.Context, field, alias string) error {
	got, err := s.tc.GetResponseField(field)
	if err != nil {
		return err
	}
	if want := s.tc.Identity(alias); got != want {
		return fmt.Errorf("expected %s to be %s (%s), got %v", field, alias, want, got)
	}
	return nil
}
