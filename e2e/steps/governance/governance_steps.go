package governance

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body any) error
	PUT(path string, body any) error
	GET(path string) error
	GetResponseField(field string) (any, error)
	GetLastResponseStatus() int
	GetLastResponseBody() []byte
	Identity(alias string) string
	ActAs(alias string)
	Save(key, value string)
	Saved(key string) string
}

// RegisterSteps registers signer-set and operation steps
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &governanceSteps{tc: tc}

	ctx.Step(`^"([^"]*)" is a threshold signer$`, steps.isThresholdSigner)
	ctx.Step(`^the quorum is (\d+)$`, steps.quorumIs)
	ctx.Step(`^I propose to (verify|revoke) "([^"]*)"$`, steps.propose)
	ctx.Step(`^I sign the operation$`, steps.sign)
	ctx.Step(`^the operation should be executed$`, steps.shouldBeExecuted)
	ctx.Step(`^the operation should not be executed$`, steps.shouldNotBeExecuted)
}

type governanceSteps struct {
	tc TestContext
}

func (s *governanceSteps) isThresholdSigner(ctx context.Context, alias string) error {
	s.tc.ActAs("admin")
	if err := s.tc.POST("/v1/governance/signers/"+s.tc.Identity(alias), nil); err != nil {
		return err
	}
	return s.expect(http.StatusNoContent)
}

func (s *governanceSteps) quorumIs(ctx context.Context, n int) error {
	s.tc.ActAs("admin")
	if err := s.tc.PUT("/v1/governance/quorum", map[string]int{"required_signatures": n}); err != nil {
		return err
	}
	return s.expect(http.StatusNoContent)
}

func (s *governanceSteps) propose(ctx context.Context, action, alias string) error {
	body := map[string]string{
		"kind":   action + "_identity",
		"target": s.tc.Identity(alias),
	}
	if err := s.tc.POST("/v1/governance/operations", body); err != nil {
		return err
	}
	if s.tc.GetLastResponseStatus() != http.StatusCreated {
		return nil
	}
	id, err := s.tc.GetResponseField("id")
	if err != nil {
		return err
	}
	n, ok := id.(float64)
	if !ok {
		return fmt.Errorf("operation id is not a number: %v", id)
	}
	s.tc.Save("operation", strconv.FormatUint(uint64(n), 10))
	return nil
}

func (s *governanceSteps) sign(ctx context.Context) error {
	return s.tc.POST("/v1/governance/operations/"+s.tc.Saved("operation")+"/sign", nil)
}

func (s *governanceSteps) shouldBeExecuted(ctx context.Context) error {
	return s.expectExecuted(true)
}

func (s *governanceSteps) shouldNotBeExecuted(ctx context.Context) error {
	return s.expectExecuted(false)
}

func (s *governanceSteps) expectExecuted(want bool) error {
	if err := s.tc.GET("/v1/governance/operations/" + s.tc.Saved("operation")); err != nil {
		return err
	}
	if err := s.expect(http.StatusOK); err != nil {
		return err
	}
	got, err := s.tc.GetResponseField("executed")
	if err != nil {
		return err
	}
	if got != want {
		return fmt.Errorf("expected operation %s executed=%v, got %v", s.tc.Saved("operation"), want, got)
	}
	return nil
}

func (s *governanceSteps) expect(status int) error {
	if got := s.tc.GetLastResponseStatus(); got != status {
		return fmt.Errorf("expected status %d, got %d: %s", status, got, s.tc.GetLastResponseBody())
	}
	return nil
}
