package asset

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
	Save(key, value string)
	Saved(key string) string
}

// RegisterSteps registers guarded asset steps
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &assetSteps{tc: tc}

	ctx.Step(`^I create an asset "([^"]*)" with supply (\d+) on ledger "([^"]*)"$`, steps.createAsset)
	ctx.Step(`^I transfer (\d+) to "([^"]*)"$`, steps.transfer)
	ctx.Step(`^the balance of "([^"]*)" should be (\d+)$`, steps.balanceShouldBe)
}

type assetSteps struct {
	tc TestContext
}

func (s *assetSteps) createAsset(ctx context.Context, symbol string, supply int, ledger string) error {
	body := map[string]any{
		"name":           "E2E " + symbol,
		"symbol":         symbol,
		"valuation":      map[string]any{"amount": 1000, "currency": "EUR"},
		"document_hash":  "sha256:e2e",
		"initial_supply": supply,
		"ledger":         ledger,
	}
	if err := s.tc.POST("/v1/assets", body); err != nil {
		return err
	}
	if got := s.tc.GetLastResponseStatus(); got != http.StatusCreated {
		return fmt.Errorf("create asset: status %d: %s", got, s.tc.GetLastResponseBody())
	}
	id, err := s.tc.GetResponseField("id")
	if err != nil {
		return err
	}
	s.tc.Save("asset", fmt.Sprint(id))
	return nil
}

func (s *assetSteps) transfer(ctx context.Context, amount int, alias string) error {
	return s.tc.POST("/v1/assets/"+s.tc.Saved("asset")+"/transfers", map[string]any{
		"to":     s.tc.Identity(alias),
		"amount": amount,
	})
}

func (s *assetSteps) balanceShouldBe(ctx context.Context, alias string, want int) error {
	if err := s.tc.GET("/v1/assets/" + s.tc.Saved("asset") + "/balances/" + s.tc.Identity(alias)); err != nil {
		return err
	}
	got, err := s.tc.GetResponseField("balance")
	if err != nil {
		return err
	}
	if got != float64(want) {
		return fmt.Errorf("expected %s balance %d, got %v", alias, want, got)
	}
	return nil
}
