package e2e

import (
	"github.com/cucumber/godog"

	"kycgate/e2e/steps/asset"
	"kycgate/e2e/steps/common"
	"kycgate/e2e/steps/governance"
)

// RegisterSteps registers all step definitions from modular packages
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	common.RegisterSteps(ctx, tc)
	governance.RegisterSteps(ctx, tc)
	asset.RegisterSteps(ctx, tc)
}
