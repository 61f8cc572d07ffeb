//go:build e2e

package e2e

import (
	"github.com/cucumber/godog"

	"userconsole/e2e/steps/admin"
	"userconsole/e2e/steps/auth"
	"userconsole/e2e/steps/common"
)

// RegisterSteps registers all step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	common.RegisterSteps(ctx, tc)
	auth.RegisterSteps(ctx, tc)
	admin.RegisterSteps(ctx, tc)
}
