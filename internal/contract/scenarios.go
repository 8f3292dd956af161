package contract

import "slices"

// All returns every scenario, grouped by resource.
func All() []Scenario {
	return slices.Concat(
		dishScenarios(),
		userScenarios(),
		referenceScenarios(),
		authorScenarios(),
		reviewScenarios(),
	)
}
