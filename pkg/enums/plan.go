package enums

import "fmt"

// Plan maps to the plan_enum enum in Postgres.
type Plan string

const (
	PlanFree Plan = "free"
	PlanPro  Plan = "pro"
)

var validPlans = []Plan{PlanFree, PlanPro}

// IsValid reports whether the value matches the canonical plan enum.
func (p Plan) IsValid() bool {
	for _, candidate := range validPlans {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePlan converts raw input into Plan.
func ParsePlan(value string) (Plan, error) {
	for _, candidate := range validPlans {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid plan %q", value)
}
