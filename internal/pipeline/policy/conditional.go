package policy

import (
	"fmt"

	"github.com/signaldock/signaldock/internal/pipeline/filter"
)

// conditionalPolicy admits only when its wrapped filter matches the
// payload. The underlying filter.Filter already recovers internally and
// resolves any evaluation panic to false (fail-closed); conditionalPolicy
// adds its own recover as a second line of defense so a policy
// evaluation failure never prevents the rest of the pipeline from
// running — on a panic escaping the filter, admission defaults to true.
type conditionalPolicy struct {
	condition filter.Filter
}

func newConditionalPolicy(params map[string]any, _ Scheduler) (Policy, error) {
	filterType, _ := params["filter_type"].(string)
	if filterType == "" {
		return nil, fmt.Errorf("conditional policy: filter_type is required")
	}
	filterParams, _ := params["filter_params"].(map[string]any)
	cond, err := filter.New(filterType, filterParams)
	if err != nil {
		return nil, fmt.Errorf("conditional policy: %w", err)
	}
	return &conditionalPolicy{condition: cond}, nil
}

func (p *conditionalPolicy) Admit(_ Key, payload map[string]any, _ func(map[string]any)) (admit bool) {
	admit = true
	defer func() {
		if recover() != nil {
			admit = true
		}
	}()
	return p.condition.Evaluate(payload)
}

func (p *conditionalPolicy) Record(Key, map[string]any) {}
