package orchestrator

import (
	"errors"
	"fmt"

	"github.com/hupe1980/agentgov/core"
)

// ErrPlanCycle marks plan rejections caused by a dependency cycle.
var ErrPlanCycle = errors.New("plan dependency cycle")

// validatePlan rejects plans with duplicate step ids, references to unknown
// steps or agents outside the participant set, and dependency cycles. A plan
// passing validation is guaranteed schedulable to completion in the absence
// of step failures.
func validatePlan(plan core.Plan, agentIDs []string) error {
	if len(plan.Steps) == 0 {
		return fmt.Errorf("plan has no steps")
	}

	participants := make(map[string]struct{}, len(agentIDs))
	for _, id := range agentIDs {
		participants[id] = struct{}{}
	}

	steps := make(map[string][]string, len(plan.Steps))
	for _, step := range plan.Steps {
		if step.ID == "" {
			return fmt.Errorf("plan step with empty id")
		}
		if _, dup := steps[step.ID]; dup {
			return fmt.Errorf("duplicate plan step id %q", step.ID)
		}
		if _, ok := participants[step.AgentID]; !ok {
			return fmt.Errorf("plan step %q references non-participant agent %q", step.ID, step.AgentID)
		}
		steps[step.ID] = step.Dependencies
	}

	for id, deps := range steps {
		for _, dep := range deps {
			if _, ok := steps[dep]; !ok {
				return fmt.Errorf("plan step %q depends on unknown step %q", id, dep)
			}
		}
	}

	// Depth-first walk with three-color marking to reject cycles.
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(steps))

	var visit func(id string) error
	visit = func(id string) error {
		switch color[id] {
		case gray:
			return fmt.Errorf("%w involving step %q", ErrPlanCycle, id)
		case black:
			return nil
		}
		color[id] = gray
		for _, dep := range steps[id] {
			if err := visit(dep); err != nil {
				return err
			}
		}
		color[id] = black
		return nil
	}

	for _, step := range plan.Steps {
		if color[step.ID] == white {
			if err := visit(step.ID); err != nil {
				return err
			}
		}
	}
	return nil
}
