package orchestrator

import (
	"context"
	"fmt"

	"github.com/hupe1980/agentgov/core"
)

// Planner decomposes an orchestrated goal into a dependency-ordered plan over
// the participating agents. Implementations may be deterministic (like
// ChainPlanner) or LLM-backed.
type Planner interface {
	BuildPlan(ctx context.Context, goal string, agentIDs []string) (core.Plan, error)
}

// PlannerFunc adapts a plain function to the Planner interface.
type PlannerFunc func(ctx context.Context, goal string, agentIDs []string) (core.Plan, error)

// BuildPlan implements Planner.
func (f PlannerFunc) BuildPlan(ctx context.Context, goal string, agentIDs []string) (core.Plan, error) {
	return f(ctx, goal, agentIDs)
}

// ChainPlanner is the default planner: one step per agent in caller order,
// each step depending on the previous one, so the agents form a pipeline over
// the shared goal.
type ChainPlanner struct{}

// BuildPlan implements Planner.
func (ChainPlanner) BuildPlan(_ context.Context, goal string, agentIDs []string) (core.Plan, error) {
	if len(agentIDs) == 0 {
		return core.Plan{}, fmt.Errorf("orchestrator: no agents to plan over")
	}

	plan := core.Plan{
		Steps:        make([]core.PlanStep, 0, len(agentIDs)),
		Dependencies: make(map[string][]string, len(agentIDs)),
	}
	for i, agentID := range agentIDs {
		step := core.PlanStep{
			ID:      fmt.Sprintf("step-%d", i+1),
			AgentID: agentID,
			Goal:    goal,
			Status:  core.TaskPending,
		}
		if i > 0 {
			step.Dependencies = []string{fmt.Sprintf("step-%d", i)}
		}
		plan.Steps = append(plan.Steps, step)
		plan.Dependencies[step.ID] = append([]string(nil), step.Dependencies...)
	}
	return plan, nil
}
