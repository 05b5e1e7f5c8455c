package runner

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentgov/core"
	"github.com/hupe1980/agentgov/internal/testutil"
	"github.com/hupe1980/agentgov/store"
	"github.com/hupe1980/agentgov/thinker"
	"github.com/hupe1980/agentgov/tool"
)

func newRunner(t *testing.T, th core.Thinker, specs ...core.AgentSpec) *Runner {
	t.Helper()

	agents := store.NewInMemoryAgentStore()
	for _, spec := range specs {
		require.NoError(t, agents.Save(&core.Agent{Spec: spec, Status: core.StatusSandbox}))
	}

	registry := tool.NewRegistry(
		tool.NewFunctionTool("echo", "Echo the input",
			map[string]any{
				"type": "object",
				"properties": map[string]any{
					"text": map[string]any{"type": "string"},
				},
				"required": []string{"text"},
			},
			func(_ *core.ToolContext, args map[string]any) (any, error) {
				return args["text"], nil
			}),
		tool.NewFunctionTool("fail", "Always fails",
			map[string]any{"type": "object", "properties": map[string]any{}},
			func(_ *core.ToolContext, _ map[string]any) (any, error) {
				return nil, errors.New("backend unavailable")
			}),
	)

	return New(agents, registry, th)
}

func TestRunSync_CompletesOnMarker(t *testing.T) {
	spec := testutil.NewSpecBuilder("a1").Tools("echo").Build()
	r := newRunner(t, thinker.NewScripted(
		"Thinking about the goal.",
		"All done. TASK_COMPLETE: the goal is achieved.",
	), spec)

	task, err := r.RunSync(context.Background(), "a1", "do the thing")
	require.NoError(t, err)

	assert.Equal(t, core.TaskCompleted, task.Status)
	require.NotNil(t, task.Result)
	assert.Contains(t, task.Result.Summary, "the goal is achieved")
	assert.Equal(t, 2, task.Result.Steps)
	assert.Len(t, task.Iterations, 2)
	assert.False(t, task.CompletedAt.IsZero())
}

func TestRunSync_ExecutesActions(t *testing.T) {
	spec := testutil.NewSpecBuilder("a1").Tools("echo").Build()
	r := newRunner(t, thinker.NewScripted(
		"Echoing now.\nACTION: echo {\"text\": \"hello\"}",
		"TASK_COMPLETE",
	), spec)

	task, err := r.RunSync(context.Background(), "a1", "say hello")
	require.NoError(t, err)

	require.Len(t, task.Iterations, 2)
	first := task.Iterations[0]
	require.NotNil(t, first.Action)
	assert.Equal(t, "echo", first.Action.Tool)
	assert.Equal(t, "hello", first.Observation)
}

func TestRunSync_ToolErrorBecomesObservation(t *testing.T) {
	spec := testutil.NewSpecBuilder("a1").Tools("echo", "fail").Build()
	r := newRunner(t, thinker.NewScripted(
		"ACTION: fail {}",
		"That failed, wrapping up. TASK_COMPLETE",
	), spec)

	task, err := r.RunSync(context.Background(), "a1", "try something")
	require.NoError(t, err)

	// The tool fault consumed an iteration but did not fail the task.
	assert.Equal(t, core.TaskCompleted, task.Status)
	assert.Equal(t, "Error executing fail: backend unavailable", task.Iterations[0].Observation)
}

func TestRunSync_UndeclaredToolRejected(t *testing.T) {
	spec := testutil.NewSpecBuilder("a1").Tools("echo").Build()
	r := newRunner(t, thinker.NewScripted(
		"ACTION: fail {}",
		"TASK_COMPLETE",
	), spec)

	task, err := r.RunSync(context.Background(), "a1", "try something")
	require.NoError(t, err)
	assert.Contains(t, task.Iterations[0].Observation, "Error executing fail")
	assert.Contains(t, task.Iterations[0].Observation, "not declared")
}

func TestRunSync_ThinkerErrorFailsTask(t *testing.T) {
	spec := testutil.NewSpecBuilder("a1").Tools("echo").Build()
	th := core.ThinkerFunc(func(context.Context, core.AgentSpec, string, []core.Iteration) (string, error) {
		return "", errors.New("model overloaded")
	})
	r := newRunner(t, th, spec)

	task, err := r.RunSync(context.Background(), "a1", "anything")
	require.NoError(t, err)

	assert.Equal(t, core.TaskFailed, task.Status)
	assert.Contains(t, task.Error, "model overloaded")
}

func TestRunSync_BudgetExhaustion(t *testing.T) {
	spec := testutil.NewSpecBuilder("a1").Tools("echo").MaxIterations(3).Build()
	th := core.ThinkerFunc(func(context.Context, core.AgentSpec, string, []core.Iteration) (string, error) {
		return "Still thinking.", nil
	})
	r := newRunner(t, th, spec)

	task, err := r.RunSync(context.Background(), "a1", "endless goal")
	require.NoError(t, err)

	assert.Equal(t, core.TaskCompleted, task.Status)
	assert.Len(t, task.Iterations, 3)
	assert.Contains(t, task.Result.Summary, "Iteration budget exhausted after 3 steps")
}

func TestRun_UnknownAgent(t *testing.T) {
	r := newRunner(t, thinker.NewScripted("TASK_COMPLETE"))
	_, _, err := r.Run(context.Background(), "ghost", "goal")
	assert.ErrorIs(t, err, core.ErrUnknownAgent)
}

func TestRun_ReturnsPendingSnapshot(t *testing.T) {
	spec := testutil.NewSpecBuilder("a1").Tools("echo").Build()
	r := newRunner(t, thinker.NewScripted(
		"Working on it.",
		"TASK_COMPLETE",
	), spec)

	task, done, err := r.Run(context.Background(), "a1", "goal")
	require.NoError(t, err)
	assert.Equal(t, core.TaskPending, task.Status)
	assert.NotEmpty(t, task.ID)

	final := <-done
	assert.Equal(t, task.ID, final.ID)
	assert.Equal(t, core.TaskCompleted, final.Status)
	assert.Len(t, final.Iterations, 2)

	// The snapshot handed back by Run is taken before the loop goroutine
	// starts and never shares state with it.
	assert.Equal(t, core.TaskPending, task.Status)
	assert.Empty(t, task.Iterations)
	assert.Nil(t, task.Result)

	stored, err := r.GetTask(task.ID)
	require.NoError(t, err)
	assert.Equal(t, core.TaskCompleted, stored.Status)
}

func TestCancel(t *testing.T) {
	spec := testutil.NewSpecBuilder("a1").Tools("echo").MaxIterations(1000).Build()

	started := make(chan struct{})
	var once bool
	th := core.ThinkerFunc(func(ctx context.Context, _ core.AgentSpec, _ string, _ []core.Iteration) (string, error) {
		if !once {
			once = true
			close(started)
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(5 * time.Millisecond):
		}
		return "Still thinking.", nil
	})
	r := newRunner(t, th, spec)

	task, done, err := r.Run(context.Background(), "a1", "goal")
	require.NoError(t, err)

	<-started
	assert.True(t, r.Cancel(task.ID))

	final := <-done
	assert.Equal(t, core.TaskFailed, final.Status)
	assert.Contains(t, final.Error, "cancel")

	// Already finished, nothing to cancel.
	assert.False(t, r.Cancel(task.ID))
}
