// Package agentgov provides a high-level façade over the governance state
// machine, policy engine, proof engine, task runner and orchestrator,
// enabling rapid construction of governed multi-agent systems. Most
// applications interact with this package by:
//  1. Creating an AgentGov via New() (optionally overriding policy, stores,
//     signing keys and the thinker)
//  2. Registering tools and agent specs, then promoting agents out of the
//     sandbox
//  3. Running single-agent tasks (RunTask/RunTaskSync) or multi-agent tasks
//     (Orchestrate/OrchestrateSync), each gated by admission
//
// The façade delegates lifecycle decisions to governance.StateMachine and
// scheduling to orchestrator.Orchestrator while keeping setup ergonomics
// concise. All defaults are safe for local development and testing;
// production deployments typically supply durable stores, a persistent
// signing key and a structured logger.
package agentgov

import (
	"context"
	"crypto/ed25519"
	"time"

	"github.com/hupe1980/agentgov/audit"
	"github.com/hupe1980/agentgov/core"
	"github.com/hupe1980/agentgov/governance"
	"github.com/hupe1980/agentgov/logging"
	"github.com/hupe1980/agentgov/orchestrator"
	"github.com/hupe1980/agentgov/policy"
	"github.com/hupe1980/agentgov/proof"
	"github.com/hupe1980/agentgov/runner"
	"github.com/hupe1980/agentgov/store"
	"github.com/hupe1980/agentgov/tool"
)

// Options configures the AgentGov instance.
type Options struct {
	// Policy is the initial policy document; nil installs the permissive
	// default document.
	Policy *policy.Document
	// KeyProvider signs proof bundles; defaults to a fresh in-memory Ed25519
	// keypair, which is fine for tests but means proofs do not survive
	// restarts.
	KeyProvider proof.KeyProvider
	// Planner decomposes orchestrated goals; defaults to the sequential
	// chain planner.
	Planner orchestrator.Planner
	// MaxIterations is the default per-task iteration budget.
	MaxIterations int
	// Interval is an optional pause between runner iterations.
	Interval time.Duration
	// StepTimeout bounds each orchestrated plan step.
	StepTimeout time.Duration

	// Stores (default to in-memory implementations if not provided)
	AgentStore core.AgentStore
	TaskStore  core.TaskStore

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
	// Audit overrides the default hash-chained log + async sink pair. When
	// set, AuditEntries and VerifyAuditChain report on an empty log.
	Audit core.AuditSink
	// Clock overrides time.Now for expiry checks in tests.
	Clock func() time.Time
}

// AgentGov is the high-level façade aggregating governance, execution and
// auditing.
type AgentGov struct {
	opts Options

	registry     *tool.Registry
	policies     *policy.Engine
	proofs       *proof.Engine
	governance   *governance.StateMachine
	runner       *runner.Runner
	orchestrator *orchestrator.Orchestrator

	auditLog  *audit.Log
	auditSink *audit.Sink
}

// New creates a new AgentGov instance wired around the given thinker. Any
// unset service is initialized with an in-memory implementation.
func New(thinker core.Thinker, optFns ...func(o *Options)) (*AgentGov, error) {
	opts := Options{
		MaxIterations: runner.DefaultMaxIterations,
		StepTimeout:   orchestrator.DefaultStepTimeout,
		AgentStore:    store.NewInMemoryAgentStore(),
		TaskStore:     store.NewInMemoryTaskStore(),
		Logger:        logging.NoOpLogger{},
		Clock:         time.Now,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	auditLog := audit.NewLog(opts.Clock)
	var auditSink *audit.Sink
	sink := opts.Audit
	if sink == nil {
		auditSink = audit.NewSink(auditLog, func(o *audit.SinkOptions) {
			o.Logger = opts.Logger
		})
		sink = auditSink
	}

	proofs, err := proof.New(func(o *proof.Options) {
		o.KeyProvider = opts.KeyProvider
	})
	if err != nil {
		return nil, err
	}

	policies, err := policy.New(opts.Policy, func(o *policy.Options) {
		o.Logger = opts.Logger
	})
	if err != nil {
		return nil, err
	}

	registry := tool.NewRegistry()

	sm := governance.New(opts.AgentStore, policies, proofs, registry, func(o *governance.Options) {
		o.Logger = opts.Logger
		o.Audit = sink
		o.Clock = opts.Clock
	})

	run := runner.New(opts.AgentStore, registry, thinker, func(o *runner.Options) {
		o.MaxIterations = opts.MaxIterations
		o.Interval = opts.Interval
		o.TaskStore = opts.TaskStore
		o.Logger = opts.Logger
		o.Audit = sink
	})

	orch := orchestrator.New(sm, run, func(o *orchestrator.Options) {
		if opts.Planner != nil {
			o.Planner = opts.Planner
		}
		o.StepTimeout = opts.StepTimeout
		o.TaskStore = opts.TaskStore
		o.Logger = opts.Logger
		o.Audit = sink
	})

	return &AgentGov{
		opts:         opts,
		registry:     registry,
		policies:     policies,
		proofs:       proofs,
		governance:   sm,
		runner:       run,
		orchestrator: orch,
		auditLog:     auditLog,
		auditSink:    auditSink,
	}, nil
}

// RegisterTool adds a tool to the shared registry. Specs referencing it
// become registrable afterwards.
func (g *AgentGov) RegisterTool(t tool.Tool) { g.registry.Register(t) }

// RegisterAgent creates an agent in the sandbox state.
func (g *AgentGov) RegisterAgent(spec core.AgentSpec) (*core.Agent, error) {
	return g.governance.Register(spec)
}

// UpdateAgentSpec replaces an agent's spec without re-issuing its proof.
func (g *AgentGov) UpdateAgentSpec(spec core.AgentSpec) (*core.Agent, error) {
	return g.governance.UpdateSpec(spec)
}

// GetAgent returns the agent aggregate.
func (g *AgentGov) GetAgent(id string) (*core.Agent, error) {
	return g.governance.Get(id)
}

// DeleteAgent removes an agent entirely.
func (g *AgentGov) DeleteAgent(id string) error {
	return g.governance.Delete(id)
}

// Promote evaluates an agent against the active policy and, on success,
// issues a proof bundle and moves it to the governed state.
func (g *AgentGov) Promote(id string) (governance.PromoteResult, error) {
	return g.governance.Promote(id)
}

// Admit reports whether the agent may execute right now.
func (g *AgentGov) Admit(id string) (governance.Decision, error) {
	return g.governance.Admit(id)
}

// RunTask starts a single-agent task after passing the admission gate. The
// pending task snapshot is returned immediately together with a channel
// delivering the terminal task.
func (g *AgentGov) RunTask(ctx context.Context, agentID, goal string) (*core.AgentTask, <-chan *core.AgentTask, error) {
	if err := g.admit(agentID); err != nil {
		return nil, nil, err
	}
	return g.runner.Run(ctx, agentID, goal)
}

// RunTaskSync runs a single-agent task to completion.
func (g *AgentGov) RunTaskSync(ctx context.Context, agentID, goal string) (*core.AgentTask, error) {
	if err := g.admit(agentID); err != nil {
		return nil, err
	}
	return g.runner.RunSync(ctx, agentID, goal)
}

// CancelTask stops an in-flight single-agent task.
func (g *AgentGov) CancelTask(taskID string) bool { return g.runner.Cancel(taskID) }

// GetTask returns a stored single-agent task snapshot.
func (g *AgentGov) GetTask(id string) (*core.AgentTask, error) {
	return g.runner.GetTask(id)
}

// Orchestrate starts a multi-agent task over the given participants.
func (g *AgentGov) Orchestrate(ctx context.Context, goal string, agentIDs []string) (*core.OrchestratedTask, <-chan *core.OrchestratedTask, error) {
	return g.orchestrator.Orchestrate(ctx, goal, agentIDs)
}

// OrchestrateSync runs a multi-agent task to completion.
func (g *AgentGov) OrchestrateSync(ctx context.Context, goal string, agentIDs []string) (*core.OrchestratedTask, error) {
	return g.orchestrator.OrchestrateSync(ctx, goal, agentIDs)
}

// CancelOrchestrated aborts an in-flight multi-agent task.
func (g *AgentGov) CancelOrchestrated(taskID string) bool {
	return g.orchestrator.Cancel(taskID)
}

// GetOrchestratedTask returns a stored multi-agent task snapshot.
func (g *AgentGov) GetOrchestratedTask(id string) (*core.OrchestratedTask, error) {
	return g.orchestrator.GetTask(id)
}

// HotReloadPolicy atomically installs a new policy document and revalidates
// every governed agent against it.
func (g *AgentGov) HotReloadPolicy(doc *policy.Document) (policy.ReloadResult, error) {
	return g.policies.HotReload(doc)
}

// HotReloadPolicyYAML parses raw YAML and hot reloads the resulting document.
func (g *AgentGov) HotReloadPolicyYAML(raw []byte) (policy.ReloadResult, error) {
	return g.policies.HotReloadYAML(raw)
}

// ActivePolicyHash returns the content hash of the active policy document.
func (g *AgentGov) ActivePolicyHash() string { return g.policies.ActivePolicyHash() }

// PublicKey returns the proof signing public key for external verification.
func (g *AgentGov) PublicKey() ed25519.PublicKey { return g.proofs.PublicKey() }

// AuditEntries returns a snapshot of the hash-chained audit log. Empty when
// a custom audit sink was supplied.
func (g *AgentGov) AuditEntries() []audit.Entry { return g.auditLog.Entries() }

// VerifyAuditChain re-walks the audit log and reports whether the hash chain
// is intact.
func (g *AgentGov) VerifyAuditChain() (bool, error) { return g.auditLog.VerifyChain() }

// Close flushes and stops the default audit sink. A no-op when a custom sink
// was supplied.
func (g *AgentGov) Close() {
	if g.auditSink != nil {
		g.auditSink.Close()
	}
}

func (g *AgentGov) admit(agentID string) error {
	decision, err := g.governance.Admit(agentID)
	if err != nil {
		return err
	}
	if !decision.Allowed {
		return &AdmissionError{AgentID: agentID, Reason: decision.Reason}
	}
	return nil
}

// AdmissionError reports a denied admission on the direct task path.
type AdmissionError struct {
	AgentID string
	Reason  string
}

// Error implements the error interface.
func (e *AdmissionError) Error() string {
	return "agent " + e.AgentID + " not admitted: " + e.Reason
}
