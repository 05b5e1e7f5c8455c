package policy

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/hupe1980/agentgov/core"
	"github.com/hupe1980/agentgov/logging"
	"github.com/hupe1980/agentgov/proof"
)

// anatomyRule is the synthetic rule name attached to the minimum validation
// that runs before any policy-specific rule.
const anatomyRule = "agent_anatomy"

// ReloadResult reports the outcome of a hot reload sweep.
type ReloadResult struct {
	// PolicyHash is the content hash of the newly active document.
	PolicyHash string `json:"policy_hash"`
	// Revalidated counts agents that remained (or became) GOVERNED_VALID
	// with a re-issued proof.
	Revalidated int `json:"revalidated"`
	// Restricted lists agents demoted to GOVERNED_RESTRICTED.
	Restricted []string `json:"restricted,omitempty"`
	// Invalidated lists agents demoted to GOVERNED_INVALIDATED.
	Invalidated []string `json:"invalidated,omitempty"`
}

// Revalidator is the governance hook invoked by HotReload. It must install
// the new document via Install under its own mutual-exclusion discipline and
// sweep every governed agent, so that the new active policy hash becomes
// visible atomically with the sweep's use of it.
type Revalidator func(doc *Document) (ReloadResult, error)

// Options configures an Engine instance.
type Options struct {
	// Logger defaults to NoOp.
	Logger logging.Logger
}

// Engine evaluates agent specs against the active policy document. It caches
// compiled CEL programs, serializes hot reloads and guards the active
// document with a read/write mutex so Evaluate and ActivePolicyHash always
// observe a consistent document/hash pair.
type Engine struct {
	env    *cel.Env
	logger logging.Logger

	// Compiled program cache keyed by expression source.
	progMu sync.RWMutex
	progs  map[string]cel.Program

	// Active document and its content hash.
	mu   sync.RWMutex
	doc  *Document
	hash string

	// Serializes HotReload so no two reloads interleave.
	reloadMu    sync.Mutex
	revalidator Revalidator
}

// New creates a policy engine with the given initial document (nil means the
// permissive DefaultDocument). All rule expressions are compiled eagerly so a
// malformed document is rejected before it can become active.
func New(doc *Document, optFns ...func(o *Options)) (*Engine, error) {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}

	env, err := cel.NewEnv(
		cel.Variable("agent", cel.DynType),
	)
	if err != nil {
		return nil, fmt.Errorf("policy: create CEL environment: %w", err)
	}

	e := &Engine{
		env:    env,
		logger: opts.Logger,
		progs:  make(map[string]cel.Program),
	}

	if doc == nil {
		doc = DefaultDocument()
	}
	if err := e.compileRules(doc); err != nil {
		return nil, err
	}
	if _, err := e.Install(doc); err != nil {
		return nil, err
	}
	return e, nil
}

// SetRevalidator registers the governance sweep invoked on hot reload. Must
// be called during wiring, before any HotReload.
func (e *Engine) SetRevalidator(r Revalidator) {
	e.reloadMu.Lock()
	defer e.reloadMu.Unlock()
	e.revalidator = r
}

// ActivePolicyHash returns the content hash of the currently active document.
func (e *Engine) ActivePolicyHash() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.hash
}

// ActiveDocument returns the currently active document.
func (e *Engine) ActiveDocument() *Document {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.doc
}

// Install makes doc the active document and returns its content hash. It is
// called by New and, during hot reload, by the registered revalidator under
// the governance lock. External callers should use HotReload instead.
func (e *Engine) Install(doc *Document) (string, error) {
	hash, err := proof.CanonicalHash(doc)
	if err != nil {
		return "", fmt.Errorf("policy: hash document: %w", err)
	}
	e.mu.Lock()
	e.doc = doc
	e.hash = hash
	e.mu.Unlock()
	return hash, nil
}

// HotReload atomically swaps the active policy and triggers the registered
// governance sweep to revalidate every currently-governed agent. Reloads are
// serialized with respect to each other; a document whose rules fail to
// compile is rejected before any state changes.
func (e *Engine) HotReload(doc *Document) (ReloadResult, error) {
	e.reloadMu.Lock()
	defer e.reloadMu.Unlock()

	if err := doc.normalize(); err != nil {
		return ReloadResult{}, err
	}
	if err := e.compileRules(doc); err != nil {
		return ReloadResult{}, err
	}

	if e.revalidator != nil {
		res, err := e.revalidator(doc)
		if err != nil {
			return ReloadResult{}, err
		}
		e.logger.Info("policy.reload",
			"policy_hash", res.PolicyHash,
			"revalidated", res.Revalidated,
			"restricted", len(res.Restricted),
			"invalidated", len(res.Invalidated))
		return res, nil
	}

	// Standalone engine with no governed agents to sweep.
	hash, err := e.Install(doc)
	if err != nil {
		return ReloadResult{}, err
	}
	return ReloadResult{PolicyHash: hash}, nil
}

// HotReloadYAML parses raw YAML and applies HotReload.
func (e *Engine) HotReloadYAML(raw []byte) (ReloadResult, error) {
	doc, err := ParseDocument(raw)
	if err != nil {
		return ReloadResult{}, err
	}
	return e.HotReload(doc)
}

// Evaluate checks spec against the active policy. The anatomy pre-check runs
// before any rule: an empty system prompt, empty tool set or unset role class
// denies with a single "Agent anatomy is incomplete" violation. Deterministic
// given the active policy: same spec and same document yield the same result.
func (e *Engine) Evaluate(spec core.AgentSpec) Evaluation {
	if v, incomplete := checkAnatomy(spec); incomplete {
		return Evaluation{Allow: false, Violations: []Violation{v}}
	}

	e.mu.RLock()
	doc := e.doc
	e.mu.RUnlock()

	input := evalInput(spec)

	var violations []Violation
	for _, rule := range doc.Rules {
		allowed, err := e.evaluateExpr(rule.Expr, input)
		if err != nil {
			// Fail closed: an erroring rule denies with its own severity.
			e.logger.Warn("policy.rule.error", "rule", rule.Name, "error", err)
			violations = append(violations, Violation{
				Rule:     rule.Name,
				Message:  fmt.Sprintf("rule %q evaluation failed: %v", rule.Name, err),
				Severity: rule.Severity,
			})
			continue
		}
		if !allowed {
			violations = append(violations, Violation{
				Rule:     rule.Name,
				Message:  rule.Message,
				Severity: rule.Severity,
			})
		}
	}

	return Evaluation{Allow: len(violations) == 0, Violations: violations}
}

// checkAnatomy performs the minimum validation shared by every policy.
func checkAnatomy(spec core.AgentSpec) (Violation, bool) {
	var missing []string
	if strings.TrimSpace(spec.SystemPrompt) == "" {
		missing = append(missing, "system prompt")
	}
	if len(spec.Tools) == 0 {
		missing = append(missing, "tools")
	}
	if strings.TrimSpace(spec.RoleClass) == "" {
		missing = append(missing, "role class")
	}
	if len(missing) == 0 {
		return Violation{}, false
	}
	return Violation{
		Rule:     anatomyRule,
		Message:  "Agent anatomy is incomplete: missing " + strings.Join(missing, ", "),
		Severity: SeverityInvalidate,
	}, true
}

// evalInput builds the CEL input map for a spec. Only spec-derived values go
// in: rules must stay pure so repeated evaluation of an unchanged spec under
// an unchanged document always yields the same result.
func evalInput(spec core.AgentSpec) map[string]any {
	return map[string]any{
		"agent": map[string]any{
			"id":                     spec.ID,
			"role_class":             spec.RoleClass,
			"system_prompt":          spec.SystemPrompt,
			"tools":                  toAnySlice(spec.Tools),
			"max_budget":             spec.Sandbox.MaxBudget,
			"max_tokens_per_request": spec.Sandbox.MaxTokensPerRequest,
			"allowed_side_effects":   toAnySlice(spec.Sandbox.AllowedSideEffects),
			"max_iterations":         spec.MaxIterations,
		},
	}
}

func toAnySlice(in []string) []any {
	out := make([]any, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}

// compileRules compiles every rule expression into the program cache,
// rejecting the document on the first compile failure.
func (e *Engine) compileRules(doc *Document) error {
	for _, rule := range doc.Rules {
		if _, err := e.program(rule.Expr); err != nil {
			return fmt.Errorf("policy: rule %q: %w", rule.Name, err)
		}
	}
	return nil
}

// program returns a cached compiled program for expr, compiling on miss with
// a double-checked write lock.
func (e *Engine) program(expr string) (cel.Program, error) {
	e.progMu.RLock()
	prg, hit := e.progs[expr]
	e.progMu.RUnlock()
	if hit {
		return prg, nil
	}

	e.progMu.Lock()
	defer e.progMu.Unlock()
	if prg, hit = e.progs[expr]; hit {
		return prg, nil
	}

	ast, issues := e.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile: %w", issues.Err())
	}
	prg, err := e.env.Program(ast,
		cel.InterruptCheckFrequency(100),
		cel.CostLimit(10000),
	)
	if err != nil {
		return nil, fmt.Errorf("program: %w", err)
	}
	e.progs[expr] = prg
	return prg, nil
}

func (e *Engine) evaluateExpr(expr string, input map[string]any) (bool, error) {
	prg, err := e.program(expr)
	if err != nil {
		return false, err
	}
	out, _, err := prg.Eval(input)
	if err != nil {
		return false, fmt.Errorf("eval: %w", err)
	}
	val, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("result not bool")
	}
	return val, nil
}
