package testutil

import "github.com/hupe1980/agentgov/policy"

// PolicyBuilder helps construct policy documents with fluent chaining for
// tests. Example:
//
//	doc := NewPolicyBuilder("budgets").
//		Rule("budget_cap", "agent.max_budget <= 100.0", "budget too high", policy.SeverityRestrict).
//		Build()
type PolicyBuilder struct {
	doc policy.Document
}

// NewPolicyBuilder creates a builder for a named document at version "1".
func NewPolicyBuilder(name string) *PolicyBuilder {
	return &PolicyBuilder{doc: policy.Document{Name: name, Version: "1"}}
}

// Version overrides the document version (chainable).
func (b *PolicyBuilder) Version(v string) *PolicyBuilder {
	b.doc.Version = v
	return b
}

// Rule appends a rule (chainable).
func (b *PolicyBuilder) Rule(name, expr, message string, severity policy.Severity) *PolicyBuilder {
	b.doc.Rules = append(b.doc.Rules, policy.Rule{
		Name:     name,
		Expr:     expr,
		Message:  message,
		Severity: severity,
	})
	return b
}

// Build returns the assembled document.
func (b *PolicyBuilder) Build() *policy.Document {
	doc := b.doc
	doc.Rules = append([]policy.Rule(nil), b.doc.Rules...)
	return &doc
}
