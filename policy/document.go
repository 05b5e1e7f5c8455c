package policy

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Severity classifies what a rule failure does to an already-governed agent
// during a hot-reload sweep.
type Severity string

const (
	// SeverityRestrict demotes the agent to the side-effect-free capability
	// subset (GOVERNED_RESTRICTED).
	SeverityRestrict Severity = "restrict"

	// SeverityInvalidate revokes the agent's admission entirely
	// (GOVERNED_INVALIDATED); only re-promotion recovers it.
	SeverityInvalidate Severity = "invalidate"
)

// worse reports whether s outranks other (invalidate > restrict).
func (s Severity) worse(other Severity) bool {
	return s == SeverityInvalidate && other != SeverityInvalidate
}

// Rule is a single policy rule: a CEL expression that must evaluate to true
// for the agent to be allowed, plus the violation message and severity used
// when it does not.
type Rule struct {
	Name     string   `yaml:"name" json:"name"`
	Expr     string   `yaml:"expr" json:"expr"`
	Message  string   `yaml:"message" json:"message"`
	Severity Severity `yaml:"severity" json:"severity"`
}

// Document is a versioned policy document. Its canonical JSON hash is the
// active policy hash bound into proof bundles.
type Document struct {
	Name    string `yaml:"name" json:"name"`
	Version string `yaml:"version" json:"version"`
	Rules   []Rule `yaml:"rules" json:"rules"`
}

// ParseDocument loads a policy document from YAML, normalizing rule
// severities (empty defaults to restrict) and rejecting unknown values.
func ParseDocument(raw []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("policy: parse document: %w", err)
	}
	if err := doc.normalize(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// DefaultDocument returns a permissive baseline document with no rules. The
// anatomy pre-check still applies to every evaluation.
func DefaultDocument() *Document {
	return &Document{Name: "baseline", Version: "1.0.0"}
}

func (d *Document) normalize() error {
	seen := make(map[string]struct{}, len(d.Rules))
	for i := range d.Rules {
		r := &d.Rules[i]
		if strings.TrimSpace(r.Expr) == "" {
			return fmt.Errorf("policy: rule %q has empty expression", r.Name)
		}
		if _, dup := seen[r.Name]; dup {
			return fmt.Errorf("policy: duplicate rule name %q", r.Name)
		}
		seen[r.Name] = struct{}{}
		switch r.Severity {
		case "":
			r.Severity = SeverityRestrict
		case SeverityRestrict, SeverityInvalidate:
		default:
			return fmt.Errorf("policy: rule %q has unknown severity %q", r.Name, r.Severity)
		}
		if r.Message == "" {
			r.Message = fmt.Sprintf("policy rule %q violated", r.Name)
		}
	}
	return nil
}

// Violation describes a failed rule (or the anatomy pre-check).
type Violation struct {
	Rule     string   `json:"rule"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

// Evaluation is the outcome of evaluating a spec against the active policy.
// A denial is data, not an error: callers recover by editing the spec and
// re-promoting.
type Evaluation struct {
	Allow      bool        `json:"allow"`
	Violations []Violation `json:"violations,omitempty"`
}

// Reasons flattens violation messages for reporting.
func (ev Evaluation) Reasons() []string {
	out := make([]string, len(ev.Violations))
	for i, v := range ev.Violations {
		out[i] = v.Message
	}
	return out
}

// WorstSeverity returns the highest severity among the violations, defaulting
// to restrict when there are none.
func (ev Evaluation) WorstSeverity() Severity {
	worst := SeverityRestrict
	for _, v := range ev.Violations {
		if v.Severity.worse(worst) {
			worst = v.Severity
		}
	}
	return worst
}
