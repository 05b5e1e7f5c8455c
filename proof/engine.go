package proof

import (
	"crypto/ed25519"
	"fmt"
	"time"

	"github.com/hupe1980/agentgov/core"
)

// Options configures an Engine instance.
type Options struct {
	// KeyProvider supplies the signing key. Defaults to a freshly generated
	// in-memory Ed25519 keypair.
	KeyProvider KeyProvider
}

// Engine produces and verifies proof bundles. It is stateless apart from the
// key provider and safe for concurrent use.
type Engine struct {
	keys KeyProvider
}

// New creates a proof engine with optional overrides.
func New(optFns ...func(o *Options)) (*Engine, error) {
	opts := Options{}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.KeyProvider == nil {
		kp, err := NewMemoryKeyProvider()
		if err != nil {
			return nil, err
		}
		opts.KeyProvider = kp
	}
	return &Engine{keys: opts.KeyProvider}, nil
}

// Hash returns the deterministic content hash of v (an agent spec, a policy
// document, or any JSON-serializable value).
func (e *Engine) Hash(v any) (string, error) {
	return CanonicalHash(v)
}

// signingPayload is the canonical message bound by a bundle signature.
// EvaluatedAt is encoded as Unix nanoseconds to avoid formatting ambiguity.
type signingPayload struct {
	AgentHash   string `json:"agent_hash"`
	PolicyHash  string `json:"policy_hash"`
	EvaluatedAt int64  `json:"evaluated_at"`
}

// Sign builds a proof bundle binding an agent hash and a policy hash at the
// given evaluation time.
func (e *Engine) Sign(agentHash, policyHash string, evaluatedAt time.Time) (core.ProofBundle, error) {
	msg, err := CanonicalJSON(signingPayload{
		AgentHash:   agentHash,
		PolicyHash:  policyHash,
		EvaluatedAt: evaluatedAt.UnixNano(),
	})
	if err != nil {
		return core.ProofBundle{}, fmt.Errorf("sign: %w", err)
	}
	sig, err := e.keys.Sign(msg)
	if err != nil {
		return core.ProofBundle{}, fmt.Errorf("sign: %w", err)
	}
	return core.ProofBundle{
		AgentHash:   agentHash,
		PolicyHash:  policyHash,
		Signature:   sig,
		EvaluatedAt: evaluatedAt,
	}, nil
}

// Verify returns true only if the bundle's agent hash matches
// currentAgentHash, its policy hash matches currentPolicyHash, and the
// signature is valid over the bundle. This single check detects both spec
// tampering (agent hash mismatch) and stale policy (policy hash mismatch).
func (e *Engine) Verify(bundle core.ProofBundle, currentAgentHash, currentPolicyHash string) bool {
	if bundle.AgentHash != currentAgentHash || bundle.PolicyHash != currentPolicyHash {
		return false
	}
	return e.VerifySignature(bundle)
}

// VerifySignature checks only that the bundle's signature is valid over its
// own fields, regardless of the current spec or policy.
func (e *Engine) VerifySignature(bundle core.ProofBundle) bool {
	msg, err := CanonicalJSON(signingPayload{
		AgentHash:   bundle.AgentHash,
		PolicyHash:  bundle.PolicyHash,
		EvaluatedAt: bundle.EvaluatedAt.UnixNano(),
	})
	if err != nil {
		return false
	}
	return ed25519.Verify(e.keys.PublicKey(), msg, bundle.Signature)
}

// PublicKey exposes the verification key for external auditors.
func (e *Engine) PublicKey() ed25519.PublicKey {
	return e.keys.PublicKey()
}
