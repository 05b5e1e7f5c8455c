// Package proof computes content hashes and signatures for agent
// specifications and policy documents, and verifies the resulting proof
// bundles. Hashing is SHA-256 over the RFC 8785 (JCS) canonical JSON form of
// the value, so any field change produces a different hash while formatting
// differences do not. Signatures are Ed25519 over the canonical form of the
// bundle's hash pair and evaluation time.
package proof
