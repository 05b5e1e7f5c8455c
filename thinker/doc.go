// Package thinker provides core.Thinker implementations and the shared
// conversation building used by the LLM-backed adapters in its subpackages.
// The Scripted thinker replays a fixed thought sequence and exists for tests
// and deterministic demos.
package thinker
