// Package runner executes one agent's iterative think/act/observe loop
// against a pluggable tool set, subject to an iteration budget. The runner
// does not consult governance; admission is the orchestrator's job before any
// task is dispatched.
//
// Each iteration asks the injected Thinker for the next thought. A thought
// containing the completion marker finishes the task with the thought as its
// summary; an `ACTION: tool_name {...}` directive selects at most one tool to
// execute, whose outcome (or error) is recorded as the observation. Tool
// errors never fail a task; thinker errors always do.
package runner
