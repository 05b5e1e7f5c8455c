// Package orchestrator coordinates multi-agent tasks: it admits every
// participating agent up front, asks a Planner for a dependency-ordered plan,
// validates the plan is a DAG over known agents and then schedules steps as
// they become ready, running independent steps concurrently. Each completed
// step wakes the scheduler, which immediately dispatches any step whose
// prerequisites are now all met.
//
// Scheduling is fail fast. The first failing step fails the orchestrated task
// and steps blocked behind it stay pending, but results of already completed
// steps remain inspectable in the final result.
package orchestrator
