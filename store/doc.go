// Package store provides volatile in-memory implementations of the core
// store interfaces, suitable for tests and single-process deployments.
// Production deployments typically supply durable implementations backed by
// a relational database.
package store
