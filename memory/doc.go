// Package memory contains core.MemoryStore implementations.
//
// A memory store ingests finished sessions and answers keyword recall
// queries for one user of one app. InMemoryStore keeps entries in process;
// the badger sub-package persists them on disk. Both share the indexing and
// scoring helpers of this package so recall results do not depend on the
// backend.
package memory
