// Package artifact contains concrete implementations of core.ArtifactStore.
//
// Artifacts are versioned binary blobs addressed by app, user, session and
// name. Every Save creates a new version starting at 1. InMemoryStore serves
// tests and single-process demos; the s3 sub-package stores objects in a
// bucket. Callers depend on the core interface so backends can be swapped in
// the wiring layer.
package artifact
