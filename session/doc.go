// Package session houses concrete implementations of core.SessionStore.
//
// The interface itself and the Session struct live in the core package so
// agents and flows never depend on a storage backend. InMemoryStore serves
// tests, demos and single-process setups; the sqlite sub-package persists
// sessions across restarts. Callers pick an implementation in the wiring
// layer only.
package session
