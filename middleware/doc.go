// Package middleware wraps agents, models and tools with logic that runs
// around the underlying call.
//
// Chains are applied outermost-first: the first middleware passed to a Wrap
// function sees the call first and the result last. A middleware may return
// without calling next to block the call.
package middleware
