// Package core provides the foundational domain types, interfaces and execution
// contexts used by agentkit. It defines the core abstractions for:
//
//   - Agents (units of autonomous or orchestrated work)
//   - Sessions (stateful conversational containers with event history)
//   - Events (immutable communication and orchestration records)
//   - InvocationContext, ToolContext and CallbackContext (scoped execution)
//   - Pluggable stores for session state, artifacts and memory recall
//
// Concrete agents, persistence backends and the runner live in sibling
// packages and depend on the small interfaces declared here.
package core
