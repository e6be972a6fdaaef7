// Package runner executes an agent tree against a session.
//
// A Runner binds one root agent to an app name and a set of stores. Each Run
// loads (or creates) the session, persists the user message, starts the
// agent in its own goroutine and processes the emitted events serially:
//
//  1. lifecycle callbacks observe the event
//  2. the session store persists it and applies its state delta
//  3. the event is forwarded to the caller
//  4. the agent is resumed
//
// Agents therefore observe their own writes on the next step. When the agent
// finishes, the session can be ingested into the memory store. Prometheus
// metrics and an OpenTelemetry span are recorded for every run.
package runner
