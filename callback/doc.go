// Package callback provides the hook points of an agent run.
//
// Two families live here:
//
//   - Typed hooks (BeforeAgent, AfterModel, BeforeTool, ...) configured on
//     agents. They may short-circuit or replace what they wrap.
//   - A Manager of runner-level lifecycle observers (run start, every event,
//     state changes, run end, errors). Observers cannot alter events but an
//     error returned from one fails the run.
package callback
