// Package agent contains the agent implementations of agentkit:
//
//  1. BaseAgent: lifecycle, hierarchy and agent callbacks shared by all agents
//  2. ModelAgent: a model-driven agent executed by a flow
//  3. SequentialAgent, ParallelAgent and LoopAgent: workflow agents that
//     coordinate their sub-agents
//
// Workflow agents run children on child invocation contexts whose events are
// relayed to the parent one at a time, so the runner persists every event
// before the child that produced it continues.
package agent
