package core

// Agent defines the interface all agents must implement.
//
// Agents receive input through an InvocationContext, emit events to report
// results and state changes, and may own an ordered list of sub-agents. The
// tree formed by SetSubAgents is used for agent transfer: every agent can be
// reached from the root through FindAgent.
//
// Implementations must:
//   - Respect context cancellation
//   - Emit events through the provided InvocationContext
//   - Keep at most one parent per agent
type Agent interface {
	Name() string
	Description() string
	Start(ic *InvocationContext) error
	Stop(ic *InvocationContext) error
	Run(ic *InvocationContext) error
	SetSubAgents(children ...Agent) error
	SubAgents() []Agent
	Parent() Agent
	FindAgent(name string) Agent
	FindSubAgent(name string) Agent
}

// AgentInfo carries identifying details about an agent used in contexts and
// log lines. Type categorizes the implementation ("model", "sequential", ...).
type AgentInfo struct{ Name, Type string }

// RootAgent walks the parent chain and returns the top of the tree.
func RootAgent(a Agent) Agent {
	for a != nil && a.Parent() != nil {
		a = a.Parent()
	}
	return a
}
