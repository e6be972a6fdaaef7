package flow

// SelectFlow picks MultiAgentFlow for agents that may transfer and have a
// target to transfer to, SingleAgentFlow otherwise.
func SelectFlow(agent FlowAgent) Flow {
	if agent.IsTransferEnabled() && len(TransferTargets(agent)) > 0 {
		return NewMultiAgentFlow(agent)
	}
	return NewSingleAgentFlow(agent)
}
