package flow

// MultiAgentFlow extends SingleAgentFlow with the transfer_to_agent tool so
// the model can hand the conversation to another agent in the tree.
type MultiAgentFlow struct{ *BaseFlow }

// NewMultiAgentFlow creates the flow with its default processors.
func NewMultiAgentFlow(agent FlowAgent) *MultiAgentFlow {
	f := NewBaseFlow(agent)
	f.AddRequestProcessor(NewInstructionsProcessor())
	f.AddRequestProcessor(NewContentsProcessor())
	f.AddRequestProcessor(NewToolsProcessor())
	f.AddRequestProcessor(NewTransferToolInjector())
	f.AddRequestProcessor(NewOutputSchemaProcessor())
	return &MultiAgentFlow{BaseFlow: f}
}
