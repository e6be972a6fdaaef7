package flow

// SingleAgentFlow drives a standalone agent: instructions, history, tools
// and output schema, without agent transfer.
type SingleAgentFlow struct{ *BaseFlow }

// NewSingleAgentFlow creates the flow with its default processors.
func NewSingleAgentFlow(agent FlowAgent) *SingleAgentFlow {
	f := NewBaseFlow(agent)
	f.AddRequestProcessor(NewInstructionsProcessor())
	f.AddRequestProcessor(NewContentsProcessor())
	f.AddRequestProcessor(NewToolsProcessor())
	f.AddRequestProcessor(NewOutputSchemaProcessor())
	return &SingleAgentFlow{BaseFlow: f}
}
