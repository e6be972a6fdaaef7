package flow

import (
	"errors"
	"fmt"

	"github.com/seobando/agentkit/callback"
	"github.com/seobando/agentkit/core"
	"github.com/seobando/agentkit/model"
	"github.com/seobando/agentkit/tool"
)

// Error codes set on error events emitted by flows.
const (
	ErrorCodeModel     = "MODEL_ERROR"
	ErrorCodeProcessor = "REQUEST_PROCESSOR_ERROR"
	ErrorCodeCallback  = "CALLBACK_ERROR"
	ErrorCodeOutput    = "OUTPUT_ERROR"
	ErrorCodeLimit     = "MODEL_CALL_LIMIT"
	ErrorCodeTransfer  = "TRANSFER_ERROR"
)

// BaseFlow is the request -> model -> tools loop with pluggable request
// processors.
type BaseFlow struct {
	agent             FlowAgent
	requestProcessors []RequestProcessor
	executor          *FunctionExecutor
}

// NewBaseFlow creates a flow without processors.
func NewBaseFlow(agent FlowAgent) *BaseFlow {
	return &BaseFlow{
		agent:    agent,
		executor: NewFunctionExecutor(FunctionExecutorConfig{MaxParallel: agent.MaxParallelTools()}),
	}
}

// AddRequestProcessor appends a processor; registration order is execution
// order.
func (f *BaseFlow) AddRequestProcessor(p RequestProcessor) {
	f.requestProcessors = append(f.requestProcessors, p)
}

// Run loops model turns until a final answer, a skip-summarization tool
// response, an escalation or a transfer. A transfer runs the target agent on
// the same invocation before returning.
func (f *BaseFlow) Run(ic *core.InvocationContext) error {
	for {
		last, err := f.runOnce(ic)
		if err != nil {
			return err
		}
		if last == nil {
			return nil
		}
		if target := last.Actions.TransferToAgent; target != "" {
			return f.transfer(ic, target)
		}
		if len(last.FunctionResponses()) == 0 || last.Actions.SkipSummarization || last.Actions.Escalate {
			return nil
		}
		if err := ic.Err(); err != nil {
			return err
		}
	}
}

// runOnce performs one model call plus any function execution and returns
// the last emitted event.
func (f *BaseFlow) runOnce(ic *core.InvocationContext) (*core.Event, error) {
	req := &model.Request{Stream: f.agent.IsStreamingEnabled()}
	gc := f.agent.GenerateConfig()
	req.Temperature, req.MaxTokens = gc.Temperature, gc.MaxTokens

	for _, p := range f.requestProcessors {
		if err := p.ProcessRequest(ic, req, f.agent); err != nil {
			err = fmt.Errorf("request processor %s: %w", p.Name(), err)
			return nil, f.fail(ic, ErrorCodeProcessor, err)
		}
	}

	if err := ic.Limiter.Increment(); err != nil {
		return nil, f.fail(ic, ErrorCodeLimit, err)
	}

	cbs := f.agent.Callbacks()
	cc := core.NewCallbackContext(ic)
	resp, err := callback.RunBeforeModel(cc, req, cbs.BeforeModel)
	if err != nil {
		return nil, f.fail(ic, ErrorCodeCallback, fmt.Errorf("before model callback: %w", err))
	}
	if resp == nil {
		resp, err = f.callModel(ic, req)
		if err != nil {
			return nil, f.fail(ic, ErrorCodeModel, err)
		}
	}

	if replaced, err := callback.RunAfterModel(cc, resp, cbs.AfterModel); err != nil {
		return nil, f.fail(ic, ErrorCodeCallback, fmt.Errorf("after model callback: %w", err))
	} else if replaced != nil {
		resp = replaced
	}

	ev := core.NewEvent(ic.InvocationID, f.agent.Name())
	content := resp.Content.Clone()
	if content.Role == "" {
		content.Role = core.RoleAssistant
	}
	ev.Content = &content
	calls := ev.FunctionCalls()
	ev.TurnComplete = len(calls) == 0

	if err := saveOutput(f.agent, &ev); err != nil {
		return nil, f.fail(ic, ErrorCodeOutput, err)
	}
	if err := ic.EmitEvent(ev); err != nil {
		return nil, err
	}
	if len(calls) == 0 {
		return &ev, nil
	}

	respEv, err := f.executor.Execute(ic, f.agent, f.toolset(), calls)
	if err != nil {
		return nil, err
	}
	if err := ic.EmitEvent(respEv); err != nil {
		return nil, err
	}
	return &respEv, nil
}

// callModel streams the model, emitting partial events, and returns the
// final response.
func (f *BaseFlow) callModel(ic *core.InvocationContext, req *model.Request) (*model.Response, error) {
	llm := f.agent.Model()
	if llm == nil {
		return nil, fmt.Errorf("agent %s has no model", f.agent.Name())
	}
	ic.LogDebug("flow.model.request", "model", llm.Info().Name, "contents", len(req.Contents), "tools", len(req.Tools))

	respCh, errCh := llm.Generate(ic.Context, *req)
	var final *model.Response
	for resp := range respCh {
		if resp.Partial {
			ev := core.NewEvent(ic.InvocationID, f.agent.Name())
			c := resp.Content.Clone()
			ev.Content = &c
			ev.Partial = true
			if err := ic.EmitEvent(ev); err != nil {
				return nil, err
			}
			continue
		}
		r := resp
		final = &r
	}
	if err := <-errCh; err != nil {
		return nil, fmt.Errorf("model %s: %w", llm.Info().Name, err)
	}
	if final == nil {
		return nil, fmt.Errorf("model %s returned no final response", llm.Info().Name)
	}
	if final.Usage != nil {
		ic.LogDebug("flow.model.usage", "prompt_tokens", final.Usage.PromptTokens, "completion_tokens", final.Usage.CompletionTokens)
	}
	return final, nil
}

// fail emits an error event for err and returns it. Cancellation is returned
// without an event.
func (f *BaseFlow) fail(ic *core.InvocationContext, code string, err error) error {
	if ic.Err() != nil {
		return ic.Err()
	}
	ic.LogError("flow.error", "code", code, "error", err.Error())
	ev := core.NewErrorEvent(ic.InvocationID, f.agent.Name(), code, err)
	if emitErr := ic.EmitEvent(ev); emitErr != nil {
		return errors.Join(err, emitErr)
	}
	return err
}

// toolset returns the tools callable in this turn, including the transfer
// tool when offered.
func (f *BaseFlow) toolset() []tool.Tool {
	tools := append([]tool.Tool(nil), f.agent.Tools()...)
	if f.agent.IsTransferEnabled() && len(TransferTargets(f.agent)) > 0 {
		tools = append(tools, transferTool)
	}
	return tools
}

// transfer resolves target from the root of the agent tree and runs it on
// the same invocation.
func (f *BaseFlow) transfer(ic *core.InvocationContext, name string) error {
	target := core.RootAgent(f.agent).FindAgent(name)
	if target == nil {
		return f.fail(ic, ErrorCodeTransfer, fmt.Errorf("transfer to %q: %w", name, core.ErrAgentNotFound))
	}
	ic.LogInfo("flow.transfer", "from", f.agent.Name(), "to", name)
	return target.Run(ic)
}
