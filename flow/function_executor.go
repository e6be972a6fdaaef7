package flow

import (
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/seobando/agentkit/callback"
	"github.com/seobando/agentkit/core"
	"github.com/seobando/agentkit/tool"
)

// FunctionExecutorConfig configures a FunctionExecutor.
type FunctionExecutorConfig struct {
	// MaxParallel bounds concurrent calls; 0 or less means one goroutine
	// per call.
	MaxParallel int
	// LogStartEvents logs a line when each call starts.
	LogStartEvents bool
}

// FunctionExecutor runs a batch of function calls concurrently and merges
// their responses into one event. Responses keep the order of the calls.
// Tool failures and panics become error responses; only cancellation fails
// the batch.
type FunctionExecutor struct {
	cfg FunctionExecutorConfig
}

// NewFunctionExecutor creates an executor.
func NewFunctionExecutor(cfg FunctionExecutorConfig) *FunctionExecutor {
	return &FunctionExecutor{cfg: cfg}
}

// Execute runs calls against tools and returns the merged function response
// event. The calls share one state overlay, and the event's state delta is
// the overlay's final content. Other actions are merged in call order.
func (e *FunctionExecutor) Execute(ic *core.InvocationContext, agent FlowAgent, tools []tool.Tool, calls []core.FunctionCall) (core.Event, error) {
	n := len(calls)
	responses := make([]core.FunctionResponse, n)
	actions := make([]core.EventActions, n)
	cbs := agent.Callbacks()

	g, gctx := errgroup.WithContext(ic.Context)
	if e.cfg.MaxParallel > 0 {
		g.SetLimit(e.cfg.MaxParallel)
	}
	batchStart := time.Now()
	callCtx := ic.WithContext(gctx)
	batch := core.NewToolBatch()
	for i, fc := range calls {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			tc := core.NewBatchToolContext(callCtx, fc.ID, batch)
			if e.cfg.LogStartEvents {
				tc.LogInfo("agent.function.start", "function", fc.Name)
			}
			start := time.Now()
			result, err := e.call(tc, tools, fc, cbs)
			tc.Release()
			tc.LogInfo("agent.function.executed", "function", fc.Name, "duration_ms", time.Since(start).Milliseconds(), "error", err != nil)

			responses[i] = newFunctionResponse(fc, result, err)
			actions[i] = *tc.Actions()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return core.Event{}, err
	}
	if err := ic.Err(); err != nil {
		return core.Event{}, err
	}

	ev := core.NewEvent(ic.InvocationID, agent.Name())
	parts := make([]core.Part, 0, n)
	for i := range responses {
		parts = append(parts, core.FunctionResponsePart{FunctionResponse: responses[i]})
		actions[i].StateDelta = nil
		ev.Actions.Merge(actions[i])
	}
	ev.Actions.StateDelta = batch.StateDelta()
	ev.Content = &core.Content{Role: core.RoleTool, Parts: parts}

	ic.LogDebug("agent.functions.batch.complete", "count", n, "parallelism", e.cfg.MaxParallel, "duration_ms", time.Since(batchStart).Milliseconds())
	return ev, nil
}

// call runs one function with callbacks and panic recovery.
func (e *FunctionExecutor) call(tc *core.ToolContext, tools []tool.Tool, fc core.FunctionCall, cbs Callbacks) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			tc.LogError("agent.function.panic", "function", fc.Name, "recover", fmt.Sprint(r), "stack", string(debug.Stack()))
			result, err = nil, &tool.ToolError{Tool: fc.Name, Message: fmt.Sprintf("panic: %v", r), Code: tool.CodeExecution}
		}
	}()

	impl, ok := tool.Find(tools, fc.Name)
	if !ok {
		return nil, &tool.ToolError{Tool: fc.Name, Message: fmt.Sprintf("tool %s not found", fc.Name), Code: tool.CodeNotFound}
	}
	args, err := fc.Args()
	if err != nil {
		return nil, &tool.ToolError{Tool: fc.Name, Message: fmt.Sprintf("invalid arguments: %v", err), Code: tool.CodeValidation}
	}

	if r, err := callback.RunBeforeTool(tc, impl, args, cbs.BeforeTool); err != nil || r != nil {
		return r, err
	}
	result, err = impl.Call(tc, args)
	if err != nil {
		return nil, err
	}
	if r, err := callback.RunAfterTool(tc, impl, args, result, cbs.AfterTool); err != nil {
		return nil, err
	} else if r != nil {
		result = r
	}
	return result, nil
}

func newFunctionResponse(fc core.FunctionCall, result any, err error) core.FunctionResponse {
	fr := core.FunctionResponse{ID: fc.ID, Name: fc.Name, Response: result}
	if err != nil {
		var toolErr *tool.ToolError
		if errors.As(err, &toolErr) {
			fr.Error = fmt.Sprintf("[%s] %s", toolErr.Code, toolErr.Message)
		} else {
			fr.Error = err.Error()
		}
		fr.Response = nil
	}
	return fr
}

// argsJSON renders args for context messages.
func argsJSON(args string) string {
	if args == "" {
		return "{}"
	}
	var v any
	if json.Unmarshal([]byte(args), &v) != nil {
		return args
	}
	b, _ := json.Marshal(v)
	return string(b)
}
