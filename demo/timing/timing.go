// Package timing is the math tutor demo. It measures each agent run twice:
// once with before/after agent callbacks and once with an agent middleware.
package timing

import (
	"fmt"
	"time"

	"github.com/seobando/agentkit/agent"
	"github.com/seobando/agentkit/callback"
	"github.com/seobando/agentkit/core"
	"github.com/seobando/agentkit/logging"
	"github.com/seobando/agentkit/middleware"
	"github.com/seobando/agentkit/model"
)

const (
	// AgentName is the name of the tutor agent.
	AgentName = "math_tutor"
	// StartTimeKey holds the RFC 3339 start time of the current run.
	StartTimeKey = "start_time"
)

const instruction = `You are a helpful math tutor. Explain concepts clearly and step by step.
When asked a math question, show your work and explain the reasoning.
Be encouraging and supportive.`

// NewAgent returns the tutor with both timing callbacks installed.
func NewAgent(llm model.Model, logger logging.Logger) *agent.ModelAgent {
	return agent.NewModelAgent(AgentName, llm, func(o *agent.ModelAgentOptions) {
		o.Description = "A math tutor that explains problems step by step"
		o.Instruction = agent.NewInstructionFromText(instruction)
		o.BeforeAgent = []callback.BeforeAgent{BeforeAgent(logger)}
		o.AfterAgent = []callback.AfterAgent{AfterAgent(logger)}
	})
}

// NewWrappedAgent returns the tutor timed by Middleware instead of callbacks.
func NewWrappedAgent(llm model.Model, logger logging.Logger) core.Agent {
	tutor := agent.NewModelAgent(AgentName, llm, func(o *agent.ModelAgentOptions) {
		o.Description = "A math tutor that explains problems step by step"
		o.Instruction = agent.NewInstructionFromText(instruction)
	})
	return middleware.WrapAgent(tutor, Middleware(logger))
}

// BeforeAgent logs the incoming request and records the start time in state.
func BeforeAgent(logger logging.Logger) callback.BeforeAgent {
	logger = orNoop(logger)
	return func(cc *core.CallbackContext) (*core.Content, error) {
		logger.Info("agent.start", "agent", cc.AgentName(), "input", cc.UserContent().Text())
		cc.SetState(StartTimeKey, time.Now().UTC().Format(time.RFC3339Nano))
		return nil, nil
	}
}

// AfterAgent logs the elapsed time since BeforeAgent and the final state.
func AfterAgent(logger logging.Logger) callback.AfterAgent {
	logger = orNoop(logger)
	return func(cc *core.CallbackContext) (*core.Content, error) {
		raw, ok := cc.GetState(StartTimeKey)
		if !ok {
			logger.Warn("agent.timing.no_start", "agent", cc.AgentName())
			return nil, nil
		}
		start, err := parseStart(raw)
		if err != nil {
			return nil, err
		}
		logger.Info("agent.done",
			"agent", cc.AgentName(),
			"duration", FormatSeconds(time.Since(start)),
			"state", cc.State(),
		)
		return nil, nil
	}
}

// Middleware is the same measurement wrapped around Agent.Run.
func Middleware(logger logging.Logger) middleware.AgentMiddleware {
	logger = orNoop(logger)
	return func(ic *core.InvocationContext, next middleware.AgentHandler) error {
		start := time.Now()
		logger.Info("agent.start", "agent", ic.Agent.Name, "input", ic.UserContent.Text())
		err := next(ic)
		args := []any{"agent", ic.Agent.Name, "duration", FormatSeconds(time.Since(start))}
		if err != nil {
			logger.Error("agent.failed", append(args, "error", err.Error())...)
			return err
		}
		logger.Info("agent.done", args...)
		return nil
	}
}

// FormatSeconds renders d in seconds with one decimal, e.g. "1.5s".
func FormatSeconds(d time.Duration) string {
	return fmt.Sprintf("%.1fs", d.Seconds())
}

func parseStart(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case string:
		start, err := time.Parse(time.RFC3339Nano, t)
		if err != nil {
			return time.Time{}, fmt.Errorf("parse %s: %w", StartTimeKey, err)
		}
		return start, nil
	default:
		return time.Time{}, fmt.Errorf("%s has unexpected type %T", StartTimeKey, v)
	}
}

func orNoop(l logging.Logger) logging.Logger {
	if l == nil {
		return logging.NoOpLogger{}
	}
	return l
}
