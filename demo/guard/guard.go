// Package guard is the filtered chatbot demo. A before-model hook refuses
// math questions without calling the model and an after-model hook tags
// every answer.
package guard

import (
	"context"
	"strings"

	"github.com/seobando/agentkit/agent"
	"github.com/seobando/agentkit/callback"
	"github.com/seobando/agentkit/core"
	"github.com/seobando/agentkit/logging"
	"github.com/seobando/agentkit/middleware"
	"github.com/seobando/agentkit/model"
)

// AgentName is the name of the chatbot agent.
const AgentName = "filtered_chatbot"

// BlockedReply is returned instead of a model answer for math questions.
const BlockedReply = "Sorry, I'm not allowed to help with math problems right now. Try asking about something else!"

// Signature is appended to every model answer.
const Signature = " 🤖"

// blockedKey marks, for the rest of the invocation, that BeforeModel answered
// in place of the model.
const blockedKey = core.TempPrefix + "guard_blocked"

// Keywords trigger the block when found in the user text.
var Keywords = []string{"math", "calculate", "+", "-", "*", "/", "=", "plus", "minus", "times", "divided"}

// NewAgent returns the chatbot with the filter and signature hooks.
func NewAgent(llm model.Model, logger logging.Logger) *agent.ModelAgent {
	return agent.NewModelAgent(AgentName, llm, func(o *agent.ModelAgentOptions) {
		o.Description = "A friendly chatbot that declines math questions"
		o.Instruction = agent.NewInstructionFromText("You are a friendly chatbot. Answer questions helpfully and concisely.")
		o.BeforeModel = []callback.BeforeModel{BeforeModel(logger)}
		o.AfterModel = []callback.AfterModel{AfterModel()}
	})
}

// IsBlocked reports whether text mentions one of the Keywords, ignoring case.
func IsBlocked(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range Keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// BeforeModel short-circuits the model call when the latest user message is
// blocked.
func BeforeModel(logger logging.Logger) callback.BeforeModel {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return func(cc *core.CallbackContext, req *model.Request) (*model.Response, error) {
		text := req.LastUserText()
		if !IsBlocked(text) {
			return nil, nil
		}
		logger.Info("guard.blocked", "agent", cc.AgentName(), "input", text)
		cc.SetState(blockedKey, true)
		resp := model.NewTextResponse(BlockedReply)
		return &resp, nil
	}
}

// AfterModel appends Signature to non-empty text answers. The refusal from
// BeforeModel is left untouched.
func AfterModel() callback.AfterModel {
	return func(cc *core.CallbackContext, resp *model.Response) (*model.Response, error) {
		if cc != nil {
			if v, ok := cc.GetState(blockedKey); ok && v == true {
				cc.SetState(blockedKey, nil)
				return nil, nil
			}
		}
		if sign(resp) {
			return resp, nil
		}
		return nil, nil
	}
}

// Middleware applies the same filter and signature around any model.
func Middleware(logger logging.Logger) middleware.ModelMiddleware {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return func(ctx context.Context, req *model.Request, next middleware.ModelHandler) (*model.Response, error) {
		if text := req.LastUserText(); IsBlocked(text) {
			logger.Info("guard.blocked", "input", text)
			resp := model.NewTextResponse(BlockedReply)
			return &resp, nil
		}
		resp, err := next(ctx, req)
		if err != nil {
			return nil, err
		}
		sign(resp)
		return resp, nil
	}
}

// sign appends Signature to the last text part of resp and reports whether
// it did.
func sign(resp *model.Response) bool {
	if resp == nil || resp.Content.Text() == "" {
		return false
	}
	parts := resp.Content.Parts
	for i := len(parts) - 1; i >= 0; i-- {
		if tp, ok := parts[i].(core.TextPart); ok && tp.Text != "" {
			tp.Text += Signature
			parts[i] = tp
			return true
		}
	}
	return false
}
