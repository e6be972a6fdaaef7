// Package support is the structured output demo. A customer support agent
// answers with a JSON object that is validated against CustomerState and
// then merged into the top level of the session state.
package support

import (
	"context"
	"errors"
	"fmt"
	"maps"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/seobando/agentkit/agent"
	"github.com/seobando/agentkit/core"
	"github.com/seobando/agentkit/internal/util"
	"github.com/seobando/agentkit/model"
)

const (
	// AppName is the store the agent works for.
	AppName = "TechStore"
	// AgentName is the name of the support agent.
	AgentName = "CustomerSupport"
	// CustomerID is the user of the demo session.
	CustomerID = "sarah_j"
	// OutputKey receives the structured answer.
	OutputKey = "state"
	// Question is the message the demo sends.
	Question = "Hi! Can you check my recent order status?"
)

// ErrNoStructuredOutput is returned when the session holds nothing under
// OutputKey.
var ErrNoStructuredOutput = errors.New("no structured output in session state")

const instruction = "You are a friendly customer support agent for TechStore. Customer: {customer_name}. " +
	"Their favorite category is {favorite_category}. Recent order: {recent_order}. Loyalty points: {loyalty_points}."

// CustomerState is the structured answer of the agent.
type CustomerState struct {
	CustomerName     string `json:"customer_name" jsonschema:"Full name of the customer."`
	FavoriteCategory string `json:"favorite_category" jsonschema:"Customer's preferred product category for shopping."`
	RecentOrder      string `json:"recent_order" jsonschema:"Details of the customer's most recent order including product, order number, and status."`
	LoyaltyPoints    int    `json:"loyalty_points" jsonschema:"Current number of loyalty/reward points the customer has earned."`
}

// InitialState is the customer profile the session starts with.
func InitialState() map[string]any {
	return map[string]any{
		"customer_name":     "Sarah Johnson",
		"favorite_category": "Electronics",
		"recent_order":      "iPhone 15 Pro - Order #12345 - Shipped",
		"loyalty_points":    "500",
	}
}

// Schema returns the output schema. Loyalty points may not be negative.
func Schema() (*jsonschema.Schema, error) {
	s, _, err := util.SchemaFor[CustomerState]()
	if err != nil {
		return nil, err
	}
	points, ok := s.Properties["loyalty_points"]
	if !ok {
		return nil, fmt.Errorf("schema of %T has no loyalty_points", CustomerState{})
	}
	zero := 0.0
	points.Minimum = &zero
	return s, nil
}

// NewAgent returns the support agent.
func NewAgent(llm model.Model) (*agent.ModelAgent, error) {
	schema, err := Schema()
	if err != nil {
		return nil, err
	}
	return agent.NewModelAgent(AgentName, llm, func(o *agent.ModelAgentOptions) {
		o.Description = "Customer support agent answering with the updated customer profile"
		o.Instruction = agent.NewInstructionFromText(instruction)
		o.OutputSchema = schema
		o.OutputKey = OutputKey
	}), nil
}

// MergeStructuredOutput copies the fields stored under OutputKey into the
// top level of the session state and removes OutputKey. The change is
// recorded as a system event so every store persists it. It returns the
// merged fields.
func MergeStructuredOutput(ctx context.Context, store core.SessionStore, key core.SessionKey) (map[string]any, error) {
	sess, err := store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	raw, ok := sess.GetState(OutputKey)
	if !ok {
		return nil, ErrNoStructuredOutput
	}
	fields, err := util.DecodeState[map[string]any](raw)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", OutputKey, err)
	}

	delta := maps.Clone(fields)
	if delta == nil {
		delta = map[string]any{}
	}
	delta[OutputKey] = nil
	ev := core.NewEvent("", core.AuthorSystem)
	ev.Actions.StateDelta = delta
	if err := store.AppendEvent(ctx, key, ev); err != nil {
		return nil, fmt.Errorf("merge structured output: %w", err)
	}
	return fields, nil
}
