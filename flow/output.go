package flow

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	"github.com/seobando/agentkit/core"
	"github.com/seobando/agentkit/internal/util"
)

// saveOutput stores the final text of ev under the agent's output key. With
// an output schema the text is repaired, parsed and validated and the parsed
// value is stored instead.
func saveOutput(agent FlowAgent, ev *core.Event) error {
	key := agent.OutputKey()
	if key == "" || ev.Partial || ev.Content == nil || ev.Author != agent.Name() || len(ev.FunctionCalls()) > 0 {
		return nil
	}
	text := ev.Content.Text()
	if text == "" {
		return nil
	}

	var value any = text
	if schema := agent.OutputSchema(); schema != nil {
		parsed, err := parseJSON(text)
		if err != nil {
			return fmt.Errorf("parse output of %s: %w", agent.Name(), err)
		}
		if err := util.ValidateValue(schema, parsed); err != nil {
			return fmt.Errorf("validate output of %s: %w", agent.Name(), err)
		}
		value = parsed
	}

	if ev.Actions.StateDelta == nil {
		ev.Actions.StateDelta = map[string]any{}
	}
	ev.Actions.StateDelta[key] = value
	return nil
}

// parseJSON decodes model text, tolerating code fences and malformed JSON.
func parseJSON(text string) (any, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	var v any
	err := json.Unmarshal([]byte(text), &v)
	if err == nil {
		return v, nil
	}
	fixed, repairErr := jsonrepair.JSONRepair(text)
	if repairErr != nil {
		return nil, fmt.Errorf("%w (repair: %v)", err, repairErr)
	}
	if err := json.Unmarshal([]byte(fixed), &v); err != nil {
		return nil, err
	}
	return v, nil
}

// formatResult renders a tool result for context messages.
func formatResult(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}
