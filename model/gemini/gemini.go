// Package gemini implements model.Model on the Google Gen AI SDK (Gemini API
// or Vertex AI).
package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"google.golang.org/genai"

	"github.com/seobando/agentkit/core"
	"github.com/seobando/agentkit/model"
)

// Options configures the Gemini adapter.
type Options struct {
	Model           string
	Temperature     float32
	MaxOutputTokens int32
	APIKey          string
}

// Model wraps genai.Client.
type Model struct {
	client *genai.Client
	opts   Options
}

func defaultOptions(optFns []func(o *Options)) Options {
	opts := Options{Model: "gemini-2.0-flash", Temperature: 0.7, MaxOutputTokens: 4096}
	for _, fn := range optFns {
		fn(&opts)
	}
	return opts
}

// NewModel creates a model backed by the Gemini API. Without an explicit
// APIKey the client reads GOOGLE_API_KEY or GEMINI_API_KEY.
func NewModel(ctx context.Context, optFns ...func(o *Options)) (*Model, error) {
	opts := defaultOptions(optFns)
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: opts.APIKey, Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &Model{client: client, opts: opts}, nil
}

// NewModelFromClient creates a model from an existing client.
func NewModelFromClient(client *genai.Client, optFns ...func(o *Options)) *Model {
	return &Model{client: client, opts: defaultOptions(optFns)}
}

// Info returns metadata describing this model.
func (m *Model) Info() model.Info {
	return model.Info{Name: m.opts.Model, Provider: "gemini", SupportsTools: true}
}

// Generate implements model.Model.
func (m *Model) Generate(ctx context.Context, req model.Request) (<-chan model.Response, <-chan error) {
	out := make(chan model.Response, 32)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		cfg, contents, err := m.convRequest(req)
		if err != nil {
			errCh <- err
			return
		}
		if req.Stream {
			m.handleStreaming(ctx, cfg, contents, out, errCh)
			return
		}
		resp, err := m.client.Models.GenerateContent(ctx, m.opts.Model, contents, cfg)
		if err != nil {
			errCh <- fmt.Errorf("gemini api error: %w", err)
			return
		}
		if len(resp.Candidates) == 0 {
			errCh <- fmt.Errorf("gemini: no candidates")
			return
		}
		cand := resp.Candidates[0]
		var parts []*genai.Part
		if cand.Content != nil {
			parts = cand.Content.Parts
		}
		text, calls := splitParts(parts, 0)
		out <- buildResponse(resp.ResponseID, text, calls, cand.FinishReason, resp.UsageMetadata)
	}()
	return out, errCh
}

func (m *Model) handleStreaming(ctx context.Context, cfg *genai.GenerateContentConfig, contents []*genai.Content, out chan<- model.Response, errCh chan<- error) {
	var (
		text   strings.Builder
		calls  []core.FunctionCall
		finish genai.FinishReason
		usage  *genai.GenerateContentResponseUsageMetadata
		id     string
	)
	for chunk, err := range m.client.Models.GenerateContentStream(ctx, m.opts.Model, contents, cfg) {
		if err != nil {
			errCh <- fmt.Errorf("gemini streaming error: %w", err)
			return
		}
		if chunk.UsageMetadata != nil {
			usage = chunk.UsageMetadata
		}
		if chunk.ResponseID != "" {
			id = chunk.ResponseID
		}
		if len(chunk.Candidates) == 0 {
			continue
		}
		cand := chunk.Candidates[0]
		if cand.Content != nil {
			delta, chunkCalls := splitParts(cand.Content.Parts, len(calls))
			if delta != "" {
				text.WriteString(delta)
				out <- model.Response{ID: id, Partial: true, Content: *core.NewTextContent(core.RoleAssistant, delta)}
			}
			calls = append(calls, chunkCalls...)
		}
		if cand.FinishReason != "" && cand.FinishReason != genai.FinishReasonUnspecified {
			finish = cand.FinishReason
		}
	}
	out <- buildResponse(id, text.String(), calls, finish, usage)
}

// splitParts separates text from function calls. Calls without an id get a
// positional one so their responses can be matched.
func splitParts(parts []*genai.Part, offset int) (string, []core.FunctionCall) {
	var (
		sb    strings.Builder
		calls []core.FunctionCall
	)
	for _, p := range parts {
		switch {
		case p == nil:
		case p.FunctionCall != nil:
			b, _ := json.Marshal(p.FunctionCall.Args)
			callID := p.FunctionCall.ID
			if callID == "" {
				callID = fmt.Sprintf("call-%d", offset+len(calls))
			}
			calls = append(calls, core.FunctionCall{ID: callID, Name: p.FunctionCall.Name, Arguments: string(b)})
		case p.Text != "" && !p.Thought:
			sb.WriteString(p.Text)
		}
	}
	return sb.String(), calls
}

func buildResponse(id, text string, calls []core.FunctionCall, finish genai.FinishReason, usage *genai.GenerateContentResponseUsageMetadata) model.Response {
	parts := make([]core.Part, 0, len(calls)+1)
	if text != "" {
		parts = append(parts, core.TextPart{Text: text})
	}
	for _, c := range calls {
		parts = append(parts, core.FunctionCallPart{FunctionCall: c})
	}
	resp := model.Response{
		ID:           id,
		Content:      core.Content{Role: core.RoleAssistant, Parts: parts},
		FinishReason: convFinish(finish, len(calls) > 0),
	}
	if usage != nil {
		resp.Usage = &model.TokenUsage{
			PromptTokens:     int(usage.PromptTokenCount),
			CompletionTokens: int(usage.CandidatesTokenCount),
			TotalTokens:      int(usage.TotalTokenCount),
		}
	}
	return resp
}

func convFinish(fr genai.FinishReason, hasCalls bool) string {
	if hasCalls {
		return model.FinishToolCalls
	}
	switch fr {
	case genai.FinishReasonStop, genai.FinishReasonUnspecified, "":
		return model.FinishStop
	case genai.FinishReasonMaxTokens:
		return model.FinishLength
	case genai.FinishReasonSafety:
		return model.FinishSafety
	default:
		return strings.ToLower(string(fr))
	}
}

func (m *Model) convRequest(req model.Request) (*genai.GenerateContentConfig, []*genai.Content, error) {
	cfg := &genai.GenerateContentConfig{MaxOutputTokens: m.opts.MaxOutputTokens}
	temperature := m.opts.Temperature
	if req.Temperature != nil {
		temperature = float32(*req.Temperature)
	}
	cfg.Temperature = &temperature
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxTokens)
	}

	var system []*genai.Part
	if req.Instructions != "" {
		system = append(system, genai.NewPartFromText(req.Instructions))
	}
	for _, c := range req.Contents {
		if c.Role == core.RoleSystem {
			system = append(system, genai.NewPartFromText(c.Text()))
		}
	}
	if len(system) > 0 {
		cfg.SystemInstruction = &genai.Content{Parts: system}
	}

	if len(req.Tools) > 0 {
		decls := make([]*genai.FunctionDeclaration, 0, len(req.Tools))
		for _, t := range req.Tools {
			schema, err := toJSONSchema(t.Function.Parameters)
			if err != nil {
				return nil, nil, fmt.Errorf("tool %s schema: %w", t.Function.Name, err)
			}
			decls = append(decls, &genai.FunctionDeclaration{
				Name:        t.Function.Name,
				Description: t.Function.Description,
				Parameters:  convSchema(schema),
			})
		}
		cfg.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
	}

	if req.OutputSchema != nil {
		cfg.ResponseMIMEType = "application/json"
		cfg.ResponseSchema = convSchema(req.OutputSchema)
	}

	contents := convContents(req.Contents)
	if len(contents) == 0 {
		return nil, nil, fmt.Errorf("gemini: no contents")
	}
	return cfg, contents, nil
}

// convContents maps roles to user/model and merges consecutive turns of the
// same role, which the API requires.
func convContents(in []core.Content) []*genai.Content {
	var (
		contents []*genai.Content
		last     *genai.Content
	)
	for _, c := range in {
		var (
			role  string
			parts []*genai.Part
		)
		switch c.Role {
		case core.RoleSystem:
			continue
		case core.RoleAssistant:
			role = genai.RoleModel
		default:
			role = genai.RoleUser
		}
		for _, p := range c.Parts {
			switch v := p.(type) {
			case core.TextPart:
				if v.Text != "" {
					parts = append(parts, genai.NewPartFromText(v.Text))
				}
			case core.FilePart:
				if len(v.File.Data) > 0 {
					parts = append(parts, genai.NewPartFromBytes(v.File.Data, v.File.MIMEType))
				} else if v.File.URI != "" {
					parts = append(parts, genai.NewPartFromURI(v.File.URI, v.File.MIMEType))
				}
			case core.FunctionCallPart:
				args, err := v.FunctionCall.Args()
				if err != nil {
					args = map[string]any{"text": v.FunctionCall.Arguments}
				}
				part := genai.NewPartFromFunctionCall(v.FunctionCall.Name, args)
				part.FunctionCall.ID = v.FunctionCall.ID
				parts = append(parts, part)
			case core.FunctionResponsePart:
				part := genai.NewPartFromFunctionResponse(v.FunctionResponse.Name, responseMap(v.FunctionResponse))
				part.FunctionResponse.ID = v.FunctionResponse.ID
				parts = append(parts, part)
			}
		}
		if len(parts) == 0 {
			continue
		}
		if last != nil && last.Role == role {
			last.Parts = append(last.Parts, parts...)
			continue
		}
		last = &genai.Content{Role: role, Parts: parts}
		contents = append(contents, last)
	}
	return contents
}

func responseMap(fr core.FunctionResponse) map[string]any {
	if fr.Error != "" {
		return map[string]any{"error": fr.Error}
	}
	if m, ok := fr.Response.(map[string]any); ok {
		return m
	}
	b, err := json.Marshal(fr.Response)
	if err == nil {
		var m map[string]any
		if json.Unmarshal(b, &m) == nil {
			return m
		}
	}
	return map[string]any{"result": fr.Response}
}

func toJSONSchema(params map[string]any) (*jsonschema.Schema, error) {
	if params == nil {
		return nil, nil
	}
	b, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}
	var s jsonschema.Schema
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func convSchema(schema *jsonschema.Schema) *genai.Schema {
	if schema == nil {
		return nil
	}

	enums := make([]string, 0, len(schema.Enum))
	for _, v := range schema.Enum {
		enums = append(enums, fmt.Sprintf("%v", v))
	}

	gs := genai.Schema{
		Format:      schema.Format,
		Description: schema.Description,
		Enum:        enums,
		Items:       convSchema(schema.Items),
		Required:    schema.Required,
	}
	if schema.Minimum != nil {
		gs.Minimum = schema.Minimum
	}
	if n := len(schema.Properties); n > 0 {
		gs.Properties = make(map[string]*genai.Schema, n)
		for k, prop := range schema.Properties {
			gs.Properties[k] = convSchema(prop)
		}
	}

	typ := schema.Type
	if typ == "" {
		for _, t := range schema.Types {
			if t != "null" {
				typ = t
				break
			}
		}
	}
	switch typ {
	case "object":
		gs.Type = genai.TypeObject
	case "array":
		gs.Type = genai.TypeArray
	case "string":
		gs.Type = genai.TypeString
	case "number":
		gs.Type = genai.TypeNumber
	case "integer":
		gs.Type = genai.TypeInteger
	case "boolean":
		gs.Type = genai.TypeBoolean
	}
	return &gs
}
