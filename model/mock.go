package model

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/seobando/agentkit/core"
)

// MockModel is a scripted in-memory Model for tests and offline demos.
//
// Responses are chosen in this order: the handler, then the FIFO queue, then
// a canned reply keyed by the latest user text, then an echo.
type MockModel struct {
	info      Info
	mu        sync.Mutex
	responses map[string]string
	queue     []Response
	handler   func(Request) (Response, error)
	requests  []Request
}

// NewMockModel constructs a MockModel with tool support enabled.
func NewMockModel(name, provider string) *MockModel {
	return &MockModel{
		info:      Info{Name: name, Provider: provider, SupportsTools: true},
		responses: map[string]string{},
	}
}

// AddResponse registers a canned reply for a prompt.
func (m *MockModel) AddResponse(prompt, response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[prompt] = response
}

// Enqueue appends responses returned in order regardless of the input.
func (m *MockModel) Enqueue(resps ...Response) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, resps...)
}

// EnqueueText queues plain text replies.
func (m *MockModel) EnqueueText(texts ...string) {
	for _, t := range texts {
		m.Enqueue(NewTextResponse(t))
	}
}

// EnqueueFunctionCall queues a reply calling name with args.
func (m *MockModel) EnqueueFunctionCall(id, name string, args map[string]any) {
	b, _ := json.Marshal(args)
	m.Enqueue(NewFunctionCallResponse(core.FunctionCall{ID: id, Name: name, Arguments: string(b)}))
}

// SetHandler installs a function computing every response.
func (m *MockModel) SetHandler(h func(Request) (Response, error)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handler = h
}

// Requests returns the requests received so far.
func (m *MockModel) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Request(nil), m.requests...)
}

// Info implements Model.
func (m *MockModel) Info() Info { return m.info }

func (m *MockModel) next(req Request) (Response, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	handler := m.handler
	if handler == nil && len(m.queue) > 0 {
		r := m.queue[0]
		m.queue = m.queue[1:]
		m.mu.Unlock()
		return r, nil
	}
	input := req.LastUserText()
	canned, ok := m.responses[input]
	m.mu.Unlock()

	if handler != nil {
		return handler(req)
	}
	if len(req.Contents) == 0 {
		return Response{}, fmt.Errorf("no contents provided")
	}
	if ok {
		return NewTextResponse(canned), nil
	}
	return NewTextResponse(fmt.Sprintf("Mock response to: %s", input)), nil
}

// Generate implements Model. With req.Stream set, text replies are preceded by
// one partial chunk per word.
func (m *MockModel) Generate(ctx context.Context, req Request) (<-chan Response, <-chan error) {
	respCh := make(chan Response, 16)
	errCh := make(chan error, 1)

	go func() {
		defer close(respCh)
		defer close(errCh)

		resp, err := m.next(req)
		if err != nil {
			errCh <- err
			return
		}
		if resp.FinishReason == "" {
			resp.FinishReason = FinishStop
		}
		if req.Stream {
			if text := resp.Content.Text(); text != "" {
				words := strings.Fields(text)
				for i, w := range words {
					if i < len(words)-1 {
						w += " "
					}
					chunk := Response{Partial: true, Content: *core.NewTextContent(core.RoleAssistant, w)}
					select {
					case <-ctx.Done():
						errCh <- ctx.Err()
						return
					case respCh <- chunk:
					}
				}
			}
		}
		select {
		case <-ctx.Done():
			errCh <- ctx.Err()
		case respCh <- resp:
		}
	}()
	return respCh, errCh
}
