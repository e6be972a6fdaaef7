package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestContext(t *testing.T) (*InvocationContext, chan Event, chan struct{}) {
	t.Helper()
	emit := make(chan Event, 8)
	resume := make(chan struct{}, 8)
	ic := NewInvocationContext(context.Background(), InvocationOptions{
		InvocationID: "inv-1",
		Agent:        AgentInfo{Name: "tester", Type: "model"},
		Session:      NewSession(SessionKey{AppName: "app", UserID: "u", SessionID: "s"}),
		Emit:         emit,
		Resume:       resume,
	})
	return ic, emit, resume
}

func TestInvocationContext_EmitEventMergesStagedState(t *testing.T) {
	ic, emit, resume := newTestContext(t)
	ic.SetState("color", "blue")
	ic.SetState("temp:step", 1)
	resume <- struct{}{}

	require.NoError(t, ic.EmitEvent(NewMessageEvent("", "", "hello")))

	ev := <-emit
	assert.Equal(t, "tester", ev.Author)
	assert.Equal(t, "inv-1", ev.InvocationID)
	assert.Equal(t, map[string]any{"color": "blue"}, ev.Actions.StateDelta)

	v, ok := ic.GetState("color")
	assert.True(t, ok)
	assert.Equal(t, "blue", v)

	v, ok = ic.GetState("temp:step")
	assert.True(t, ok, "temp keys stay visible for the invocation")
	assert.Equal(t, 1, v)
	assert.Len(t, ic.Session.GetEvents(), 1)
}

func TestInvocationContext_PartialEventsKeepStagedState(t *testing.T) {
	ic, emit, _ := newTestContext(t)
	ic.SetState("k", "v")

	ev := NewMessageEvent("", "", "chunk")
	ev.Partial = true
	require.NoError(t, ic.EmitEvent(ev))

	got := <-emit
	assert.Nil(t, got.Actions.StateDelta)
	assert.Equal(t, "v", ic.StateDelta["k"])
}

func TestInvocationContext_EmitWaitsForResume(t *testing.T) {
	ic, emit, resume := newTestContext(t)

	done := make(chan error, 1)
	go func() { done <- ic.EmitEvent(NewMessageEvent("", "", "x")) }()

	<-emit
	select {
	case <-done:
		t.Fatal("emit returned before resume")
	case <-time.After(20 * time.Millisecond):
	}
	resume <- struct{}{}
	require.NoError(t, <-done)
}

func TestInvocationContext_EmitCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ic := NewInvocationContext(ctx, InvocationOptions{Emit: make(chan Event)})
	cancel()
	err := ic.EmitEvent(NewMessageEvent("", "", "x"))
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestInvocationContext_CloneIsolatesDelta(t *testing.T) {
	ic, _, _ := newTestContext(t)
	ic.SetState("a", 1)

	c := ic.WithBranch("root.child")
	c.SetState("b", 2)

	_, ok := ic.GetState("b")
	assert.False(t, ok)
	assert.Equal(t, "root.child", c.Branch)
	assert.Equal(t, 1, c.StateDelta["a"])

	child := ic.NewChildContext(nil, make(chan Event), nil, "x")
	assert.Empty(t, child.StateDelta)
	assert.Equal(t, "x", child.Branch)
}

func TestToolContext_StateIsLocalToCall(t *testing.T) {
	ic, _, _ := newTestContext(t)
	ic.Session.ApplyStateDelta(map[string]any{"count": 1})

	tc := NewToolContext(ic, "call-1")
	v, _ := tc.GetState("count")
	assert.Equal(t, 1, v)

	tc.SetState("count", 2)
	tc.TransferToAgent("helper")
	tc.Escalate()

	v, _ = tc.GetState("count")
	assert.Equal(t, 2, v)
	_, staged := ic.StateDelta["count"]
	assert.False(t, staged)
	assert.Equal(t, "helper", tc.Actions().TransferToAgent)
	assert.True(t, tc.Actions().Escalate)
	assert.Equal(t, 2, tc.State()["count"])
}

func TestToolBatch_SerializesReadModifyWrite(t *testing.T) {
	ic, _, _ := newTestContext(t)
	ic.Session.ApplyStateDelta(map[string]any{"count": 0})
	batch := NewToolBatch()

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tc := NewBatchToolContext(ic, fmt.Sprintf("call-%d", i), batch)
			defer tc.Release()
			v, _ := tc.GetState("count")
			time.Sleep(time.Millisecond)
			tc.SetState("count", v.(int)+1)
			tc.SetState(fmt.Sprintf("seen-%d", i), true)
		}()
	}
	wg.Wait()

	delta := batch.StateDelta()
	assert.Equal(t, 20, delta["count"])
	assert.Len(t, delta, 21)
	_, staged := ic.StateDelta["count"]
	assert.False(t, staged)
}

func TestToolContext_ReleaseWithoutStateAccess(t *testing.T) {
	ic, _, _ := newTestContext(t)
	batch := NewToolBatch()

	idle := NewBatchToolContext(ic, "call-1", batch)
	idle.Release()
	idle.Release()

	tc := NewBatchToolContext(ic, "call-2", batch)
	tc.SetState("k", "v")
	tc.Release()
	assert.Equal(t, map[string]any{"k": "v"}, batch.StateDelta())
	assert.Nil(t, NewToolBatch().StateDelta())
}

func TestModelLimiter(t *testing.T) {
	ml := NewModelLimiter(2)
	require.NoError(t, ml.Increment())
	require.NoError(t, ml.Increment())
	err := ml.Increment()
	assert.ErrorIs(t, err, ErrModelCallLimitExceeded)
	assert.Equal(t, 3, ml.Count())

	unlimited := NewModelLimiter(0)
	assert.Equal(t, -1, unlimited.Remaining())
}
