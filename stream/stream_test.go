package stream

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/hupe1980/appforge/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func source(events ...core.StreamEvent) <-chan core.StreamEvent {
	ch := make(chan core.StreamEvent, len(events))
	for _, ev := range events {
		ch <- ev
	}
	close(ch)
	return ch
}

func sample() []core.StreamEvent {
	return []core.StreamEvent{
		core.NewAgentStartEvent(core.RoleCoordinator, "Coordinator"),
		core.NewTextDeltaEvent(core.RoleCoordinator, "hi"),
		core.NewAgentEndEvent(core.RoleCoordinator, "Coordinator", core.ReasonCompleted),
		core.NewDoneEvent(),
	}
}

func TestTee_ForwardsInOrder(t *testing.T) {
	rec := &Recorder{}
	var buf bytes.Buffer
	failing := SinkFunc(func(context.Context, core.StreamEvent) error { return errors.New("broken") })

	ctx := context.Background()
	out := Tee(ctx, source(sample()...), []Sink{failing, rec, NewJSONWriter(&buf)})

	got, err := Collect(ctx, out)
	require.NoError(t, err)

	assert.Equal(t, sample(), got)
	assert.Equal(t, sample(), rec.Events())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.JSONEq(t, `{"type":"done"}`, lines[3])
}

func TestTee_StopsForwardingOnCancel(t *testing.T) {
	in := make(chan core.StreamEvent)
	ctx, cancel := context.WithCancel(context.Background())
	rec := &Recorder{}

	out := Tee(ctx, in, []Sink{rec})

	in <- core.NewDoneEvent()
	<-out
	cancel()

	// the producer must never block once the consumer is gone
	for i := 0; i < 3; i++ {
		in <- core.NewTextDeltaEvent(core.RoleCoordinator, "x")
	}
	close(in)

	for range out {
	}
	assert.LessOrEqual(t, len(rec.Events()), 2)
}

func TestCollect_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Collect(ctx, make(chan core.StreamEvent))
	assert.ErrorIs(t, err, context.Canceled)
}
