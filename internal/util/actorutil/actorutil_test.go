package actorutil

import (
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func collector(as *actor.ActorSystem) (*actor.PID, chan any) {
	ch := make(chan any, 16)
	pid := as.Root.Spawn(actor.PropsFromFunc(func(ctx actor.Context) {
		switch ctx.Message().(type) {
		case *actor.Started, *actor.Stopping, *actor.Stopped:
		default:
			ch <- ctx.Message()
		}
	}))
	return pid, ch
}

func receive(t *testing.T, ch chan any) any {
	select {
	case m := <-ch:
		return m
	case <-time.After(2 * time.Second):
		t.Fatal("no message received")
		return nil
	}
}

func TestBackgroundTaskTimeoutRecovers(t *testing.T) {

	as := NewActorSystemWithZapLogger(zap.NewNop())
	defer as.Shutdown()
	out, ch := collector(as)

	pid := as.Root.Spawn(actor.PropsFromFunc(func(ctx actor.Context) {
		if d, ok := ctx.Message().(time.Duration); ok {
			NewBackgroundTask(ctx, func() (*int, error) {
				time.Sleep(d)
				v := 1
				return &v, nil
			}).Recover(func(err error) int {
				return -1
			}).WithTimeout(100 * time.Millisecond).PipeTo(out)
		}
	}))

	as.Root.Send(pid, 10*time.Millisecond)
	assert.Equal(t, 1, receive(t, ch))

	as.Root.Send(pid, 500*time.Millisecond)
	assert.Equal(t, -1, receive(t, ch))
}

func TestMapBackgroundTask(t *testing.T) {

	as := NewActorSystemWithZapLogger(zap.NewNop())
	defer as.Shutdown()
	out, ch := collector(as)

	pid := as.Root.Spawn(actor.PropsFromFunc(func(ctx actor.Context) {
		if fail, ok := ctx.Message().(bool); ok {
			task := NewBackgroundTask(ctx, func() (*int, error) {
				if fail {
					return nil, errors.New("boom")
				}
				v := 42
				return &v, nil
			})
			MapBackgroundTask(task, func(v *int) *string {
				s := strconv.Itoa(*v)
				return &s
			}).Recover(func(err error) string {
				return err.Error()
			}).PipeTo(out)
		}
	}))

	as.Root.Send(pid, false)
	assert.Equal(t, "42", receive(t, ch))

	as.Root.Send(pid, true)
	assert.Equal(t, "boom", receive(t, ch))
}

func TestStashKeepsOrderAndSender(t *testing.T) {

	as := NewActorSystemWithZapLogger(zap.NewNop())
	defer as.Shutdown()

	stash := &Stash{}
	ready := false
	pid := as.Root.Spawn(actor.PropsFromFunc(func(ctx actor.Context) {
		switch msg := ctx.Message().(type) {
		case string:
			if msg == "ready" {
				ready = true
				stash.UnstashAll(ctx)
				return
			}
			if !ready {
				stash.Stash(ctx, msg)
				return
			}
			ctx.Respond(msg + "!")
		}
	}))

	f1 := as.Root.RequestFuture(pid, "a", 2*time.Second)
	f2 := as.Root.RequestFuture(pid, "b", 2*time.Second)
	as.Root.Send(pid, "ready")

	r1, err := f1.Result()
	require.NoError(t, err)
	r2, err := f2.Result()
	require.NoError(t, err)
	assert.Equal(t, "a!", r1)
	assert.Equal(t, "b!", r2)
	assert.Equal(t, 0, stash.Len())
}

type namedState string

func (s namedState) Name() string {
	return string(s)
}

func (s namedState) Receive(actor.Context) {
}

func TestActorWithStatesTracksName(t *testing.T) {

	assert := assert.New(t)

	s := ActorWithStates{Behavior: actor.NewBehavior()}
	assert.Equal("", s.StateName())

	s.Become(namedState("starting"))
	assert.Equal("starting", s.StateName())

	s.Become(namedState("idle"))
	s.BecomeStacked(namedState("awaitReading"))
	assert.Equal("awaitReading", s.StateName())
	s.BecomeStacked(namedState("awaitWrite"))
	assert.Equal("awaitWrite", s.StateName())

	s.UnbecomeStacked()
	s.UnbecomeStacked()
	assert.Equal("idle", s.StateName())
}
