package actor

import (
	"context"
	"fmt"
	"time"

	"github.com/berfenger/chargectl/internal/core/domain"
	"github.com/berfenger/chargectl/internal/core/port"
	"github.com/berfenger/chargectl/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"go.uber.org/zap"
)

const (
	GATEWAY_OPERATION_FETCH        = "fetch_reading"
	GATEWAY_OPERATION_SET_CURRENT  = "set_charge_current"
	GATEWAY_OPERATION_SET_PRIORITY = "set_output_priority"

	// consecutive failed round trips before health turns red
	gatewayUnhealthyAfter = 5
)

// GatewayActor serializes every round trip to the inverter gateway. A
// request is answered before the next one is taken from the stash.
type GatewayActor struct {
	behavior    actor.Behavior
	stash       *actorutil.Stash
	gateway     port.Gateway
	timeout     time.Duration
	eventStream *eventstream.EventStream
	failures    int
	logger      *zap.Logger
}

type backgroundTaskResult struct {
	message any
	replyTo *actor.PID
}

func NewGatewayActor(gateway port.Gateway, timeout time.Duration, eventStream *eventstream.EventStream, logger *zap.Logger) *GatewayActor {
	act := &GatewayActor{
		gateway:     gateway,
		timeout:     timeout,
		eventStream: eventStream,
		behavior:    actor.NewBehavior(),
		stash:       &actorutil.Stash{},
		logger:      actorutil.ActorLogger(domain.ACTOR_ID_GATEWAY, logger),
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *GatewayActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *GatewayActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("gateway@starting started")
		if err := state.gateway.Open(); err != nil {
			state.logger.Error("gateway@starting open failed", zap.Error(err))
			panic(err)
		}
		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	case *actor.Restarting:
		state.gateway.Close()
	default:
		state.logger.Debug("gateway@starting: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *GatewayActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.logger.Debug("gateway@default: ActorHealthRequest")
		ctx.Respond(state.health("idle"))
	case domain.GetReadingRequest:
		state.logger.Debug("gateway@default: GetReadingRequest")
		runGatewayTask(state, ctx, GATEWAY_OPERATION_FETCH, actorutil.ForRequest(msg).ReplyTo(ctx),
			func(callCtx context.Context) (*domain.GetReadingResponse, error) {
				reading, err := state.gateway.FetchReading(callCtx)
				if err != nil {
					return nil, err
				}
				return &domain.GetReadingResponse{Reading: reading}, nil
			},
			func(err error) domain.GetReadingResponse {
				return domain.GetReadingResponse{
					ActorResponseMixIn: domain.ActorResponseMixIn{ResponseError: err},
				}
			})
	case domain.SetChargeCurrentRequest:
		state.logger.Debug("gateway@default: SetChargeCurrentRequest", zap.Float64("amps", msg.Amps))
		runGatewayTask(state, ctx, GATEWAY_OPERATION_SET_CURRENT, actorutil.ForRequest(msg).ReplyTo(ctx),
			func(callCtx context.Context) (*domain.SetChargeCurrentResponse, error) {
				if err := state.gateway.SetChargeCurrent(callCtx, msg.Amps); err != nil {
					return nil, err
				}
				return &domain.SetChargeCurrentResponse{Amps: msg.Amps}, nil
			},
			func(err error) domain.SetChargeCurrentResponse {
				return domain.SetChargeCurrentResponse{
					ActorResponseMixIn: domain.ActorResponseMixIn{ResponseError: err},
					Amps:               msg.Amps,
				}
			})
	case domain.SetOutputPriorityRequest:
		state.logger.Debug("gateway@default: SetOutputPriorityRequest", zap.Stringer("priority", msg.Priority))
		runGatewayTask(state, ctx, GATEWAY_OPERATION_SET_PRIORITY, actorutil.ForRequest(msg).ReplyTo(ctx),
			func(callCtx context.Context) (*domain.SetOutputPriorityResponse, error) {
				if err := state.gateway.SetOutputPriority(callCtx, msg.Priority); err != nil {
					return nil, err
				}
				return &domain.SetOutputPriorityResponse{Priority: msg.Priority}, nil
			},
			func(err error) domain.SetOutputPriorityResponse {
				return domain.SetOutputPriorityResponse{
					ActorResponseMixIn: domain.ActorResponseMixIn{ResponseError: err},
					Priority:           msg.Priority,
				}
			})
	case *actor.Stopping:
		state.gateway.Close()
	default:
		state.logger.Debug("gateway@default default recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *GatewayActor) WaitingGateway(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case backgroundTaskResult:
		state.logger.Debug("gateway@waiting backgroundTaskResult", zap.String("type", fmt.Sprintf("%T", msg.message)))
		if resp, ok := msg.message.(domain.ActorResponse); ok && resp.HasResponseError() {
			state.failures++
			state.logger.Warn("gateway@waiting round trip failed",
				zap.Int("consecutive_failures", state.failures), zap.Error(resp.GetResponseError()))
		} else {
			state.failures = 0
		}
		if msg.replyTo != nil {
			ctx.Send(msg.replyTo, msg.message)
		}
		state.behavior.UnbecomeStacked()
		state.stash.UnstashAll(ctx)
	case domain.ActorHealthRequest:
		ctx.Respond(state.health("waiting"))
	case *actor.Stopping:
		state.gateway.Close()
	default:
		state.logger.Debug("gateway@waiting stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *GatewayActor) health(stateName string) domain.ActorHealthResponse {
	return domain.ActorHealthResponse{
		Id:      domain.ACTOR_ID_GATEWAY,
		Healthy: state.failures < gatewayUnhealthyAfter,
		State:   stateName,
	}
}

func (state *GatewayActor) publishRoundTrip(operation string, elapsed time.Duration, err error) {
	if state.eventStream == nil {
		return
	}
	state.eventStream.Publish(domain.GatewayRoundTripEvent{
		Operation: operation,
		Seconds:   elapsed.Seconds(),
		Failed:    err != nil,
	})
}

// runGatewayTask performs one bounded gateway call and pipes the response,
// or the recovered error response, back to the actor.
func runGatewayTask[T any](state *GatewayActor, ctx actor.Context, operation string, sender *actor.PID,
	call func(context.Context) (*T, error), recoverFn func(error) T) {

	task := func() (*T, error) {
		callCtx, cancel := context.WithTimeout(context.Background(), state.timeout)
		defer cancel()
		start := time.Now()
		res, err := call(callCtx)
		state.publishRoundTrip(operation, time.Since(start), err)
		return res, err
	}

	actorutil.MapBackgroundTask(actorutil.NewBackgroundTask(ctx, task),
		mapTaskResult[T](sender)).Recover(func(err error) backgroundTaskResult {
		return backgroundTaskResult{
			message: recoverFn(err),
			replyTo: sender,
		}
	}).WithTimeout(state.timeout + 500*time.Millisecond).PipeTo(ctx.Self())
	state.behavior.BecomeStacked(state.WaitingGateway)
}

func mapTaskResult[T any](sender *actor.PID) func(t *T) *backgroundTaskResult {
	return func(t *T) *backgroundTaskResult {
		return &backgroundTaskResult{
			message: *t,
			replyTo: sender,
		}
	}
}
