package actor

import (
	"errors"
	"fmt"
	"time"

	"github.com/berfenger/chargectl/internal/core/domain"
	"github.com/berfenger/chargectl/internal/core/events"
	"github.com/berfenger/chargectl/internal/core/port"
	. "github.com/berfenger/chargectl/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/asynkron/protoactor-go/scheduler"
	"go.uber.org/zap"
)

// ChargeControlActor owns the ControllerState and runs one control tick at
// a time: refresh target, fetch telemetry, decide, write outputs.
type ChargeControlActor struct {
	ActorWithStates
	scheduler      *scheduler.TimerScheduler
	cancelTick     scheduler.CancelFunc
	stash          *Stash
	gatewayActor   *actor.PID
	targetStore    port.DailyTargetStore
	logic          port.ChargeControlLogic
	eventStream    *eventstream.EventStream
	tickPeriod     time.Duration
	gatewayTimeout time.Duration
	defaultTarget  domain.DailyTarget
	clock          func() time.Time

	controller domain.ControllerState
	ticks      uint64
	lastResult *domain.TickResult
	tickStart  time.Time
	pending    []pendingWrite

	logger *zap.Logger
}

type ChargeControlParams struct {
	TickPeriod     time.Duration
	GatewayTimeout time.Duration
	DefaultTarget  domain.DailyTarget
	// Clock defaults to time.Now
	Clock func() time.Time
}

type controlTick struct {
}

type pendingWrite struct {
	priority *domain.OutputPriority
	current  *float64
}

func NewChargeControlActor(params ChargeControlParams, gatewayActor *actor.PID, targetStore port.DailyTargetStore,
	logic port.ChargeControlLogic, eventStream *eventstream.EventStream, logger *zap.Logger) *ChargeControlActor {
	clock := params.Clock
	if clock == nil {
		clock = time.Now
	}
	act := &ChargeControlActor{
		gatewayActor:   gatewayActor,
		targetStore:    targetStore,
		logic:          logic,
		eventStream:    eventStream,
		tickPeriod:     params.TickPeriod,
		gatewayTimeout: params.GatewayTimeout,
		defaultTarget:  params.DefaultTarget,
		clock:          clock,
		stash:          &Stash{},
		logger:         ActorLogger(domain.ACTOR_ID_CHARGE_CONTROL, logger),
		ActorWithStates: ActorWithStates{
			Behavior: actor.NewBehavior(),
		},
	}
	act.Become(CCStartingState{
		actor: act,
	})
	return act
}

func (state *ChargeControlActor) Receive(context actor.Context) {
	state.Behavior.Receive(context)
}

// Starting state

type CCStartingState struct {
	ActorState
	actor *ChargeControlActor
}

func (state CCStartingState) Name() string {
	return "starting"
}

func (state CCStartingState) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.actor.logger.Debug("charge_control@starting started")

		state.actor.scheduler = scheduler.NewTimerScheduler(ctx)

		// a (re)started actor begins from defaults, the target file wins if readable
		target := state.actor.defaultTarget
		if t, err := state.actor.targetStore.Load(); err != nil {
			state.actor.logger.Warn("charge_control@starting: daily target unreadable, using defaults",
				zap.Error(err), zap.Any("target", target))
		} else {
			target = *t
		}
		state.actor.controller = domain.NewControllerState(target)

		state.actor.Become(CCIdleState{
			actor: state.actor,
		})
		ctx.Send(ctx.Self(), controlTick{})
		state.actor.stash.UnstashAll(ctx)
	case *actor.Restarting:
		state.actor.stopTicking()
	default:
		state.actor.logger.Debug("charge_control@starting: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.actor.stash.Stash(ctx, msg)
	}
}

// Idle state, waiting for the next tick

type CCIdleState struct {
	ActorState
	actor *ChargeControlActor
}

func (state CCIdleState) Name() string {
	return "idle"
}

func (state CCIdleState) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.actor.logger.Debug("charge_control@idle: ActorHealthRequest")
		ctx.Respond(state.actor.health())
	case domain.GetControlStatusRequest:
		ForRequest(msg).Respond(ctx, state.actor.status())
	case controlTick:
		state.actor.logger.Debug("charge_control@idle: controlTick")
		state.actor.tickStart = state.actor.clock()
		state.actor.refreshTarget()
		state.actor.BecomeStacked(CCAwaitReadingState{
			actor: state.actor,
		}.OnEnterAction(ctx))
	case domain.GetReadingResponse, domain.SetChargeCurrentResponse, domain.SetOutputPriorityResponse:
		// late answer of a round trip that already timed out
		state.actor.logger.Debug("charge_control@idle: discard late response", zap.String("type", fmt.Sprintf("%T", msg)))
	case *actor.Stopping:
		state.actor.stopTicking()
	default:
		state.actor.logger.Debug("charge_control@idle: recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

// Await telemetry state

type CCAwaitReadingState struct {
	ActorState
	actor *ChargeControlActor
}

func (state CCAwaitReadingState) Name() string {
	return "awaitReading"
}

func (state CCAwaitReadingState) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.GetReadingResponse:
		ctx.SetReceiveTimeout(0)
		state.actor.UnbecomeStacked()
		state.actor.onReading(ctx, msg)
	case *actor.ReceiveTimeout:
		ctx.SetReceiveTimeout(0)
		state.actor.logger.Debug("charge_control@awaitReading: ReceiveTimeout")
		state.actor.UnbecomeStacked()
		state.actor.onReading(ctx, domain.GetReadingResponse{
			ActorResponseMixIn: domain.ActorResponseMixIn{
				ResponseError: errors.New("receive timeout"),
			},
		})
	case domain.ActorHealthRequest:
		ctx.Respond(state.actor.health())
	case domain.GetControlStatusRequest:
		ForRequest(msg).Respond(ctx, state.actor.status())
	case *actor.Stopping:
		state.actor.stopTicking()
	default:
		state.actor.logger.Debug("charge_control@awaitReading: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.actor.stash.Stash(ctx, msg)
	}
}

func (state CCAwaitReadingState) OnEnterAction(ctx actor.Context) CCAwaitReadingState {
	PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.actor.gatewayActor,
		domain.GetReadingRequest{}, state.actor.futureTimeout()),
		func(err error) any {
			return domain.GetReadingResponse{
				ActorResponseMixIn: domain.ActorResponseMixIn{
					ResponseError: err,
				},
			}
		})
	ctx.SetReceiveTimeout(state.actor.receiveTimeout())
	return state
}

// Await actuator write state

type CCAwaitWriteState struct {
	ActorState
	actor *ChargeControlActor
	write pendingWrite
}

func (state CCAwaitWriteState) Name() string {
	return "awaitWrite"
}

func (state CCAwaitWriteState) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.SetOutputPriorityResponse:
		ctx.SetReceiveTimeout(0)
		if msg.HasResponseError() {
			state.actor.logger.Warn("charge_control@awaitWrite: output priority not applied, retrying next tick",
				zap.Stringer("priority", msg.Priority), zap.Error(msg.GetResponseError()))
		} else {
			state.actor.logger.Info("charge_control@awaitWrite: output priority applied", zap.Stringer("priority", msg.Priority))
			state.actor.controller.Applied.ConfirmPriority(msg.Priority)
		}
		state.actor.UnbecomeStacked()
		state.actor.nextWrite(ctx)
	case domain.SetChargeCurrentResponse:
		ctx.SetReceiveTimeout(0)
		if msg.HasResponseError() {
			state.actor.logger.Warn("charge_control@awaitWrite: charge current not applied, retrying next tick",
				zap.Float64("amps", msg.Amps), zap.Error(msg.GetResponseError()))
		} else {
			state.actor.logger.Info("charge_control@awaitWrite: charge current applied", zap.Float64("amps", msg.Amps))
			state.actor.controller.Applied.ConfirmChargeCurrent(msg.Amps)
		}
		state.actor.UnbecomeStacked()
		state.actor.nextWrite(ctx)
	case *actor.ReceiveTimeout:
		ctx.SetReceiveTimeout(0)
		state.actor.logger.Warn("charge_control@awaitWrite: ReceiveTimeout, retrying next tick")
		state.actor.UnbecomeStacked()
		state.actor.nextWrite(ctx)
	case domain.ActorHealthRequest:
		ctx.Respond(state.actor.health())
	case domain.GetControlStatusRequest:
		ForRequest(msg).Respond(ctx, state.actor.status())
	case *actor.Stopping:
		state.actor.stopTicking()
	default:
		state.actor.logger.Debug("charge_control@awaitWrite: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.actor.stash.Stash(ctx, msg)
	}
}

func (state CCAwaitWriteState) OnEnterAction(ctx actor.Context) CCAwaitWriteState {
	switch {
	case state.write.priority != nil:
		priority := *state.write.priority
		PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.actor.gatewayActor,
			domain.SetOutputPriorityRequest{Priority: priority}, state.actor.futureTimeout()),
			func(err error) any {
				return domain.SetOutputPriorityResponse{
					ActorResponseMixIn: domain.ActorResponseMixIn{ResponseError: err},
					Priority:           priority,
				}
			})
	case state.write.current != nil:
		amps := *state.write.current
		PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.actor.gatewayActor,
			domain.SetChargeCurrentRequest{Amps: amps}, state.actor.futureTimeout()),
			func(err error) any {
				return domain.SetChargeCurrentResponse{
					ActorResponseMixIn: domain.ActorResponseMixIn{ResponseError: err},
					Amps:               amps,
				}
			})
	}
	ctx.SetReceiveTimeout(state.actor.receiveTimeout())
	return state
}

// Tick phases

func (state *ChargeControlActor) refreshTarget() {
	target, err := state.targetStore.Load()
	if err != nil {
		state.logger.Warn("charge_control@tick: daily target unreadable, keeping previous",
			zap.Error(err), zap.Any("target", state.controller.Target))
		return
	}
	state.controller.Target = *target
}

func (state *ChargeControlActor) onReading(ctx actor.Context, msg domain.GetReadingResponse) {
	var reading *domain.Reading
	if msg.HasResponseError() {
		state.logger.Warn("charge_control@tick: telemetry fetch failed", zap.Error(msg.GetResponseError()))
	} else {
		reading = msg.Reading
	}

	result := state.logic.Tick(&state.controller, state.clock(), reading)

	if result.TargetThrottled {
		// best effort, a failed save is superseded by the next target refresh
		if err := state.targetStore.Save(state.controller.Target); err != nil {
			state.logger.Error("charge_control@tick: could not persist throttled daily target", zap.Error(err))
		}
	}

	state.lastResult = &result
	state.pending = state.pending[:0]
	if result.Writes.Priority != nil {
		state.pending = append(state.pending, pendingWrite{priority: result.Writes.Priority})
	}
	if result.Writes.ChargeCurrent != nil {
		state.pending = append(state.pending, pendingWrite{current: result.Writes.ChargeCurrent})
	}
	state.nextWrite(ctx)
}

// nextWrite issues the pending writes one at a time, priority first.
func (state *ChargeControlActor) nextWrite(ctx actor.Context) {
	if len(state.pending) == 0 {
		state.finishTick(ctx)
		return
	}
	w := state.pending[0]
	state.pending = state.pending[1:]
	state.BecomeStacked(CCAwaitWriteState{
		actor: state,
		write: w,
	}.OnEnterAction(ctx))
}

func (state *ChargeControlActor) finishTick(ctx actor.Context) {
	state.ticks++
	if state.lastResult != nil {
		state.publish(*state.lastResult)
	}

	elapsed := state.clock().Sub(state.tickStart)
	delay := max(0, state.tickPeriod-elapsed)
	state.logger.Debug("charge_control@tick: done", zap.Duration("elapsed", elapsed), zap.Duration("next_in", delay), zap.String("state", state.StateName()))
	state.cancelTick = state.scheduler.RequestOnce(delay, ctx.Self(), controlTick{})

	state.stash.UnstashAll(ctx)
}

func (state *ChargeControlActor) publish(result domain.TickResult) {
	if state.eventStream == nil {
		return
	}
	state.eventStream.Publish(domain.ControlTickEvent{Result: result})
	for _, ev := range events.TickResultToUpdateEvents(result) {
		state.eventStream.Publish(ev)
	}
}

func (state *ChargeControlActor) stopTicking() {
	if state.cancelTick != nil {
		state.cancelTick()
		state.cancelTick = nil
	}
}

func (state *ChargeControlActor) futureTimeout() time.Duration {
	return state.gatewayTimeout + time.Second
}

func (state *ChargeControlActor) receiveTimeout() time.Duration {
	return state.gatewayTimeout + 1500*time.Millisecond
}

func (state *ChargeControlActor) health() domain.ActorHealthResponse {
	return domain.ActorHealthResponse{
		Id:      domain.ACTOR_ID_CHARGE_CONTROL,
		Healthy: true,
		State:   state.StateName(),
	}
}

func (state *ChargeControlActor) status() domain.GetControlStatusResponse {
	resp := domain.GetControlStatusResponse{
		Ticks: state.ticks,
	}
	if state.lastResult != nil {
		r := *state.lastResult
		resp.Result = &r
	}
	return resp
}
