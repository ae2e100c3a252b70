package actor

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/berfenger/chargectl/internal/adapter/gateway"
	"github.com/berfenger/chargectl/internal/core/domain"
	"github.com/berfenger/chargectl/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func spawnGatewayActor(t *testing.T, gw *gateway.FakeGateway, es *eventstream.EventStream) (*actor.ActorSystem, *actor.PID) {
	logger := zap.Must(zap.NewDevelopment())
	as := actorutil.NewActorSystemWithZapLogger(logger)
	props := actor.PropsFromProducer(func() actor.Actor {
		return NewGatewayActor(gw, 200*time.Millisecond, es, logger)
	})
	pid, err := as.Root.SpawnNamed(props, domain.ACTOR_ID_GATEWAY)
	require.NoError(t, err)
	return as, pid
}

func TestGatewayActorReading(t *testing.T) {

	gw := gateway.NewFakeGateway()
	gw.Inverter.SetRegister(domain.REGISTER_ID_BATTERY_SOC, 80)

	as, pid := spawnGatewayActor(t, gw, nil)
	defer as.Shutdown()

	result, err := as.Root.RequestFuture(pid, domain.GetReadingRequest{}, 2*time.Second).Result()
	require.NoError(t, err)
	resp := result.(domain.GetReadingResponse)

	require.False(t, resp.HasResponseError())
	assert.Equal(t, 80, resp.Reading.SoC)
	assert.InDelta(t, 53.2, resp.Reading.VoltageVolts, 1e-9)
}

func TestGatewayActorWrites(t *testing.T) {

	gw := gateway.NewFakeGateway()
	as, pid := spawnGatewayActor(t, gw, nil)
	defer as.Shutdown()

	result, err := as.Root.RequestFuture(pid, domain.SetOutputPriorityRequest{Priority: domain.OutputPriorityBatteryFirst}, 2*time.Second).Result()
	require.NoError(t, err)
	assert.False(t, result.(domain.SetOutputPriorityResponse).HasResponseError())

	result, err = as.Root.RequestFuture(pid, domain.SetChargeCurrentRequest{Amps: 45}, 2*time.Second).Result()
	require.NoError(t, err)
	assert.False(t, result.(domain.SetChargeCurrentResponse).HasResponseError())

	assert.Equal(t, 45.0, gw.Inverter.ChargeCurrent())
	assert.Equal(t, 2, gw.Inverter.Writes())

	gw.SetFailWrites(true)
	result, err = as.Root.RequestFuture(pid, domain.SetChargeCurrentRequest{Amps: 30}, 2*time.Second).Result()
	require.NoError(t, err)
	resp := result.(domain.SetChargeCurrentResponse)
	assert.True(t, errors.Is(resp.GetResponseError(), domain.ErrActuatorRejected))
	assert.Equal(t, 45.0, gw.Inverter.ChargeCurrent())
}

func TestGatewayActorTimeout(t *testing.T) {

	gw := gateway.NewFakeGateway()
	gw.SetDelay(2 * time.Second)

	es := &eventstream.EventStream{}
	var mu sync.Mutex
	var roundTrips []domain.GatewayRoundTripEvent
	es.Subscribe(func(evt any) {
		if rt, ok := evt.(domain.GatewayRoundTripEvent); ok {
			mu.Lock()
			roundTrips = append(roundTrips, rt)
			mu.Unlock()
		}
	})

	as, pid := spawnGatewayActor(t, gw, es)
	defer as.Shutdown()

	start := time.Now()
	result, err := as.Root.RequestFuture(pid, domain.GetReadingRequest{}, 2*time.Second).Result()
	require.NoError(t, err)
	assert.True(t, result.(domain.GetReadingResponse).HasResponseError())
	assert.Less(t, time.Since(start), time.Second, "timeout must bound the round trip")

	time.Sleep(100 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	require.Len(t, roundTrips, 1)
	assert.Equal(t, GATEWAY_OPERATION_FETCH, roundTrips[0].Operation)
	assert.True(t, roundTrips[0].Failed)
}

func TestGatewayActorHealth(t *testing.T) {

	gw := gateway.NewFakeGateway()
	gw.Inverter.SetOffline(true)

	as, pid := spawnGatewayActor(t, gw, nil)
	defer as.Shutdown()

	hcr, err := healthCheck(as.Root, pid)
	require.NoError(t, err)
	assert.True(t, hcr.Healthy)

	for i := 0; i < gatewayUnhealthyAfter; i++ {
		_, err := as.Root.RequestFuture(pid, domain.GetReadingRequest{}, 2*time.Second).Result()
		require.NoError(t, err)
	}

	hcr, err = healthCheck(as.Root, pid)
	require.NoError(t, err)
	assert.False(t, hcr.Healthy, "gateway offline for too long")

	gw.Inverter.SetOffline(false)
	_, err = as.Root.RequestFuture(pid, domain.GetReadingRequest{}, 2*time.Second).Result()
	require.NoError(t, err)

	hcr, err = healthCheck(as.Root, pid)
	require.NoError(t, err)
	assert.True(t, hcr.Healthy)
}

func healthCheck(ctx *actor.RootContext, pid *actor.PID) (*domain.ActorHealthResponse, error) {
	resp, err := ctx.RequestFuture(pid, domain.ActorHealthRequest{}, 2*time.Second).Result()
	if err != nil {
		return nil, err
	}
	hcr, ok := resp.(domain.ActorHealthResponse)
	if !ok {
		return nil, errors.New("unexpected response type")
	}
	return &hcr, nil
}
