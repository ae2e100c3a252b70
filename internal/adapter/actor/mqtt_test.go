package actor

import (
	"testing"
	"time"

	"github.com/berfenger/chargectl/internal/core/domain"
	"github.com/berfenger/chargectl/internal/util"
	"github.com/berfenger/chargectl/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMQTTActor(t *testing.T) {

	cfg := util.LoadTestConfig()

	logger := zap.Must(zap.NewDevelopment())

	as := actorutil.NewActorSystemWithZapLogger(logger)

	context := as.Root

	es := eventstream.EventStream{}

	mqttActor := NewTestMQTTActor(&cfg, &es, logger)
	props := actor.PropsFromProducer(func() actor.Actor { return mqttActor })
	pid := context.Spawn(props)

	time.Sleep(500 * time.Millisecond)

	hcr, err := healthCheck(context, pid)
	require.NoError(t, err)
	assert.True(t, hcr.Healthy)

	es.Publish(domain.FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: domain.SensorUpdateEventMixIn{
			Id: domain.SENSOR_ID_BATTERY_ESTIMATED_SOC,
		},
		Value:    64.51,
		Decimals: 2,
	})
	es.Publish(domain.TextSensorUpdateEvent{
		SensorUpdateEventMixIn: domain.SensorUpdateEventMixIn{
			Id: domain.SENSOR_ID_CONTROL_STATE,
		},
		Value: "charging",
	})
	// not a sensor update, ignored
	es.Publish(domain.GatewayRoundTripEvent{Operation: "fetch_reading"})

	time.Sleep(500 * time.Millisecond)

	published := mqttActor.Published()
	require.Len(t, published, 2)
	assert.Equal(t, "chargectl/sensor/battery_estimated_soc/state", published[0].Topic)
	assert.Equal(t, "64.51", published[0].Payload)
	assert.Equal(t, "charging", published[1].Payload)

	context.Stop(pid)

	time.Sleep(200 * time.Millisecond)

	as.Shutdown()
}
