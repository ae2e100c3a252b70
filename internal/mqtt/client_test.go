package mqtt

import (
	"testing"

	"github.com/berfenger/chargectl/internal/core/domain"
	"github.com/berfenger/chargectl/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient() *MQTTClient {
	cfg := util.LoadTestConfig()
	return CreateMQTTClient(&cfg, OptsFromConfig(&cfg), nil, nil)
}

func TestOptsFromConfig(t *testing.T) {

	cfg := util.LoadTestConfig()
	cfg.MQTT.Username = "user"
	cfg.MQTT.Password = "pass"
	opts := OptsFromConfig(&cfg)

	assert.Equal(t, "chargectl/bridge/state", opts.WillTopic)
	assert.Equal(t, []byte(MQTT_PAYLOAD_OFFLINE), opts.WillPayload)
	assert.True(t, opts.WillRetained)
	assert.Equal(t, "user", opts.Username)
	require.Len(t, opts.Servers, 1)
	assert.Equal(t, "localhost:1883", opts.Servers[0].Host)
}

func TestSensorUpdateMessage(t *testing.T) {

	assert := assert.New(t)
	c := testClient()

	msg, err := c.SensorUpdateMessage(domain.FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: domain.SensorUpdateEventMixIn{Id: domain.SENSOR_ID_BATTERY_ESTIMATED_SOC},
		Value:                  85.494,
		Decimals:               2,
	})
	assert.NoError(err)
	assert.Equal("chargectl/sensor/battery_estimated_soc/state", msg.Topic)
	assert.Equal("85.49", msg.Payload)

	msg, err = c.SensorUpdateMessage(domain.BinarySensorUpdateEvent{
		SensorUpdateEventMixIn: domain.SensorUpdateEventMixIn{Id: domain.SENSOR_ID_TELEMETRY_OK},
		Value:                  true,
	})
	assert.NoError(err)
	assert.Equal("chargectl/binary_sensor/telemetry_ok/state", msg.Topic)
	assert.Equal(MQTT_PAYLOAD_ON, msg.Payload)

	msg, err = c.SensorUpdateMessage(domain.TextSensorUpdateEvent{
		SensorUpdateEventMixIn: domain.SensorUpdateEventMixIn{Id: domain.SENSOR_ID_CONTROL_STATE},
		Value:                  "charging",
	})
	assert.NoError(err)
	assert.Equal("charging", msg.Payload)

	msg, err = c.SensorUpdateMessage(domain.BridgeStateUpdateEvent{Value: false})
	assert.NoError(err)
	assert.Equal("chargectl/bridge/state", msg.Topic)
	assert.Equal(MQTT_PAYLOAD_OFFLINE, msg.Payload)
	assert.True(msg.Retain)
}

func TestHADiscoveryMessage(t *testing.T) {

	assert := assert.New(t)
	c := testClient()

	device := domain.ControllerDevice("chargectl")
	sensors := append(domain.BridgeSensors(device), domain.ControllerSensors(device)...)

	for _, s := range sensors {
		disc := GenericSensorToHADiscoveryMessage(c, s)
		assert.NotEmpty(disc.StateTopic, s.Id)
		assert.Equal(device.Id, disc.Device.Id[0], s.Id)
		assert.Equal("chargectl/bridge/state", disc.AvTopic)
		if s.SensorType == domain.SENSOR_TYPE_BINARY {
			assert.NotEmpty(disc.PayloadOn, s.Id)
		}
	}

	bridge := GenericSensorToHADiscoveryMessage(c, sensors[0])
	assert.Equal(MQTT_PAYLOAD_ONLINE, bridge.PayloadOn)
	assert.Zero(bridge.ExpireAfter)

	soc := GenericSensorToHADiscoveryMessage(c, sensors[1])
	assert.Equal(3, soc.ExpireAfter)
	assert.Equal(MQTT_PAYLOAD_OFFLINE, soc.PayloadNotAvailable)
	assert.Equal("chargectl", soc.Origin.Name)
	assert.Equal(c.BridgeStateTopic(), bridge.StateTopic)

	assert.Equal("homeassistant/sensor/"+device.Id+"/battery_soc/config", c.HADiscoverySensorTopic(sensors[1]))
}
