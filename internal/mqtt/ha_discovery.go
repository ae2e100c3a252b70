package mqtt

import (
	"fmt"
	"math"

	"github.com/berfenger/chargectl/internal/core/domain"

	"github.com/carlmjohnson/versioninfo"
)

type HADiscoveryConfig struct {
	Device              HADiscoveryDevice `json:"device"`
	Origin              HADiscoveryOrigin `json:"origin"`
	StateTopic          string            `json:"state_topic"`
	StateClass          string            `json:"state_class,omitempty"`
	DeviceClass         string            `json:"device_class,omitempty"`
	UnitOfMeasurement   string            `json:"unit_of_measurement,omitempty"`
	AvTopic             string            `json:"availability_topic,omitempty"`
	PayloadAvailable    string            `json:"payload_available,omitempty"`
	PayloadNotAvailable string            `json:"payload_not_available,omitempty"`
	ExpireAfter         int               `json:"expire_after,omitempty"`
	EntityCategory      string            `json:"entity_category,omitempty"`
	Name                string            `json:"name"`
	UniqueId            string            `json:"unique_id"`
	Platform            string            `json:"platform"`
	EnabledByDefault    *bool             `json:"enabled_by_default,omitempty"`
	PayloadOn           string            `json:"payload_on,omitempty"`
	PayloadOff          string            `json:"payload_off,omitempty"`
	Icon                string            `json:"icon,omitempty"`
}

type HADiscoveryOrigin struct {
	Name    string `json:"name"`
	Version string `json:"sw_version,omitempty"`
}

type HADiscoveryDevice struct {
	Id           []string `json:"identifiers"`
	Manufacturer string   `json:"manufacturer,omitempty"`
	Version      string   `json:"sw_version,omitempty"`
	Model        string   `json:"model,omitempty"`
	Name         string   `json:"name,omitempty"`
	ViaDevice    string   `json:"via_device,omitempty"`
}

func (c *MQTTClient) HADiscoverySensorTopic(sensor domain.GenericSensor) string {
	return fmt.Sprintf("%s/%s/%s/%s/config", c.discoveryTopic(), sensor.SensorType, sensor.Device.Id, sensor.Id)
}

func GenericSensorToHADiscoveryMessage(client *MQTTClient, sensor domain.GenericSensor) HADiscoveryConfig {
	dev := device(sensor.Device)
	var topic string
	switch {
	case sensor.Id == domain.SENSOR_ID_BRIDGE_STATE:
		topic = client.BridgeStateTopic()
	case sensor.SensorType == domain.SENSOR_TYPE_SENSOR:
		topic = client.SensorStateTopic(sensor.Id)
	case sensor.SensorType == domain.SENSOR_TYPE_BINARY:
		topic = client.BinarySensorStateTopic(sensor.Id)
	}
	disConfig := HADiscoveryConfig{
		Device: dev,
		Origin: HADiscoveryOrigin{
			Name:    domain.CONTROLLER_DEVICE_MANUFACTURER,
			Version: versioninfo.Short(),
		},
		StateTopic:          topic,
		StateClass:          sensor.StateClass,
		DeviceClass:         sensor.DeviceClass,
		UnitOfMeasurement:   sensor.UnitOfMeasurement,
		AvTopic:             client.BridgeStateTopic(),
		PayloadAvailable:    MQTT_PAYLOAD_ONLINE,
		PayloadNotAvailable: MQTT_PAYLOAD_OFFLINE,
		EntityCategory:      sensor.EntityCategory,
		Name:                sensor.Name,
		UniqueId:            sensor.UniqueId,
		Icon:                sensor.Icon,
		EnabledByDefault:    sensor.EnabledByDefault,
		Platform:            "mqtt",
	}
	switch {
	case sensor.Id == domain.SENSOR_ID_BRIDGE_STATE:
		// retained availability, never expires
		disConfig.PayloadOn = MQTT_PAYLOAD_ONLINE
		disConfig.PayloadOff = MQTT_PAYLOAD_OFFLINE
	case sensor.SensorType == domain.SENSOR_TYPE_BINARY:
		disConfig.PayloadOn = MQTT_PAYLOAD_ON
		disConfig.PayloadOff = MQTT_PAYLOAD_OFF
		disConfig.ExpireAfter = client.expireAfterSeconds()
	default:
		disConfig.ExpireAfter = client.expireAfterSeconds()
	}
	return disConfig
}

func device(d domain.Device) HADiscoveryDevice {
	return HADiscoveryDevice{
		Id:           []string{d.Id},
		Manufacturer: d.Manufacturer,
		Version:      d.Version,
		Model:        d.Model,
		Name:         d.Name,
		ViaDevice:    d.ViaDevice,
	}
}

func (c *MQTTClient) expireAfterSeconds() int {
	return int(math.Ceil(c.expireAfter.Seconds()))
}
