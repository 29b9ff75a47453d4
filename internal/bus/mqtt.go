package bus

import (
	"encoding/json"
	"fmt"
)

// Publisher is the slice of the MQTT client the bus needs.
// Satisfied by *mqtt.Client from internal/infrastructure/mqtt.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// TopicFunc maps a channel name to a broker topic.
type TopicFunc func(channel string) string

// MQTT publishes each notification as JSON to a broker topic derived
// from the channel name. Messages are not retained: notifications are
// events, not state.
type MQTT struct {
	pub   Publisher
	topic TopicFunc
	qos   byte
}

// NewMQTT creates an MQTT-backed bus. topic maps channel names to
// broker topics.
func NewMQTT(pub Publisher, topic TopicFunc, qos byte) *MQTT {
	return &MQTT{pub: pub, topic: topic, qos: qos}
}

// Publish implements Bus.
func (m *MQTT) Publish(channel string, msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encoding notification: %w", err)
	}
	if err := m.pub.Publish(m.topic(channel), payload, m.qos, false); err != nil {
		return fmt.Errorf("publishing notification: %w", err)
	}
	return nil
}
