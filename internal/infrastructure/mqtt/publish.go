package mqtt

import (
	"fmt"
)

// maxPayloadSize caps outgoing payloads at 1MB; device state and
// outcome documents are tiny, so anything bigger is a bug upstream.
const maxPayloadSize = 1 << 20

// Publish sends one message to the broker and waits for the ack.
//
// Retained messages (device state, availability, system status) are
// stored by the broker so late subscribers see the current value;
// command outcomes are events and go out unretained.
func (c *Client) Publish(topic string, payload []byte, qos byte, retained bool) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if len(payload) > maxPayloadSize {
		return fmt.Errorf("%w: payload size %d exceeds maximum %d bytes", ErrPublishFailed, len(payload), maxPayloadSize)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	token := c.client.Publish(topic, qos, retained, payload)
	return awaitToken(token, defaultPublishTimeout, ErrPublishFailed)
}

// PublishRetained publishes retained at the configured default QoS.
func (c *Client) PublishRetained(topic string, payload []byte) error {
	return c.Publish(topic, payload, byte(c.cfg.QoS), true)
}
