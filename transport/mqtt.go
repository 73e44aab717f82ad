package transport

import (
	"context"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"

	"motor-controller/logging"
)

// MQTTTransport implements the MessageTransport interface for MQTT.
type MQTTTransport struct {
	client  mqtt.Client
	qos     byte
	timeout time.Duration
	logger  *logrus.Entry
}

// NewMQTTTransport creates a new instance of MQTTTransport.
func NewMQTTTransport(client mqtt.Client, timeout time.Duration, logger *logging.Logger) *MQTTTransport {
	return &MQTTTransport{
		client:  client,
		qos:     1,
		timeout: timeout,
		logger:  logger.WithComponent("transport").WithField("transport_type", "mqtt"),
	}
}

// Send publishes a payload to a given MQTT topic with a bounded wait.
func (mt *MQTTTransport) Send(ctx context.Context, topic string, payload []byte) error {
	if !mt.client.IsConnected() {
		return fmt.Errorf("MQTT client is not connected")
	}

	logger := mt.logger.WithField("topic", topic)
	logger.Debugf("Publishing message (%d bytes, qos %d)", len(payload), mt.qos)

	token := mt.client.Publish(topic, mt.qos, false, payload)

	select {
	case <-ctx.Done():
		return fmt.Errorf("MQTT publish cancelled by context: %w", ctx.Err())
	case <-token.Done():
		if token.Error() != nil {
			return fmt.Errorf("MQTT publish failed: %w", token.Error())
		}
	case <-time.After(mt.timeout):
		return fmt.Errorf("MQTT publish timed out after %v", mt.timeout)
	}

	return nil
}

// GetTransportType returns the transport's type.
func (mt *MQTTTransport) GetTransportType() TransportType {
	return TransportTypeMQTT
}

// Close is a no-op; the MQTT client's lifecycle is managed in main.
func (mt *MQTTTransport) Close() error {
	return nil
}

// SetQoS changes the Quality of Service for subsequent messages.
func (mt *MQTTTransport) SetQoS(qos byte) {
	if qos > 2 {
		qos = 2
	}
	mt.qos = qos
}
