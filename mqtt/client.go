package mqtt

import (
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"

	"motor-controller/config"
	"motor-controller/logging"
)

// Client wraps the PAHO MQTT client and owns the command-topic
// subscription. Subscribing happens in the connect callback so it is
// re-established after every reconnect.
type Client struct {
	client       mqtt.Client
	commandTopic string
	logger       *logrus.Entry

	mu             sync.RWMutex
	commandHandler func(payload []byte)
	onLost         func(err error)
}

// NewClient creates and connects a new MQTT client. Handlers for inbound
// commands and lost connections are installed afterwards via the setters;
// both are read under the client's lock, so wiring them after Connect is
// race-free.
func NewClient(cfg *config.Config, logger *logging.Logger) (*Client, error) {
	c := &Client{
		commandTopic: cfg.CommandTopic,
		logger:       logger.WithComponent("mqtt_client"),
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientID).
		SetUsername(cfg.MQTTUsername).
		SetPassword(cfg.MQTTPassword).
		SetKeepAlive(60 * time.Second).
		SetPingTimeout(10 * time.Second).
		SetAutoReconnect(true).
		SetMaxReconnectInterval(10 * time.Second).
		SetCleanSession(true).
		SetOnConnectHandler(c.onConnect).
		SetConnectionLostHandler(c.onConnectionLost)

	c.client = mqtt.NewClient(opts)

	if token := c.client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}
	return c, nil
}

// SetCommandHandler installs the inbound message handler. Messages
// arriving before a handler is installed are dropped with a log line.
func (c *Client) SetCommandHandler(handler func(payload []byte)) {
	c.mu.Lock()
	c.commandHandler = handler
	c.mu.Unlock()
}

// SetConnectionLostHandler installs the callback invoked on every dropped
// connection, before auto-reconnect kicks in.
func (c *Client) SetConnectionLostHandler(handler func(err error)) {
	c.mu.Lock()
	c.onLost = handler
	c.mu.Unlock()
}

// Paho returns the underlying PAHO client, used by the publish transport.
func (c *Client) Paho() mqtt.Client {
	return c.client
}

// Disconnect gracefully disconnects the client.
func (c *Client) Disconnect() {
	if c.client.IsConnected() {
		c.client.Disconnect(250)
		c.logger.Info("MQTT client disconnected")
	}
}

func (c *Client) onConnect(client mqtt.Client) {
	c.logger.Info("Connected to MQTT broker")
	if token := client.Subscribe(c.commandTopic, 1, c.handleMessage); token.Wait() && token.Error() != nil {
		c.logger.Errorf("Failed to subscribe to %s: %v", c.commandTopic, token.Error())
		return
	}
	c.logger.Infof("Subscribed to %s", c.commandTopic)
}

func (c *Client) onConnectionLost(client mqtt.Client, err error) {
	c.logger.Errorf("Connection lost, reconnecting: %v", err)
	c.mu.RLock()
	onLost := c.onLost
	c.mu.RUnlock()
	if onLost != nil {
		onLost(err)
	}
}

func (c *Client) handleMessage(client mqtt.Client, msg mqtt.Message) {
	c.mu.RLock()
	handler := c.commandHandler
	c.mu.RUnlock()

	if handler == nil {
		c.logger.Warnf("Dropping message on %s: no handler installed yet", msg.Topic())
		return
	}
	handler(msg.Payload())
}
