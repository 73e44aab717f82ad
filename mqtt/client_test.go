package mqtt

import (
	"errors"
	"sync"
	"testing"

	"motor-controller/logging"
)

func newTestClient() *Client {
	return &Client{
		commandTopic: "test/command",
		logger:       logging.NewLogger("error", "").WithComponent("mqtt_client"),
	}
}

type fakeMessage struct {
	topic   string
	payload []byte
}

func (m *fakeMessage) Duplicate() bool   { return false }
func (m *fakeMessage) Qos() byte         { return 1 }
func (m *fakeMessage) Retained() bool    { return false }
func (m *fakeMessage) Topic() string     { return m.topic }
func (m *fakeMessage) MessageID() uint16 { return 0 }
func (m *fakeMessage) Payload() []byte   { return m.payload }
func (m *fakeMessage) Ack()              {}

func TestCommandHandlerWiring(t *testing.T) {
	t.Run("Messages Before Handler Installed Are Dropped", func(t *testing.T) {
		c := newTestClient()
		// Must not panic; the message is logged and dropped.
		c.handleMessage(nil, &fakeMessage{topic: "test/command", payload: []byte("STOP")})
	})

	t.Run("Installed Handler Receives Payload", func(t *testing.T) {
		c := newTestClient()

		var got []byte
		c.SetCommandHandler(func(payload []byte) {
			got = append([]byte(nil), payload...)
		})

		c.handleMessage(nil, &fakeMessage{topic: "test/command", payload: []byte("START_FORWARD:50")})
		if string(got) != "START_FORWARD:50" {
			t.Errorf("Expected handler to receive payload, got %q", got)
		}
	})
}

func TestConnectionLostHandlerWiring(t *testing.T) {
	t.Run("Lost Connection Before Handler Installed Is Safe", func(t *testing.T) {
		c := newTestClient()
		// No handler yet; must not panic.
		c.onConnectionLost(nil, errors.New("broker gone"))
	})

	t.Run("Installed Handler Is Invoked", func(t *testing.T) {
		c := newTestClient()

		var got error
		c.SetConnectionLostHandler(func(err error) { got = err })

		lost := errors.New("broker gone")
		c.onConnectionLost(nil, lost)
		if got != lost {
			t.Errorf("Expected lost-connection handler to receive error, got %v", got)
		}
	})

	t.Run("Install Races No Callback Read", func(t *testing.T) {
		// The setter and the callback both go through the client's lock,
		// so installing a handler while a disconnect fires is safe.
		c := newTestClient()

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			c.onConnectionLost(nil, errors.New("broker gone"))
		}()
		go func() {
			defer wg.Done()
			c.SetConnectionLostHandler(func(err error) {})
		}()
		wg.Wait()
	})
}
