package transport

import "context"

// TransportType identifies a transport implementation.
type TransportType string

const (
	TransportTypeMQTT TransportType = "mqtt"
)

// MessageTransport sends payloads to a named destination. The controller
// treats sends as fire-and-forget: failures are logged and dropped, never
// retried synchronously.
type MessageTransport interface {
	Send(ctx context.Context, destination string, payload []byte) error
	GetTransportType() TransportType
	Close() error
}
