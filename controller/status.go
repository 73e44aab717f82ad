package controller

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"motor-controller/logging"
	"motor-controller/transport"
)

// SnapshotStore mirrors published status frames into a cache. Failures are
// logged and never block publication.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, payload []byte) error
}

// StatusPublisher periodically reports the current motion state on the
// status topic. It only reads the drive's state and never blocks the
// command path; a failed publish is logged and the frame dropped.
type StatusPublisher struct {
	drive     *Drive
	transport transport.MessageTransport
	topic     string
	interval  time.Duration
	store     SnapshotStore
	logger    *logrus.Entry
}

// NewStatusPublisher builds a publisher emitting one frame per interval.
// store may be nil.
func NewStatusPublisher(drive *Drive, tr transport.MessageTransport, topic string, interval time.Duration, store SnapshotStore, logger *logging.Logger) *StatusPublisher {
	return &StatusPublisher{
		drive:     drive,
		transport: tr,
		topic:     topic,
		interval:  interval,
		store:     store,
		logger:    logger.WithComponent("status"),
	}
}

// Snapshot builds a status frame: backend extras first, then the required
// fields. The required fields are written last so a backend can never
// overwrite them.
func (sp *StatusPublisher) Snapshot() map[string]interface{} {
	frame := make(map[string]interface{})
	for key, value := range sp.drive.Backend().Status() {
		frame[key] = value
	}

	state := sp.drive.Status()
	frame["speed_percent"] = state.SpeedPercent
	frame["direction"] = string(state.Direction)
	frame["is_moving"] = state.Moving
	frame["timestamp"] = time.Now().Format(time.RFC3339Nano)
	frame["controller_type"] = sp.drive.Backend().Type()
	return frame
}

// Publish emits one status frame. Used by the periodic loop and, out of
// band, by STATUS requests.
func (sp *StatusPublisher) Publish(ctx context.Context) {
	payload, err := json.Marshal(sp.Snapshot())
	if err != nil {
		sp.logger.Errorf("Failed to marshal status frame: %v", err)
		return
	}

	if err := sp.transport.Send(ctx, sp.topic, payload); err != nil {
		sp.logger.Errorf("Failed to publish status: %v", err)
	}

	if sp.store != nil {
		if err := sp.store.SaveSnapshot(ctx, payload); err != nil {
			sp.logger.Errorf("Failed to cache status snapshot: %v", err)
		}
	}
}

// Run publishes until the context is cancelled.
func (sp *StatusPublisher) Run(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()

	ticker := time.NewTicker(sp.interval)
	defer ticker.Stop()

	sp.logger.Infof("Status publisher started (every %v on %s)", sp.interval, sp.topic)
	for {
		select {
		case <-ctx.Done():
			sp.logger.Info("Status publisher stopped")
			return
		case <-ticker.C:
			sp.Publish(ctx)
		}
	}
}
