package controller

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"motor-controller/command"
	"motor-controller/config"
	"motor-controller/logging"
	"motor-controller/motor"
)

// Controller is the composition root of the motor controller: it feeds
// inbound messages through the parser into the drive, refreshes the
// heartbeat, and supervises the two background loops.
type Controller struct {
	drive     *Drive
	monitor   *Monitor
	publisher *StatusPublisher

	defaultSpeed         int
	emergencyStopEnabled bool
	autoStopOnDisconnect bool
	logger               *logrus.Entry

	mu     sync.Mutex
	runCtx context.Context
	cancel context.CancelFunc
	closed bool
	wg     sync.WaitGroup
}

// ErrStopped is returned for commands arriving after Stop, when the motor
// backend has already been released.
var ErrStopped = errors.New("motor controller stopped")

// NewController wires the drive, heartbeat monitor and status publisher
// under one lifecycle.
func NewController(drive *Drive, monitor *Monitor, publisher *StatusPublisher, cfg *config.Config, logger *logging.Logger) *Controller {
	return &Controller{
		drive:                drive,
		monitor:              monitor,
		publisher:            publisher,
		defaultSpeed:         cfg.DefaultSpeedPercent,
		emergencyStopEnabled: cfg.EmergencyStopEnabled,
		autoStopOnDisconnect: cfg.AutoStopOnDisconnect,
		logger:               logger.WithComponent("controller"),
	}
}

// Start launches the heartbeat monitor and the status publisher.
func (c *Controller) Start(ctx context.Context) {
	c.mu.Lock()
	c.runCtx, c.cancel = context.WithCancel(ctx)
	c.mu.Unlock()

	c.wg.Add(2)
	go c.monitor.Run(c.runCtx, &c.wg)
	go c.publisher.Run(c.runCtx, &c.wg)
	c.logger.Info("Motor controller started")
}

// Stop terminates both background loops, issues a final stop and releases
// the motor backend. After Stop returns no goroutine of the controller can
// touch the backend again.
func (c *Controller) Stop() {
	c.mu.Lock()
	c.closed = true
	if c.cancel != nil {
		c.cancel()
	}
	c.mu.Unlock()

	c.wg.Wait()

	if err := c.drive.Stop(); err != nil {
		c.logger.Errorf("Final stop failed: %v", err)
	}
	if err := c.drive.Backend().Cleanup(); err != nil {
		c.logger.Errorf("Backend cleanup failed: %v", err)
	}
	c.logger.Info("Motor controller stopped")
}

// HandleCommand processes one inbound message: parse, refresh heartbeat,
// dispatch. Malformed messages are discarded without refreshing the
// heartbeat; well-formed but unknown commands refresh it.
func (c *Controller) HandleCommand(payload []byte) error {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		c.logger.Warnf("Rejecting command after shutdown: %q", string(payload))
		return ErrStopped
	}

	cmd, err := command.Parse(string(payload), c.defaultSpeed)
	if err != nil {
		c.logger.Warnf("Discarding malformed command %q: %v", string(payload), err)
		return err
	}

	c.monitor.Touch()
	return c.dispatch(cmd)
}

func (c *Controller) dispatch(cmd command.Command) error {
	switch cmd.Action {
	case command.ActionStartForward:
		return c.drive.StartForward(cmd.Value)
	case command.ActionStartBackward:
		return c.drive.StartBackward(cmd.Value)
	case command.ActionStartLeft:
		return c.drive.StartLeft(cmd.Value)
	case command.ActionStartRight:
		return c.drive.StartRight(cmd.Value)
	case command.ActionStop:
		return c.drive.Stop()
	case command.ActionSetSpeed:
		return c.drive.SetSpeed(cmd.Value)
	case command.ActionStatusRequest:
		c.publisher.Publish(c.publishContext())
		return nil
	case command.ActionEmergencyStop:
		if c.emergencyStopEnabled {
			return c.drive.EmergencyStop()
		}
		return c.drive.Stop()
	case command.ActionUnknown:
		c.logger.Warnf("Unknown command: %s", cmd.Raw)
		return nil
	default:
		c.logger.Warnf("Unhandled action: %s", cmd.Action)
		return nil
	}
}

// OnConnectionLost is the transport's disconnect notification. Stopping
// here covers the window where disconnection is detected faster than the
// heartbeat timeout would fire.
func (c *Controller) OnConnectionLost(err error) {
	c.logger.Errorf("Transport connection lost: %v", err)
	if !c.autoStopOnDisconnect {
		return
	}
	c.logger.Warn("Auto-stopping motors due to disconnect")
	if stopErr := c.drive.Stop(); stopErr != nil {
		c.logger.Errorf("Auto-stop on disconnect failed: %v", stopErr)
	}
}

// Status returns the current motion state.
func (c *Controller) Status() motor.MotionState {
	return c.drive.Status()
}

// Snapshot returns the status frame the publisher would emit right now.
func (c *Controller) Snapshot() map[string]interface{} {
	return c.publisher.Snapshot()
}

func (c *Controller) publishContext() context.Context {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.runCtx != nil {
		return c.runCtx
	}
	return context.Background()
}
