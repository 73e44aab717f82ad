package controller

import (
	"sync"

	"github.com/sirupsen/logrus"

	"motor-controller/logging"
	"motor-controller/motor"
)

// Drive is the motion state machine. It owns the single MotionState and
// serializes every backend call behind one mutex, so a direction change
// while moving is atomic: observers never see an intermediate stop.
//
// Commands establish continuous motion: a direction/speed stays asserted
// until explicitly changed or stopped, never a timed pulse.
type Drive struct {
	mu       sync.Mutex
	backend  motor.Backend
	maxSpeed int
	state    motor.MotionState
	logger   *logrus.Entry
}

// NewDrive wraps a backend in a stopped drive. maxSpeed caps every applied
// speed after the usual [0,100] clamp.
func NewDrive(backend motor.Backend, maxSpeed int, logger *logging.Logger) *Drive {
	return &Drive{
		backend:  backend,
		maxSpeed: maxSpeed,
		state: motor.MotionState{
			Direction: motor.DirectionStopped,
		},
		logger: logger.WithComponent("drive"),
	}
}

// StartForward starts continuous forward motion at the given speed.
func (d *Drive) StartForward(speedPercent int) error {
	return d.start(motor.DirectionForward, speedPercent)
}

// StartBackward starts continuous backward motion at the given speed.
func (d *Drive) StartBackward(speedPercent int) error {
	return d.start(motor.DirectionBackward, speedPercent)
}

// StartLeft starts a continuous left turn at the given speed.
func (d *Drive) StartLeft(speedPercent int) error {
	return d.start(motor.DirectionLeft, speedPercent)
}

// StartRight starts a continuous right turn at the given speed.
func (d *Drive) StartRight(speedPercent int) error {
	return d.start(motor.DirectionRight, speedPercent)
}

func (d *Drive) start(direction motor.Direction, speedPercent int) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	speed := d.clamp(speedPercent)
	if err := d.applyDirection(direction, speed); err != nil {
		return d.failSafe("start", err)
	}

	d.state = motor.MotionState{
		Direction:    direction,
		SpeedPercent: speed,
		Moving:       true,
	}
	d.logger.Infof("Started %s at %d%% speed", direction, speed)
	return nil
}

// SetSpeed clamps and stores the new speed. If the robot is moving, the
// current direction is re-applied at the new speed immediately; no
// direction command needs to be re-issued.
func (d *Drive) SetSpeed(speedPercent int) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	speed := d.clamp(speedPercent)

	if d.state.Moving {
		if err := d.applyDirection(d.state.Direction, speed); err != nil {
			return d.failSafe("set speed", err)
		}
	} else if err := d.backend.SetSpeed(speed); err != nil {
		return d.failSafe("set speed", err)
	}

	d.state.SpeedPercent = speed
	d.logger.Infof("Speed changed to %d%%", speed)
	return nil
}

// Stop halts all motion. Safe before the first movement command and safe
// to call repeatedly. Even when the backend errors the drive records the
// stopped state: fail-stop, never fail-open.
func (d *Drive) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stopLocked("stop")
}

// EmergencyStop is the highest-priority path to the stop contract. The
// mutex guarantees no in-flight speed change lands after it.
func (d *Drive) EmergencyStop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.logger.Warn("EMERGENCY STOP activated")
	return d.stopLocked("emergency stop")
}

func (d *Drive) stopLocked(operation string) error {
	err := d.backend.Stop()
	d.state.Direction = motor.DirectionStopped
	d.state.Moving = false
	if err != nil {
		d.logger.Errorf("Backend error during %s: %v", operation, err)
		return err
	}
	return nil
}

// Status returns a copy of the current motion state.
func (d *Drive) Status() motor.MotionState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Backend exposes the wrapped backend for status frame extras.
func (d *Drive) Backend() motor.Backend {
	return d.backend
}

// failSafe handles a backend failure: log it, force the motors down, and
// treat the robot as stopped. Callers hold the mutex.
func (d *Drive) failSafe(operation string, err error) error {
	d.logger.Errorf("Backend error during %s, failing safe: %v", operation, err)
	if stopErr := d.backend.Stop(); stopErr != nil {
		d.logger.Errorf("Backend stop after failure also failed: %v", stopErr)
	}
	d.state.Direction = motor.DirectionStopped
	d.state.Moving = false
	return err
}

func (d *Drive) applyDirection(direction motor.Direction, speed int) error {
	switch direction {
	case motor.DirectionForward:
		return d.backend.StartForward(speed)
	case motor.DirectionBackward:
		return d.backend.StartBackward(speed)
	case motor.DirectionLeft:
		return d.backend.StartLeft(speed)
	case motor.DirectionRight:
		return d.backend.StartRight(speed)
	default:
		return d.backend.Stop()
	}
}

func (d *Drive) clamp(speedPercent int) int {
	if speedPercent < 0 {
		return 0
	}
	if speedPercent > 100 {
		speedPercent = 100
	}
	if speedPercent > d.maxSpeed {
		speedPercent = d.maxSpeed
	}
	return speedPercent
}
