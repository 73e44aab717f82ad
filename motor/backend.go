package motor

import (
	"fmt"
	"sync"
)

// Direction of travel. STOPPED is the only state in which Moving is false.
type Direction string

const (
	DirectionStopped  Direction = "STOPPED"
	DirectionForward  Direction = "FORWARD"
	DirectionBackward Direction = "BACKWARD"
	DirectionLeft     Direction = "LEFT"
	DirectionRight    Direction = "RIGHT"
)

// MotionState is the controller's view of what the motors are doing.
// Invariant: Moving == (Direction != DirectionStopped) and
// 0 <= SpeedPercent <= 100.
type MotionState struct {
	Direction    Direction `json:"direction"`
	SpeedPercent int       `json:"speed_percent"`
	Moving       bool      `json:"is_moving"`
}

// Backend is the capability set any hardware implementation provides.
// Implementations own pin/PWM mapping only; they carry no protocol logic.
// All methods must be safe to call from a single goroutine at a time (the
// drive serializes access).
type Backend interface {
	StartForward(speedPercent int) error
	StartBackward(speedPercent int) error
	StartLeft(speedPercent int) error
	StartRight(speedPercent int) error
	Stop() error
	SetSpeed(speedPercent int) error

	// Status returns backend-specific fields (per-wheel speeds and the
	// like) merged into published status frames. Required frame fields
	// always take precedence over these.
	Status() map[string]interface{}

	// Type identifies the backend in status frames.
	Type() string

	// Cleanup releases the underlying hardware resource. The backend must
	// not be used afterwards.
	Cleanup() error
}

// BackendType selects a registered backend implementation.
type BackendType string

const (
	BackendTypeDiffDrive BackendType = "diffdrive"
)

var (
	registryMu sync.RWMutex
	registry   = map[BackendType]func() (Backend, error){}
)

// Register makes a backend constructor selectable through New. Hardware
// packages register themselves at startup.
func Register(t BackendType, constructor func() (Backend, error)) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[t] = constructor
}

// New builds the backend registered for the given type.
func New(t BackendType) (Backend, error) {
	registryMu.RLock()
	constructor, ok := registry[t]
	registryMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown motor backend type: %s", t)
	}
	return constructor()
}

func init() {
	Register(BackendTypeDiffDrive, func() (Backend, error) {
		return NewDiffDrive(), nil
	})
}
