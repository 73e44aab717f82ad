package motor

import "sync"

// DiffDrive is a simulated two-wheel differential-drive backend. It keeps
// the per-wheel drive values a GPIO implementation would assert, which
// makes it usable both as a development backend and as a reference for
// hardware ports. Positive wheel values drive forward, negative backward.
type DiffDrive struct {
	mu sync.Mutex

	speedPercent int
	leftPercent  int
	rightPercent int
}

// NewDiffDrive returns a stopped differential-drive backend.
func NewDiffDrive() *DiffDrive {
	return &DiffDrive{}
}

func (d *DiffDrive) StartForward(speedPercent int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.speedPercent = speedPercent
	d.apply(1, 1)
	return nil
}

func (d *DiffDrive) StartBackward(speedPercent int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.speedPercent = speedPercent
	d.apply(-1, -1)
	return nil
}

// StartLeft spins in place: left wheel reversed, right wheel forward.
func (d *DiffDrive) StartLeft(speedPercent int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.speedPercent = speedPercent
	d.apply(-1, 1)
	return nil
}

func (d *DiffDrive) StartRight(speedPercent int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.speedPercent = speedPercent
	d.apply(1, -1)
	return nil
}

func (d *DiffDrive) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.leftPercent = 0
	d.rightPercent = 0
	return nil
}

// SetSpeed primes the drive value used by the next start call. The wheel
// outputs are untouched while stopped; speed changes during motion arrive
// through the start primitives instead.
func (d *DiffDrive) SetSpeed(speedPercent int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.speedPercent = speedPercent
	return nil
}

func (d *DiffDrive) Status() map[string]interface{} {
	d.mu.Lock()
	defer d.mu.Unlock()
	return map[string]interface{}{
		"left_wheel_percent":  d.leftPercent,
		"right_wheel_percent": d.rightPercent,
	}
}

func (d *DiffDrive) Type() string {
	return string(BackendTypeDiffDrive)
}

func (d *DiffDrive) Cleanup() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.leftPercent = 0
	d.rightPercent = 0
	return nil
}

// apply asserts the current speed with per-wheel direction multipliers.
func (d *DiffDrive) apply(left, right int) {
	d.leftPercent = left * d.speedPercent
	d.rightPercent = right * d.speedPercent
}
