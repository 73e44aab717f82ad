package controller

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"motor-controller/logging"
)

// Monitor is the heartbeat watchdog. Any well-formed inbound command is a
// liveness signal from the controlling peer; when none arrives within the
// timeout the motors are forced down. An autonomous robot defaults to
// stopped under network loss, never to last known motion.
type Monitor struct {
	mu      sync.Mutex
	last    time.Time
	timeout time.Duration

	interval time.Duration
	enabled  bool
	drive    *Drive
	logger   *logrus.Entry
}

// NewMonitor creates a heartbeat monitor checking every interval whether
// the last heartbeat is older than timeout.
func NewMonitor(drive *Drive, timeout, interval time.Duration, enabled bool, logger *logging.Logger) *Monitor {
	return &Monitor{
		last:     time.Now(),
		timeout:  timeout,
		interval: interval,
		enabled:  enabled,
		drive:    drive,
		logger:   logger.WithComponent("heartbeat"),
	}
}

// Touch records a heartbeat. Called for every successfully parsed command,
// status requests included; parse failures never reach here.
func (m *Monitor) Touch() {
	m.mu.Lock()
	m.last = time.Now()
	m.mu.Unlock()
}

// Run ticks until the context is cancelled.
func (m *Monitor) Run(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()

	if !m.enabled {
		m.logger.Warn("Heartbeat monitoring disabled")
		return
	}

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.logger.Infof("Heartbeat monitor started (timeout %v)", m.timeout)
	for {
		select {
		case <-ctx.Done():
			m.logger.Info("Heartbeat monitor stopped")
			return
		case now := <-ticker.C:
			m.check(now)
		}
	}
}

// check stops the motors when the timeout is breached and resets the
// heartbeat so a lost connection produces a single stop per breach rather
// than one per tick.
func (m *Monitor) check(now time.Time) {
	if !m.enabled {
		return
	}

	m.mu.Lock()
	elapsed := now.Sub(m.last)
	breached := elapsed > m.timeout
	if breached {
		m.last = now
	}
	m.mu.Unlock()

	if !breached {
		return
	}

	m.logger.Warnf("Heartbeat timeout (%.1fs), stopping motors", elapsed.Seconds())
	if err := m.drive.Stop(); err != nil {
		m.logger.Errorf("Stop after heartbeat timeout failed: %v", err)
	}
}
