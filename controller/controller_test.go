package controller

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"motor-controller/command"
	"motor-controller/config"
	"motor-controller/motor"
)

func newTestController(mutate func(*config.Config)) (*Controller, *fakeBackend, *fakeTransport) {
	cfg := &config.Config{
		DefaultSpeedPercent:  50,
		MaxSpeedPercent:      100,
		HeartbeatTimeout:     time.Second,
		HeartbeatMonitoring:  true,
		EmergencyStopEnabled: true,
		AutoStopOnDisconnect: true,
		StatusTopic:          "status",
	}
	if mutate != nil {
		mutate(cfg)
	}

	logger := testLogger()
	backend := newFakeBackend()
	drive := NewDrive(backend, cfg.MaxSpeedPercent, logger)
	monitor := NewMonitor(drive, cfg.HeartbeatTimeout, time.Millisecond, cfg.HeartbeatMonitoring, logger)
	tr := &fakeTransport{}
	publisher := NewStatusPublisher(drive, tr, cfg.StatusTopic, time.Second, nil, logger)

	return NewController(drive, monitor, publisher, cfg, logger), backend, tr
}

func TestControllerCommandSequence(t *testing.T) {
	ctrl, backend, _ := newTestController(nil)

	for _, raw := range []string{"START_FORWARD:50", "SPEED:90", "STOP"} {
		if err := ctrl.HandleCommand([]byte(raw)); err != nil {
			t.Fatalf("HandleCommand(%q) failed: %v", raw, err)
		}
	}

	want := []string{"forward:50", "forward:90", "stop"}
	if !reflect.DeepEqual(backend.callLog(), want) {
		t.Errorf("Expected backend calls %v, got %v", want, backend.callLog())
	}

	state := ctrl.Status()
	if state.Moving || state.Direction != motor.DirectionStopped {
		t.Errorf("Expected robot stopped at sequence end, got %+v", state)
	}
	if backend.lastCall() != "stop" {
		t.Errorf("Expected stop as last asserted primitive, got %v", backend.callLog())
	}
}

func TestControllerLegacyEquivalence(t *testing.T) {
	legacyCtrl, _, _ := newTestController(nil)
	longCtrl, _, _ := newTestController(nil)

	if err := legacyCtrl.HandleCommand([]byte("F")); err != nil {
		t.Fatalf("HandleCommand(F) failed: %v", err)
	}
	if err := longCtrl.HandleCommand([]byte("START_FORWARD:50")); err != nil {
		t.Fatalf("HandleCommand(START_FORWARD:50) failed: %v", err)
	}

	if legacyCtrl.Status() != longCtrl.Status() {
		t.Errorf("Legacy and long form diverged: %+v vs %+v", legacyCtrl.Status(), longCtrl.Status())
	}
}

func TestControllerHeartbeatSemantics(t *testing.T) {
	t.Run("Well-Formed Unknown Command Counts As Heartbeat", func(t *testing.T) {
		ctrl, backend, _ := newTestController(nil)
		stale := time.Now().Add(-time.Hour)
		ctrl.monitor.setLast(stale)

		if err := ctrl.HandleCommand([]byte("BOGUS")); err != nil {
			t.Fatalf("HandleCommand failed: %v", err)
		}

		ctrl.monitor.mu.Lock()
		refreshed := ctrl.monitor.last.After(stale)
		ctrl.monitor.mu.Unlock()
		if !refreshed {
			t.Error("Expected unknown command to refresh the heartbeat")
		}
		if len(backend.callLog()) != 0 {
			t.Errorf("Unknown command must not touch the backend, got %v", backend.callLog())
		}
	})

	t.Run("Parse Error Is No Heartbeat And No State Change", func(t *testing.T) {
		ctrl, backend, _ := newTestController(nil)
		stale := time.Now().Add(-time.Hour)
		ctrl.monitor.setLast(stale)

		err := ctrl.HandleCommand([]byte("SPEED:abc"))
		if !errors.Is(err, command.ErrInvalidValue) {
			t.Fatalf("Expected ErrInvalidValue, got %v", err)
		}

		ctrl.monitor.mu.Lock()
		last := ctrl.monitor.last
		ctrl.monitor.mu.Unlock()
		if !last.Equal(stale) {
			t.Error("Malformed command must not refresh the heartbeat")
		}
		if len(backend.callLog()) != 0 {
			t.Errorf("Malformed command must not touch the backend, got %v", backend.callLog())
		}
	})
}

func TestControllerStatusRequest(t *testing.T) {
	ctrl, _, tr := newTestController(nil)

	if err := ctrl.HandleCommand([]byte("STATUS")); err != nil {
		t.Fatalf("HandleCommand(STATUS) failed: %v", err)
	}

	if len(tr.frames()) != 1 {
		t.Fatalf("Expected one on-demand status frame, got %d", len(tr.frames()))
	}
}

func TestControllerEmergencyStop(t *testing.T) {
	t.Run("Enabled", func(t *testing.T) {
		ctrl, backend, _ := newTestController(nil)
		if err := ctrl.HandleCommand([]byte("START_LEFT:40")); err != nil {
			t.Fatalf("HandleCommand failed: %v", err)
		}
		if err := ctrl.HandleCommand([]byte("E_STOP")); err != nil {
			t.Fatalf("HandleCommand(E_STOP) failed: %v", err)
		}
		if ctrl.Status().Moving {
			t.Error("Expected robot stopped after emergency stop")
		}
		if backend.lastCall() != "stop" {
			t.Errorf("Expected stop primitive, got %v", backend.callLog())
		}
	})

	t.Run("Disabled Flag Still Halts", func(t *testing.T) {
		ctrl, _, _ := newTestController(func(cfg *config.Config) {
			cfg.EmergencyStopEnabled = false
		})
		if err := ctrl.HandleCommand([]byte("START_RIGHT:40")); err != nil {
			t.Fatalf("HandleCommand failed: %v", err)
		}
		if err := ctrl.HandleCommand([]byte("EMERGENCY_STOP")); err != nil {
			t.Fatalf("HandleCommand failed: %v", err)
		}
		if ctrl.Status().Moving {
			t.Error("Emergency stop must halt even with the flag disabled")
		}
	})
}

func TestControllerDisconnect(t *testing.T) {
	t.Run("Auto-Stop Enabled", func(t *testing.T) {
		ctrl, backend, _ := newTestController(nil)
		if err := ctrl.HandleCommand([]byte("FORWARD:60")); err != nil {
			t.Fatalf("HandleCommand failed: %v", err)
		}

		ctrl.OnConnectionLost(errors.New("broker gone"))

		if ctrl.Status().Moving {
			t.Error("Expected stop on disconnect")
		}
		if backend.lastCall() != "stop" {
			t.Errorf("Expected stop primitive on disconnect, got %v", backend.callLog())
		}
	})

	t.Run("Auto-Stop Disabled", func(t *testing.T) {
		ctrl, _, _ := newTestController(func(cfg *config.Config) {
			cfg.AutoStopOnDisconnect = false
		})
		if err := ctrl.HandleCommand([]byte("FORWARD:60")); err != nil {
			t.Fatalf("HandleCommand failed: %v", err)
		}

		ctrl.OnConnectionLost(errors.New("broker gone"))

		if !ctrl.Status().Moving {
			t.Error("Disconnect must not stop motion when auto-stop is disabled")
		}
	})
}

func TestControllerLifecycle(t *testing.T) {
	ctrl, backend, _ := newTestController(nil)

	ctrl.Start(context.Background())
	if err := ctrl.HandleCommand([]byte("START_FORWARD:50")); err != nil {
		t.Fatalf("HandleCommand failed: %v", err)
	}

	ctrl.Stop()

	calls := backend.callLog()
	if len(calls) < 2 {
		t.Fatalf("Expected final stop and cleanup, got %v", calls)
	}
	if calls[len(calls)-1] != "cleanup" || calls[len(calls)-2] != "stop" {
		t.Errorf("Expected shutdown to end with stop then cleanup, got %v", calls)
	}
	if ctrl.Status().Moving {
		t.Error("Expected robot stopped after shutdown")
	}
}

func TestControllerRejectsCommandsAfterStop(t *testing.T) {
	ctrl, backend, _ := newTestController(nil)

	ctrl.Start(context.Background())
	ctrl.Stop()

	callsAfterShutdown := len(backend.callLog())
	err := ctrl.HandleCommand([]byte("START_FORWARD:50"))
	if !errors.Is(err, ErrStopped) {
		t.Fatalf("Expected ErrStopped, got %v", err)
	}

	calls := backend.callLog()
	if len(calls) != callsAfterShutdown {
		t.Errorf("Command reached a released backend: %v", calls[callsAfterShutdown:])
	}
	if calls[len(calls)-1] != "cleanup" {
		t.Errorf("Expected cleanup to stay the last backend call, got %v", calls)
	}
}
