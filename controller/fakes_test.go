package controller

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"motor-controller/logging"
	"motor-controller/transport"
)

// fakeBackend records every primitive call so tests can assert on the
// exact sequence the drive asserted on the hardware.
type fakeBackend struct {
	mu    sync.Mutex
	calls []string

	failStart    bool
	failStop     bool
	failSetSpeed bool

	extras map[string]interface{}
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{}
}

func (f *fakeBackend) record(call string) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
}

func (f *fakeBackend) StartForward(speed int) error {
	f.record(fmt.Sprintf("forward:%d", speed))
	if f.failStart {
		return errors.New("pwm write failed")
	}
	return nil
}

func (f *fakeBackend) StartBackward(speed int) error {
	f.record(fmt.Sprintf("backward:%d", speed))
	if f.failStart {
		return errors.New("pwm write failed")
	}
	return nil
}

func (f *fakeBackend) StartLeft(speed int) error {
	f.record(fmt.Sprintf("left:%d", speed))
	if f.failStart {
		return errors.New("pwm write failed")
	}
	return nil
}

func (f *fakeBackend) StartRight(speed int) error {
	f.record(fmt.Sprintf("right:%d", speed))
	if f.failStart {
		return errors.New("pwm write failed")
	}
	return nil
}

func (f *fakeBackend) Stop() error {
	f.record("stop")
	if f.failStop {
		return errors.New("stop failed")
	}
	return nil
}

func (f *fakeBackend) SetSpeed(speed int) error {
	f.record(fmt.Sprintf("setspeed:%d", speed))
	if f.failSetSpeed {
		return errors.New("setspeed failed")
	}
	return nil
}

func (f *fakeBackend) Status() map[string]interface{} {
	if f.extras == nil {
		return map[string]interface{}{}
	}
	return f.extras
}

func (f *fakeBackend) Type() string { return "fake" }

func (f *fakeBackend) Cleanup() error {
	f.record("cleanup")
	return nil
}

func (f *fakeBackend) callLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

func (f *fakeBackend) lastCall() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		return ""
	}
	return f.calls[len(f.calls)-1]
}

func (f *fakeBackend) countCalls(call string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == call {
			n++
		}
	}
	return n
}

// fakeTransport captures published frames.
type fakeTransport struct {
	mu   sync.Mutex
	sent [][]byte
	fail bool
}

func (f *fakeTransport) Send(ctx context.Context, destination string, payload []byte) error {
	if f.fail {
		return errors.New("publish failed")
	}
	f.mu.Lock()
	f.sent = append(f.sent, append([]byte(nil), payload...))
	f.mu.Unlock()
	return nil
}

func (f *fakeTransport) GetTransportType() transport.TransportType { return "fake" }
func (f *fakeTransport) Close() error                              { return nil }

func (f *fakeTransport) frames() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]byte, len(f.sent))
	copy(out, f.sent)
	return out
}

// fakeStore captures snapshots mirrored to the cache.
type fakeStore struct {
	mu    sync.Mutex
	saved [][]byte
	fail  bool
}

func (f *fakeStore) SaveSnapshot(ctx context.Context, payload []byte) error {
	if f.fail {
		return errors.New("cache down")
	}
	f.mu.Lock()
	f.saved = append(f.saved, append([]byte(nil), payload...))
	f.mu.Unlock()
	return nil
}

func testLogger() *logging.Logger {
	return logging.NewLogger("error", "")
}
