package connection

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakePeripheral struct {
	mu       sync.Mutex
	closed   int
	readErr  error
	writeErr error
}

func (f *fakePeripheral) Read(ctx context.Context, charID string) (string, error) {
	return "", f.readErr
}
func (f *fakePeripheral) WriteNoResponse(ctx context.Context, charID, payload string) error {
	return f.writeErr
}
func (f *fakePeripheral) Close() error {
	f.mu.Lock()
	f.closed++
	f.mu.Unlock()
	return nil
}

type fakeRadio struct {
	scanErr    error
	scanBlocks bool // block until the scan context is done
	connectErr error
	peripheral *fakePeripheral
	scanned    chan struct{}
}

func (f *fakeRadio) Scan(ctx context.Context, deviceName string) (string, error) {
	if f.scanned != nil {
		close(f.scanned)
	}
	if f.scanBlocks {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if f.scanErr != nil {
		return "", f.scanErr
	}
	return "addr-1", nil
}

func (f *fakeRadio) Connect(ctx context.Context, addr string) (Peripheral, error) {
	if f.connectErr != nil {
		return nil, f.connectErr
	}
	if f.peripheral == nil {
		f.peripheral = &fakePeripheral{}
	}
	return f.peripheral, nil
}

func TestConnectHappyPath(t *testing.T) {
	m := NewManager(&fakeRadio{}, time.Second)

	p, err := m.Connect(context.Background(), "BEAM-Attendance")
	if err != nil {
		t.Fatal(err)
	}
	if p == nil {
		t.Fatal("nil peripheral on success")
	}
	if got := m.State(); got != StateConnected {
		t.Errorf("state = %s, want connected", got)
	}

	m.Disconnect()
	if got := m.State(); got != StateDisconnected {
		t.Errorf("state after disconnect = %s, want disconnected", got)
	}
}

func TestScanTimeoutSurfacesAndResets(t *testing.T) {
	m := NewManager(&fakeRadio{scanBlocks: true}, 20*time.Millisecond)

	_, err := m.Connect(context.Background(), "BEAM-Attendance")
	if !errors.Is(err, ErrScanTimeout) {
		t.Fatalf("err = %v, want ErrScanTimeout", err)
	}
	if got := m.State(); got != StateDisconnected {
		t.Errorf("state = %s, want disconnected (never stuck in scanning)", got)
	}
}

func TestConnectErrorSurfacesAndResets(t *testing.T) {
	boom := errors.New("gatt failure")
	m := NewManager(&fakeRadio{connectErr: boom}, time.Second)

	_, err := m.Connect(context.Background(), "BEAM-Attendance")
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped gatt failure", err)
	}
	if got := m.State(); got != StateDisconnected {
		t.Errorf("state = %s, want disconnected", got)
	}
}

func TestReentrantConnectRejected(t *testing.T) {
	scanned := make(chan struct{})
	m := NewManager(&fakeRadio{scanBlocks: true, scanned: scanned}, time.Second)

	done := make(chan error, 1)
	go func() {
		_, err := m.Connect(context.Background(), "BEAM-Attendance")
		done <- err
	}()
	<-scanned

	if _, err := m.Connect(context.Background(), "BEAM-Attendance"); !errors.Is(err, ErrBusy) {
		t.Errorf("re-entrant connect: err = %v, want ErrBusy", err)
	}

	m.Disconnect()
	if err := <-done; !errors.Is(err, ErrCanceled) {
		t.Errorf("first attempt: err = %v, want ErrCanceled", err)
	}
}

func TestDisconnectCancelsPendingScan(t *testing.T) {
	scanned := make(chan struct{})
	m := NewManager(&fakeRadio{scanBlocks: true, scanned: scanned}, time.Minute)

	done := make(chan error, 1)
	go func() {
		_, err := m.Connect(context.Background(), "BEAM-Attendance")
		done <- err
	}()
	<-scanned

	m.Disconnect()

	select {
	case err := <-done:
		if !errors.Is(err, ErrCanceled) {
			t.Errorf("err = %v, want ErrCanceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("scan was not released by Disconnect")
	}
	if got := m.State(); got != StateDisconnected {
		t.Errorf("state = %s, want disconnected", got)
	}
}

func TestDisconnectIsIdempotent(t *testing.T) {
	radio := &fakeRadio{peripheral: &fakePeripheral{}}
	m := NewManager(radio, time.Second)

	if _, err := m.Connect(context.Background(), "BEAM-Attendance"); err != nil {
		t.Fatal(err)
	}

	m.Disconnect()
	m.Disconnect() // teardown paths may call this again
	m.Disconnect()

	if radio.peripheral.closed != 1 {
		t.Errorf("peripheral closed %d times, want 1", radio.peripheral.closed)
	}
	if _, err := m.Peripheral(); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Peripheral() after disconnect: err = %v, want ErrNotConnected", err)
	}
}

func TestReadFailureDropsLink(t *testing.T) {
	radio := &fakeRadio{peripheral: &fakePeripheral{readErr: errors.New("link lost")}}
	m := NewManager(radio, time.Second)

	p, err := m.Connect(context.Background(), "BEAM-Attendance")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := p.Read(context.Background(), "char-1"); err == nil {
		t.Fatal("read should surface the transport error")
	}

	if got := m.State(); got != StateDisconnected {
		t.Errorf("state after read failure = %s, want disconnected", got)
	}
	if radio.peripheral.closed != 1 {
		t.Errorf("dead link closed %d times, want 1", radio.peripheral.closed)
	}
	// A fresh attempt must be possible, not ErrBusy.
	if _, err := m.Connect(context.Background(), "BEAM-Attendance"); err != nil {
		t.Fatalf("reconnect after link loss: %v", err)
	}
}

func TestWriteFailureDropsLink(t *testing.T) {
	radio := &fakeRadio{peripheral: &fakePeripheral{writeErr: errors.New("link lost")}}
	m := NewManager(radio, time.Second)

	p, err := m.Connect(context.Background(), "BEAM-Attendance")
	if err != nil {
		t.Fatal(err)
	}
	if err := p.WriteNoResponse(context.Background(), "char-1", "x"); err == nil {
		t.Fatal("write should surface the transport error")
	}

	if got := m.State(); got != StateDisconnected {
		t.Errorf("state after write failure = %s, want disconnected", got)
	}
	if _, err := m.Peripheral(); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Peripheral() after link loss: err = %v, want ErrNotConnected", err)
	}
}

func TestStaleHandleCannotDropNewLink(t *testing.T) {
	radio := &fakeRadio{peripheral: &fakePeripheral{readErr: errors.New("link lost")}}
	m := NewManager(radio, time.Second)

	stale, err := m.Connect(context.Background(), "BEAM-Attendance")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := stale.Read(context.Background(), "char-1"); err == nil {
		t.Fatal("read should surface the transport error")
	}
	if _, err := m.Connect(context.Background(), "BEAM-Attendance"); err != nil {
		t.Fatal(err)
	}

	// The handle from the torn-down attempt fails again; the new link
	// must not be affected.
	if _, err := stale.Read(context.Background(), "char-1"); err == nil {
		t.Fatal("stale handle should keep failing")
	}
	if got := m.State(); got != StateConnected {
		t.Errorf("state after stale-handle failure = %s, want connected", got)
	}
}

func TestReconnectAfterDisconnect(t *testing.T) {
	m := NewManager(&fakeRadio{}, time.Second)

	if _, err := m.Connect(context.Background(), "BEAM-Attendance"); err != nil {
		t.Fatal(err)
	}
	m.Disconnect()
	if _, err := m.Connect(context.Background(), "BEAM-Attendance"); err != nil {
		t.Fatalf("second connect after clean disconnect: %v", err)
	}
}
