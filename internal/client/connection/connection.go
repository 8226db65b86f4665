package connection

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

type State int

const (
	StateDisconnected State = iota
	StateScanning
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateScanning:
		return "scanning"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// DefaultScanTimeout bounds discovery; a scan that has not found the
// target by then surfaces ErrScanTimeout.
const DefaultScanTimeout = 10 * time.Second

var (
	// ErrBusy is returned when a scan or connect attempt is already in
	// flight; the re-entrant attempt is a no-op.
	ErrBusy = errors.New("connection attempt already in progress")

	ErrScanTimeout = errors.New("scan timed out")

	// ErrCanceled is returned when Disconnect tears down an in-flight
	// attempt.
	ErrCanceled = errors.New("connection attempt canceled")

	ErrNotConnected = errors.New("not connected")
)

// Peripheral is an open link to the attendance device.
type Peripheral interface {
	Read(ctx context.Context, charID string) (string, error)
	// WriteNoResponse is fire-and-forget at the application layer: a nil
	// error means the transport accepted the write, nothing more.
	WriteNoResponse(ctx context.Context, charID string, payload string) error
	Close() error
}

// Radio abstracts the physical link so the state machine is testable
// without hardware.
type Radio interface {
	Scan(ctx context.Context, deviceName string) (addr string, err error)
	Connect(ctx context.Context, addr string) (Peripheral, error)
}

// Manager owns the single radio resource and enforces the
// disconnected → scanning → connecting → connected lifecycle. One
// attempt at a time; every failure path lands back in disconnected.
type Manager struct {
	radio       Radio
	scanTimeout time.Duration

	mu     sync.Mutex
	state  State
	cancel context.CancelFunc
	// link is the raw device handle; peripheral is the managed wrapper
	// handed to callers.
	link       Peripheral
	peripheral Peripheral
	// gen identifies the current attempt so a stale attempt returning
	// late cannot tear down a newer one.
	gen uint64
}

func NewManager(radio Radio, scanTimeout time.Duration) *Manager {
	if scanTimeout <= 0 {
		scanTimeout = DefaultScanTimeout
	}
	return &Manager{radio: radio, scanTimeout: scanTimeout}
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Connect scans for deviceName and opens a link. It rejects re-entrant
// attempts while not disconnected.
func (m *Manager) Connect(ctx context.Context, deviceName string) (Peripheral, error) {
	m.mu.Lock()
	if m.state != StateDisconnected {
		m.mu.Unlock()
		return nil, ErrBusy
	}
	attemptCtx, cancel := context.WithCancel(ctx)
	m.gen++
	gen := m.gen
	m.cancel = cancel
	m.state = StateScanning
	m.mu.Unlock()

	scanCtx, scanCancel := context.WithTimeout(attemptCtx, m.scanTimeout)
	addr, err := m.radio.Scan(scanCtx, deviceName)
	scanCancel()
	if err != nil {
		m.resetAttempt(gen)
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			return nil, ErrScanTimeout
		case errors.Is(err, context.Canceled):
			return nil, ErrCanceled
		}
		return nil, fmt.Errorf("scan: %w", err)
	}

	m.mu.Lock()
	if m.gen != gen || m.state != StateScanning {
		// Disconnect raced us while the scan was finishing.
		m.mu.Unlock()
		return nil, ErrCanceled
	}
	m.state = StateConnecting
	m.mu.Unlock()

	p, err := m.radio.Connect(attemptCtx, addr)
	if err != nil {
		m.resetAttempt(gen)
		if errors.Is(err, context.Canceled) {
			return nil, ErrCanceled
		}
		return nil, fmt.Errorf("connect: %w", err)
	}

	m.mu.Lock()
	if m.gen != gen || m.state != StateConnecting {
		m.mu.Unlock()
		_ = p.Close()
		return nil, ErrCanceled
	}
	mp := &managedPeripheral{m: m, gen: gen, link: p}
	m.link = p
	m.peripheral = mp
	m.state = StateConnected
	m.mu.Unlock()
	return mp, nil
}

// Peripheral returns the open link, or ErrNotConnected.
func (m *Manager) Peripheral() (Peripheral, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateConnected || m.peripheral == nil {
		return nil, ErrNotConnected
	}
	return m.peripheral, nil
}

// Disconnect releases the radio: it cancels a pending scan or connect
// attempt and closes an open link. Safe to call from teardown in any
// state, any number of times.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	cancel := m.cancel
	p := m.link
	m.cancel = nil
	m.link = nil
	m.peripheral = nil
	m.state = StateDisconnected
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if p != nil {
		_ = p.Close()
	}
}

// linkLost tears down the link after a transport failure so the manager
// lands back in disconnected instead of holding a dead handle. The gen
// guard keeps a stale handle from resetting a newer attempt.
func (m *Manager) linkLost(gen uint64) {
	m.mu.Lock()
	if m.gen != gen || m.state != StateConnected {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	p := m.link
	m.cancel = nil
	m.link = nil
	m.peripheral = nil
	m.state = StateDisconnected
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if p != nil {
		_ = p.Close()
	}
}

func (m *Manager) resetAttempt(gen uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gen != gen {
		// A newer attempt owns the radio now; leave it alone.
		return
	}
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	m.state = StateDisconnected
}

// managedPeripheral ties the handle's transport errors back to the state
// machine: a failed read or write means the link is gone, so the manager
// drops to disconnected instead of answering ErrBusy forever.
type managedPeripheral struct {
	m    *Manager
	gen  uint64
	link Peripheral
}

func (mp *managedPeripheral) Read(ctx context.Context, charID string) (string, error) {
	out, err := mp.link.Read(ctx, charID)
	if err != nil {
		mp.m.linkLost(mp.gen)
	}
	return out, err
}

func (mp *managedPeripheral) WriteNoResponse(ctx context.Context, charID string, payload string) error {
	err := mp.link.WriteNoResponse(ctx, charID, payload)
	if err != nil {
		mp.m.linkLost(mp.gen)
	}
	return err
}

func (mp *managedPeripheral) Close() error {
	mp.m.linkLost(mp.gen)
	return nil
}
