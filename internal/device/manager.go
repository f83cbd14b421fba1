package device

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/droidpilot/droidpilot/internal/adb"
	"github.com/droidpilot/droidpilot/internal/infrastructure/config"
	"github.com/droidpilot/droidpilot/internal/infrastructure/logging"
)

// launchDelay is the settle time between force-stop and relaunch.
const launchDelay = 1 * time.Second

// managed pairs a session with its synchronized status.
type managed struct {
	id      string
	name    string
	session Session

	mu       sync.RWMutex
	status   Status
	lastSeen time.Time
}

func (d *managed) setStatus(s Status) bool {
	d.mu.Lock()
	changed := d.status != s
	d.status = s
	if s == StatusOnline {
		d.lastSeen = time.Now()
	}
	d.mu.Unlock()
	return changed
}

func (d *managed) info() Info {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return Info{
		ID:       d.id,
		Name:     d.name,
		Status:   d.status,
		LastSeen: d.lastSeen,
	}
}

// Manager owns the device fleet and mediates every command to it.
//
// On command failure it attempts exactly one reconnect and retries the
// command once. A second failure marks the device offline and surfaces
// the error; higher-level retry policy belongs to the action executor.
//
// All methods are safe for concurrent use. Commands to different
// devices proceed in parallel; adb serializes per-device traffic.
type Manager struct {
	mu      sync.RWMutex
	devices map[string]*managed

	log      *logging.Logger
	sleep    func(time.Duration)
	onStatus func(id string, status Status)
}

// NewManager creates an empty manager. Devices are added with Register.
func NewManager(log *logging.Logger) *Manager {
	return &Manager{
		devices: make(map[string]*managed),
		log:     log,
		sleep:   time.Sleep,
	}
}

// FromConfig builds a manager with an adb session per configured device.
func FromConfig(cfg *config.Config, log *logging.Logger) (*Manager, error) {
	m := NewManager(log)

	for _, entry := range cfg.Devices {
		spec, err := config.ParseDeviceSpec(entry)
		if err != nil {
			return nil, fmt.Errorf("device %q: %w", entry, err)
		}
		session := adb.NewSession(spec.ID(), cfg.ADB.Path, cfg.GetCommandTimeout())
		m.Register(spec.ID(), spec.Name, session)
	}

	return m, nil
}

// Register adds a device to the fleet. A device registered twice keeps
// the most recent session.
func (m *Manager) Register(id, name string, session Session) {
	if name == "" {
		name = id
	}
	m.mu.Lock()
	m.devices[id] = &managed{
		id:      id,
		name:    name,
		session: session,
		status:  StatusUnknown,
	}
	m.mu.Unlock()
}

// SetOnStatusChange registers a callback fired whenever a device's
// connectivity status changes. The callback must not block.
func (m *Manager) SetOnStatusChange(fn func(id string, status Status)) {
	m.onStatus = fn
}

// setStatus updates a device's status and fires the change callback.
func (m *Manager) setStatus(d *managed, s Status) {
	if d.setStatus(s) && m.onStatus != nil {
		m.onStatus(d.id, s)
	}
}

// get returns the managed device or ErrDeviceNotFound.
func (m *Manager) get(id string) (*managed, error) {
	m.mu.RLock()
	d, ok := m.devices[id]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDeviceNotFound, id)
	}
	return d, nil
}

// IDs returns all registered device IDs in sorted order.
func (m *Manager) IDs() []string {
	m.mu.RLock()
	ids := make([]string, 0, len(m.devices))
	for id := range m.devices {
		ids = append(ids, id)
	}
	m.mu.RUnlock()
	sort.Strings(ids)
	return ids
}

// Devices returns a status snapshot of the fleet, sorted by device ID.
func (m *Manager) Devices() []Info {
	ids := m.IDs()
	infos := make([]Info, 0, len(ids))
	for _, id := range ids {
		if d, err := m.get(id); err == nil {
			infos = append(infos, d.info())
		}
	}
	return infos
}

// Has reports whether a device ID is registered.
func (m *Manager) Has(id string) bool {
	m.mu.RLock()
	_, ok := m.devices[id]
	m.mu.RUnlock()
	return ok
}

// do runs op against the device, reconnecting once on failure.
func (m *Manager) do(ctx context.Context, id string, op func(context.Context, Session) error) error {
	d, err := m.get(id)
	if err != nil {
		return err
	}

	if err := op(ctx, d.session); err == nil {
		m.setStatus(d, StatusOnline)
		return nil
	} else if ctx.Err() != nil {
		return ctx.Err()
	} else {
		m.log.Warn("device command failed, reconnecting", "device", id, "error", err)
	}

	if err := d.session.Connect(ctx); err != nil {
		m.setStatus(d, StatusOffline)
		return fmt.Errorf("%w: %s: %w", ErrDeviceUnavailable, id, err)
	}

	if err := op(ctx, d.session); err != nil {
		m.setStatus(d, StatusOffline)
		return fmt.Errorf("%w: %s: %w", ErrDeviceUnavailable, id, err)
	}

	m.setStatus(d, StatusOnline)
	return nil
}

// Screenshot captures the device screen as PNG bytes.
func (m *Manager) Screenshot(ctx context.Context, id string) ([]byte, error) {
	var png []byte
	err := m.do(ctx, id, func(ctx context.Context, s Session) error {
		var err error
		png, err = s.Capture(ctx)
		return err
	})
	return png, err
}

// Tap sends a tap at the given coordinates.
func (m *Manager) Tap(ctx context.Context, id string, x, y int) error {
	return m.do(ctx, id, func(ctx context.Context, s Session) error {
		return s.Tap(ctx, x, y)
	})
}

// Swipe performs a swipe gesture.
func (m *Manager) Swipe(ctx context.Context, id string, x1, y1, x2, y2 int, duration time.Duration) error {
	return m.do(ctx, id, func(ctx context.Context, s Session) error {
		return s.Swipe(ctx, x1, y1, x2, y2, duration)
	})
}

// InputText types text into the focused field.
func (m *Manager) InputText(ctx context.Context, id, text string) error {
	return m.do(ctx, id, func(ctx context.Context, s Session) error {
		return s.InputText(ctx, text)
	})
}

// KeyEvent sends an Android key event code.
func (m *Manager) KeyEvent(ctx context.Context, id string, code int) error {
	return m.do(ctx, id, func(ctx context.Context, s Session) error {
		return s.KeyEvent(ctx, code)
	})
}

// Shell runs a shell command on the device and returns its trimmed output.
func (m *Manager) Shell(ctx context.Context, id, command string) (string, error) {
	var out string
	err := m.do(ctx, id, func(ctx context.Context, s Session) error {
		var err error
		out, err = s.Shell(ctx, command)
		return err
	})
	return out, err
}

// RestartApp force-stops a package, waits for it to settle, and
// relaunches it via the launcher intent.
func (m *Manager) RestartApp(ctx context.Context, id, pkg string) error {
	if err := m.do(ctx, id, func(ctx context.Context, s Session) error {
		return s.StopApp(ctx, pkg)
	}); err != nil {
		return err
	}

	m.sleep(launchDelay)

	return m.do(ctx, id, func(ctx context.Context, s Session) error {
		return s.LaunchApp(ctx, pkg)
	})
}

// Connect issues adb connect for one device and updates its status.
func (m *Manager) Connect(ctx context.Context, id string) error {
	d, err := m.get(id)
	if err != nil {
		return err
	}
	if err := d.session.Connect(ctx); err != nil {
		m.setStatus(d, StatusOffline)
		return err
	}
	m.setStatus(d, StatusOnline)
	return nil
}

// Disconnect releases one device's transport and resets its status.
func (m *Manager) Disconnect(ctx context.Context, id string) error {
	d, err := m.get(id)
	if err != nil {
		return err
	}
	if err := d.session.Disconnect(ctx); err != nil {
		return err
	}
	m.setStatus(d, StatusUnknown)
	return nil
}

// ConnectAll connects every registered device, collecting failures.
// A partial failure does not abort the remaining connects.
func (m *Manager) ConnectAll(ctx context.Context) error {
	var firstErr error
	for _, id := range m.IDs() {
		if err := m.Connect(ctx, id); err != nil {
			m.log.Warn("device connect failed", "device", id, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// DisconnectAll disconnects every registered device. Errors are logged,
// not returned; disconnect is shutdown-path cleanup.
func (m *Manager) DisconnectAll(ctx context.Context) {
	for _, id := range m.IDs() {
		d, err := m.get(id)
		if err != nil {
			continue
		}
		if err := d.session.Disconnect(ctx); err != nil {
			m.log.Warn("device disconnect failed", "device", id, "error", err)
		}
		m.setStatus(d, StatusUnknown)
	}
}

// Probe refreshes one device's status by asking adb for its state.
func (m *Manager) Probe(ctx context.Context, id string) (Status, error) {
	d, err := m.get(id)
	if err != nil {
		return StatusUnknown, err
	}
	if d.session.IsConnected(ctx) {
		m.setStatus(d, StatusOnline)
	} else {
		m.setStatus(d, StatusOffline)
	}
	return d.info().Status, nil
}
