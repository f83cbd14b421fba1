package device

import (
	"context"
	"time"
)

// Session is the command channel a device exposes. Implemented by
// adb.Session; replaced by fakes in tests.
type Session interface {
	Serial() string
	Capture(ctx context.Context) ([]byte, error)
	Tap(ctx context.Context, x, y int) error
	Swipe(ctx context.Context, x1, y1, x2, y2 int, duration time.Duration) error
	InputText(ctx context.Context, text string) error
	KeyEvent(ctx context.Context, code int) error
	Shell(ctx context.Context, command string) (string, error)
	StopApp(ctx context.Context, pkg string) error
	LaunchApp(ctx context.Context, pkg string) error
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	IsConnected(ctx context.Context) bool
}

// Status is a device's last-known connectivity state.
type Status string

const (
	// StatusOnline means the last command or probe succeeded.
	StatusOnline Status = "online"

	// StatusOffline means the last command failed and reconnection did not help.
	StatusOffline Status = "offline"

	// StatusUnknown means no command has been issued yet.
	StatusUnknown Status = "unknown"
)

// Info is a point-in-time snapshot of one device, safe to serialize.
type Info struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Status   Status    `json:"status"`
	LastSeen time.Time `json:"last_seen,omitempty"`
}
