package adb

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// runnerFunc executes an adb invocation and returns its stdout.
// Replaceable in tests to avoid spawning real processes.
type runnerFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

// defaultRunner shells out to the adb binary, capturing stderr for
// error reporting.
func defaultRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return nil, fmt.Errorf("%w: %s", err, msg)
		}
		return nil, err
	}

	return stdout.Bytes(), nil
}

// Session is a command channel to one Android device, addressed by its
// adb serial ("address:port" for network devices, "emulator-5554" style
// for local emulators).
//
// All methods are safe for concurrent use; adb serializes per-device
// commands on the server side.
type Session struct {
	serial  string
	adbPath string
	timeout time.Duration
	run     runnerFunc
}

// NewSession creates a session for the given device serial.
//
// Parameters:
//   - serial: adb device serial (e.g., "127.0.0.1:5555")
//   - adbPath: path to the adb binary ("adb" to use PATH)
//   - timeout: per-command timeout applied when the caller's context has no deadline
func NewSession(serial, adbPath string, timeout time.Duration) *Session {
	if adbPath == "" {
		adbPath = "adb"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Session{
		serial:  serial,
		adbPath: adbPath,
		timeout: timeout,
		run:     defaultRunner,
	}
}

// Serial returns the device serial this session targets.
func (s *Session) Serial() string {
	return s.serial
}

// exec runs an adb command scoped to this session's device.
func (s *Session) exec(ctx context.Context, args ...string) ([]byte, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	full := append([]string{"-s", s.serial}, args...)
	out, err := s.run(ctx, s.adbPath, full...)
	if err != nil {
		return nil, fmt.Errorf("%w: adb %s: %w", ErrCommandFailed, strings.Join(args, " "), err)
	}
	return out, nil
}

// Capture takes a screenshot and returns raw PNG bytes.
//
// Uses exec-out to avoid the CR/LF mangling that plain shell output
// applies to binary data.
func (s *Session) Capture(ctx context.Context) ([]byte, error) {
	out, err := s.exec(ctx, "exec-out", "screencap", "-p")
	if err != nil {
		return nil, fmt.Errorf("screencap: %w", err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("screencap: %w", ErrEmptyScreenshot)
	}
	return out, nil
}

// Tap sends a tap at the given screen coordinates.
func (s *Session) Tap(ctx context.Context, x, y int) error {
	_, err := s.exec(ctx, "shell", "input", "tap", strconv.Itoa(x), strconv.Itoa(y))
	return err
}

// Swipe performs a swipe gesture from (x1,y1) to (x2,y2) over the given
// duration.
func (s *Session) Swipe(ctx context.Context, x1, y1, x2, y2 int, duration time.Duration) error {
	ms := int(duration.Milliseconds())
	if ms <= 0 {
		ms = 300
	}
	_, err := s.exec(ctx, "shell", "input", "swipe",
		strconv.Itoa(x1), strconv.Itoa(y1),
		strconv.Itoa(x2), strconv.Itoa(y2),
		strconv.Itoa(ms))
	return err
}

// InputText types text into the currently focused field.
//
// Spaces are encoded as %s per the input command's escaping rules.
func (s *Session) InputText(ctx context.Context, text string) error {
	escaped := strings.ReplaceAll(text, " ", "%s")
	_, err := s.exec(ctx, "shell", "input", "text", escaped)
	return err
}

// KeyEvent sends an Android key event code (e.g., 4 for BACK, 3 for HOME).
func (s *Session) KeyEvent(ctx context.Context, code int) error {
	_, err := s.exec(ctx, "shell", "input", "keyevent", strconv.Itoa(code))
	return err
}

// Shell runs an arbitrary shell command on the device and returns its output.
func (s *Session) Shell(ctx context.Context, command string) (string, error) {
	out, err := s.exec(ctx, "shell", command)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// StopApp force-stops the given package.
func (s *Session) StopApp(ctx context.Context, pkg string) error {
	_, err := s.exec(ctx, "shell", "am", "force-stop", pkg)
	return err
}

// LaunchApp starts the given package via its launcher activity.
//
// Uses monkey so the launcher activity name doesn't have to be known.
func (s *Session) LaunchApp(ctx context.Context, pkg string) error {
	_, err := s.exec(ctx, "shell", "monkey", "-p", pkg,
		"-c", "android.intent.category.LAUNCHER", "1")
	return err
}

// Connect asks the adb server to connect to a network device.
//
// adb connect exits 0 even on failure, so the output text is inspected.
func (s *Session) Connect(ctx context.Context) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	out, err := s.run(ctx, s.adbPath, "connect", s.serial)
	if err != nil {
		return fmt.Errorf("%w: adb connect %s: %w", ErrConnectFailed, s.serial, err)
	}

	text := strings.ToLower(string(out))
	if strings.Contains(text, "unable") || strings.Contains(text, "failed") || strings.Contains(text, "refused") {
		return fmt.Errorf("%w: %s", ErrConnectFailed, strings.TrimSpace(string(out)))
	}
	return nil
}

// Disconnect removes the network device from the adb server.
func (s *Session) Disconnect(ctx context.Context) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	if _, err := s.run(ctx, s.adbPath, "disconnect", s.serial); err != nil {
		return fmt.Errorf("adb disconnect %s: %w", s.serial, err)
	}
	return nil
}

// IsConnected reports whether the device appears in adb devices with
// state "device" (fully online, not "offline" or "unauthorized").
func (s *Session) IsConnected(ctx context.Context) bool {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	out, err := s.run(ctx, s.adbPath, "devices")
	if err != nil {
		return false
	}

	for _, line := range strings.Split(string(out), "\n") {
		fields := strings.Fields(line)
		if len(fields) >= 2 && fields[0] == s.serial && fields[1] == "device" {
			return true
		}
	}
	return false
}
