package adb

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

// fakeRunner records invocations and returns canned output.
type fakeRunner struct {
	calls  [][]string
	output []byte
	err    error
}

func (f *fakeRunner) run(_ context.Context, name string, args ...string) ([]byte, error) {
	call := append([]string{name}, args...)
	f.calls = append(f.calls, call)
	return f.output, f.err
}

func newTestSession(f *fakeRunner) *Session {
	s := NewSession("127.0.0.1:5555", "adb", 5*time.Second)
	s.run = f.run
	return s
}

func TestTapCommandLine(t *testing.T) {
	f := &fakeRunner{}
	s := newTestSession(f)

	if err := s.Tap(context.Background(), 100, 200); err != nil {
		t.Fatalf("Tap() error = %v", err)
	}

	want := "adb -s 127.0.0.1:5555 shell input tap 100 200"
	got := strings.Join(f.calls[0], " ")
	if got != want {
		t.Errorf("Tap() command = %q, want %q", got, want)
	}
}

func TestSwipeCommandLine(t *testing.T) {
	f := &fakeRunner{}
	s := newTestSession(f)

	if err := s.Swipe(context.Background(), 500, 1000, 500, 200, 300*time.Millisecond); err != nil {
		t.Fatalf("Swipe() error = %v", err)
	}

	want := "adb -s 127.0.0.1:5555 shell input swipe 500 1000 500 200 300"
	got := strings.Join(f.calls[0], " ")
	if got != want {
		t.Errorf("Swipe() command = %q, want %q", got, want)
	}
}

func TestInputTextEscapesSpaces(t *testing.T) {
	f := &fakeRunner{}
	s := newTestSession(f)

	if err := s.InputText(context.Background(), "hello world"); err != nil {
		t.Fatalf("InputText() error = %v", err)
	}

	got := f.calls[0]
	if got[len(got)-1] != "hello%sworld" {
		t.Errorf("InputText() sent %q, want %q", got[len(got)-1], "hello%sworld")
	}
}

func TestCaptureEmptyOutput(t *testing.T) {
	f := &fakeRunner{output: nil}
	s := newTestSession(f)

	_, err := s.Capture(context.Background())
	if !errors.Is(err, ErrEmptyScreenshot) {
		t.Errorf("Capture() error = %v, want ErrEmptyScreenshot", err)
	}
}

func TestCaptureReturnsBytes(t *testing.T) {
	png := []byte{0x89, 'P', 'N', 'G'}
	f := &fakeRunner{output: png}
	s := newTestSession(f)

	got, err := s.Capture(context.Background())
	if err != nil {
		t.Fatalf("Capture() error = %v", err)
	}
	if string(got) != string(png) {
		t.Errorf("Capture() = %v, want %v", got, png)
	}

	want := "adb -s 127.0.0.1:5555 exec-out screencap -p"
	if strings.Join(f.calls[0], " ") != want {
		t.Errorf("Capture() command = %q, want %q", strings.Join(f.calls[0], " "), want)
	}
}

func TestCommandFailureWrapsSentinel(t *testing.T) {
	f := &fakeRunner{err: errors.New("device offline")}
	s := newTestSession(f)

	err := s.Tap(context.Background(), 1, 1)
	if !errors.Is(err, ErrCommandFailed) {
		t.Errorf("Tap() error = %v, want ErrCommandFailed", err)
	}
}

func TestConnectDetectsFailureText(t *testing.T) {
	tests := []struct {
		name    string
		output  string
		wantErr bool
	}{
		{"connected", "connected to 127.0.0.1:5555", false},
		{"already connected", "already connected to 127.0.0.1:5555", false},
		{"unable", "unable to connect to 127.0.0.1:5555", true},
		{"refused", "failed to connect: Connection refused", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeRunner{output: []byte(tt.output)}
			s := newTestSession(f)

			err := s.Connect(context.Background())
			if tt.wantErr && !errors.Is(err, ErrConnectFailed) {
				t.Errorf("Connect() error = %v, want ErrConnectFailed", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Connect() error = %v, want nil", err)
			}
		})
	}
}

func TestIsConnectedParsesDeviceList(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   bool
	}{
		{"online", "List of devices attached\n127.0.0.1:5555\tdevice\n", true},
		{"offline", "List of devices attached\n127.0.0.1:5555\toffline\n", false},
		{"unauthorized", "List of devices attached\n127.0.0.1:5555\tunauthorized\n", false},
		{"absent", "List of devices attached\nemulator-5554\tdevice\n", false},
		{"empty", "List of devices attached\n", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeRunner{output: []byte(tt.output)}
			s := newTestSession(f)

			if got := s.IsConnected(context.Background()); got != tt.want {
				t.Errorf("IsConnected() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLaunchAppUsesMonkey(t *testing.T) {
	f := &fakeRunner{}
	s := newTestSession(f)

	if err := s.LaunchApp(context.Background(), "com.example.app"); err != nil {
		t.Fatalf("LaunchApp() error = %v", err)
	}

	want := "adb -s 127.0.0.1:5555 shell monkey -p com.example.app -c android.intent.category.LAUNCHER 1"
	got := strings.Join(f.calls[0], " ")
	if got != want {
		t.Errorf("LaunchApp() command = %q, want %q", got, want)
	}
}
