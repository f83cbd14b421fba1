package automation

import (
	"context"
	"errors"
	"image"
	"testing"
	"time"

	"github.com/droidpilot/droidpilot/internal/infrastructure/logging"
	"github.com/droidpilot/droidpilot/internal/vision"
)

// fakeDevices scripts device command outcomes and records taps.
type fakeDevices struct {
	screenshot    []byte
	screenshotErr error
	opErr         error

	taps       [][2]int
	inputTexts []string
	shellCmds  []string
	restarts   []string
	keyEvents  []int
	swipes     int
}

func (f *fakeDevices) Screenshot(context.Context, string) ([]byte, error) {
	return f.screenshot, f.screenshotErr
}

func (f *fakeDevices) Tap(_ context.Context, _ string, x, y int) error {
	if f.opErr != nil {
		return f.opErr
	}
	f.taps = append(f.taps, [2]int{x, y})
	return nil
}

func (f *fakeDevices) Swipe(context.Context, string, int, int, int, int, time.Duration) error {
	if f.opErr != nil {
		return f.opErr
	}
	f.swipes++
	return nil
}

func (f *fakeDevices) InputText(_ context.Context, _ string, text string) error {
	if f.opErr != nil {
		return f.opErr
	}
	f.inputTexts = append(f.inputTexts, text)
	return nil
}

func (f *fakeDevices) KeyEvent(_ context.Context, _ string, code int) error {
	if f.opErr != nil {
		return f.opErr
	}
	f.keyEvents = append(f.keyEvents, code)
	return nil
}

func (f *fakeDevices) Shell(_ context.Context, _ string, cmd string) (string, error) {
	if f.opErr != nil {
		return "", f.opErr
	}
	f.shellCmds = append(f.shellCmds, cmd)
	return "", nil
}

func (f *fakeDevices) RestartApp(_ context.Context, _ string, pkg string) error {
	if f.opErr != nil {
		return f.opErr
	}
	f.restarts = append(f.restarts, pkg)
	return nil
}

// fakeStore returns one prepared template for any name.
type fakeStore struct{}

func (fakeStore) Get(name string) (*vision.Template, error) {
	img := image.NewGray(image.Rect(0, 0, 2, 2))
	img.Pix[0] = 255
	return vision.NewTemplate(name, img), nil
}

// fakeMatcher scripts match results per call.
type fakeMatcher struct {
	match vision.Match
	found bool
	calls int

	// foundAfter makes the matcher miss until this many calls occurred.
	foundAfter int
}

func (f *fakeMatcher) FindPNG([]byte, *vision.Template, float64) (vision.Match, bool, error) {
	f.calls++
	if f.foundAfter > 0 {
		if f.calls >= f.foundAfter {
			return f.match, true, nil
		}
		return vision.Match{}, false, nil
	}
	return f.match, f.found, nil
}

// testClock drives the executor's injectable time without real sleeps.
type testClock struct {
	now    time.Time
	sleeps []time.Duration
}

func (c *testClock) sleep(d time.Duration) {
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
}

func (c *testClock) at() time.Time { return c.now }

func newTestExecutor(devices *fakeDevices, matcher *fakeMatcher) (*Executor, *testClock) {
	clock := &testClock{now: time.Unix(1000, 0)}
	e := NewExecutor(devices, fakeStore{}, matcher, logging.Default())
	e.sleep = clock.sleep
	e.now = clock.at
	return e, clock
}

func testSettings() Settings {
	s := Settings{}
	s.applyDefaults()
	return s
}

func TestClickImageTapsMatchCenter(t *testing.T) {
	devices := &fakeDevices{screenshot: []byte("png")}
	matcher := &fakeMatcher{
		match: vision.Match{X: 90, Y: 190, Width: 20, Height: 20, Score: 0.9},
		found: true,
	}
	e, _ := newTestExecutor(devices, matcher)

	act := Action{Kind: ActionClickImage, Template: "login", Threshold: 0.8}
	res := e.Run(context.Background(), "dev1", act, testSettings())

	if !res.Done || res.Attempts != 1 {
		t.Fatalf("Run() = %+v, want done in 1 attempt", res)
	}
	if len(devices.taps) != 1 || devices.taps[0] != [2]int{100, 200} {
		t.Errorf("taps = %v, want one tap at (100,200)", devices.taps)
	}
}

func TestClickImageFailsAfterAllAttemptsNoTaps(t *testing.T) {
	devices := &fakeDevices{screenshot: []byte("png")}
	matcher := &fakeMatcher{found: false} // confidence below threshold every time
	e, clock := newTestExecutor(devices, matcher)

	set := testSettings()
	act := Action{Kind: ActionClickImage, Template: "login", Threshold: 0.8}
	res := e.Run(context.Background(), "dev1", act, set)

	if res.Done {
		t.Fatal("Run() done = true, want false")
	}
	if res.Attempts != set.MaxActionAttempts {
		t.Errorf("attempts = %d, want %d", res.Attempts, set.MaxActionAttempts)
	}
	if len(devices.taps) != 0 {
		t.Errorf("taps = %v, want none", devices.taps)
	}
	if matcher.calls != set.MaxActionAttempts {
		t.Errorf("matcher calls = %d, want %d", matcher.calls, set.MaxActionAttempts)
	}

	// retry_delay between attempts: N attempts -> N-1 sleeps.
	retryDelay := time.Duration(set.RetryDelay) * time.Millisecond
	var retrySleeps int
	for _, d := range clock.sleeps {
		if d == retryDelay {
			retrySleeps++
		}
	}
	if retrySleeps != set.MaxActionAttempts-1 {
		t.Errorf("retry sleeps = %d, want %d", retrySleeps, set.MaxActionAttempts-1)
	}
}

func TestTransportFailureMakesExactlyNAttempts(t *testing.T) {
	devices := &fakeDevices{opErr: errors.New("transport down")}
	e, _ := newTestExecutor(devices, &fakeMatcher{})

	set := testSettings()
	set.MaxActionAttempts = 3
	res := e.Run(context.Background(), "dev1", Action{Kind: ActionKeyEvent, Code: 4}, set)

	if res.Done {
		t.Fatal("Run() done = true, want false")
	}
	if res.Attempts != 3 {
		t.Errorf("attempts = %d, want exactly 3", res.Attempts)
	}
}

func TestSleepNeverFails(t *testing.T) {
	e, clock := newTestExecutor(&fakeDevices{}, &fakeMatcher{})

	res := e.Run(context.Background(), "dev1", Action{Kind: ActionSleep, Duration: 250}, testSettings())

	if !res.Done || res.Attempts != 1 {
		t.Fatalf("Run() = %+v, want done in 1 attempt", res)
	}
	if len(clock.sleeps) == 0 || clock.sleeps[0] != 250*time.Millisecond {
		t.Errorf("sleeps = %v, want first 250ms", clock.sleeps)
	}
}

func TestWaitImageTimesOutWithinOnePollInterval(t *testing.T) {
	devices := &fakeDevices{screenshot: []byte("png")}
	matcher := &fakeMatcher{found: false}
	e, clock := newTestExecutor(devices, matcher)

	set := testSettings()
	start := clock.now
	act := Action{Kind: ActionWaitImage, Template: "ready", Timeout: 5000}
	res := e.Run(context.Background(), "dev1", act, set)

	if res.Done {
		t.Fatal("Run() done = true, want false")
	}

	elapsed := clock.now.Sub(start)
	timeout := 5 * time.Second
	if elapsed < timeout {
		t.Errorf("returned after %v, want >= %v", elapsed, timeout)
	}
	if elapsed > timeout+defaultPollInterval {
		t.Errorf("returned after %v, want <= %v", elapsed, timeout+defaultPollInterval)
	}
}

func TestWaitImageReturnsOnFirstMatch(t *testing.T) {
	devices := &fakeDevices{screenshot: []byte("png")}
	matcher := &fakeMatcher{match: vision.Match{Score: 0.9}, foundAfter: 3}
	e, _ := newTestExecutor(devices, matcher)

	act := Action{Kind: ActionWaitImage, Template: "ready", Timeout: 30000}
	res := e.Run(context.Background(), "dev1", act, testSettings())

	if !res.Done {
		t.Fatalf("Run() = %+v, want done", res)
	}
	if res.Attempts != 3 {
		t.Errorf("polls = %d, want 3", res.Attempts)
	}
}

func TestWaitImageNotSubjectToOuterRetry(t *testing.T) {
	devices := &fakeDevices{screenshot: []byte("png")}
	matcher := &fakeMatcher{found: false}
	e, _ := newTestExecutor(devices, matcher)

	set := testSettings()
	set.MaxActionAttempts = 5
	act := Action{Kind: ActionWaitImage, Template: "ready", Timeout: 2000}
	e.Run(context.Background(), "dev1", act, set)

	// 2s timeout at 1s polls: 3 polls max, far fewer than 5 retries
	// of the full loop would produce.
	if matcher.calls > 3 {
		t.Errorf("matcher calls = %d, want <= 3 (no outer retry)", matcher.calls)
	}
}

func TestClickDelayAppliedAfterTap(t *testing.T) {
	devices := &fakeDevices{}
	e, clock := newTestExecutor(devices, &fakeMatcher{})

	set := testSettings()
	e.Run(context.Background(), "dev1", Action{Kind: ActionTap, X: 5, Y: 5}, set)

	clickDelay := time.Duration(set.ClickDelay) * time.Millisecond
	if len(clock.sleeps) != 1 || clock.sleeps[0] != clickDelay {
		t.Errorf("sleeps = %v, want single click_delay %v", clock.sleeps, clickDelay)
	}
}

func TestWaitAfterOverridesClickDelay(t *testing.T) {
	devices := &fakeDevices{}
	e, clock := newTestExecutor(devices, &fakeMatcher{})

	e.Run(context.Background(), "dev1", Action{Kind: ActionTap, X: 5, Y: 5, WaitAfter: 100}, testSettings())

	if len(clock.sleeps) != 1 || clock.sleeps[0] != 100*time.Millisecond {
		t.Errorf("sleeps = %v, want single 100ms wait_after", clock.sleeps)
	}
}

func TestRunListPacesActionInterval(t *testing.T) {
	devices := &fakeDevices{}
	e, clock := newTestExecutor(devices, &fakeMatcher{})

	set := testSettings()
	actions := []Action{
		{Kind: ActionKeyEvent, Code: 3},
		{Kind: ActionKeyEvent, Code: 4},
		{Kind: ActionKeyEvent, Code: 4},
	}
	if !e.RunList(context.Background(), "dev1", actions, set) {
		t.Fatal("RunList() = false, want true")
	}

	interval := time.Duration(set.ActionInterval) * time.Millisecond
	var pacing int
	for _, d := range clock.sleeps {
		if d == interval {
			pacing++
		}
	}
	if pacing != 2 {
		t.Errorf("pacing sleeps = %d, want 2 (between 3 actions)", pacing)
	}
}

func TestRunListStopsAtFirstFailure(t *testing.T) {
	devices := &fakeDevices{opErr: errors.New("down")}
	e, _ := newTestExecutor(devices, &fakeMatcher{})

	set := testSettings()
	set.MaxActionAttempts = 1
	actions := []Action{
		{Kind: ActionKeyEvent, Code: 3},
		{Kind: ActionSleep, Duration: 100},
	}
	if e.RunList(context.Background(), "dev1", actions, set) {
		t.Fatal("RunList() = true, want false")
	}
}

func TestContextCancellationAbortsRetryLoop(t *testing.T) {
	devices := &fakeDevices{opErr: errors.New("down")}
	e, _ := newTestExecutor(devices, &fakeMatcher{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := e.Run(ctx, "dev1", Action{Kind: ActionTap, X: 1, Y: 1}, testSettings())
	if res.Done {
		t.Error("Run() done = true after cancellation, want false")
	}
}
