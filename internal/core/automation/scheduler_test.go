package automation

import (
	"context"
	"errors"
	"image"
	"math"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gowvp/autoinput/internal/conf"
	"github.com/gowvp/autoinput/internal/core/note"
	"github.com/gowvp/autoinput/internal/core/pattern"
)

type fakeCapture struct {
	calls atomic.Int64
	fail  func(n int64) bool
}

func (f *fakeCapture) Capture(_ context.Context, region image.Rectangle) (*note.Frame, error) {
	n := f.calls.Add(1)
	if f.fail != nil && f.fail(n) {
		return nil, errors.New("capture failed")
	}
	return &note.Frame{Image: image.NewRGBA(image.Rect(0, 0, 90, 30)), CapturedAt: time.Now(), Region: region}, nil
}

// fakeDetector 前 limit 次调用每次返回 lanes 中的一个音符
type fakeDetector struct {
	lanes int
	emit  []int
	limit int64
	calls atomic.Int64
}

func (f *fakeDetector) Lanes() int { return f.lanes }

func (f *fakeDetector) Detect(_ context.Context, frame *note.Frame) []note.Detection {
	n := f.calls.Add(1)
	if f.limit > 0 && n > f.limit {
		return nil
	}
	lane := f.emit[int(n-1)%len(f.emit)]
	return []note.Detection{{Lane: lane, Confidence: 1, Timestamp: frame.CapturedAt}}
}

type press struct {
	lanes []int
	at    time.Time
}

type fakeActuator struct {
	mu      sync.Mutex
	presses []press
	fail    func(n int) bool
	block   chan struct{}
}

func (f *fakeActuator) Press(_ context.Context, lanes []int, _ time.Duration) error {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.presses = append(f.presses, press{lanes: lanes, at: time.Now()})
	if f.fail != nil && f.fail(len(f.presses)) {
		return errors.New("press failed")
	}
	return nil
}

func (f *fakeActuator) list() []press {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]press(nil), f.presses...)
}

func testConfig() Config {
	return Config{
		Lanes:          9,
		Region:         image.Rect(0, 0, 90, 30),
		ScheduleMode:   conf.ScheduleAbsolute,
		FrameWindow:    10,
		HistorySize:    20,
		Yield:          time.Millisecond,
		PausePoll:      5 * time.Millisecond,
		StopTimeout:    500 * time.Millisecond,
		CaptureTimeout: 100 * time.Millisecond,
		DetectTimeout:  100 * time.Millisecond,
	}
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met within", timeout)
}

func newTestScheduler(t *testing.T, cfg Config, c CaptureSource, d Detector, a Actuator, opts ...Option) *Scheduler {
	t.Helper()
	s, err := NewScheduler(cfg, c, d, a, opts...)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Stop(context.Background()) })
	return s
}

func TestNewSchedulerConfigErrors(t *testing.T) {
	d := &fakeDetector{lanes: 7, emit: []int{0}}
	if _, err := NewScheduler(testConfig(), &fakeCapture{}, d, &fakeActuator{}); !errors.Is(err, ErrConfig) {
		t.Fatalf("lane mismatch: %v", err)
	}
	cfg := testConfig()
	cfg.ScheduleMode = "whenever"
	if _, err := NewScheduler(cfg, &fakeCapture{}, &fakeDetector{lanes: 9, emit: []int{0}}, &fakeActuator{}); !errors.Is(err, ErrConfig) {
		t.Fatalf("schedule mode: %v", err)
	}
	if _, err := NewScheduler(testConfig(), nil, &fakeDetector{lanes: 9, emit: []int{0}}, &fakeActuator{}); !errors.Is(err, ErrConfig) {
		t.Fatalf("nil capture: %v", err)
	}
	cfg = testConfig()
	cfg.FrameWindow = 256
	if _, err := NewScheduler(cfg, &fakeCapture{}, &fakeDetector{lanes: 9, emit: []int{0}}, &fakeActuator{}); !errors.Is(err, ErrConfig) {
		t.Fatalf("frame window: %v", err)
	}
}

func TestStateMachine(t *testing.T) {
	ctx := context.Background()
	s := newTestScheduler(t, testConfig(), &fakeCapture{}, &fakeDetector{lanes: 9, emit: []int{0}, limit: 1}, &fakeActuator{})

	if r := s.Pause(); r.Changed || s.State() != StateIdle {
		t.Fatalf("pause from idle: %+v", r)
	}
	if r := s.Stop(ctx); r.Changed {
		t.Fatalf("stop from idle: %+v", r)
	}
	r, err := s.Start(ctx)
	if err != nil || !r.Changed || s.State() != StateRunning {
		t.Fatalf("start: %+v %v", r, err)
	}
	if r, _ := s.Start(ctx); r.Changed || r.Message != "already running" {
		t.Fatalf("second start: %+v", r)
	}
	if r := s.Resume(); r.Changed {
		t.Fatalf("resume while running: %+v", r)
	}
	if r := s.Pause(); !r.Changed || s.State() != StatePaused {
		t.Fatalf("pause: %+v", r)
	}
	if st := s.Statistics(); !st.Running || !st.Paused {
		t.Fatalf("stats while paused: %+v", st)
	}
	if r, _ := s.Start(ctx); r.Changed {
		t.Fatalf("start while paused: %+v", r)
	}
	if r := s.Resume(); !r.Changed || s.State() != StateRunning {
		t.Fatalf("resume: %+v", r)
	}
	if r := s.Stop(ctx); !r.Changed || s.State() != StateIdle {
		t.Fatalf("stop: %+v", r)
	}
	if st := s.Statistics(); st.Running || st.State != StateIdle {
		t.Fatalf("stats after stop: %+v", st)
	}
}

func TestAccuracyAndHook(t *testing.T) {
	act := &fakeActuator{fail: func(n int) bool { return n == 3 || n == 7 }}
	det := &fakeDetector{lanes: 9, emit: []int{0, 1, 2, 3, 4}, limit: 10}

	var final Statistics
	done := make(chan struct{})
	hook := WithSessionHook(func(_ context.Context, st Statistics) {
		final = st
		close(done)
	})
	s := newTestScheduler(t, testConfig(), &fakeCapture{}, det, act, hook)
	if _, err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	waitFor(t, 2*time.Second, func() bool {
		st := s.Statistics()
		return st.NotesHit+st.NotesMissed == 10
	})
	st := s.Statistics()
	if st.NotesHit != 8 || st.NotesMissed != 2 {
		t.Fatalf("hits=%d misses=%d", st.NotesHit, st.NotesMissed)
	}
	if math.Abs(st.Accuracy-80) > 1e-9 {
		t.Fatalf("accuracy %v", st.Accuracy)
	}
	if st.AvgFrameTimeMs <= 0 || st.FPS <= 0 {
		t.Fatalf("frame timing %+v", st)
	}

	s.Stop(context.Background())
	<-done
	if final.NotesHit != 8 || final.State != StateIdle {
		t.Fatalf("hook stats %+v", final)
	}
}

func TestCaptureFailureIsSkipped(t *testing.T) {
	capt := &fakeCapture{fail: func(n int64) bool { return n <= 3 }}
	det := &fakeDetector{lanes: 9, emit: []int{4}, limit: 2}
	act := &fakeActuator{}
	s := newTestScheduler(t, testConfig(), capt, det, act)
	if _, err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	waitFor(t, 2*time.Second, func() bool { return s.Statistics().NotesHit == 2 })
	st := s.Statistics()
	if st.NotesHit != 2 || st.NotesMissed != 0 {
		t.Fatalf("%+v", st)
	}
	if capt.calls.Load() <= 3 {
		t.Fatal("loop stopped after capture failure")
	}
}

func TestInvalidLaneCountsAsMiss(t *testing.T) {
	det := &fakeDetector{lanes: 9, emit: []int{12}, limit: 1}
	act := &fakeActuator{}
	s := newTestScheduler(t, testConfig(), &fakeCapture{}, det, act)
	if _, err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	waitFor(t, time.Second, func() bool { return s.Statistics().NotesMissed == 1 })
	if len(act.list()) != 0 {
		t.Fatal("invalid lane must not reach the actuator")
	}
}

func TestAbsoluteScheduling(t *testing.T) {
	cfg := testConfig()
	cfg.TimingOffset = 30 * time.Millisecond
	det := &fakeDetector{lanes: 9, emit: []int{5}, limit: 1}
	act := &fakeActuator{}
	capt := &fakeCapture{}
	s := newTestScheduler(t, cfg, capt, det, act)
	before := time.Now()
	if _, err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	waitFor(t, time.Second, func() bool { return s.Statistics().NotesHit == 1 })
	p := act.list()[0]
	if p.at.Sub(before) < 30*time.Millisecond {
		t.Fatalf("pressed %v after start, want >= 30ms", p.at.Sub(before))
	}
	if len(p.lanes) != 1 || p.lanes[0] != 5 {
		t.Fatalf("lanes %v", p.lanes)
	}
	st := s.Statistics()
	if st.TimingOffsetMs != 30 {
		t.Fatalf("offset %v", st.TimingOffsetMs)
	}
	if st.Performance == nil || st.Performance.Hits != 1 {
		t.Fatalf("performance %+v", st.Performance)
	}
}

func TestPatternAnalysis(t *testing.T) {
	cl, err := pattern.NewClassifier(16)
	if err != nil {
		t.Fatal(err)
	}
	det := &fakeDetector{lanes: 9, emit: []int{0, 1, 2, 3}, limit: 4}
	act := &fakeActuator{}
	s := newTestScheduler(t, testConfig(), &fakeCapture{}, det, act, WithAnalyzer(cl))
	if _, err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	waitFor(t, time.Second, func() bool { return len(act.list()) == 4 })
	st := s.Statistics()
	if st.LastPattern == nil || st.LastPattern.Type != pattern.TypeAscending || st.LastPattern.Density != 4 {
		t.Fatalf("pattern %+v", st.LastPattern)
	}
}

func TestStopIsBoundedWhenWorkerIsStuck(t *testing.T) {
	cfg := testConfig()
	cfg.StopTimeout = 50 * time.Millisecond
	block := make(chan struct{})
	t.Cleanup(func() { close(block) })
	act := &fakeActuator{block: block}
	det := &fakeDetector{lanes: 9, emit: []int{1}}
	capt := &fakeCapture{}
	s := newTestScheduler(t, cfg, capt, det, act)
	if _, err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	waitFor(t, time.Second, func() bool { return det.calls.Load() > 0 })

	start := time.Now()
	r := s.Stop(context.Background())
	if cost := time.Since(start); cost > 500*time.Millisecond {
		t.Fatalf("stop blocked %v", cost)
	}
	if !r.Changed || !strings.Contains(r.Message, "did not exit") {
		t.Fatalf("%+v", r)
	}
	if s.State() != StateIdle {
		t.Fatal(s.State())
	}
	if r, _ := s.Start(context.Background()); !r.Changed {
		t.Fatalf("restart: %+v", r)
	}
}

func TestResetStatistics(t *testing.T) {
	det := &fakeDetector{lanes: 9, emit: []int{1}, limit: 3}
	act := &fakeActuator{}
	s := newTestScheduler(t, testConfig(), &fakeCapture{}, det, act)
	if _, err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	waitFor(t, time.Second, func() bool { return s.Statistics().NotesHit == 3 })
	s.ResetStatistics()
	st := s.Statistics()
	if st.NotesHit != 0 || st.NotesMissed != 0 || st.Accuracy != 0 {
		t.Fatalf("%+v", st)
	}
	if !st.Running {
		t.Fatal("reset must not stop the session")
	}
}

func TestEmptyStatistics(t *testing.T) {
	s := newTestScheduler(t, testConfig(), &fakeCapture{}, &fakeDetector{lanes: 9, emit: []int{0}}, &fakeActuator{})
	st := s.Statistics()
	if st.Accuracy != 0 || st.FPS != 0 || st.AvgFrameTimeMs != 0 || st.SessionDuration != 0 {
		t.Fatalf("%+v", st)
	}
	s.SetTimingOffset(75 * time.Millisecond)
	if s.Statistics().TimingOffsetMs != 75 {
		t.Fatal("offset not applied")
	}
}

func TestFrameWindowBounded(t *testing.T) {
	st := newSessionStats(time.Now(), 3, 5)
	for i := range 10 {
		st.recordFrame(time.Duration(i+1) * time.Millisecond)
	}
	if n := len(st.frames.Range()); n > 3 {
		t.Fatalf("window holds %d", n)
	}
	for range 20 {
		st.remember([]note.Detection{{Lane: 1}})
	}
	if n := len(st.history); n != 5 {
		t.Fatalf("history holds %d", n)
	}
}
