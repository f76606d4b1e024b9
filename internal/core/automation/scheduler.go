package automation

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gowvp/autoinput/internal/conf"
	"github.com/gowvp/autoinput/internal/core/note"
)

// Scheduler 采集识别按键循环的唯一所有者
type Scheduler struct {
	cfg      Config
	capture  CaptureSource
	detector Detector
	actuator Actuator
	analyzer Analyzer
	observer Observer
	onStop   func(context.Context, Statistics)
	log      *slog.Logger

	state       atomic.Int32
	offset      atomic.Int64
	calibrating atomic.Bool

	// ctrl 串行化状态切换与校准
	ctrl   sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}

	mu    sync.Mutex
	stats *sessionStats
}

type Option func(*Scheduler)

// WithAnalyzer 每轮识别后对最近序列做模式分析
func WithAnalyzer(a Analyzer) Option {
	return func(s *Scheduler) { s.analyzer = a }
}

func WithObserver(o Observer) Option {
	return func(s *Scheduler) {
		if o != nil {
			s.observer = o
		}
	}
}

// WithSessionHook 会话停止后回调最终统计
func WithSessionHook(fn func(context.Context, Statistics)) Option {
	return func(s *Scheduler) { s.onStop = fn }
}

// NewScheduler 识别器轨道数与配置不一致时返回 ErrConfig
func NewScheduler(cfg Config, capture CaptureSource, detector Detector, actuator Actuator, opts ...Option) (*Scheduler, error) {
	if cfg.Lanes <= 0 {
		return nil, fmt.Errorf("%w: lanes must be positive, got %d", ErrConfig, cfg.Lanes)
	}
	if capture == nil || detector == nil || actuator == nil {
		return nil, fmt.Errorf("%w: capture source, detector and actuator are required", ErrConfig)
	}
	if n := detector.Lanes(); n != cfg.Lanes {
		return nil, fmt.Errorf("%w: detector has %d lanes, want %d", ErrConfig, n, cfg.Lanes)
	}
	switch cfg.ScheduleMode {
	case "", conf.ScheduleAbsolute, conf.ScheduleInline:
	default:
		return nil, fmt.Errorf("%w: unknown schedule mode %q", ErrConfig, cfg.ScheduleMode)
	}
	if cfg.FrameWindow > conf.MaxWindow {
		return nil, fmt.Errorf("%w: frame window %d exceeds %d", ErrConfig, cfg.FrameWindow, conf.MaxWindow)
	}
	cfg.setDefaults()

	s := &Scheduler{
		cfg:      cfg,
		capture:  capture,
		detector: detector,
		actuator: actuator,
		observer: nopObserver{},
		log:      slog.With("component", "scheduler"),
	}
	s.offset.Store(int64(cfg.TimingOffset))
	s.stats = newSessionStats(time.Time{}, cfg.FrameWindow, cfg.HistorySize)
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Scheduler) State() RunState {
	return RunState(s.state.Load())
}

func (s *Scheduler) setState(st RunState) {
	s.state.Store(int32(st))
	s.observer.ObserveState(st)
}

// Start 仅在 Idle 时生效，重置统计并启动工作协程
func (s *Scheduler) Start(ctx context.Context) (Result, error) {
	s.ctrl.Lock()
	defer s.ctrl.Unlock()

	if st := s.State(); st != StateIdle {
		return Result{State: st, Message: "already running"}, nil
	}
	if s.calibrating.Load() {
		return Result{State: StateIdle, Message: "calibration in progress"}, nil
	}

	stats := newSessionStats(time.Now(), s.cfg.FrameWindow, s.cfg.HistorySize)
	s.mu.Lock()
	s.stats = stats
	s.mu.Unlock()

	// 工作协程的生命周期与发起请求的 ctx 无关，只受 Stop 控制
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})
	s.cancel, s.done = cancel, done
	s.setState(StateRunning)

	go func() {
		defer close(done)
		s.run(runCtx, stats)
	}()
	s.log.InfoContext(ctx, "automation started", "lanes", s.cfg.Lanes, "offset", s.TimingOffset(), "mode", s.cfg.ScheduleMode)
	return Result{Changed: true, State: StateRunning, Message: "started"}, nil
}

func (s *Scheduler) Pause() Result {
	s.ctrl.Lock()
	defer s.ctrl.Unlock()
	if st := s.State(); st != StateRunning {
		return Result{State: st, Message: "not running"}
	}
	s.setState(StatePaused)
	s.log.Info("automation paused")
	return Result{Changed: true, State: StatePaused, Message: "paused"}
}

func (s *Scheduler) Resume() Result {
	s.ctrl.Lock()
	defer s.ctrl.Unlock()
	if st := s.State(); st != StatePaused {
		return Result{State: st, Message: "not paused"}
	}
	s.setState(StateRunning)
	s.log.Info("automation resumed")
	return Result{Changed: true, State: StateRunning, Message: "resumed"}
}

// Stop 通知工作协程退出，最多等待 StopTimeout
func (s *Scheduler) Stop(ctx context.Context) Result {
	s.ctrl.Lock()
	st := s.State()
	if st == StateIdle {
		s.ctrl.Unlock()
		return Result{State: st, Message: "not running"}
	}
	s.setState(StateStopping)
	s.cancel()

	msg := "stopped"
	timer := time.NewTimer(s.cfg.StopTimeout)
	select {
	case <-s.done:
		timer.Stop()
	case <-timer.C:
		msg = fmt.Sprintf("stopped, worker did not exit within %s", s.cfg.StopTimeout)
		s.log.WarnContext(ctx, "worker join timeout", "timeout", s.cfg.StopTimeout)
	}

	s.mu.Lock()
	stats := s.stats
	s.mu.Unlock()
	stats.finish(time.Now())
	s.cancel, s.done = nil, nil
	s.setState(StateIdle)
	s.ctrl.Unlock()

	final := s.snapshot(stats)
	s.log.InfoContext(ctx, "automation stopped",
		"hits", final.NotesHit,
		"misses", final.NotesMissed,
		"accuracy", final.Accuracy,
		"duration", final.SessionDuration,
	)
	if s.onStop != nil {
		s.onStop(ctx, final)
	}
	return Result{Changed: true, State: StateIdle, Message: msg}
}

// TimingOffset 当前按键补偿延迟
func (s *Scheduler) TimingOffset() time.Duration {
	return time.Duration(s.offset.Load())
}

// SetTimingOffset 运行中修改在下一个音符生效
func (s *Scheduler) SetTimingOffset(d time.Duration) {
	s.offset.Store(int64(d))
	s.log.Info("timing offset changed", "offset", d)
}

// ResetStatistics 清零当前会话计数
func (s *Scheduler) ResetStatistics() {
	s.mu.Lock()
	stats := s.stats
	s.mu.Unlock()
	stats.reset(time.Now())
}

// Statistics 当前会话的一致快照
func (s *Scheduler) Statistics() Statistics {
	s.mu.Lock()
	stats := s.stats
	s.mu.Unlock()
	return s.snapshot(stats)
}

func (s *Scheduler) snapshot(stats *sessionStats) Statistics {
	out := stats.snapshot(time.Now())
	if out.StartedAt.IsZero() {
		out.SessionDuration, out.SessionSeconds = 0, 0
	}
	st := s.State()
	out.State = st
	out.Running = st == StateRunning || st == StatePaused
	out.Paused = st == StatePaused
	out.TimingOffsetMs = float64(s.TimingOffset()) / float64(time.Millisecond)
	return out
}

// Calibrate 仅在 Idle 时运行，期间拒绝 Start
func (s *Scheduler) Calibrate(ctx context.Context, c *Calibrator, duration time.Duration) (CalibrationResult, error) {
	s.ctrl.Lock()
	if st := s.State(); st != StateIdle {
		s.ctrl.Unlock()
		return CalibrationResult{}, fmt.Errorf("%w: scheduler is %s", ErrBusy, st)
	}
	if !s.calibrating.CompareAndSwap(false, true) {
		s.ctrl.Unlock()
		return CalibrationResult{}, fmt.Errorf("%w: calibration in progress", ErrBusy)
	}
	s.ctrl.Unlock()
	defer s.calibrating.Store(false)

	return c.Run(ctx, duration, s.TimingOffset()), nil
}

func (s *Scheduler) run(ctx context.Context, stats *sessionStats) {
	for {
		if ctx.Err() != nil {
			return
		}
		switch s.State() {
		case StatePaused:
			if !sleep(ctx, s.cfg.PausePoll) {
				return
			}
			continue
		case StateRunning:
		default:
			return
		}

		s.cycle(ctx, stats)
		if !sleep(ctx, s.cfg.Yield) {
			return
		}
	}
}

// cycle 采集一帧，识别后依次按键
func (s *Scheduler) cycle(ctx context.Context, stats *sessionStats) {
	start := time.Now()

	frame, err := withTimeout(ctx, s.cfg.CaptureTimeout, func(ctx context.Context) (*note.Frame, error) {
		return s.capture.Capture(ctx, s.cfg.Region)
	})
	if err != nil || frame == nil {
		s.log.DebugContext(ctx, "capture skipped", "err", err)
		return
	}

	detections, err := withTimeout(ctx, s.cfg.DetectTimeout, func(ctx context.Context) ([]note.Detection, error) {
		return s.detector.Detect(ctx, frame), nil
	})
	if err != nil {
		s.log.DebugContext(ctx, "detect skipped", "err", err)
		return
	}

	if len(detections) > 0 && s.analyzer != nil {
		stats.setPattern(s.analyzer.Classify(stats.remember(detections)))
	}

	for _, d := range detections {
		if !s.press(ctx, stats, d) {
			return
		}
	}

	cost := time.Since(start)
	stats.recordFrame(cost)
	s.observer.ObserveCycle(cost, len(detections))
}

// press 等待到按键时刻后按下，ctx 结束时返回 false
func (s *Scheduler) press(ctx context.Context, stats *sessionStats, d note.Detection) bool {
	offset := s.TimingOffset()
	var target time.Time
	if s.cfg.ScheduleMode == conf.ScheduleInline {
		target = time.Now().Add(offset)
	} else {
		at := d.Timestamp
		if at.IsZero() {
			at = time.Now()
		}
		target = at.Add(offset)
	}
	if !sleep(ctx, time.Until(target)) {
		return false
	}

	if d.Lane < 0 || d.Lane >= s.cfg.Lanes {
		s.log.WarnContext(ctx, "invalid lane", "lane", d.Lane, "lanes", s.cfg.Lanes)
		stats.recordMiss(target, d.Lane)
		s.observer.ObservePress(false, 0)
		return true
	}

	actual := time.Now()
	if err := s.actuator.Press(ctx, []int{d.Lane}, s.cfg.Hold); err != nil {
		if ctx.Err() != nil {
			return false
		}
		s.log.WarnContext(ctx, "press failed", "lane", d.Lane, "err", err)
		stats.recordMiss(target, d.Lane)
		s.observer.ObservePress(false, 0)
		return true
	}
	stats.recordHit(target, actual, d.Lane)
	s.observer.ObservePress(true, actual.Sub(target))
	return true
}

// sleep 可被 ctx 打断，返回 ctx 是否仍有效
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// withTimeout 超时后立即返回，fn 所在协程自行结束
func withTimeout[T any](ctx context.Context, d time.Duration, fn func(context.Context) (T, error)) (T, error) {
	if d <= 0 {
		return fn(ctx)
	}
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	type result struct {
		v   T
		err error
	}
	ch := make(chan result, 1)
	go func() {
		v, err := fn(ctx)
		ch <- result{v: v, err: err}
	}()
	select {
	case r := <-ch:
		return r.v, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
