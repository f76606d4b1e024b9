// Package automation 负责 采集 -> 识别 -> 按键 的调度循环
//
// Scheduler 独占一个工作协程，对外暴露 Start/Pause/Resume/Stop 状态机与统计快照；
// Calibrator 测量采集延迟并给出建议的按键偏移。
package automation

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/gowvp/autoinput/internal/core/note"
	"github.com/gowvp/autoinput/internal/core/pattern"
)

var (
	// ErrConfig 构造或启动时发现配置不可用
	ErrConfig = errors.New("automation config")
	// ErrBusy 调度运行中或正在校准
	ErrBusy = errors.New("automation busy")
)

// CaptureSource 画面采集
type CaptureSource interface {
	Capture(ctx context.Context, region image.Rectangle) (*note.Frame, error)
}

// Actuator 按键执行，同时按下 lanes 并保持 hold
type Actuator interface {
	Press(ctx context.Context, lanes []int, hold time.Duration) error
}

// Detector 音符识别
type Detector interface {
	Lanes() int
	Detect(ctx context.Context, frame *note.Frame) []note.Detection
}

// Analyzer 对最近的识别序列做模式分析
type Analyzer interface {
	Classify([]note.Detection) pattern.Info
}

// Observer 接收循环内的度量事件
type Observer interface {
	ObserveCycle(cost time.Duration, detections int)
	ObservePress(hit bool, timingError time.Duration)
	ObserveState(RunState)
}

// RunState 调度状态，仅由 Scheduler 修改
type RunState int32

const (
	StateIdle RunState = iota
	StateRunning
	StatePaused
	StateStopping
)

func (s RunState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	case StateStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

func (s RunState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *RunState) UnmarshalText(b []byte) error {
	for st := StateIdle; st <= StateStopping; st++ {
		if st.String() == string(b) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown run state %q", b)
}

// Result 状态切换结果，误用(如重复启动)不视为错误
type Result struct {
	Changed bool     `json:"changed"`
	State   RunState `json:"state"`
	Message string   `json:"message"`
}

type nopObserver struct{}

func (nopObserver) ObserveCycle(time.Duration, int)  {}
func (nopObserver) ObservePress(bool, time.Duration) {}
func (nopObserver) ObserveState(RunState)            {}

// Observers 依次通知多个观察者
type Observers []Observer

func (obs Observers) ObserveCycle(cost time.Duration, detections int) {
	for _, o := range obs {
		o.ObserveCycle(cost, detections)
	}
}

func (obs Observers) ObservePress(hit bool, timingError time.Duration) {
	for _, o := range obs {
		o.ObservePress(hit, timingError)
	}
}

func (obs Observers) ObserveState(st RunState) {
	for _, o := range obs {
		o.ObserveState(st)
	}
}
