// Package detect 从采集帧中识别音符
//
// 提供两种实现：基于打分模型的 Learned 与基于亮度的 Heuristic。
// 二者对外行为一致：内部失败只记录日志并返回空结果，调用方无需区分。
package detect

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gowvp/autoinput/internal/core/note"
	"github.com/ixugo/goddd/pkg/queue"
)

const (
	ModeAuto      = "auto"
	ModeLearned   = "learned"
	ModeHeuristic = "heuristic"
)

var ErrFrameTooSmall = errors.New("frame smaller than model input")

// Detector 音符识别能力
type Detector interface {
	Lanes() int
	Detect(ctx context.Context, frame *note.Frame) []note.Detection
	Stats() Stats
}

// Scorer 不透明的打分函数，输入 CHW 张量，输出每条轨道 (position, logit) 两个值
type Scorer interface {
	Score(ctx context.Context, input []float32) ([]float32, error)
}

// Stats 识别统计
type Stats struct {
	Mode           string  `json:"mode"`
	ModelLoaded    bool    `json:"model_loaded"`
	Predictions    uint64  `json:"predictions_count"`
	AvgInferenceMs float64 `json:"avg_inference_ms"`
	Lanes          int     `json:"lanes"`
}

type Options struct {
	Mode                string
	Lanes               int
	Threshold           float64
	InputSize           int
	Timeout             time.Duration
	BrightnessThreshold float64
}

// New 按配置选择实现，auto 模式下没有可用模型时使用 Heuristic
func New(opt Options, scorer Scorer) (Detector, error) {
	if opt.Lanes <= 0 {
		return nil, fmt.Errorf("detector lanes must be positive, got %d", opt.Lanes)
	}
	switch opt.Mode {
	case ModeHeuristic:
		return NewHeuristic(opt.Lanes, opt.BrightnessThreshold), nil
	case ModeLearned:
		if scorer == nil {
			return nil, fmt.Errorf("detector mode %q requires a model", ModeLearned)
		}
		return NewLearned(scorer, opt), nil
	case ModeAuto, "":
		if scorer == nil {
			slog.Warn("no detection model available, using heuristic detector")
			return NewHeuristic(opt.Lanes, opt.BrightnessThreshold), nil
		}
		return NewLearned(scorer, opt), nil
	default:
		return nil, fmt.Errorf("unknown detector mode %q", opt.Mode)
	}
}

// meter 记录识别次数与最近 100 次耗时
type meter struct {
	predictions atomic.Uint64
	mu          sync.Mutex
	cost        *queue.CirQueue[float64]
}

func newMeter() *meter {
	return &meter{cost: queue.NewCirQueue[float64](100)}
}

func (m *meter) observe(d time.Duration) {
	m.predictions.Add(1)
	m.mu.Lock()
	m.cost.Push(float64(d) / float64(time.Millisecond))
	m.mu.Unlock()
}

func (m *meter) snapshot() (uint64, float64) {
	m.mu.Lock()
	items := m.cost.Range()
	m.mu.Unlock()
	var avg float64
	if len(items) > 0 {
		for _, v := range items {
			avg += v
		}
		avg /= float64(len(items))
	}
	return m.predictions.Load(), avg
}

func detectedAt(f *note.Frame) time.Time {
	if f.CapturedAt.IsZero() {
		return time.Now()
	}
	return f.CapturedAt
}
