package automation

import (
	"sync"
	"time"

	"github.com/gowvp/autoinput/internal/core/note"
	"github.com/gowvp/autoinput/internal/core/pattern"
	"github.com/ixugo/goddd/pkg/queue"
)

// Statistics 会话统计快照
type Statistics struct {
	State             RunState             `json:"state"`
	Running           bool                 `json:"running"`
	Paused            bool                 `json:"paused"`
	NotesHit          uint64               `json:"notes_hit"`
	NotesMissed       uint64               `json:"notes_missed"`
	Accuracy          float64              `json:"accuracy"` // 百分比
	StartedAt         time.Time            `json:"started_at"`
	SessionDuration   time.Duration        `json:"-"`
	SessionSeconds    float64              `json:"session_duration"`
	AvgFrameTimeMs    float64              `json:"avg_frame_time_ms"`
	FPS               float64              `json:"fps"`
	MeanTimingErrorMs float64              `json:"mean_timing_error_ms"`
	TimingOffsetMs    float64              `json:"timing_offset_ms"`
	LastPattern       *pattern.Info        `json:"last_pattern,omitempty"`
	Performance       *pattern.Performance `json:"performance,omitempty"`
}

// sessionStats 单次会话的计数，每次 Start 新建一份
// 已超时未退出的旧工作协程只会写入自己的那一份
type sessionStats struct {
	mu          sync.Mutex
	hits        uint64
	misses      uint64
	timingErr   time.Duration
	startedAt   time.Time
	stoppedAt   time.Time
	frames      *queue.CirQueue[float64]
	frameWindow int
	historySize int
	history     []note.Detection // 最近识别结果，用于模式分析
	expected    []note.Detection // 计划按键时刻
	pressed     []note.Detection // 实际按键时刻
	lastPattern *pattern.Info
}

func newSessionStats(now time.Time, frameWindow, historySize int) *sessionStats {
	return &sessionStats{
		startedAt:   now,
		frames:      queue.NewCirQueue[float64](uint8(frameWindow)),
		frameWindow: frameWindow,
		historySize: historySize,
	}
}

func (s *sessionStats) recordFrame(cost time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames.Push(float64(cost) / float64(time.Millisecond))
}

func (s *sessionStats) recordHit(target, actual time.Time, lane int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hits++
	diff := actual.Sub(target)
	if diff < 0 {
		diff = -diff
	}
	s.timingErr += diff
	s.expected = appendBounded(s.expected, note.Detection{Lane: lane, Timestamp: target}, s.historySize)
	s.pressed = appendBounded(s.pressed, note.Detection{Lane: lane, Timestamp: actual}, s.historySize)
}

func (s *sessionStats) recordMiss(target time.Time, lane int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.misses++
	s.expected = appendBounded(s.expected, note.Detection{Lane: lane, Timestamp: target}, s.historySize)
}

// remember 追加识别结果并返回当前窗口的副本
func (s *sessionStats) remember(ds []note.Detection) []note.Detection {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range ds {
		s.history = appendBounded(s.history, d, s.historySize)
	}
	out := make([]note.Detection, len(s.history))
	copy(out, s.history)
	return out
}

func (s *sessionStats) setPattern(info pattern.Info) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastPattern = &info
}

func (s *sessionStats) finish(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stoppedAt.IsZero() {
		s.stoppedAt = now
	}
}

func (s *sessionStats) reset(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hits, s.misses, s.timingErr = 0, 0, 0
	s.startedAt = now
	s.frames = queue.NewCirQueue[float64](uint8(s.frameWindow))
	s.history, s.expected, s.pressed = nil, nil, nil
	s.lastPattern = nil
}

func (s *sessionStats) snapshot(now time.Time) Statistics {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := Statistics{
		NotesHit:    s.hits,
		NotesMissed: s.misses,
		StartedAt:   s.startedAt,
	}
	if total := s.hits + s.misses; total > 0 {
		out.Accuracy = float64(s.hits) / float64(total) * 100
	}
	end := now
	if !s.stoppedAt.IsZero() {
		end = s.stoppedAt
	}
	out.SessionDuration = end.Sub(s.startedAt)
	out.SessionSeconds = out.SessionDuration.Seconds()

	if items := s.frames.Range(); len(items) > 0 {
		var sum float64
		for _, v := range items {
			sum += v
		}
		out.AvgFrameTimeMs = sum / float64(len(items))
		if out.AvgFrameTimeMs > 0 {
			out.FPS = 1000 / out.AvgFrameTimeMs
		}
	}
	if s.hits > 0 {
		out.MeanTimingErrorMs = float64(s.timingErr) / float64(time.Millisecond) / float64(s.hits)
	}
	if s.lastPattern != nil {
		p := *s.lastPattern
		out.LastPattern = &p
	}
	if len(s.expected) > 0 {
		p := pattern.AnalyzePerformance(s.pressed, s.expected)
		out.Performance = &p
	}
	return out
}

func appendBounded[T any](s []T, v T, limit int) []T {
	s = append(s, v)
	if over := len(s) - limit; over > 0 {
		s = append(s[:0:0], s[over:]...)
	}
	return s
}
