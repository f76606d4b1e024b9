// Package perf 采样进程与主机资源占用，汇总循环帧率与延迟并给出告警
package perf

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/gowvp/autoinput/internal/conf"
	"github.com/gowvp/autoinput/internal/core/automation"
	"github.com/ixugo/goddd/pkg/conc"
	"github.com/ixugo/goddd/pkg/queue"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/process"
)

const (
	suggestCPUPercent = 70
	suggestMemoryMB   = 1500
	// minFrameSamples 帧率与延迟样本不足时不告警
	minFrameSamples = 10
)

var _ automation.Observer = (*Monitor)(nil)

// Sample 一次资源采样
type Sample struct {
	At               time.Time `json:"at"`
	ProcessCPU       float64   `json:"process_cpu"`
	ProcessRSSMB     float64   `json:"process_rss_mb"`
	SystemCPU        float64   `json:"system_cpu"`
	SystemMemPercent float64   `json:"system_mem_percent"`
	SystemAvailGB    float64   `json:"system_avail_gb"`
}

// Report 性能汇总
type Report struct {
	Current      Sample   `json:"current"`
	AvgCPU       float64  `json:"avg_cpu"`
	AvgRSSMB     float64  `json:"avg_rss_mb"`
	AvgFPS       float64  `json:"avg_fps"`
	AvgLatencyMs float64  `json:"avg_latency_ms"`
	Frames       uint64   `json:"frames"`
	Alerts       []string `json:"alerts"`
	Suggestions  []string `json:"suggestions"`
}

// Monitor 资源监控，同时作为调度循环的观察者记录帧率与延迟
type Monitor struct {
	cfg  conf.Monitor
	proc *process.Process
	log  *slog.Logger

	mu        sync.Mutex
	cpu       *queue.CirQueue[float64]
	rss       *queue.CirQueue[float64]
	fps       *queue.CirQueue[float64]
	latency   *queue.CirQueue[float64]
	last      Sample
	lastFrame time.Time
	frames    uint64
}

// NewMonitor 监控当前进程
func NewMonitor(cfg conf.Monitor) (*Monitor, error) {
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = 100
	}
	if cfg.HistorySize > conf.MaxWindow {
		return nil, fmt.Errorf("perf: history size %d exceeds %d", cfg.HistorySize, conf.MaxWindow)
	}
	if cfg.Interval <= 0 {
		cfg.Interval = conf.Duration(time.Second)
	}
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, fmt.Errorf("perf: %w", err)
	}
	m := Monitor{cfg: cfg, proc: proc, log: slog.With("component", "perf")}
	m.resetLocked()
	return &m, nil
}

func (m *Monitor) resetLocked() {
	n := uint8(m.cfg.HistorySize)
	m.cpu = queue.NewCirQueue[float64](n)
	m.rss = queue.NewCirQueue[float64](n)
	m.fps = queue.NewCirQueue[float64](n)
	m.latency = queue.NewCirQueue[float64](n)
	m.frames = 0
	m.lastFrame = time.Time{}
}

// Start 周期采样直到 ctx 结束，未启用时不做任何事
func (m *Monitor) Start(ctx context.Context) {
	if !m.cfg.Enabled {
		return
	}
	interval := m.cfg.Interval.Duration()
	go conc.Timer(ctx, interval, interval, func() {
		if _, err := m.Sample(ctx); err != nil {
			m.log.WarnContext(ctx, "sample", "err", err)
		}
	})
}

// Sample 立即采样一次并写入历史
func (m *Monitor) Sample(ctx context.Context) (Sample, error) {
	s := Sample{At: time.Now()}
	var err error
	if s.ProcessCPU, err = m.proc.PercentWithContext(ctx, 0); err != nil {
		return s, err
	}
	mi, err := m.proc.MemoryInfoWithContext(ctx)
	if err != nil {
		return s, err
	}
	s.ProcessRSSMB = float64(mi.RSS) / (1 << 20)

	if v, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(v) > 0 {
		s.SystemCPU = v[0]
	}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		s.SystemMemPercent = vm.UsedPercent
		s.SystemAvailGB = float64(vm.Available) / (1 << 30)
	}

	m.mu.Lock()
	m.cpu.Push(s.ProcessCPU)
	m.rss.Push(s.ProcessRSSMB)
	m.last = s
	m.mu.Unlock()
	return s, nil
}

// RecordFrame 记录一帧，帧率取相邻两帧的间隔
func (m *Monitor) RecordFrame(at time.Time, cost time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.lastFrame.IsZero() {
		if d := at.Sub(m.lastFrame); d > 0 {
			m.fps.Push(float64(time.Second) / float64(d))
		}
	}
	m.lastFrame = at
	m.frames++
	m.latency.Push(float64(cost) / float64(time.Millisecond))
}

// ObserveCycle implements [automation.Observer].
func (m *Monitor) ObserveCycle(cost time.Duration, _ int) {
	m.RecordFrame(time.Now(), cost)
}

// ObservePress implements [automation.Observer].
func (m *Monitor) ObservePress(bool, time.Duration) {}

// ObserveState implements [automation.Observer].
func (m *Monitor) ObserveState(st automation.RunState) {
	// 新会话重新计算帧间隔
	if st == automation.StateRunning {
		m.mu.Lock()
		m.lastFrame = time.Time{}
		m.mu.Unlock()
	}
}

// Reset 清空历史
func (m *Monitor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetLocked()
}

// Report 汇总当前历史
func (m *Monitor) Report() Report {
	m.mu.Lock()
	cpus, rss := m.cpu.Range(), m.rss.Range()
	fps, latency := m.fps.Range(), m.latency.Range()
	out := Report{Current: m.last, Frames: m.frames}
	m.mu.Unlock()

	out.AvgCPU = mean(cpus)
	out.AvgRSSMB = mean(rss)
	out.AvgFPS = mean(fps)
	out.AvgLatencyMs = mean(latency)
	out.Alerts = m.alerts(out, len(cpus), len(rss), len(fps), len(latency))
	out.Suggestions = m.suggestions(out, len(cpus), len(rss), len(fps), len(latency))
	return out
}

func (m *Monitor) alerts(r Report, nCPU, nRSS, nFPS, nLatency int) []string {
	out := make([]string, 0, 4)
	if nCPU > 0 && r.AvgCPU > m.cfg.MaxCPUPercent {
		out = append(out, fmt.Sprintf("high cpu usage: %.1f%%", r.AvgCPU))
	}
	if nRSS > 0 && r.AvgRSSMB > m.cfg.MaxMemoryMB {
		out = append(out, fmt.Sprintf("high memory usage: %.1f MB", r.AvgRSSMB))
	}
	if nFPS > minFrameSamples && r.AvgFPS < m.cfg.MinFPS {
		out = append(out, fmt.Sprintf("low fps: %.1f", r.AvgFPS))
	}
	if nLatency > minFrameSamples && r.AvgLatencyMs > m.cfg.MaxLatencyMs {
		out = append(out, fmt.Sprintf("high latency: %.1f ms", r.AvgLatencyMs))
	}
	return out
}

func (m *Monitor) suggestions(r Report, nCPU, nRSS, nFPS, nLatency int) []string {
	out := make([]string, 0, 4)
	if nCPU > 0 && r.AvgCPU > suggestCPUPercent {
		out = append(out,
			"reduce detector.input_size or switch detector.mode to heuristic",
			"close other applications",
		)
	}
	if nRSS > 0 && r.AvgRSSMB > suggestMemoryMB {
		out = append(out, "lower pattern.cache_capacity to reduce memory")
	}
	if nFPS > minFrameSamples && r.AvgFPS < m.cfg.MinFPS {
		out = append(out, "shrink capture.region or lower capture.ffmpeg.fps")
	}
	if nLatency > minFrameSamples && r.AvgLatencyMs > m.cfg.MaxLatencyMs {
		out = append(out, "run calibration to adjust game.timing_offset_ms")
	}
	return out
}

func mean(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	var sum float64
	for _, x := range v {
		sum += x
	}
	return sum / float64(len(v))
}
