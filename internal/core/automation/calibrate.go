package automation

import (
	"context"
	"image"
	"log/slog"
	"time"

	"github.com/gowvp/autoinput/internal/core/note"
)

// CalibrationResult 校准结果，NoData 表示没有成功的采集，建议值沿用原偏移
type CalibrationResult struct {
	RecommendedOffsetMs float64 `json:"recommended_offset_ms"`
	PriorOffsetMs       float64 `json:"prior_offset_ms"`
	MeanLatencyMs       float64 `json:"mean_latency_ms"`
	Samples             int     `json:"samples"`
	NoData              bool    `json:"no_data"`
}

// Calibrator 反复采集并记录每次耗时，建议偏移 = 平均延迟 + buffer
type Calibrator struct {
	source     CaptureSource
	region     image.Rectangle
	interval   time.Duration
	buffer     time.Duration
	maxSamples int
	timeout    time.Duration

	now   func() time.Time
	sleep func(context.Context, time.Duration) bool
}

type CalibratorOption func(*Calibrator)

// WithClock 替换时钟，测试使用
func WithClock(now func() time.Time, sleep func(context.Context, time.Duration) bool) CalibratorOption {
	return func(c *Calibrator) {
		c.now, c.sleep = now, sleep
	}
}

// WithCaptureTimeout 单次采集超时，超时视为失败样本
func WithCaptureTimeout(d time.Duration) CalibratorOption {
	return func(c *Calibrator) {
		c.timeout = d
	}
}

func NewCalibrator(source CaptureSource, region image.Rectangle, interval, buffer time.Duration, maxSamples int, opts ...CalibratorOption) *Calibrator {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	if maxSamples <= 0 {
		maxSamples = 1000
	}
	c := Calibrator{
		source:     source,
		region:     region,
		interval:   interval,
		buffer:     buffer,
		maxSamples: maxSamples,
		now:        time.Now,
		sleep:      sleep,
	}
	for _, opt := range opts {
		opt(&c)
	}
	return &c
}

// Run 在 duration 内持续采集，不影响会话统计
// 每次采集不超过剩余时长与单次超时中的较小值，卡住的采集源不会拖长校准
func (c *Calibrator) Run(ctx context.Context, duration, prior time.Duration) CalibrationResult {
	var items []float64
	count := 0

	start := c.now()
	for {
		remain := duration - c.now().Sub(start)
		if remain <= 0 || ctx.Err() != nil {
			break
		}
		limit := remain
		if c.timeout > 0 && c.timeout < limit {
			limit = c.timeout
		}
		t0 := c.now()
		frame, err := withTimeout(ctx, limit, func(ctx context.Context) (*note.Frame, error) {
			return c.source.Capture(ctx, c.region)
		})
		if err == nil && frame != nil {
			items = appendBounded(items, float64(c.now().Sub(t0))/float64(time.Millisecond), c.maxSamples)
			count++
		}
		if !c.sleep(ctx, c.interval) {
			break
		}
	}

	priorMs := float64(prior) / float64(time.Millisecond)
	out := CalibrationResult{PriorOffsetMs: priorMs, RecommendedOffsetMs: priorMs}
	if len(items) == 0 {
		out.NoData = true
		slog.WarnContext(ctx, "calibration collected no samples, keep prior offset", "offset_ms", priorMs)
		return out
	}
	var sum float64
	for _, v := range items {
		sum += v
	}
	out.Samples = count
	out.MeanLatencyMs = sum / float64(len(items))
	out.RecommendedOffsetMs = out.MeanLatencyMs + float64(c.buffer)/float64(time.Millisecond)
	slog.InfoContext(ctx, "calibration finished",
		"samples", count,
		"mean_latency_ms", out.MeanLatencyMs,
		"recommended_offset_ms", out.RecommendedOffsetMs,
	)
	return out
}
