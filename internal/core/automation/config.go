package automation

import (
	"image"
	"time"

	"github.com/gowvp/autoinput/internal/conf"
)

// Config 调度参数
type Config struct {
	Lanes          int
	Region         image.Rectangle
	TimingOffset   time.Duration
	Hold           time.Duration
	ScheduleMode   string
	FrameWindow    int
	HistorySize    int
	Yield          time.Duration
	PausePoll      time.Duration
	StopTimeout    time.Duration
	CaptureTimeout time.Duration
	DetectTimeout  time.Duration
}

// ConfigFromBootstrap 从配置文件构造调度参数
func ConfigFromBootstrap(bc *conf.Bootstrap) Config {
	r := bc.Capture.Region
	return Config{
		Lanes:          bc.Game.Lanes,
		Region:         image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height),
		TimingOffset:   time.Duration(bc.Game.TimingOffsetMs) * time.Millisecond,
		Hold:           time.Duration(bc.Game.HoldMs) * time.Millisecond,
		ScheduleMode:   bc.Game.ScheduleMode,
		FrameWindow:    bc.Stats.FrameWindow,
		HistorySize:    bc.Pattern.HistorySize,
		Yield:          bc.Game.LoopYield.Duration(),
		PausePoll:      bc.Game.PausePoll.Duration(),
		StopTimeout:    bc.Game.StopTimeout.Duration(),
		CaptureTimeout: bc.Capture.Timeout.Duration(),
		// 识别器内部已有推理超时，此处多留出预处理的时间
		DetectTimeout: 2 * bc.Detector.InferenceTimeout.Duration(),
	}
}

func (c *Config) setDefaults() {
	if c.ScheduleMode == "" {
		c.ScheduleMode = conf.ScheduleAbsolute
	}
	if c.Hold <= 0 {
		c.Hold = 50 * time.Millisecond
	}
	if c.FrameWindow <= 0 {
		c.FrameWindow = 100
	}
	if c.HistorySize <= 0 {
		c.HistorySize = 50
	}
	if c.Yield <= 0 {
		c.Yield = time.Millisecond
	}
	if c.PausePoll <= 0 {
		c.PausePoll = 100 * time.Millisecond
	}
	if c.StopTimeout <= 0 {
		c.StopTimeout = 2 * time.Second
	}
}
