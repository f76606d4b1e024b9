package conf

import (
	"fmt"
	"time"
)

// Bootstrap 配置文件根节点
type Bootstrap struct {
	BuildVersion string `toml:"-"`
	ConfigPath   string `toml:"-"`

	Server      Server      `toml:"server"`
	Data        Data        `toml:"data"`
	Log         Log         `toml:"log"`
	Game        Game        `toml:"game"`
	Capture     Capture     `toml:"capture"`
	Detector    Detector    `toml:"detector"`
	Pattern     Pattern     `toml:"pattern"`
	Stats       Stats       `toml:"stats"`
	Calibration Calibration `toml:"calibration"`
	Actuator    Actuator    `toml:"actuator"`
	Monitor     Monitor     `toml:"monitor"`
	Coach       Coach       `toml:"coach"`
}

type Server struct {
	Debug bool       `toml:"debug" comment:"调试模式，开启后记录请求体"`
	HTTP  ServerHTTP `toml:"http"`
}

type ServerHTTP struct {
	Port    int         `toml:"port" comment:"http 端口"`
	Timeout Duration    `toml:"timeout" comment:"请求超时"`
	PProf   ServerPPROF `toml:"pprof"`
}

type ServerPPROF struct {
	Enabled   bool     `toml:"enabled"`
	AccessIps []string `toml:"access_ips" comment:"允许访问 pprof 的 ip"`
}

type Data struct {
	Database     Database `toml:"database"`
	ImportScores string   `toml:"import_scores" comment:"旧版本地成绩文件(scores.json)，存在时启动导入一次"`
	RetainDays   int      `toml:"retain_days" comment:"会话历史保留天数，0 表示永久保留"`
}

type Database struct {
	Dsn             string   `toml:"dsn" comment:"以 postgres/mysql 开头使用对应驱动，否则视为 sqlite 文件路径"`
	MaxIdleConns    int32    `toml:"max_idle_conns"`
	MaxOpenConns    int32    `toml:"max_open_conns"`
	ConnMaxLifetime Duration `toml:"conn_max_lifetime"`
	SlowThreshold   Duration `toml:"slow_threshold"`
}

type Log struct {
	Dir          string   `toml:"dir" comment:"日志目录，为空仅输出到控制台"`
	Level        string   `toml:"level" comment:"debug/info/warn/error"`
	MaxAge       Duration `toml:"max_age" comment:"日志保留时长"`
	RotationTime Duration `toml:"rotation_time" comment:"日志切分间隔"`
}

// Game 轨道与按键时序
type Game struct {
	Lanes             int      `toml:"lanes" comment:"轨道数量"`
	Keys              []string `toml:"keys" comment:"每条轨道对应的按键"`
	TimingOffsetMs    int      `toml:"timing_offset_ms" comment:"按键补偿延迟(毫秒)"`
	AccuracyThreshold float64  `toml:"accuracy_threshold" comment:"识别置信度阈值"`
	HoldMs            int      `toml:"hold_ms" comment:"按键保持时长(毫秒)"`
	ScheduleMode      string   `toml:"schedule_mode" comment:"absolute: 以识别时刻+偏移为按键时刻; inline: 每个音符依次等待偏移"`
	LoopYield         Duration `toml:"loop_yield" comment:"每轮循环后的让出时间"`
	PausePoll         Duration `toml:"pause_poll" comment:"暂停状态下的轮询间隔"`
	StopTimeout       Duration `toml:"stop_timeout" comment:"停止时等待工作协程退出的最长时间"`
}

// Capture 画面采集
type Capture struct {
	Source   string          `toml:"source" comment:"ffmpeg/snapshot"`
	Region   Region          `toml:"region" comment:"采集区域"`
	Timeout  Duration        `toml:"timeout" comment:"单次采集超时"`
	FFmpeg   CaptureFFmpeg   `toml:"ffmpeg"`
	Snapshot CaptureSnapshot `toml:"snapshot"`
}

type Region struct {
	X      int `toml:"x"`
	Y      int `toml:"y"`
	Width  int `toml:"width"`
	Height int `toml:"height"`
}

type CaptureFFmpeg struct {
	InputFormat string `toml:"input_format" comment:"如 x11grab/gdigrab/avfoundation，为空时按流地址处理"`
	Input       string `toml:"input" comment:"输入源，如 :0.0 或 rtsp 地址"`
	Width       int    `toml:"width"`
	Height      int    `toml:"height"`
	FPS         int    `toml:"fps"`
	Transport   string `toml:"transport" comment:"rtsp 传输协议"`
	HWAccel     string `toml:"hwaccel"`
}

type CaptureSnapshot struct {
	URL        string   `toml:"url" comment:"流媒体服务地址"`
	StreamName string   `toml:"stream_name"`
	Timeout    Duration `toml:"timeout"`
}

// Detector 音符识别
type Detector struct {
	Mode                string   `toml:"mode" comment:"auto/learned/heuristic，auto 在模型不可用时退化为 heuristic"`
	ModelPath           string   `toml:"model_path" comment:"本地权重文件(json)"`
	RemoteAddr          string   `toml:"remote_addr" comment:"远程打分服务 gRPC 地址"`
	Threshold           float64  `toml:"threshold" comment:"为 0 时使用 game.accuracy_threshold"`
	InferenceTimeout    Duration `toml:"inference_timeout"`
	BrightnessThreshold float64  `toml:"brightness_threshold"`
	InputSize           int      `toml:"input_size"`
}

type Pattern struct {
	CacheCapacity int `toml:"cache_capacity"`
	HistorySize   int `toml:"history_size" comment:"参与模式分析的最近识别数量"`
}

type Stats struct {
	FrameWindow int `toml:"frame_window" comment:"帧耗时滑动窗口大小，1~255"`
}

type Calibration struct {
	Duration   Duration `toml:"duration"`
	Interval   Duration `toml:"interval"`
	BufferMs   int      `toml:"buffer_ms"`
	MaxSamples int      `toml:"max_samples"`
}

// Actuator 按键执行
type Actuator struct {
	Kind    string   `toml:"kind" comment:"log/http"`
	URL     string   `toml:"url" comment:"http 按键代理地址"`
	Timeout Duration `toml:"timeout"`
}

type Monitor struct {
	Enabled       bool     `toml:"enabled"`
	Interval      Duration `toml:"interval"`
	HistorySize   int      `toml:"history_size" comment:"1~255"`
	MaxCPUPercent float64  `toml:"max_cpu_percent"`
	MaxMemoryMB   float64  `toml:"max_memory_mb"`
	MinFPS        float64  `toml:"min_fps"`
	MaxLatencyMs  float64  `toml:"max_latency_ms"`
}

type Coach struct {
	Language       string `toml:"language" comment:"en/tr"`
	RecentSessions int    `toml:"recent_sessions"`
}

// Validate 校验运行所需的配置
func (b *Bootstrap) Validate() error {
	g := b.Game
	if g.Lanes <= 0 {
		return fmt.Errorf("game.lanes must be positive, got %d", g.Lanes)
	}
	if len(g.Keys) != 0 && len(g.Keys) != g.Lanes {
		return fmt.Errorf("game.keys has %d entries, want %d", len(g.Keys), g.Lanes)
	}
	if g.AccuracyThreshold < 0 || g.AccuracyThreshold > 1 {
		return fmt.Errorf("game.accuracy_threshold out of range: %v", g.AccuracyThreshold)
	}
	switch g.ScheduleMode {
	case "", ScheduleAbsolute, ScheduleInline:
	default:
		return fmt.Errorf("unknown game.schedule_mode %q", g.ScheduleMode)
	}
	if b.Pattern.CacheCapacity <= 0 {
		return fmt.Errorf("pattern.cache_capacity must be positive")
	}
	if w := b.Stats.FrameWindow; w <= 0 || w > MaxWindow {
		return fmt.Errorf("stats.frame_window must be in [1,%d], got %d", MaxWindow, w)
	}
	if h := b.Monitor.HistorySize; h <= 0 || h > MaxWindow {
		return fmt.Errorf("monitor.history_size must be in [1,%d], got %d", MaxWindow, h)
	}
	if b.Calibration.MaxSamples <= 0 {
		return fmt.Errorf("calibration.max_samples must be positive")
	}
	return nil
}

// MaxWindow 环形窗口容量上限
const MaxWindow = 255

const (
	ScheduleAbsolute = "absolute"
	ScheduleInline   = "inline"
)

// DefaultConfig 默认配置
func DefaultConfig() Bootstrap {
	return Bootstrap{
		Server: Server{
			HTTP: ServerHTTP{
				Port:    8080,
				Timeout: Duration(60 * time.Second),
				PProf:   ServerPPROF{AccessIps: []string{"::1", "127.0.0.1"}},
			},
		},
		Data: Data{
			Database: Database{
				Dsn:             "configs/data.db",
				MaxIdleConns:    10,
				MaxOpenConns:    50,
				ConnMaxLifetime: Duration(6 * time.Hour),
				SlowThreshold:   Duration(200 * time.Millisecond),
			},
			ImportScores: "configs/scores.json",
			RetainDays:   180,
		},
		Log: Log{
			Dir:          "./logs",
			Level:        "info",
			MaxAge:       Duration(7 * 24 * time.Hour),
			RotationTime: Duration(24 * time.Hour),
		},
		Game: Game{
			Lanes:             9,
			Keys:              []string{"s", "d", "f", "space", "j", "k", "l", ";", "'"},
			TimingOffsetMs:    50,
			AccuracyThreshold: 0.95,
			HoldMs:            50,
			ScheduleMode:      ScheduleAbsolute,
			LoopYield:         Duration(time.Millisecond),
			PausePoll:         Duration(100 * time.Millisecond),
			StopTimeout:       Duration(2 * time.Second),
		},
		Capture: Capture{
			Source:  "ffmpeg",
			Region:  Region{X: 0, Y: 0, Width: 1920, Height: 1080},
			Timeout: Duration(200 * time.Millisecond),
			FFmpeg: CaptureFFmpeg{
				InputFormat: "x11grab",
				Input:       ":0.0",
				Width:       1920,
				Height:      1080,
				FPS:         60,
			},
			Snapshot: CaptureSnapshot{URL: "http://127.0.0.1:8080", Timeout: Duration(time.Second)},
		},
		Detector: Detector{
			Mode:                "auto",
			InferenceTimeout:    Duration(50 * time.Millisecond),
			BrightnessThreshold: 150,
			InputSize:           32,
		},
		Pattern:     Pattern{CacheCapacity: 1000, HistorySize: 50},
		Stats:       Stats{FrameWindow: 100},
		Calibration: Calibration{Duration: Duration(5 * time.Second), Interval: Duration(100 * time.Millisecond), BufferMs: 20, MaxSamples: 1000},
		Actuator:    Actuator{Kind: "log", Timeout: Duration(100 * time.Millisecond)},
		Monitor: Monitor{
			Enabled:       true,
			Interval:      Duration(time.Second),
			HistorySize:   100,
			MaxCPUPercent: 80,
			MaxMemoryMB:   2048,
			MinFPS:        30,
			MaxLatencyMs:  50,
		},
		Coach: Coach{Language: "en", RecentSessions: 10},
	}
}
