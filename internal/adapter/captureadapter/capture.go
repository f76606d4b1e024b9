// Package captureadapter 提供 ffmpeg 与关键帧快照两种画面来源
package captureadapter

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/gowvp/autoinput/internal/conf"
	"github.com/gowvp/autoinput/internal/core/automation"
	"github.com/gowvp/autoinput/internal/core/note"
	"github.com/gowvp/autoinput/pkg/ffwork"
	"github.com/gowvp/autoinput/pkg/snapshot"
)

const (
	SourceFFmpeg   = "ffmpeg"
	SourceSnapshot = "snapshot"
)

var (
	_ automation.CaptureSource = (*FFmpeg)(nil)
	_ automation.CaptureSource = (*Snapshot)(nil)
)

// New 按配置创建画面来源，返回的 cleanup 负责释放进程
func New(cfg conf.Capture) (automation.CaptureSource, func(), error) {
	switch cfg.Source {
	case SourceFFmpeg, "":
		src, err := NewFFmpeg(cfg.FFmpeg)
		if err != nil {
			return nil, nil, err
		}
		if err := src.Start(); err != nil {
			return nil, nil, err
		}
		return src, func() {
			if err := src.Close(); err != nil {
				slog.Error("close ffmpeg capture", "err", err)
			}
		}, nil
	case SourceSnapshot:
		return NewSnapshot(cfg.Snapshot), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown capture source %q", cfg.Source)
	}
}

// FFmpeg 读取 ffmpeg 输出的最新一帧
type FFmpeg struct {
	fc   *ffwork.FrameCapture
	last atomic.Uint64
}

func NewFFmpeg(cfg conf.CaptureFFmpeg) (*FFmpeg, error) {
	fc, err := ffwork.NewFrameCapture(ffwork.Config{
		Name:        "capture",
		InputFormat: cfg.InputFormat,
		Input:       cfg.Input,
		Width:       cfg.Width,
		Height:      cfg.Height,
		FPS:         cfg.FPS,
		Transport:   cfg.Transport,
		HWAccel:     cfg.HWAccel,
	})
	if err != nil {
		return nil, err
	}
	return &FFmpeg{fc: fc}, nil
}

func (f *FFmpeg) Start() error {
	return f.fc.Start()
}

func (f *FFmpeg) Close() error {
	return f.fc.Stop()
}

func (f *FFmpeg) Stats() ffwork.Stats {
	return f.fc.GetStats()
}

// Capture 等待一帧尚未处理过的画面并裁剪到 region
func (f *FFmpeg) Capture(ctx context.Context, region image.Rectangle) (*note.Frame, error) {
	frame, err := f.fc.WaitFrame(ctx, f.last.Load())
	if err != nil {
		return nil, err
	}
	f.last.Store(frame.FrameNum)
	img, r, err := crop(f.fc.Image(frame), region)
	if err != nil {
		return nil, err
	}
	return &note.Frame{Image: img, CapturedAt: frame.Timestamp, Region: r}, nil
}

// Snapshot 每次采集请求一张关键帧图片
type Snapshot struct {
	engine snapshot.Engine
	stream string
}

func NewSnapshot(cfg conf.CaptureSnapshot) *Snapshot {
	return &Snapshot{
		engine: snapshot.NewEngine().SetConfig(snapshot.Config{URL: cfg.URL, Timeout: cfg.Timeout.Duration()}),
		stream: cfg.StreamName,
	}
}

func (s *Snapshot) Capture(ctx context.Context, region image.Rectangle) (*note.Frame, error) {
	img, err := s.engine.GetImage(ctx, s.stream)
	if err != nil {
		return nil, err
	}
	at := time.Now()
	out, r, err := crop(img, region)
	if err != nil {
		return nil, err
	}
	return &note.Frame{Image: out, CapturedAt: at, Region: r}, nil
}

type subImager interface {
	SubImage(r image.Rectangle) image.Image
}

// crop region 为空时返回整幅画面
func crop(img image.Image, region image.Rectangle) (image.Image, image.Rectangle, error) {
	b := img.Bounds()
	if region.Empty() {
		return img, b, nil
	}
	r := region.Intersect(b)
	if r.Empty() {
		return nil, r, fmt.Errorf("capture region %v outside frame %v", region, b)
	}
	if r == b {
		return img, r, nil
	}
	s, ok := img.(subImager)
	if !ok {
		return nil, r, fmt.Errorf("image type %T cannot be cropped", img)
	}
	return s.SubImage(r), r, nil
}
