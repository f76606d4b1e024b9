package ffwork

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ixugo/goddd/pkg/queue"
)

var ErrClosed = errors.New("frame capture closed")

type (
	Config struct {
		Name          string
		InputFormat   string // x11grab/gdigrab/avfoundation，为空时按流地址处理
		Input         string
		Width, Height int
		FPS           int
		Transport     string
		HWAccel       string
		OnFrame       func(frame *FrameData)
	}
	FrameData struct {
		FrameNum  uint64
		Timestamp time.Time
		Data      []byte
	}
	// FrameCapture 通过 ffmpeg 输出 yuv420p 原始帧，只保留最新一帧
	FrameCapture struct {
		config    Config
		frameSize int
		ctx       context.Context
		cancel    context.CancelFunc
		m         sync.Mutex
		started   bool
		closed    bool
		cmd       *exec.Cmd
		wg        sync.WaitGroup
		ffmpegLog *queue.CirQueue[string]

		latest atomic.Pointer[FrameData]
		notify chan struct{} // 每来一帧关闭并替换
		err    error

		frameCount, skipCount uint64
		taken                 uint64 // 最近被取走的帧号
	}
	Stats struct {
		Name       string    `json:"name"`
		FrameCount uint64    `json:"frame_count"`
		SkipCount  uint64    `json:"skip_count"`
		LastFrame  time.Time `json:"last_frame"`
		FrameSize  int       `json:"frame_size"`
		IsRunning  bool      `json:"is_running"`
	}
)

func NewFrameCapture(cfg Config) (*FrameCapture, error) {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("invalid resolution: %dx%d", cfg.Width, cfg.Height)
	}
	if cfg.Width%2 != 0 || cfg.Height%2 != 0 {
		return nil, fmt.Errorf("resolution must be even for yuv420p: %dx%d", cfg.Width, cfg.Height)
	}
	if cfg.FPS <= 0 {
		return nil, fmt.Errorf("invalid fps: %d", cfg.FPS)
	}
	if cfg.Input == "" {
		return nil, fmt.Errorf("input is required")
	}
	if cfg.Transport == "" {
		cfg.Transport = "tcp"
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &FrameCapture{
		config:    cfg,
		frameSize: cfg.Width * cfg.Height * 3 / 2,
		ctx:       ctx,
		cancel:    cancel,
		ffmpegLog: queue.NewCirQueue[string](100),
		notify:    make(chan struct{}),
	}, nil
}

func (fc *FrameCapture) FrameSize() int {
	return fc.frameSize
}

func (fc *FrameCapture) buildFFmpegArgs() []string {
	args := []string{
		"-hide_banner",
		"-loglevel", "warning",
		"-threads", "2",
	}
	if fc.config.HWAccel != "" {
		args = append(args, "-hwaccel", fc.config.HWAccel)
	}
	if fc.config.InputFormat != "" {
		// 屏幕采集设备
		args = append(args,
			"-f", fc.config.InputFormat,
			"-framerate", strconv.Itoa(fc.config.FPS),
		)
	} else {
		args = append(args, "-fflags", "+genpts+discardcorrupt+nobuffer")
		if strings.HasPrefix(fc.config.Input, "rtsp") {
			args = append(args,
				"-rtsp_transport", fc.config.Transport,
				"-timeout", "10000000",
			)
		}
	}
	args = append(args, "-i", fc.config.Input)

	args = append(args,
		"-an",
		"-f", "rawvideo",
		"-pix_fmt", "yuv420p",
		"-vf", fmt.Sprintf("fps=%d,scale=%d:%d", fc.config.FPS, fc.config.Width, fc.config.Height),
		"pipe:1",
	)
	return args
}

func (fc *FrameCapture) Start() error {
	fc.m.Lock()
	defer fc.m.Unlock()
	if fc.started {
		return fmt.Errorf("frame capture already started")
	}

	fc.cmd = exec.CommandContext(fc.ctx, "ffmpeg", fc.buildFFmpegArgs()...)
	stdout, err := fc.cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to get stdout pipe: %w", err)
	}
	stderr, err := fc.cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("failed to get stderr pipe: %w", err)
	}
	if err := fc.cmd.Start(); err != nil {
		return fmt.Errorf("failed to start ffmpeg: %w", err)
	}
	fc.started = true

	fc.wg.Go(func() { fc.captureLoop(stdout) })
	fc.wg.Go(func() { fc.readStderr(stderr) })
	return nil
}

// captureLoop 按帧大小读取 stdout，覆盖最新帧并唤醒等待者
func (fc *FrameCapture) captureLoop(stdout io.Reader) {
	reader := bufio.NewReaderSize(stdout, fc.frameSize*2)
	for {
		frameBytes := make([]byte, fc.frameSize)
		if _, err := io.ReadFull(reader, frameBytes); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				err = fmt.Errorf("ffmpeg stream ended: %w", err)
			}
			fc.close(err)
			return
		}
		fc.publish(frameBytes)
	}
}

// Feed 直接写入一帧，用于非 ffmpeg 来源及测试
func (fc *FrameCapture) Feed(data []byte) error {
	if len(data) != fc.frameSize {
		return fmt.Errorf("incomplete frame: %d != %d", len(data), fc.frameSize)
	}
	fc.publish(data)
	return nil
}

func (fc *FrameCapture) publish(data []byte) {
	frame := FrameData{
		FrameNum:  atomic.AddUint64(&fc.frameCount, 1),
		Timestamp: time.Now(),
		Data:      data,
	}
	// 上一帧未被取走即视为跳帧
	if prev := fc.latest.Swap(&frame); prev != nil && prev.FrameNum > atomic.LoadUint64(&fc.taken) {
		atomic.AddUint64(&fc.skipCount, 1)
	}
	if fc.config.OnFrame != nil {
		fc.config.OnFrame(&frame)
	}
	fc.m.Lock()
	defer fc.m.Unlock()
	if fc.closed {
		return
	}
	close(fc.notify)
	fc.notify = make(chan struct{})
}

func (fc *FrameCapture) close(err error) {
	fc.m.Lock()
	defer fc.m.Unlock()
	if fc.closed {
		return
	}
	fc.closed = true
	fc.err = err
	close(fc.notify)
}

// readStderr ffmpeg 的警告与错误保留最近 100 行
func (fc *FrameCapture) readStderr(stderr io.Reader) {
	scan := bufio.NewScanner(stderr)
	for scan.Scan() {
		fc.ffmpegLog.Push(scan.Text())
	}
}

func (fc *FrameCapture) Log() []string {
	return fc.ffmpegLog.Range()
}

// WaitFrame 返回编号大于 after 的最新帧，没有则等待
func (fc *FrameCapture) WaitFrame(ctx context.Context, after uint64) (*FrameData, error) {
	for {
		if f := fc.latest.Load(); f != nil && f.FrameNum > after {
			atomic.StoreUint64(&fc.taken, f.FrameNum)
			return f, nil
		}
		fc.m.Lock()
		ch, closed, err := fc.notify, fc.closed, fc.err
		fc.m.Unlock()
		if closed {
			if err == nil {
				err = ErrClosed
			}
			return nil, err
		}
		select {
		case <-ch:
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-fc.ctx.Done():
			return nil, ErrClosed
		}
	}
}

// GetFrame 兼容按超时取帧
func (fc *FrameCapture) GetFrame(timeout time.Duration) (*FrameData, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return fc.WaitFrame(ctx, 0)
}

func (fc *FrameCapture) Stop() error {
	fc.m.Lock()
	if !fc.started {
		fc.m.Unlock()
		fc.cancel()
		fc.close(ErrClosed)
		return nil
	}
	fc.m.Unlock()
	fc.cancel()
	fc.wg.Wait()

	if fc.cmd != nil && fc.cmd.Process != nil {
		done := make(chan error, 1)
		go func() {
			done <- fc.cmd.Wait()
		}()

		select {
		case <-time.After(5 * time.Second):
			if err := fc.cmd.Process.Kill(); err != nil {
				return fmt.Errorf("failed to kill ffmpeg: %w", err)
			}
			<-done
		case <-done:
		}
	}
	fc.close(ErrClosed)
	return nil
}

func (fc *FrameCapture) GetStats() Stats {
	fc.m.Lock()
	running := fc.started && !fc.closed
	fc.m.Unlock()
	var last time.Time
	if f := fc.latest.Load(); f != nil {
		last = f.Timestamp
	}
	return Stats{
		Name:       fc.config.Name,
		FrameCount: atomic.LoadUint64(&fc.frameCount),
		SkipCount:  atomic.LoadUint64(&fc.skipCount),
		LastFrame:  last,
		FrameSize:  fc.frameSize,
		IsRunning:  running,
	}
}

// Image 将 yuv420p 数据包装为 image.YCbCr，不复制
func (fc *FrameCapture) Image(f *FrameData) *image.YCbCr {
	w, h := fc.config.Width, fc.config.Height
	ySize := w * h
	cSize := ySize / 4
	return &image.YCbCr{
		Y:              f.Data[:ySize],
		Cb:             f.Data[ySize : ySize+cSize],
		Cr:             f.Data[ySize+cSize : ySize+2*cSize],
		YStride:        w,
		CStride:        w / 2,
		SubsampleRatio: image.YCbCrSubsampleRatio420,
		Rect:           image.Rect(0, 0, w, h),
	}
}
