package detect

import (
	"context"
	"image"
	"log/slog"
	"math"
	"time"

	"github.com/gowvp/autoinput/internal/core/note"
	"golang.org/x/image/draw"
)

var _ Detector = (*Learned)(nil)

// Learned 调用打分模型识别音符
type Learned struct {
	scorer    Scorer
	lanes     int
	threshold float64
	size      int
	timeout   time.Duration
	m         *meter
	log       *slog.Logger
}

func NewLearned(scorer Scorer, opt Options) *Learned {
	size := opt.InputSize
	if size <= 0 {
		size = 32
	}
	timeout := opt.Timeout
	if timeout <= 0 {
		timeout = 50 * time.Millisecond
	}
	return &Learned{
		scorer:    scorer,
		lanes:     opt.Lanes,
		threshold: opt.Threshold,
		size:      size,
		timeout:   timeout,
		m:         newMeter(),
		log:       slog.With("component", "detector"),
	}
}

func (d *Learned) Lanes() int { return d.lanes }

func (d *Learned) Detect(ctx context.Context, frame *note.Frame) []note.Detection {
	if frame == nil || frame.Image == nil {
		return nil
	}
	b := frame.Image.Bounds()
	if b.Dx() < d.size || b.Dy() < d.size {
		d.log.WarnContext(ctx, "skip frame", "err", ErrFrameTooSmall, "width", b.Dx(), "height", b.Dy(), "want", d.size)
		return nil
	}

	start := time.Now()
	input := Tensor(frame.Image, d.size)

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	type result struct {
		out []float32
		err error
	}
	ch := make(chan result, 1)
	go func() {
		out, err := d.scorer.Score(ctx, input)
		ch <- result{out: out, err: err}
	}()

	var r result
	select {
	case r = <-ch:
	case <-ctx.Done():
		d.log.WarnContext(ctx, "inference timeout", "timeout", d.timeout)
		return nil
	}
	d.m.observe(time.Since(start))
	if r.err != nil {
		d.log.ErrorContext(ctx, "score", "err", r.err)
		return nil
	}
	if len(r.out) < d.lanes*2 {
		d.log.ErrorContext(ctx, "unexpected model output", "len", len(r.out), "want", d.lanes*2)
		return nil
	}

	at := detectedAt(frame)
	out := make([]note.Detection, 0, 2)
	for lane := range d.lanes {
		conf := sigmoid(float64(r.out[lane*2+1]))
		if conf > d.threshold {
			out = append(out, note.Detection{
				Lane:       lane,
				Position:   float64(r.out[lane*2]),
				Confidence: conf,
				Timestamp:  at,
			})
		}
	}
	return out
}

func (d *Learned) Stats() Stats {
	n, avg := d.m.snapshot()
	return Stats{Mode: ModeLearned, ModelLoaded: true, Predictions: n, AvgInferenceMs: avg, Lanes: d.lanes}
}

// Tensor 缩放到 size*size 后按 CHW 排列 RGB，取值 [0, 1]
func Tensor(src image.Image, size int) []float32 {
	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)

	plane := size * size
	out := make([]float32, 3*plane)
	for y := range size {
		for x := range size {
			i := dst.PixOffset(x, y)
			p := y*size + x
			out[p] = float32(dst.Pix[i]) / 255
			out[plane+p] = float32(dst.Pix[i+1]) / 255
			out[2*plane+p] = float32(dst.Pix[i+2]) / 255
		}
	}
	return out
}

func sigmoid(v float64) float64 {
	return 1 / (1 + math.Exp(-v))
}
