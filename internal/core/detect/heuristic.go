package detect

import (
	"context"
	"image"
	"log/slog"
	"time"

	"github.com/gowvp/autoinput/internal/core/note"
)

var _ Detector = (*Heuristic)(nil)

// Heuristic 将画面按轨道等分为竖条，取每条上 1/3 区域的平均亮度
type Heuristic struct {
	lanes     int
	threshold float64
	m         *meter
	log       *slog.Logger
}

// NewHeuristic threshold 为 0-255 的亮度阈值，<=0 时取 150
func NewHeuristic(lanes int, threshold float64) *Heuristic {
	if threshold <= 0 {
		threshold = 150
	}
	return &Heuristic{
		lanes:     lanes,
		threshold: threshold,
		m:         newMeter(),
		log:       slog.With("component", "detector", "mode", ModeHeuristic),
	}
}

func (h *Heuristic) Lanes() int { return h.lanes }

func (h *Heuristic) Detect(ctx context.Context, frame *note.Frame) []note.Detection {
	if frame == nil || frame.Image == nil {
		return nil
	}
	b := frame.Image.Bounds()
	laneWidth := b.Dx() / h.lanes
	height := b.Dy() / 3
	if laneWidth == 0 || height == 0 {
		h.log.WarnContext(ctx, "skip frame", "err", ErrFrameTooSmall, "width", b.Dx(), "height", b.Dy(), "lanes", h.lanes)
		return nil
	}
	start := time.Now()
	defer func() { h.m.observe(time.Since(start)) }()
	at := detectedAt(frame)

	out := make([]note.Detection, 0, 2)
	for lane := range h.lanes {
		if ctx.Err() != nil {
			return out
		}
		x := b.Min.X + lane*laneWidth
		r := image.Rect(x, b.Min.Y, x+laneWidth, b.Min.Y+height)
		v := meanBrightness(frame.Image, r)
		if v > h.threshold {
			out = append(out, note.Detection{
				Lane:       lane,
				Position:   0,
				Confidence: v / 255,
				Timestamp:  at,
			})
		}
	}
	return out
}

func (h *Heuristic) Stats() Stats {
	n, avg := h.m.snapshot()
	return Stats{Mode: ModeHeuristic, Predictions: n, AvgInferenceMs: avg, Lanes: h.lanes}
}

// meanBrightness 区域内所有通道的 8 位平均值
func meanBrightness(img image.Image, r image.Rectangle) float64 {
	var sum uint64
	var n uint64
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			cr, cg, cb, _ := img.At(x, y).RGBA()
			sum += uint64(cr>>8) + uint64(cg>>8) + uint64(cb>>8)
			n += 3
		}
	}
	if n == 0 {
		return 0
	}
	return float64(sum) / float64(n)
}
