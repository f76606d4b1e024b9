package detect

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gowvp/autoinput/internal/core/note"
)

type scorerFunc func(ctx context.Context, in []float32) ([]float32, error)

func (f scorerFunc) Score(ctx context.Context, in []float32) ([]float32, error) { return f(ctx, in) }

func frameOf(img image.Image) *note.Frame {
	return &note.Frame{Image: img, CapturedAt: time.Now(), Region: img.Bounds()}
}

func solid(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestHeuristicDetect(t *testing.T) {
	img := solid(90, 60, color.Black)
	// 第 1、7 条轨道上 1/3 区域为白色
	for _, lane := range []int{1, 7} {
		for y := range 20 {
			for x := lane * 10; x < lane*10+10; x++ {
				img.Set(x, y, color.White)
			}
		}
	}
	d := NewHeuristic(9, 0)
	out := d.Detect(context.Background(), frameOf(img))
	if len(out) != 2 || out[0].Lane != 1 || out[1].Lane != 7 {
		t.Fatalf("got %+v", out)
	}
	if out[0].Confidence != 1 || out[0].Position != 0 {
		t.Fatalf("got %+v", out[0])
	}
	if s := d.Stats(); s.Predictions != 1 || s.Mode != ModeHeuristic {
		t.Fatalf("stats %+v", s)
	}
}

func TestHeuristicBelowThreshold(t *testing.T) {
	img := solid(90, 60, color.Gray{Y: 150})
	if out := NewHeuristic(9, 150).Detect(context.Background(), frameOf(img)); len(out) != 0 {
		t.Fatalf("got %+v", out)
	}
}

func TestHeuristicFrameTooSmall(t *testing.T) {
	var buf bytes.Buffer
	h := NewHeuristic(9, 150)
	h.log = slog.New(slog.NewTextHandler(&buf, nil))

	// 宽度不足以划分轨道
	if out := h.Detect(context.Background(), frameOf(solid(4, 60, color.White))); out != nil {
		t.Fatalf("got %+v", out)
	}
	if !strings.Contains(buf.String(), ErrFrameTooSmall.Error()) {
		t.Fatalf("missing warning: %q", buf.String())
	}
	if s := h.Stats(); s.Predictions != 0 {
		t.Fatalf("stats %+v", s)
	}
}

func logits(lanes int, hot map[int]float32) []float32 {
	out := make([]float32, lanes*2)
	for i := range lanes {
		out[i*2] = float32(i) / 10
		out[i*2+1] = -10
	}
	for lane, v := range hot {
		out[lane*2+1] = v
	}
	return out
}

func TestLearnedDetect(t *testing.T) {
	var gotLen int
	s := scorerFunc(func(_ context.Context, in []float32) ([]float32, error) {
		gotLen = len(in)
		return logits(9, map[int]float32{2: 10, 5: 2}), nil
	})
	d := NewLearned(s, Options{Lanes: 9, Threshold: 0.95})
	out := d.Detect(context.Background(), frameOf(solid(64, 48, color.White)))
	if gotLen != 3*32*32 {
		t.Fatalf("input len %d", gotLen)
	}
	if len(out) != 1 || out[0].Lane != 2 {
		t.Fatalf("got %+v", out)
	}
	if out[0].Confidence <= 0.95 || out[0].Confidence > 1 {
		t.Fatalf("confidence %v", out[0].Confidence)
	}
	if out[0].Position != float64(float32(0.2)) {
		t.Fatalf("position %v", out[0].Position)
	}
	if s := d.Stats(); !s.ModelLoaded || s.Predictions != 1 {
		t.Fatalf("stats %+v", s)
	}
}

func TestLearnedFailuresReturnEmpty(t *testing.T) {
	ok := scorerFunc(func(context.Context, []float32) ([]float32, error) {
		return logits(9, map[int]float32{0: 10}), nil
	})
	cases := []struct {
		name   string
		scorer Scorer
		img    image.Image
	}{
		{"too small", ok, solid(16, 16, color.White)},
		{"error", scorerFunc(func(context.Context, []float32) ([]float32, error) {
			return nil, errors.New("boom")
		}), solid(32, 32, color.White)},
		{"short output", scorerFunc(func(context.Context, []float32) ([]float32, error) {
			return []float32{1, 2}, nil
		}), solid(32, 32, color.White)},
		{"timeout", scorerFunc(func(context.Context, []float32) ([]float32, error) {
			time.Sleep(200 * time.Millisecond)
			return logits(9, map[int]float32{0: 10}), nil
		}), solid(32, 32, color.White)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := NewLearned(tc.scorer, Options{Lanes: 9, Threshold: 0.95, Timeout: 20 * time.Millisecond})
			start := time.Now()
			if out := d.Detect(context.Background(), frameOf(tc.img)); len(out) != 0 {
				t.Fatalf("got %+v", out)
			}
			if cost := time.Since(start); cost > 150*time.Millisecond {
				t.Fatalf("blocked %v", cost)
			}
		})
	}
}

func TestTensorLayout(t *testing.T) {
	in := Tensor(solid(40, 40, color.RGBA{R: 255, G: 0, B: 51, A: 255}), 4)
	if len(in) != 48 {
		t.Fatal(len(in))
	}
	near := func(got, want float32) bool {
		d := got - want
		return d < 2.0/255 && d > -2.0/255
	}
	for i := range 16 {
		if !near(in[i], 1) || !near(in[16+i], 0) || !near(in[32+i], 0.2) {
			t.Fatalf("pixel %d: %v %v %v", i, in[i], in[16+i], in[32+i])
		}
	}
}

func TestNew(t *testing.T) {
	s := scorerFunc(func(context.Context, []float32) ([]float32, error) { return nil, nil })
	if d, err := New(Options{Mode: ModeAuto, Lanes: 9}, nil); err != nil || d.Stats().Mode != ModeHeuristic {
		t.Fatal("auto without model should fall back", err)
	}
	if d, err := New(Options{Mode: ModeAuto, Lanes: 9}, s); err != nil || d.Stats().Mode != ModeLearned {
		t.Fatal("auto with model", err)
	}
	if _, err := New(Options{Mode: ModeLearned, Lanes: 9}, nil); err == nil {
		t.Fatal("learned without model")
	}
	if _, err := New(Options{Mode: "magic", Lanes: 9}, s); err == nil {
		t.Fatal("unknown mode")
	}
	if _, err := New(Options{Mode: ModeHeuristic}, nil); err == nil {
		t.Fatal("zero lanes")
	}
}

func TestLinearScorer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	m := LinearScorer{
		Weights: [][]float32{{1, 0, 0}, {0, 2, 1}},
		Bias:    []float32{0.5, -1},
	}
	b, _ := json.Marshal(m)
	if err := os.WriteFile(path, b, 0o644); err != nil {
		t.Fatal(err)
	}
	s, err := LoadLinearScorer(path, 3, 2)
	if err != nil {
		t.Fatal(err)
	}
	out, err := s.Score(context.Background(), []float32{1, 1, 1})
	if err != nil {
		t.Fatal(err)
	}
	if out[0] != 1.5 || out[1] != 2 {
		t.Fatalf("got %v", out)
	}
	if _, err := LoadLinearScorer(path, 4, 2); err == nil {
		t.Fatal("expected input size mismatch")
	}
}
