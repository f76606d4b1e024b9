package captureadapter

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gowvp/autoinput/internal/conf"
)

func TestCrop(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 100, 50))
	out, r, err := crop(img, image.Rect(10, 10, 40, 200))
	if err != nil {
		t.Fatal(err)
	}
	if r != image.Rect(10, 10, 40, 50) || out.Bounds() != r {
		t.Fatal(r, out.Bounds())
	}
	if out, _, _ := crop(img, image.Rectangle{}); out.Bounds() != img.Bounds() {
		t.Fatal("empty region should keep full frame")
	}
	if _, _, err := crop(img, image.Rect(200, 200, 300, 300)); err == nil {
		t.Fatal("expected error for region outside frame")
	}
}

func TestFFmpegCapture(t *testing.T) {
	src, err := NewFFmpeg(conf.CaptureFFmpeg{Input: ":0.0", InputFormat: "x11grab", Width: 8, Height: 4, FPS: 30})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = src.Close() })

	data := make([]byte, 8*4*3/2)
	for i := range 32 {
		data[i] = byte(i)
	}
	if err := src.fc.Feed(data); err != nil {
		t.Fatal(err)
	}
	f, err := src.Capture(context.Background(), image.Rect(4, 0, 8, 4))
	if err != nil {
		t.Fatal(err)
	}
	if f.Region != image.Rect(4, 0, 8, 4) || f.CapturedAt.IsZero() {
		t.Fatalf("%+v", f)
	}
	y := f.Image.(*image.YCbCr).YCbCrAt(5, 1).Y
	if y != 13 {
		t.Fatalf("Y(5,1) = %d", y)
	}

	// 没有新帧时等待至超时
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := src.Capture(ctx, image.Rectangle{}); err == nil {
		t.Fatal("expected timeout without a new frame")
	}
}

func TestSnapshotCapture(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		img := image.NewRGBA(image.Rect(0, 0, 90, 60))
		img.Set(50, 5, color.White)
		_ = png.Encode(w, img)
	}))
	defer srv.Close()

	src, cleanup, err := New(conf.Capture{
		Source:   SourceSnapshot,
		Snapshot: conf.CaptureSnapshot{URL: srv.URL, StreamName: "live/game", Timeout: conf.Duration(time.Second)},
	})
	if err != nil {
		t.Fatal(err)
	}
	defer cleanup()

	f, err := src.Capture(context.Background(), image.Rect(45, 0, 90, 30))
	if err != nil {
		t.Fatal(err)
	}
	if f.Image.Bounds() != image.Rect(45, 0, 90, 30) {
		t.Fatal(f.Image.Bounds())
	}
	if r, _, _, _ := f.Image.At(50, 5).RGBA(); r != 0xffff {
		t.Fatal("pixel lost after crop")
	}
}

func TestNewUnknownSource(t *testing.T) {
	if _, _, err := New(conf.Capture{Source: "webcam"}); err == nil {
		t.Fatal("expected error")
	}
}
