package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gowvp/autoinput/internal/core/automation"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserver(t *testing.T) {
	o := NewObserver()
	o.ObserveState(automation.StateRunning)
	o.ObserveCycle(10*time.Millisecond, 3)
	o.ObserveCycle(12*time.Millisecond, 1)
	o.ObservePress(true, -2*time.Millisecond)
	o.ObservePress(true, time.Millisecond)
	o.ObservePress(false, 0)

	if v := testutil.ToFloat64(o.detections); v != 4 {
		t.Fatalf("detections %v", v)
	}
	if v := testutil.ToFloat64(o.presses.WithLabelValues("hit")); v != 2 {
		t.Fatalf("hit %v", v)
	}
	if v := testutil.ToFloat64(o.presses.WithLabelValues("miss")); v != 1 {
		t.Fatalf("miss %v", v)
	}
	if v := testutil.ToFloat64(o.state); v != float64(automation.StateRunning) {
		t.Fatalf("state %v", v)
	}
	if n := testutil.CollectAndCount(o.timingError); n != 1 {
		t.Fatalf("timing error series %d", n)
	}
}

func TestHandler(t *testing.T) {
	o := NewObserver()
	o.ObserveCycle(time.Millisecond, 1)

	srv := httptest.NewServer(o.Handler())
	defer srv.Close()
	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(b), "autoinput_detections_total 1") {
		t.Fatal(string(b))
	}
}
