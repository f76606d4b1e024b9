package conf

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestSetupConfigWritesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "configs", "config.toml")
	bc, err := SetupConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if bc.Game.Lanes != 9 || len(bc.Game.Keys) != 9 {
		t.Fatalf("lanes=%d keys=%v", bc.Game.Lanes, bc.Game.Keys)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatal("default config not written:", err)
	}

	again, err := SetupConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if again.Calibration.Interval.Duration() != 100*time.Millisecond {
		t.Fatalf("interval = %v", again.Calibration.Interval.Duration())
	}
	if again.Game.TimingOffsetMs != 50 {
		t.Fatalf("offset = %d", again.Game.TimingOffsetMs)
	}
}

func TestWriteConfigRoundTripOffset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	bc := DefaultConfig()
	bc.Game.TimingOffsetMs = 73
	if err := WriteConfig(&bc, path); err != nil {
		t.Fatal(err)
	}
	out, err := SetupConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if out.Game.TimingOffsetMs != 73 {
		t.Fatalf("offset = %d", out.Game.TimingOffsetMs)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		change func(*Bootstrap)
	}{
		{"lanes", func(b *Bootstrap) { b.Game.Lanes = 0 }},
		{"keys", func(b *Bootstrap) { b.Game.Keys = []string{"a"} }},
		{"threshold", func(b *Bootstrap) { b.Game.AccuracyThreshold = 1.5 }},
		{"mode", func(b *Bootstrap) { b.Game.ScheduleMode = "later" }},
		{"cache", func(b *Bootstrap) { b.Pattern.CacheCapacity = 0 }},
		{"window", func(b *Bootstrap) { b.Stats.FrameWindow = 0 }},
		{"window too large", func(b *Bootstrap) { b.Stats.FrameWindow = MaxWindow + 1 }},
		{"monitor history too large", func(b *Bootstrap) { b.Monitor.HistorySize = 1000 }},
		{"calibration samples", func(b *Bootstrap) { b.Calibration.MaxSamples = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			bc := DefaultConfig()
			tc.change(&bc)
			if err := bc.Validate(); err == nil {
				t.Fatal("expected error")
			}
		})
	}
	bc := DefaultConfig()
	if err := bc.Validate(); err != nil {
		t.Fatal(err)
	}
}

func TestDurationText(t *testing.T) {
	var d Duration
	if err := d.UnmarshalText([]byte("250ms")); err != nil {
		t.Fatal(err)
	}
	if d.Duration() != 250*time.Millisecond {
		t.Fatal(d.Duration())
	}
	if err := d.UnmarshalText([]byte("soon")); err == nil {
		t.Fatal("expected error")
	}
}
