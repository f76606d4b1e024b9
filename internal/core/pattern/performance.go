package pattern

import "github.com/gowvp/autoinput/internal/core/note"

// matchWindowMs 按键与音符在同一轨道且时间差小于该值视为命中
const matchWindowMs = 100

// Performance 按键记录与期望音符的对比
type Performance struct {
	Accuracy      float64 `json:"accuracy"`  // 命中数 / 期望音符数
	Precision     float64 `json:"precision"` // 命中数 / 按键数
	TimingErrorMs float64 `json:"timing_error_ms"`
	TotalNotes    int     `json:"total_notes"`
	Hits          int     `json:"hits"`
	Misses        int     `json:"misses"`
}

// AnalyzePerformance 每个期望音符取第一个满足条件的按键，按键可被多个音符匹配
func AnalyzePerformance(actual, expected []note.Detection) Performance {
	if len(expected) == 0 {
		return Performance{}
	}
	var hits int
	var errSum float64
	for _, want := range expected {
		for _, got := range actual {
			if got.Lane != want.Lane {
				continue
			}
			diff := float64(got.Timestamp.Sub(want.Timestamp)) / 1e6
			if diff < 0 {
				diff = -diff
			}
			if diff < matchWindowMs {
				hits++
				errSum += diff
				break
			}
		}
	}
	out := Performance{
		Accuracy:   float64(hits) / float64(len(expected)),
		TotalNotes: len(expected),
		Hits:       hits,
		Misses:     len(expected) - hits,
	}
	if len(actual) > 0 {
		out.Precision = float64(hits) / float64(len(actual))
	}
	if hits > 0 {
		out.TimingErrorMs = errSum / float64(hits)
	}
	return out
}
