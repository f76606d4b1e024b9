package session

import (
	"context"
	"slices"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Level 技能等级
type Level string

const (
	LevelBeginner     Level = "beginner"
	LevelIntermediate Level = "intermediate"
	LevelAdvanced     Level = "advanced"
	LevelExpert       Level = "expert"
	LevelMaster       Level = "master"
)

// Trend 准确率趋势
type Trend string

const (
	TrendImproving Trend = "improving"
	TrendStable    Trend = "stable"
	TrendDeclining Trend = "declining"
)

// trendDelta 前后两半平均准确率差值超过该值才算变化
const trendDelta = 0.05

// Advice 教练评估结果，只包含建议文本，不改变任何运行参数
type Advice struct {
	Lang             string   `json:"lang"`
	Sessions         int      `json:"sessions"`
	TotalNotes       int64    `json:"total_notes"`
	TotalHits        int64    `json:"total_hits"`
	OverallAccuracy  float64  `json:"overall_accuracy"` // 百分比
	AvgAccuracy      float64  `json:"avg_accuracy"`     // 百分比
	AvgTimingErrorMs float64  `json:"avg_timing_error_ms"`
	Level            Level    `json:"level"`
	LevelName        string   `json:"level_name"`
	Trend            Trend    `json:"trend"`
	WeakAreas        []string `json:"weak_areas"`
	StrongAreas      []string `json:"strong_areas"`
	Recommendations  []string `json:"recommendations"`
	Training         []string `json:"training"`
}

var langMatcher = language.NewMatcher([]language.Tag{language.English, language.Turkish})

// printer 不支持的语言回退到英文
func printer(lang string) (*message.Printer, string) {
	tag, _ := language.MatchStrings(langMatcher, lang)
	base, _ := tag.Base()
	if base.String() == "tr" {
		return message.NewPrinter(language.Turkish), "tr"
	}
	return message.NewPrinter(language.English), "en"
}

// AssessLevel 准确率为 [0,1] 小数
func AssessLevel(accuracy, timingErrMs float64) Level {
	switch {
	case accuracy >= 0.95 && timingErrMs < 10:
		return LevelMaster
	case accuracy >= 0.90 && timingErrMs < 15:
		return LevelExpert
	case accuracy >= 0.80 && timingErrMs < 25:
		return LevelAdvanced
	case accuracy >= 0.65 && timingErrMs < 40:
		return LevelIntermediate
	default:
		return LevelBeginner
	}
}

// CalcTrend accuracies 按时间先后排列，取最近 10 个比较前后两半
func CalcTrend(accuracies []float64) Trend {
	if len(accuracies) < 3 {
		return TrendStable
	}
	if len(accuracies) > 10 {
		accuracies = accuracies[len(accuracies)-10:]
	}
	half := len(accuracies) / 2
	diff := mean(accuracies[half:]) - mean(accuracies[:half])
	switch {
	case diff > trendDelta:
		return TrendImproving
	case diff < -trendDelta:
		return TrendDeclining
	}
	return TrendStable
}

// Coach 基于最近会话给出等级与建议
func (c Core) Coach(ctx context.Context, in *CoachInput) (*Advice, error) {
	lang := in.Lang
	if lang == "" {
		lang = c.lang
	}
	items, err := c.RecentSessions(ctx, in.Recent)
	if err != nil {
		return nil, err
	}
	// 数据库按时间倒序返回
	slices.Reverse(items)
	return Evaluate(items, lang), nil
}

// Evaluate sessions 按时间先后排列
func Evaluate(sessions []*PlaySession, lang string) *Advice {
	p, lang := printer(lang)
	out := Advice{
		Lang:            lang,
		Sessions:        len(sessions),
		WeakAreas:       []string{},
		StrongAreas:     []string{},
		Recommendations: []string{},
	}
	if len(sessions) == 0 {
		out.Level = LevelBeginner
		out.LevelName = p.Sprintf(string(LevelBeginner))
		out.Trend = TrendStable
		out.Recommendations = append(out.Recommendations, p.Sprintf("Not enough data yet. Complete more sessions."))
		out.Training = training(p, LevelBeginner)
		return &out
	}

	accs := make([]float64, 0, len(sessions))
	timings := make([]float64, 0, len(sessions))
	for _, s := range sessions {
		accs = append(accs, s.Accuracy/100)
		timings = append(timings, s.MeanTimingErrorMs)
		out.TotalNotes += s.TotalNotes()
		out.TotalHits += s.NotesHit
	}
	if out.TotalNotes > 0 {
		out.OverallAccuracy = float64(out.TotalHits) / float64(out.TotalNotes) * 100
	}
	acc, timing := mean(accs), mean(timings)
	out.AvgAccuracy = acc * 100
	out.AvgTimingErrorMs = timing
	out.Level = AssessLevel(acc, timing)
	out.LevelName = p.Sprintf(string(out.Level))
	out.Trend = CalcTrend(accs)

	if acc < 0.7 {
		out.WeakAreas = append(out.WeakAreas, p.Sprintf("Note recognition"))
	}
	if timing > 40 {
		out.WeakAreas = append(out.WeakAreas, p.Sprintf("Timing"))
	}
	if acc >= 0.9 {
		out.StrongAreas = append(out.StrongAreas, p.Sprintf("High accuracy"))
	}
	if timing < 15 {
		out.StrongAreas = append(out.StrongAreas, p.Sprintf("Excellent timing"))
	}

	out.Recommendations = recommendations(p, acc, timing, out.Level, out.WeakAreas)
	out.Training = training(p, out.Level)
	return &out
}

func recommendations(p *message.Printer, acc, timing float64, level Level, weak []string) []string {
	var out []string
	add := func(keys ...string) {
		for _, k := range keys {
			out = append(out, p.Sprintf(k))
		}
	}

	switch {
	case acc < 0.5:
		add("Accuracy is very low. Start with slower songs and focus.",
			"Watch first to memorise the note positions.")
	case acc < 0.7:
		add("Practise to raise accuracy. Target: 70%%+",
			"Check the timing offset setting.")
	case acc < 0.85:
		add("Good progress! You can try harder songs.",
			"Focus on keeping combos.")
	case acc < 0.95:
		add("Excellent performance! Increase speed and complexity.",
			"You are ready for hard modes.")
	default:
		add("Great! You are at master level!",
			"Test yourself in expert modes.")
	}

	switch {
	case timing > 50:
		add("Timing error is high. Run a calibration.",
			"Tune the settings to reduce system latency.")
	case timing > 30:
		add("Timing is slightly late. Adjust the offset.")
	case timing < 10:
		add("Perfect timing precision!")
	}

	switch level {
	case LevelBeginner:
		add("Beginner: do basic rhythm exercises.",
			"Start with easy songs and raise the tempo.")
	case LevelIntermediate:
		add("Intermediate: try different pattern types.",
			"Practise at various BPMs.")
	case LevelAdvanced:
		add("Advanced: focus on complex combinations.",
			"Pay attention to details for perfection.")
	default:
		add("Master: practise at least 30 minutes every day.",
			"Consider joining tournaments!")
	}

	if len(weak) > 0 {
		out = append(out, p.Sprintf("Weak areas: %s", strings.Join(weak, ", ")))
		add("Practise these areas specifically.")
	}
	return out
}

func training(p *message.Printer, level Level) []string {
	var keys []string
	switch level {
	case LevelBeginner:
		keys = []string{
			"Start with slow songs (60-80 BPM)",
			"Practise 15-20 minutes every day",
			"Focus on single column notes",
			"Learn note positions visually",
			"Use a metronome to build rhythm",
		}
	case LevelIntermediate:
		keys = []string{
			"Try medium tempo songs (80-120 BPM)",
			"Practise two-note combinations",
			"Learn different pattern types",
			"Focus on keeping combos",
			"Practise 30 minutes daily",
		}
	case LevelAdvanced:
		keys = []string{
			"Fast tempo songs (120-160 BPM)",
			"Complex chord combinations",
			"Build speed in stream sections",
			"Try different difficulty levels",
			"45+ minutes of intense practice",
		}
	default:
		keys = []string{
			"Complete the hardest songs",
			"Aim for full combo",
			"Compete in tournament mode",
			"Break your own records",
			"Join community events",
		}
	}
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = p.Sprintf(k)
	}
	return out
}

func mean(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	var sum float64
	for _, x := range v {
		sum += x
	}
	return sum / float64(len(v))
}
