package session

import (
	"github.com/ixugo/goddd/pkg/orm"
	"github.com/ixugo/goddd/pkg/web"
)

type FindSessionInput struct {
	web.PagerFilter
	MinAccuracy float64 `form:"min_accuracy"` // 百分比，0 表示不过滤
	PatternType string  `form:"pattern_type"`
}

type AddSessionInput struct {
	StartedAt         orm.Time `json:"started_at"`
	EndedAt           orm.Time `json:"ended_at"`
	DurationSec       float64  `json:"duration_sec"`
	NotesHit          int64    `json:"notes_hit"`
	NotesMissed       int64    `json:"notes_missed"`
	Accuracy          float64  `json:"accuracy"`
	AvgFrameTimeMs    float64  `json:"avg_frame_time_ms"`
	FPS               float64  `json:"fps"`
	MeanTimingErrorMs float64  `json:"mean_timing_error_ms"`
	TimingOffsetMs    float64  `json:"timing_offset_ms"`
	PatternType       string   `json:"pattern_type"`
	Difficulty        float64  `json:"difficulty"`
	BPM               float64  `json:"bpm"`
}

// CoachInput 教练建议查询参数
type CoachInput struct {
	Lang   string `form:"lang"`   // en | tr，为空使用配置
	Recent int    `form:"recent"` // 参与评估的最近会话数
}
