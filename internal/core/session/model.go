package session

import "github.com/ixugo/goddd/pkg/orm"

// PlaySession 一次完整的自动演奏会话，Stop 时落库
type PlaySession struct {
	ID                string   `gorm:"primaryKey;size:36" json:"id"`
	StartedAt         orm.Time `gorm:"index;notNull" json:"started_at"`
	EndedAt           orm.Time `gorm:"notNull" json:"ended_at"`
	DurationSec       float64  `json:"duration_sec"`
	NotesHit          int64    `json:"notes_hit"`
	NotesMissed       int64    `json:"notes_missed"`
	Accuracy          float64  `json:"accuracy"` // 百分比
	AvgFrameTimeMs    float64  `json:"avg_frame_time_ms"`
	FPS               float64  `json:"fps"`
	MeanTimingErrorMs float64  `json:"mean_timing_error_ms"`
	TimingOffsetMs    float64  `json:"timing_offset_ms"`
	PatternType       string   `gorm:"size:16" json:"pattern_type"`
	Difficulty        float64  `json:"difficulty"`
	BPM               float64  `json:"bpm"`
	CreatedAt         orm.Time `gorm:"notNull" json:"created_at"`
}

// TableName database table name
func (*PlaySession) TableName() string {
	return "play_sessions"
}

// TotalNotes 命中与未命中之和
func (p *PlaySession) TotalNotes() int64 {
	return p.NotesHit + p.NotesMissed
}
