// Package note 定义采集帧与识别结果，供识别、调度、分析共用
package note

import (
	"image"
	"time"
)

// Frame 一次采集的画面，采集后只读
type Frame struct {
	Image      image.Image
	CapturedAt time.Time
	Region     image.Rectangle
}

// Detection 单个音符识别结果
type Detection struct {
	Lane       int       `json:"lane"`       // 轨道序号 [0, lanes)
	Position   float64   `json:"position"`   // 轨道内的纵向位置
	Confidence float64   `json:"confidence"` // 置信度 [0, 1]
	Timestamp  time.Time `json:"timestamp"`  // 识别时刻
}
