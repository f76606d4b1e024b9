package api

import "github.com/gowvp/autoinput/internal/core/automation"

type setOffsetInput struct {
	OffsetMs float64 `json:"offset_ms"`
	Persist  bool    `json:"persist"` // 同时写回配置文件
}

type setOffsetOutput struct {
	OffsetMs  float64 `json:"offset_ms"`
	Persisted bool    `json:"persisted"`
}

type calibrateInput struct {
	DurationMs int64 `json:"duration_ms"` // 为 0 使用 calibration.duration
	Apply      bool  `json:"apply"`       // 将建议值设为当前偏移
	Persist    bool  `json:"persist"`     // apply 后写回配置文件
}

type calibrateOutput struct {
	automation.CalibrationResult
	Applied   bool `json:"applied"`
	Persisted bool `json:"persisted"`
}
