package data

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/gowvp/autoinput/internal/core/session"
	"github.com/ixugo/goddd/pkg/orm"
	"gorm.io/gorm"
)

// legacyScores 旧版本地成绩文件
type legacyScores struct {
	UserID    string        `json:"user_id"`
	Timestamp float64       `json:"timestamp"` // unix 秒
	Scores    []legacyScore `json:"scores"`
}

type legacyScore struct {
	Accuracy      float64 `json:"accuracy"` // [0,1]
	TimingErrorMs float64 `json:"timing_error_ms"`
	TotalNotes    int64   `json:"total_notes"`
	Hits          int64   `json:"hits"`
	DurationSec   float64 `json:"duration"`
}

// scoreNamespace 导入记录使用确定性 ID，重复导入不会产生重复数据
var scoreNamespace = uuid.MustParse("6f0d3c4e-8a51-4c55-9a0e-3b1c0f1b2a77")

// MigrateLegacyScores 将旧版 scores.json 导入 play_sessions
// 导入完成后文件重命名为 .imported，文件不存在时直接返回
func MigrateLegacyScores(db *gorm.DB, path string) (int, error) {
	if path == "" {
		return 0, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, err
	}
	var legacy legacyScores
	if err := json.Unmarshal(b, &legacy); err != nil {
		return 0, fmt.Errorf("decode %s: %w", path, err)
	}
	if !db.Migrator().HasTable(new(session.PlaySession)) {
		slog.Warn("play_sessions 表不存在，跳过成绩导入")
		return 0, nil
	}

	ctx := context.Background()
	at := orm.Time{Time: time.Unix(0, int64(legacy.Timestamp*float64(time.Second)))}
	migrated := 0
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i, s := range legacy.Scores {
			id := uuid.NewSHA1(scoreNamespace, fmt.Appendf(nil, "%s/%v/%d", legacy.UserID, legacy.Timestamp, i)).String()
			row := session.PlaySession{
				ID:                id,
				StartedAt:         at,
				EndedAt:           orm.Time{Time: at.Add(time.Duration(s.DurationSec * float64(time.Second)))},
				DurationSec:       s.DurationSec,
				NotesHit:          s.Hits,
				NotesMissed:       max(s.TotalNotes-s.Hits, 0),
				Accuracy:          s.Accuracy * 100,
				MeanTimingErrorMs: s.TimingErrorMs,
				CreatedAt:         orm.Now(),
			}
			res := tx.Where("id = ?", id).FirstOrCreate(&row)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected > 0 {
				migrated++
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if err := os.Rename(path, path+".imported"); err != nil {
		slog.Warn("rename scores file", "path", path, "err", err)
	}
	slog.Info("成绩导入完成", "total", len(legacy.Scores), "migrated", migrated)
	return migrated, nil
}
