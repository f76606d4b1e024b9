package data

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gowvp/autoinput/internal/conf"
	"github.com/gowvp/autoinput/internal/core/session"
)

const scoresJSON = `{
  "user_id": "u1",
  "timestamp": 1700000000.5,
  "scores": [
    {"accuracy": 0.65, "timing_error_ms": 45, "total_notes": 100, "hits": 65},
    {"accuracy": 0.72, "timing_error_ms": 38, "total_notes": 100, "hits": 72}
  ]
}`

func TestMigrateLegacyScores(t *testing.T) {
	bc := conf.DefaultConfig()
	bc.Data.Database.Dsn = ":memory:"
	db, err := SetupDB(&bc)
	if err != nil {
		t.Fatal(err)
	}
	if err := db.AutoMigrate(new(session.PlaySession)); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "scores.json")
	if n, err := MigrateLegacyScores(db, path); err != nil || n != 0 {
		t.Fatalf("missing file: n=%d err=%v", n, err)
	}

	if err := os.WriteFile(path, []byte(scoresJSON), 0o644); err != nil {
		t.Fatal(err)
	}
	n, err := MigrateLegacyScores(db, path)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("migrated %d", n)
	}
	if _, err := os.Stat(path + ".imported"); err != nil {
		t.Fatal("file not renamed:", err)
	}

	var rows []session.PlaySession
	if err := db.Order("accuracy").Find(&rows).Error; err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 || rows[0].NotesMissed != 35 || rows[1].Accuracy != 72 {
		t.Fatalf("%+v", rows)
	}

	// 同一文件再次导入不会重复
	if err := os.WriteFile(path, []byte(scoresJSON), 0o644); err != nil {
		t.Fatal(err)
	}
	if n, err := MigrateLegacyScores(db, path); err != nil || n != 0 {
		t.Fatalf("re-import: n=%d err=%v", n, err)
	}
}
