package session

import (
	"context"
	"strings"
	"testing"

	"github.com/ixugo/goddd/pkg/orm"
	"gorm.io/gorm"
)

func TestAssessLevel(t *testing.T) {
	cases := []struct {
		acc    float64
		timing float64
		want   Level
	}{
		{0.96, 5, LevelMaster},
		{0.96, 12, LevelExpert},
		{0.91, 14, LevelExpert},
		{0.85, 20, LevelAdvanced},
		{0.70, 39, LevelIntermediate},
		{0.70, 41, LevelBeginner},
		{0.40, 5, LevelBeginner},
	}
	for _, tc := range cases {
		if got := AssessLevel(tc.acc, tc.timing); got != tc.want {
			t.Errorf("AssessLevel(%v,%v) = %s, want %s", tc.acc, tc.timing, got, tc.want)
		}
	}
}

func TestCalcTrend(t *testing.T) {
	if CalcTrend([]float64{0.1, 0.9}) != TrendStable {
		t.Fatal("fewer than 3 sessions should be stable")
	}
	if CalcTrend([]float64{0.65, 0.72, 0.78}) != TrendImproving {
		t.Fatal("expected improving")
	}
	if CalcTrend([]float64{0.9, 0.8, 0.7, 0.6}) != TrendDeclining {
		t.Fatal("expected declining")
	}
	if CalcTrend([]float64{0.8, 0.81, 0.79, 0.8}) != TrendStable {
		t.Fatal("expected stable")
	}
}

func TestEvaluate(t *testing.T) {
	sessions := []*PlaySession{
		{NotesHit: 65, NotesMissed: 35, Accuracy: 65, MeanTimingErrorMs: 45},
		{NotesHit: 72, NotesMissed: 28, Accuracy: 72, MeanTimingErrorMs: 38},
		{NotesHit: 78, NotesMissed: 22, Accuracy: 78, MeanTimingErrorMs: 32},
	}
	adv := Evaluate(sessions, "en")
	if adv.Sessions != 3 || adv.TotalNotes != 300 || adv.TotalHits != 215 {
		t.Fatalf("%+v", adv)
	}
	if adv.Level != LevelIntermediate || adv.LevelName != "Intermediate" {
		t.Fatalf("level %s %s", adv.Level, adv.LevelName)
	}
	if adv.Trend != TrendImproving {
		t.Fatalf("trend %s", adv.Trend)
	}
	if len(adv.WeakAreas) != 0 || len(adv.StrongAreas) != 0 {
		t.Fatalf("weak %v strong %v", adv.WeakAreas, adv.StrongAreas)
	}
	// 准确率 0.716 落在 [0.7,0.85)，时间误差 38ms 属于偏晚
	if adv.Recommendations[0] != "Good progress! You can try harder songs." {
		t.Fatal(adv.Recommendations)
	}
	if len(adv.Training) != 5 {
		t.Fatal(adv.Training)
	}
}

func TestEvaluateTurkish(t *testing.T) {
	adv := Evaluate([]*PlaySession{{NotesHit: 60, NotesMissed: 40, Accuracy: 60, MeanTimingErrorMs: 60}}, "tr-TR")
	if adv.Lang != "tr" || adv.LevelName != "Başlangıç" {
		t.Fatalf("%s %s", adv.Lang, adv.LevelName)
	}
	if adv.Recommendations[0] != "Doğruluğu artırmak için pratik yapın. Hedef: %70+" {
		t.Fatal(adv.Recommendations[0])
	}
	last := adv.Recommendations[len(adv.Recommendations)-2]
	if !strings.HasPrefix(last, "Zayıf alanlar: Not tanıma, Zamanlama") {
		t.Fatal(last)
	}
}

func TestEvaluateEmpty(t *testing.T) {
	adv := Evaluate(nil, "de")
	if adv.Lang != "en" || adv.Level != LevelBeginner || len(adv.Recommendations) != 1 {
		t.Fatalf("%+v", adv)
	}
}

type memStore struct {
	items   []*PlaySession
	batches int
}

func (m *memStore) Session() SessionStorer { return m }

func (m *memStore) Find(_ context.Context, out *[]*PlaySession, p orm.Pager, _ ...orm.QueryOption) (int64, error) {
	end := min(p.Offset()+p.Limit(), len(m.items))
	*out = append(*out, m.items[p.Offset():end]...)
	return int64(len(m.items)), nil
}

func (m *memStore) Get(_ context.Context, out *PlaySession, _ ...orm.QueryOption) error {
	if len(m.items) == 0 {
		return gorm.ErrRecordNotFound
	}
	*out = *m.items[0]
	return nil
}

func (m *memStore) Add(_ context.Context, s *PlaySession) error {
	// 模拟按 started_at 倒序
	m.items = append([]*PlaySession{s}, m.items...)
	return nil
}

func (m *memStore) Del(context.Context, *PlaySession, ...orm.QueryOption) error { return nil }

func (m *memStore) DelBatch(context.Context, ...orm.QueryOption) (int64, error) {
	m.batches++
	return int64(len(m.items)), nil
}

func TestCoreAddAndCoach(t *testing.T) {
	store := &memStore{}
	core := NewCore(store, WithCoach("tr", 2))
	ctx := context.Background()
	for _, acc := range []float64{50, 96, 97} {
		out, err := core.AddSession(ctx, &AddSessionInput{Accuracy: acc, NotesHit: int64(acc), NotesMissed: int64(100 - acc), MeanTimingErrorMs: 5})
		if err != nil {
			t.Fatal(err)
		}
		if out.ID == "" || out.CreatedAt.IsZero() {
			t.Fatalf("%+v", out)
		}
	}
	adv, err := core.Coach(ctx, &CoachInput{})
	if err != nil {
		t.Fatal(err)
	}
	// 只评估最近 2 次
	if adv.Sessions != 2 || adv.Level != LevelMaster || adv.Lang != "tr" {
		t.Fatalf("%+v", adv)
	}
	if _, err := NewCore(&memStore{}).GetSession(ctx, "x"); err == nil {
		t.Fatal("expected not found")
	}
}
