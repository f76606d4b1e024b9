package api

import (
	"context"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/wire"
	"github.com/gowvp/autoinput/internal/adapter/actuatoradapter"
	"github.com/gowvp/autoinput/internal/adapter/captureadapter"
	"github.com/gowvp/autoinput/internal/conf"
	"github.com/gowvp/autoinput/internal/core/automation"
	"github.com/gowvp/autoinput/internal/core/detect"
	"github.com/gowvp/autoinput/internal/core/pattern"
	"github.com/gowvp/autoinput/internal/core/perf"
	"github.com/gowvp/autoinput/internal/core/session"
	"github.com/gowvp/autoinput/internal/core/session/store/sessiondb"
	"github.com/gowvp/autoinput/internal/data"
	"github.com/gowvp/autoinput/internal/metrics"
	"github.com/gowvp/autoinput/internal/rpc"
	"github.com/ixugo/goddd/pkg/orm"
	"github.com/ixugo/goddd/pkg/system"
	"github.com/ixugo/goddd/pkg/web"
	"gorm.io/gorm"
)

var ProviderSet = wire.NewSet(
	wire.Struct(new(Usecase), "*"),
	NewHTTPHandler,
	NewScorer, NewDetector, NewClassifier,
	NewCapture, NewActuator,
	metrics.NewObserver, NewPerfMonitor,
	NewSessionCore, NewScheduler,
	NewAutomationAPI, NewSessionAPI, NewStatsAPI, NewConfigAPI,
)

type Usecase struct {
	Conf    *conf.Bootstrap
	DB      *gorm.DB
	Metrics *metrics.Observer

	AutomationAPI AutomationAPI
	SessionAPI    SessionAPI
	StatsAPI      StatsAPI
	ConfigAPI     ConfigAPI
}

// NewHTTPHandler 生成Gin框架路由内容
func NewHTTPHandler(uc *Usecase) http.Handler {
	cfg := uc.Conf.Server
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	g := gin.New()
	// 如果启用了 Pprof，设置 Pprof 监控
	if cfg.HTTP.PProf.Enabled {
		web.SetupPProf(g, &cfg.HTTP.PProf.AccessIps)
	}
	setupRouter(g, uc)
	return g
}

// NewScorer 远程地址优先，其次本地权重文件，都没有时返回 nil 由识别器退化
func NewScorer(bc *conf.Bootstrap) (detect.Scorer, func(), error) {
	cfg := bc.Detector
	if cfg.RemoteAddr != "" {
		cli, err := rpc.NewScorerClient(cfg.RemoteAddr)
		if err != nil {
			return nil, nil, err
		}
		return cli, func() {
			if err := cli.Close(); err != nil {
				slog.Error("close scorer client", "err", err)
			}
		}, nil
	}
	if cfg.ModelPath == "" {
		return nil, func() {}, nil
	}
	path := cfg.ModelPath
	if !filepath.IsAbs(path) {
		path = filepath.Join(system.Getwd(), path)
	}
	size := cfg.InputSize
	model, err := detect.LoadLinearScorer(path, 3*size*size, 2*bc.Game.Lanes)
	if err != nil {
		if cfg.Mode == detect.ModeLearned {
			return nil, nil, err
		}
		slog.Warn("load detection model", "path", path, "err", err)
		return nil, func() {}, nil
	}
	return model, func() {}, nil
}

func NewDetector(bc *conf.Bootstrap, scorer detect.Scorer) (detect.Detector, error) {
	cfg := bc.Detector
	threshold := cfg.Threshold
	if threshold <= 0 {
		threshold = bc.Game.AccuracyThreshold
	}
	return detect.New(detect.Options{
		Mode:                cfg.Mode,
		Lanes:               bc.Game.Lanes,
		Threshold:           threshold,
		InputSize:           cfg.InputSize,
		Timeout:             cfg.InferenceTimeout.Duration(),
		BrightnessThreshold: cfg.BrightnessThreshold,
	}, scorer)
}

func NewClassifier(bc *conf.Bootstrap) (*pattern.Classifier, error) {
	return pattern.NewClassifier(bc.Pattern.CacheCapacity)
}

func NewCapture(bc *conf.Bootstrap) (automation.CaptureSource, func(), error) {
	return captureadapter.New(bc.Capture)
}

func NewActuator(bc *conf.Bootstrap) (automation.Actuator, error) {
	return actuatoradapter.New(bc)
}

// NewPerfMonitor 后台采样直到进程退出
func NewPerfMonitor(bc *conf.Bootstrap) (*perf.Monitor, func(), error) {
	m, err := perf.NewMonitor(bc.Monitor)
	if err != nil {
		return nil, nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	m.Start(ctx)
	return m, cancel, nil
}

// NewSessionCore 会话历史，首次启动时导入旧版成绩文件，并定时清理过期会话
func NewSessionCore(db *gorm.DB, bc *conf.Bootstrap) (session.Core, func()) {
	migrate := orm.GetEnabledAutoMigrate() || !db.Migrator().HasTable(new(session.PlaySession))
	store := sessiondb.NewDB(db).AutoMigrate(migrate)
	if path := bc.Data.ImportScores; path != "" {
		if !filepath.IsAbs(path) {
			path = filepath.Join(system.Getwd(), path)
		}
		if _, err := data.MigrateLegacyScores(db, path); err != nil {
			slog.Error("import legacy scores", "path", path, "err", err)
		}
	}
	core := session.NewCore(store,
		session.WithCoach(bc.Coach.Language, bc.Coach.RecentSessions),
		session.WithRetention(bc.Data.RetainDays),
	)
	ctx, cancel := context.WithCancel(context.Background())
	go core.StartCleanupWorker(ctx)
	return core, cancel
}

// NewScheduler 组装调度循环，停止时把会话写入历史
func NewScheduler(
	bc *conf.Bootstrap,
	capture automation.CaptureSource,
	detector detect.Detector,
	actuator automation.Actuator,
	classifier *pattern.Classifier,
	observer *metrics.Observer,
	monitor *perf.Monitor,
	sessions session.Core,
) (*automation.Scheduler, func(), error) {
	s, err := automation.NewScheduler(automation.ConfigFromBootstrap(bc), capture, detector, actuator,
		automation.WithAnalyzer(classifier),
		automation.WithObserver(automation.Observers{observer, monitor}),
		automation.WithSessionHook(func(ctx context.Context, st automation.Statistics) {
			ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			if _, err := sessions.AddSession(ctx, sessionInput(st)); err != nil {
				slog.ErrorContext(ctx, "save session", "err", err)
			}
		}),
	)
	if err != nil {
		return nil, nil, err
	}
	return s, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.Stop(ctx)
	}, nil
}

func sessionInput(st automation.Statistics) *session.AddSessionInput {
	in := session.AddSessionInput{
		StartedAt:         orm.Time{Time: st.StartedAt},
		EndedAt:           orm.Time{Time: st.StartedAt.Add(st.SessionDuration)},
		DurationSec:       st.SessionSeconds,
		NotesHit:          int64(st.NotesHit),
		NotesMissed:       int64(st.NotesMissed),
		Accuracy:          st.Accuracy,
		AvgFrameTimeMs:    st.AvgFrameTimeMs,
		FPS:               st.FPS,
		MeanTimingErrorMs: st.MeanTimingErrorMs,
		TimingOffsetMs:    st.TimingOffsetMs,
	}
	if p := st.LastPattern; p != nil {
		in.PatternType = string(p.Type)
		in.Difficulty = p.Difficulty
		in.BPM = p.BPM
	}
	return &in
}
