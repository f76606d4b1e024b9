package api

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gowvp/autoinput/internal/conf"
	"github.com/gowvp/autoinput/internal/core/automation"
	"github.com/ixugo/goddd/pkg/reason"
	"github.com/ixugo/goddd/pkg/web"
)

// maxOffsetMs 偏移允许范围 [-maxOffsetMs, maxOffsetMs]
const maxOffsetMs = 1000

// confMu 保护运行期对 Bootstrap 的改写与读取
var confMu sync.RWMutex

// AutomationAPI 调度控制
type AutomationAPI struct {
	conf       *conf.Bootstrap
	scheduler  *automation.Scheduler
	calibrator *automation.Calibrator
}

func NewAutomationAPI(bc *conf.Bootstrap, s *automation.Scheduler, capture automation.CaptureSource) AutomationAPI {
	cfg := bc.Calibration
	c := automation.NewCalibrator(capture,
		automation.ConfigFromBootstrap(bc).Region,
		cfg.Interval.Duration(),
		time.Duration(cfg.BufferMs)*time.Millisecond,
		cfg.MaxSamples,
		automation.WithCaptureTimeout(bc.Capture.Timeout.Duration()),
	)
	return AutomationAPI{conf: bc, scheduler: s, calibrator: c}
}

func RegisterAutomation(g gin.IRouter, api AutomationAPI, handler ...gin.HandlerFunc) {
	group := g.Group("/automation", handler...)
	group.GET("/status", web.WrapH(api.status))
	group.GET("/statistics", web.WrapH(api.statistics))
	group.POST("/start", web.WrapH(api.start))
	group.POST("/pause", web.WrapH(api.pause))
	group.POST("/resume", web.WrapH(api.resume))
	group.POST("/stop", web.WrapH(api.stop))
	group.POST("/reset", web.WrapH(api.reset))
	group.PUT("/offset", web.WrapH(api.setOffset))
	group.POST("/calibrate", web.WrapH(api.calibrate))
}

type statusOutput struct {
	State          automation.RunState `json:"state"`
	Running        bool                `json:"running"`
	Paused         bool                `json:"paused"`
	TimingOffsetMs float64             `json:"timing_offset_ms"`
}

func (a AutomationAPI) status(_ *gin.Context, _ *struct{}) (statusOutput, error) {
	st := a.scheduler.State()
	return statusOutput{
		State:          st,
		Running:        st == automation.StateRunning || st == automation.StatePaused,
		Paused:         st == automation.StatePaused,
		TimingOffsetMs: float64(a.scheduler.TimingOffset()) / float64(time.Millisecond),
	}, nil
}

func (a AutomationAPI) statistics(_ *gin.Context, _ *struct{}) (automation.Statistics, error) {
	return a.scheduler.Statistics(), nil
}

func (a AutomationAPI) start(c *gin.Context, _ *struct{}) (automation.Result, error) {
	out, err := a.scheduler.Start(c.Request.Context())
	if err != nil {
		return out, reason.ErrServer.SetMsg(err.Error())
	}
	return out, nil
}

func (a AutomationAPI) pause(_ *gin.Context, _ *struct{}) (automation.Result, error) {
	return a.scheduler.Pause(), nil
}

func (a AutomationAPI) resume(_ *gin.Context, _ *struct{}) (automation.Result, error) {
	return a.scheduler.Resume(), nil
}

func (a AutomationAPI) stop(c *gin.Context, _ *struct{}) (automation.Result, error) {
	return a.scheduler.Stop(c.Request.Context()), nil
}

func (a AutomationAPI) reset(_ *gin.Context, _ *struct{}) (automation.Statistics, error) {
	a.scheduler.ResetStatistics()
	return a.scheduler.Statistics(), nil
}

func (a AutomationAPI) setOffset(_ *gin.Context, in *setOffsetInput) (setOffsetOutput, error) {
	if math.Abs(in.OffsetMs) > maxOffsetMs {
		return setOffsetOutput{}, reason.ErrBadRequest.SetMsg(fmt.Sprintf("offset_ms must be within ±%d", maxOffsetMs))
	}
	persisted, err := a.applyOffset(in.OffsetMs, in.Persist)
	return setOffsetOutput{OffsetMs: in.OffsetMs, Persisted: persisted}, err
}

func (a AutomationAPI) calibrate(c *gin.Context, in *calibrateInput) (*calibrateOutput, error) {
	d := time.Duration(in.DurationMs) * time.Millisecond
	if d <= 0 {
		d = a.conf.Calibration.Duration.Duration()
	}
	if d > time.Minute {
		return nil, reason.ErrBadRequest.SetMsg("duration_ms must not exceed 60000")
	}
	res, err := a.scheduler.Calibrate(c.Request.Context(), a.calibrator, d)
	if err != nil {
		if errors.Is(err, automation.ErrBusy) {
			return nil, reason.ErrBadRequest.SetMsg(err.Error())
		}
		return nil, reason.ErrServer.SetMsg(err.Error())
	}
	out := calibrateOutput{CalibrationResult: res}
	if in.Apply && !res.NoData {
		out.Persisted, err = a.applyOffset(res.RecommendedOffsetMs, in.Persist)
		out.Applied = err == nil
	}
	return &out, err
}

// applyOffset 修改运行中的偏移，persist 时写回配置文件
func (a AutomationAPI) applyOffset(ms float64, persist bool) (bool, error) {
	a.scheduler.SetTimingOffset(time.Duration(ms * float64(time.Millisecond)))

	confMu.Lock()
	defer confMu.Unlock()
	a.conf.Game.TimingOffsetMs = int(math.Round(ms))
	if !persist {
		return false, nil
	}
	if a.conf.ConfigPath == "" {
		return false, reason.ErrBadRequest.SetMsg("config file path unknown, cannot persist")
	}
	if err := conf.WriteConfig(a.conf, a.conf.ConfigPath); err != nil {
		return false, reason.ErrServer.SetMsg(err.Error())
	}
	return true, nil
}
