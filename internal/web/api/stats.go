package api

import (
	"github.com/gin-gonic/gin"
	"github.com/gowvp/autoinput/internal/core/detect"
	"github.com/gowvp/autoinput/internal/core/pattern"
	"github.com/gowvp/autoinput/internal/core/perf"
	"github.com/ixugo/goddd/pkg/web"
)

// StatsAPI 识别、模式缓存与资源监控的只读视图
type StatsAPI struct {
	detector   detect.Detector
	classifier *pattern.Classifier
	monitor    *perf.Monitor
}

func NewStatsAPI(d detect.Detector, c *pattern.Classifier, m *perf.Monitor) StatsAPI {
	return StatsAPI{detector: d, classifier: c, monitor: m}
}

func RegisterStats(g gin.IRouter, api StatsAPI, handler ...gin.HandlerFunc) {
	g.GET("/patterns/stats", append(handler, web.WrapH(api.patternStats))...)
	g.GET("/detector/stats", append(handler, web.WrapH(api.detectorStats))...)
	g.GET("/performance", append(handler, web.WrapH(api.performance))...)
	g.POST("/performance/reset", append(handler, web.WrapH(api.resetPerformance))...)
}

func (a StatsAPI) patternStats(_ *gin.Context, _ *struct{}) (pattern.Stats, error) {
	return a.classifier.Stats(), nil
}

func (a StatsAPI) detectorStats(_ *gin.Context, _ *struct{}) (detect.Stats, error) {
	return a.detector.Stats(), nil
}

func (a StatsAPI) performance(_ *gin.Context, _ *struct{}) (perf.Report, error) {
	return a.monitor.Report(), nil
}

func (a StatsAPI) resetPerformance(_ *gin.Context, _ *struct{}) (perf.Report, error) {
	a.monitor.Reset()
	return a.monitor.Report(), nil
}
