package api

import (
	"cmp"
	"expvar"
	"log/slog"
	"net/http"
	"runtime"
	"runtime/debug"
	"slices"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/ixugo/goddd/pkg/web"
)

var startRuntime = time.Now()

func setupRouter(r *gin.Engine, uc *Usecase) {
	r.Use(
		// 格式化输出到控制台，然后记录到日志
		// 此处不做 recover，底层 http.server 也会 recover，但不会输出方便查看的格式
		gin.CustomRecovery(func(c *gin.Context, err any) {
			slog.ErrorContext(c.Request.Context(), "panic", "err", err, "stack", string(debug.Stack()))
			c.AbortWithStatus(http.StatusInternalServerError)
		}),
		web.Metrics(),
		web.Logger(
			web.IgnoreMethod(http.MethodOptions),
			web.IgnorePrefix("/metrics"),
			web.IgnorePrefix("/automation/statistics"), // 前端轮询
		),
		web.LoggerWithBody(web.DefaultBodyLimit,
			web.IgnoreBool(uc.Conf.Server.Debug),
			web.IgnoreMethod(http.MethodOptions),
		),
	)
	go web.CountGoroutines(10*time.Minute, 20)

	r.Use(cors.New(cors.Config{
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders: []string{
			"Accept", "Content-Length", "Content-Type", "Accept-Language",
			"Origin", "Authorization", "Referer", "User-Agent",
			"Accept-Encoding", "Cache-Control", "X-Requested-With", "X-Request-ID",
		},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
		AllowOriginFunc: func(_ string) bool {
			return true
		},
	}))

	r.NoRoute(func(c *gin.Context) {
		c.JSON(404, gin.H{"msg": "来到了无人的荒漠"})
	})

	r.GET("/health", web.WrapH(uc.getHealth))
	r.GET("/app/metrics/api", web.WrapH(uc.getMetricsAPI))
	r.GET("/metrics", gin.WrapH(uc.Metrics.Handler()))

	// 统计与历史接口数据量较大，启用压缩
	zip := gzip.Gzip(gzip.DefaultCompression)
	RegisterAutomation(r, uc.AutomationAPI)
	RegisterStats(r, uc.StatsAPI, zip)
	RegisterSession(r, uc.SessionAPI, zip)
	RegisterConfig(r, uc.ConfigAPI)
}

type getHealthOutput struct {
	Version   string    `json:"version"`
	StartAt   time.Time `json:"start_at"`
	GitBranch string    `json:"git_branch"`
	GitHash   string    `json:"git_hash"`
	State     string    `json:"state"`
}

func (uc *Usecase) getHealth(_ *gin.Context, _ *struct{}) (getHealthOutput, error) {
	return getHealthOutput{
		Version:   uc.Conf.BuildVersion,
		GitBranch: expvarString("git_branch"),
		GitHash:   expvarString("git_hash"),
		StartAt:   startRuntime,
		State:     uc.AutomationAPI.scheduler.State().String(),
	}, nil
}

func expvarString(name string) string {
	v := expvar.Get(name)
	if v == nil {
		return ""
	}
	return strings.Trim(v.String(), `"`)
}

type getMetricsAPIOutput struct {
	InFlight     int64        `json:"in_flight"`      // 处理中的请求
	Requests     int64        `json:"requests"`       // 累计请求
	Responses    int64        `json:"responses"`      // 累计响应
	TopURLs      []expvarPair `json:"top_urls"`       // 访问最多的接口
	TopStatus    []expvarPair `json:"top_status"`     // 出现最多的状态码
	Goroutines   any          `json:"goroutines"`     // 协程数量
	NumGC        uint32       `json:"num_gc"`         // gc 次数
	SysBytes     uint64       `json:"sys_bytes"`      // 向系统申请的内存
	Uptime       string       `json:"uptime"`         // 已运行时长
	LoopState    string       `json:"loop_state"`     // 调度循环状态
	LoopFPS      float64      `json:"loop_fps"`       // 当前会话帧率
	LoopAccuracy float64      `json:"loop_accuracy"`  // 当前会话命中率
}

func (uc *Usecase) getMetricsAPI(_ *gin.Context, _ *struct{}) (*getMetricsAPIOutput, error) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	out := getMetricsAPIOutput{
		InFlight:  expvarInt("request"),
		Requests:  expvarInt("requests"),
		Responses: expvarInt("responses"),
		TopURLs:   topExpvar("requestURLs", 10),
		TopStatus: topExpvar("statusCodes", 10),
		NumGC:     mem.NumGC,
		SysBytes:  mem.Sys,
		Uptime:    time.Since(startRuntime).Truncate(time.Second).String(),
	}
	if fn, ok := expvar.Get("goroutine_num").(expvar.Func); ok {
		out.Goroutines = fn()
	}
	if uc.AutomationAPI.scheduler != nil {
		st := uc.AutomationAPI.scheduler.Statistics()
		out.LoopState = st.State.String()
		out.LoopFPS = st.FPS
		out.LoopAccuracy = st.Accuracy
	}
	return &out, nil
}

type expvarPair struct {
	Key   string `json:"key"`
	Value int64  `json:"value"`
}

func expvarInt(name string) int64 {
	if v, ok := expvar.Get(name).(*expvar.Int); ok {
		return v.Value()
	}
	return 0
}

// topExpvar 按计数倒序取前 n 项
func topExpvar(name string, n int) []expvarPair {
	m, ok := expvar.Get(name).(*expvar.Map)
	if !ok {
		return nil
	}
	pairs := make([]expvarPair, 0, 8)
	m.Do(func(kv expvar.KeyValue) {
		if v, ok := kv.Value.(*expvar.Int); ok {
			pairs = append(pairs, expvarPair{Key: kv.Key, Value: v.Value()})
		}
	})
	slices.SortFunc(pairs, func(a, b expvarPair) int {
		return cmp.Compare(b.Value, a.Value)
	})
	return pairs[:min(n, len(pairs))]
}
