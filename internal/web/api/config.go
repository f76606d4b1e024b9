package api

import (
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gowvp/autoinput/internal/conf"
	"github.com/ixugo/goddd/pkg/web"
)

// ConfigAPI 当前生效的配置
type ConfigAPI struct {
	conf *conf.Bootstrap
}

func NewConfigAPI(bc *conf.Bootstrap) ConfigAPI {
	return ConfigAPI{conf: bc}
}

func RegisterConfig(g gin.IRouter, api ConfigAPI, handler ...gin.HandlerFunc) {
	g.GET("/config", append(handler, web.WrapH(api.getConfig))...)
}

func (a ConfigAPI) getConfig(_ *gin.Context, _ *struct{}) (conf.Bootstrap, error) {
	confMu.RLock()
	out := *a.conf
	confMu.RUnlock()
	// 只读副本，避免调用方修改切片
	out.Game.Keys = append([]string(nil), out.Game.Keys...)
	out.Data.Database.Dsn = redactDSN(out.Data.Database.Dsn)
	return out, nil
}

// redactDSN 隐藏数据库密码
func redactDSN(dsn string) string {
	if u, err := url.Parse(dsn); err == nil && u.User != nil {
		return u.Redacted()
	}
	// mysql: user:pass@tcp(host)/db
	if i := strings.LastIndex(dsn, "@"); i > 0 {
		if j := strings.Index(dsn[:i], ":"); j >= 0 {
			return dsn[:j+1] + "xxxxx" + dsn[i:]
		}
	}
	return dsn
}
