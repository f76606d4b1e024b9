package api

import (
	"github.com/gin-gonic/gin"
	"github.com/gowvp/autoinput/internal/core/session"
	"github.com/ixugo/goddd/pkg/web"
)

// SessionAPI 会话历史与教练建议
type SessionAPI struct {
	core session.Core
}

func NewSessionAPI(core session.Core) SessionAPI {
	return SessionAPI{core: core}
}

func RegisterSession(g gin.IRouter, api SessionAPI, handler ...gin.HandlerFunc) {
	{
		group := g.Group("/sessions", handler...)
		group.GET("", web.WrapH(api.findSessions))
		group.GET("/:id", web.WrapH(api.getSession))
		group.DELETE("/:id", web.WrapH(api.delSession))
	}
	g.GET("/coach/recommendations", append(handler, web.WrapH(api.coach))...)
}

func (a SessionAPI) findSessions(c *gin.Context, in *session.FindSessionInput) (any, error) {
	items, total, err := a.core.FindSessions(c.Request.Context(), in)
	return gin.H{"items": items, "total": total}, err
}

func (a SessionAPI) getSession(c *gin.Context, _ *struct{}) (*session.PlaySession, error) {
	return a.core.GetSession(c.Request.Context(), c.Param("id"))
}

func (a SessionAPI) delSession(c *gin.Context, _ *struct{}) (*session.PlaySession, error) {
	return a.core.DelSession(c.Request.Context(), c.Param("id"))
}

func (a SessionAPI) coach(c *gin.Context, in *session.CoachInput) (*session.Advice, error) {
	if in.Lang == "" {
		in.Lang = c.GetHeader("Accept-Language")
	}
	return a.core.Coach(c.Request.Context(), in)
}
