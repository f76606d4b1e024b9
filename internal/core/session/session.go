package session

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/ixugo/goddd/pkg/orm"
	"github.com/ixugo/goddd/pkg/reason"
	"github.com/ixugo/goddd/pkg/web"
	"github.com/jinzhu/copier"
)

// SessionStorer Instantiation interface
type SessionStorer interface {
	Find(context.Context, *[]*PlaySession, orm.Pager, ...orm.QueryOption) (int64, error)
	Get(context.Context, *PlaySession, ...orm.QueryOption) error
	Add(context.Context, *PlaySession) error
	Del(context.Context, *PlaySession, ...orm.QueryOption) error
	DelBatch(context.Context, ...orm.QueryOption) (int64, error)
}

// FindSessions 分页查询会话，按开始时间倒序
func (c Core) FindSessions(ctx context.Context, in *FindSessionInput) ([]*PlaySession, int64, error) {
	query := orm.NewQuery(2).OrderBy("started_at DESC")
	if in.MinAccuracy > 0 {
		query.Where("accuracy >= ?", in.MinAccuracy)
	}
	if in.PatternType != "" {
		query.Where("pattern_type = ?", in.PatternType)
	}

	items := make([]*PlaySession, 0, in.Limit())
	total, err := c.store.Session().Find(ctx, &items, in, query.Encode()...)
	if err != nil {
		return nil, 0, reason.ErrDB.Withf(`Find in[%+v] err[%s]`, in, err.Error())
	}
	return items, total, nil
}

// GetSession Query a single object
func (c Core) GetSession(ctx context.Context, id string) (*PlaySession, error) {
	var out PlaySession
	if err := c.store.Session().Get(ctx, &out, orm.Where("id=?", id)); err != nil {
		if orm.IsErrRecordNotFound(err) {
			return nil, reason.ErrNotFound.Withf(`Get id[%s] err[%s]`, id, err.Error())
		}
		return nil, reason.ErrDB.Withf(`Get id[%s] err[%s]`, id, err.Error())
	}
	return &out, nil
}

// AddSession Insert into database
func (c Core) AddSession(ctx context.Context, in *AddSessionInput) (*PlaySession, error) {
	var out PlaySession
	if err := copier.Copy(&out, in); err != nil {
		slog.ErrorContext(ctx, "Copy", "err", err)
	}
	out.ID = uuid.NewString()
	out.CreatedAt = orm.Now()

	if err := c.store.Session().Add(ctx, &out); err != nil {
		return nil, reason.ErrDB.Withf(`Add err[%s]`, err.Error())
	}
	return &out, nil
}

// DelSession Delete object
func (c Core) DelSession(ctx context.Context, id string) (*PlaySession, error) {
	out := PlaySession{ID: id}
	if err := c.store.Session().Del(ctx, &out, orm.Where("id=?", id)); err != nil {
		return nil, reason.ErrDB.Withf(`Del id[%s] err[%s]`, id, err.Error())
	}
	return &out, nil
}

// RecentSessions 最近 n 次会话，按开始时间倒序
func (c Core) RecentSessions(ctx context.Context, n int) ([]*PlaySession, error) {
	if n <= 0 {
		n = c.recent
	}
	in := FindSessionInput{PagerFilter: web.PagerFilter{Page: 1, Size: n}}
	items, _, err := c.FindSessions(ctx, &in)
	return items, err
}
