package sessiondb

import (
	"context"

	"github.com/gowvp/autoinput/internal/core/session"
	"github.com/ixugo/goddd/pkg/orm"
	"gorm.io/gorm"
)

var _ session.SessionStorer = Session{}

// Session Related business namespaces
type Session DB

// NewSession instance object
func NewSession(db *gorm.DB) Session {
	return Session{db: db}
}

func (d Session) query(ctx context.Context, opts ...orm.QueryOption) *gorm.DB {
	db := d.db.WithContext(ctx).Model(new(session.PlaySession))
	for _, fn := range opts {
		db = fn(db)
	}
	return db
}

// Find implements session.SessionStorer.
func (d Session) Find(ctx context.Context, bs *[]*session.PlaySession, page orm.Pager, opts ...orm.QueryOption) (int64, error) {
	var total int64
	if err := d.query(ctx, opts...).Count(&total).Error; err != nil || total == 0 {
		return total, err
	}
	err := d.query(ctx, opts...).Limit(page.Limit()).Offset(page.Offset()).Find(bs).Error
	return total, err
}

// Get implements session.SessionStorer.
func (d Session) Get(ctx context.Context, model *session.PlaySession, opts ...orm.QueryOption) error {
	return d.query(ctx, opts...).First(model).Error
}

// Add implements session.SessionStorer.
func (d Session) Add(ctx context.Context, model *session.PlaySession) error {
	return d.db.WithContext(ctx).Create(model).Error
}

// Del implements session.SessionStorer.
func (d Session) Del(ctx context.Context, model *session.PlaySession, opts ...orm.QueryOption) error {
	db := d.db.WithContext(ctx)
	for _, fn := range opts {
		db = fn(db)
	}
	return db.Delete(model).Error
}

// DelBatch implements session.SessionStorer.
func (d Session) DelBatch(ctx context.Context, opts ...orm.QueryOption) (int64, error) {
	if len(opts) == 0 {
		return 0, gorm.ErrMissingWhereClause
	}
	db := d.db.WithContext(ctx)
	for _, fn := range opts {
		db = fn(db)
	}
	res := db.Delete(new(session.PlaySession))
	return res.RowsAffected, res.Error
}
