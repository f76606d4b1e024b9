package sessiondb

import (
	"github.com/gowvp/autoinput/internal/core/session"
	"gorm.io/gorm"
)

var _ session.Storer = DB{}

// DB Related business namespaces
type DB struct {
	db *gorm.DB
}

// NewDB instance object
func NewDB(db *gorm.DB) DB {
	return DB{db: db}
}

// Session Get business instance
func (d DB) Session() session.SessionStorer {
	return Session(d)
}

// AutoMigrate sync database
func (d DB) AutoMigrate(ok bool) DB {
	if !ok {
		return d
	}
	if err := d.db.AutoMigrate(
		new(session.PlaySession),
	); err != nil {
		panic(err)
	}
	return d
}
