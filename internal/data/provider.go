package data

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/glebarez/sqlite"
	"github.com/google/wire"
	"github.com/gowvp/autoinput/internal/conf"
	"github.com/ixugo/goddd/pkg/orm"
	"github.com/ixugo/goddd/pkg/system"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// ProviderSet is data providers.
var ProviderSet = wire.NewSet(SetupDB)

const (
	driverPostgres = "postgres"
	driverMySQL    = "mysql"
	driverSQLite   = "sqlite"
)

// SetupDB 按 dsn 选择驱动，会话历史写入量很小，sqlite 只保留单连接
func SetupDB(c *conf.Bootstrap) (*gorm.DB, error) {
	cfg := c.Data.Database
	driver, dial, err := openDialector(cfg.Dsn)
	if err != nil {
		return nil, err
	}
	idle, open := int(cfg.MaxIdleConns), int(cfg.MaxOpenConns)
	if driver == driverSQLite {
		idle, open = 1, 1
	}
	db, err := orm.New(dial, orm.Config{
		MaxIdleConns:    idle,
		MaxOpenConns:    open,
		ConnMaxLifetime: cfg.ConnMaxLifetime.Duration(),
		SlowThreshold:   cfg.SlowThreshold.Duration(),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	slog.Info("database ready", "driver", driver, "max_open_conns", open)
	return db, nil
}

// openDialector postgres/mysql 以前缀区分，其余视为 sqlite 文件，相对路径基于工作目录
func openDialector(dsn string) (string, gorm.Dialector, error) {
	switch {
	case strings.HasPrefix(dsn, "postgres"):
		return driverPostgres, postgres.New(postgres.Config{DriverName: "pgx", DSN: dsn}), nil
	case strings.HasPrefix(dsn, "mysql"):
		return driverMySQL, mysql.Open(strings.TrimPrefix(dsn, "mysql://")), nil
	case dsn == ":memory:":
		return driverSQLite, sqlite.Open(dsn), nil
	}

	path := dsn
	if !filepath.IsAbs(path) {
		path = filepath.Join(system.Getwd(), path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", nil, fmt.Errorf("sqlite dir: %w", err)
	}
	return driverSQLite, sqlite.Open(path), nil
}
