package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gowvp/autoinput/internal/conf"
	"github.com/ixugo/goddd/pkg/system"
	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
)

// Run 启动 http 服务，ctx 结束后优雅退出并释放资源
func Run(ctx context.Context, bc *conf.Bootstrap, log *slog.Logger) error {
	handler, cleanup, err := wireApp(bc, log)
	if err != nil {
		return err
	}
	defer cleanup()

	timeout := bc.Server.HTTP.Timeout.Duration()
	svr := http.Server{
		Addr:              fmt.Sprintf(":%d", bc.Server.HTTP.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       timeout,
		// 校准请求可能持续较久
		WriteTimeout: timeout + time.Minute,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info("http server start", "addr", svr.Addr)
		if err := svr.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Info("http server shutdown")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return svr.Shutdown(shutdownCtx)
}

// SetupLog 控制台输出 JSON，配置了目录时同时写入按天切分的文件
func SetupLog(bc *conf.Bootstrap) (*slog.Logger, func(), error) {
	var w io.Writer = os.Stdout
	cleanup := func() {}
	if dir := bc.Log.Dir; dir != "" {
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(system.Getwd(), dir)
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, err
		}
		rl, err := rotatelogs.New(
			filepath.Join(dir, "autoinput_%Y%m%d.log"),
			rotatelogs.WithLinkName(filepath.Join(dir, "autoinput.log")),
			rotatelogs.WithMaxAge(bc.Log.MaxAge.Duration()),
			rotatelogs.WithRotationTime(bc.Log.RotationTime.Duration()),
		)
		if err != nil {
			return nil, nil, err
		}
		w = io.MultiWriter(os.Stdout, rl)
		cleanup = func() { _ = rl.Close() }
	}
	log := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		AddSource: bc.Server.Debug,
		Level:     parseLevel(bc.Log.Level),
	}))
	slog.SetDefault(log)
	return log, cleanup, nil
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
