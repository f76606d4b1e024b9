package main

import (
	"context"
	"expvar"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/gowvp/autoinput/internal/app"
	"github.com/gowvp/autoinput/internal/conf"
	"github.com/ixugo/goddd/pkg/system"
)

var (
	buildVersion = "0.0.1" // 构建版本号
	gitBranch    = "dev"
	gitHash      = "debug"
)

var configPath = flag.String("conf", "./configs/config.toml", "config file path")

func main() {
	flag.Parse()
	expvar.NewString("git_branch").Set(gitBranch)
	expvar.NewString("git_hash").Set(gitHash)

	path := *configPath
	if !filepath.IsAbs(path) {
		path = filepath.Join(system.Getwd(), path)
	}
	bc, err := conf.SetupConfig(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "setup config:", err)
		os.Exit(1)
	}
	bc.BuildVersion = buildVersion

	log, cleanup, err := app.SetupLog(bc)
	if err != nil {
		fmt.Fprintln(os.Stderr, "setup log:", err)
		os.Exit(1)
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := app.Run(ctx, bc, log); err != nil {
		slog.Error("run", "err", err)
		cleanup()
		os.Exit(1)
	}
}
