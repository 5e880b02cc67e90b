package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/Singert/cgihttpd/core/config"
	"github.com/Singert/cgihttpd/core/handler"
	"github.com/Singert/cgihttpd/core/server"
	"github.com/Singert/cgihttpd/core/talklog"
)

func usage(fs *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, "Usage: %s [options]\nOptions:\n", os.Args[0])
	fs.PrintDefaults()
}

func main() {
	startTime := time.Now()
	gid := talklog.GID()

	// 命令行参数（默认值来自配置）
	fs := config.Flags()
	fs.Usage = func() { usage(fs) }
	if err := fs.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			os.Exit(0)
		}
		os.Exit(1)
	}
	if help, _ := fs.GetBool("help"); help {
		usage(fs)
		os.Exit(0)
	}

	// 初始化配置
	cfg, err := config.Load(fs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "配置错误: %v\n", err)
		usage(fs)
		os.Exit(1)
	}
	cfg.StartTime = startTime

	if err := talklog.InitLogConfig(&talklog.LogConfig{
		LogToFile: cfg.Logger.LogToFile,
		FilePath:  cfg.Logger.FilePath,
		WithTime:  cfg.Logger.WithTime,
		Debug:     cfg.Logger.Debug,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "日志初始化失败: %v\n", err)
		os.Exit(1)
	}
	defer talklog.Close()

	talklog.Boot(gid, "%s/%s (Go %s)", config.ServerName(), config.ServerVersion(), config.GoVersion())
	talklog.Boot(gid, "RootPath        = %s", cfg.Server.Root)
	talklog.Boot(gid, "MimeTypesPath   = %s", cfg.Mime.TablePath)
	talklog.Boot(gid, "DefaultMimeType = %s", cfg.Mime.Default)
	talklog.Boot(gid, "ConcurrencyMode = %s", cfg.Server.Mode)

	h, err := handler.NewHandler(cfg)
	if err != nil {
		talklog.Error(gid, "创建处理器失败: %v", err)
		os.Exit(1)
	}

	srv := server.NewHTTPServer(cfg, h)
	if err := srv.ServerBind(); err != nil {
		talklog.Error(gid, "Could not establish connection to port %s: %v", cfg.Server.Port, err)
		os.Exit(1)
	}
	talklog.Boot(gid, "监听端口: %d", srv.ServerPort)
	talklog.BootDone(time.Since(cfg.StartTime))

	// 捕获系统信号 (Ctrl+C / kill)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(srv.Serve)
	g.Go(func() error {
		<-ctx.Done()
		talklog.Boot(gid, "正在关机...")
		return srv.Shutdown()
	})

	if err := g.Wait(); err != nil {
		talklog.Error(gid, "服务器异常退出: %v", err)
		os.Exit(1)
	}
	talklog.Boot(gid, "服务器关机完成")
}
