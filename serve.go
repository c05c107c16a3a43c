package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ByLCY/lessoncanvas/config"
	"github.com/ByLCY/lessoncanvas/dsl"
	"github.com/ByLCY/lessoncanvas/host"
	"github.com/ByLCY/lessoncanvas/httpapi"
	"github.com/ByLCY/lessoncanvas/logger"
)

// serve 启动单线程引擎循环与 HTTP 预览接口，直到 ctx 结束。
func serve(ctx context.Context, cfg *config.Config, opts cliOptions, lg *logger.Logger) error {
	list, err := dsl.Load(opts.input)
	if err != nil {
		return err
	}
	loop := host.NewLoop(lg)
	defer loop.Close()

	eng, err := newEngine(cfg, opts, loop, lg)
	if err != nil {
		return err
	}
	loop.Post(func() {
		eng.OnPageChange(func(i int) { lg.Debug("当前页变化", "index", i) })
		if err := eng.SetPages(list); err != nil {
			lg.Error("设置页面失败", "error", err)
			return
		}
		if err := eng.Init(cfg.Screen.Width, cfg.Screen.Height); err != nil {
			lg.Error("初始化画布失败", "error", err)
		}
	})
	stopTicker := loop.Ticker(cfg.HTTP.FrameInterval, func(dt time.Duration) { eng.Tick(dt) })
	defer stopTicker()

	if opts.watch {
		w, err := host.WatchFile(opts.input, cfg.Watch.Debounce, func() {
			list, err := dsl.Load(opts.input)
			if err != nil {
				lg.Warn("重新加载输入失败", "path", opts.input, "error", err)
				return
			}
			loop.Post(func() {
				if err := eng.SetPages(list); err != nil {
					lg.Warn("应用新页面失败", "error", err)
					return
				}
				lg.Info("输入已重新加载", "path", opts.input, "pages", len(list))
			})
		}, lg)
		if err != nil {
			return err
		}
		defer w.Close()
	}

	if cfg.Log.Mode != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           httpapi.NewRouter(httpapi.NewHandler(eng, loop, lg), lg),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = srv.Shutdown(shutdownCtx)
		cancel()
	}()
	go func() {
		lg.Info("预览服务已启动", "addr", cfg.HTTP.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Error("HTTP 服务失败", "error", err, "addr", cfg.HTTP.Addr)
			loop.Close()
		}
	}()

	err = loop.Run(ctx)
	// 循环已退出，可以在当前 goroutine 上释放引擎。
	eng.Destroy()
	return err
}
