package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jengzang/fog-backend-go/internal/api"
	"github.com/jengzang/fog-backend-go/internal/convert"
	"github.com/jengzang/fog-backend-go/internal/handler"
	"github.com/jengzang/fog-backend-go/internal/logger"
	"github.com/jengzang/fog-backend-go/internal/repository"
	"github.com/jengzang/fog-backend-go/internal/service"
	"github.com/spf13/cobra"
)

func newServeCommand(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, c)
		},
	}
	cmd.Flags().String("port", "", "listen address, for example :8080")
	cmd.Flags().Int("rate-limit", 0, "imports per client per minute")
	return cmd
}

func serve(ctx context.Context, c *cli) error {
	cfg := c.cfg
	a, err := openApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	// 初始化服务
	discovery := service.NewDiscoveryService(a.store, cfg.CoverSlack, cfg.DistanceThreshold)
	fog, err := service.NewFogService(discovery, a.hub)
	if err != nil {
		return err
	}
	defer fog.Close()
	tasks, err := service.NewTaskService(ctx, repository.NewTaskRepository(a.db), a.store, convert.Options{
		Threshold: cfg.DistanceThreshold,
		Workers:   cfg.Workers,
	})
	if err != nil {
		return err
	}
	defer tasks.Close()

	// 初始化路由
	gin.SetMode(gin.ReleaseMode)
	router := api.SetupRouter(cfg, &api.Handlers{
		Discovery:  handler.NewDiscoveryHandler(discovery),
		Statistics: handler.NewStatisticsHandler(service.NewStatsService(a.store)),
		Fog:        handler.NewFogHandler(fog),
		Task:       handler.NewTaskHandler(tasks),
	})

	server := &http.Server{
		Addr:              cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// 启动服务器
	errc := make(chan error, 1)
	go func() {
		logger.S().Infof("[Server] starting on %s", cfg.Port)
		errc <- server.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	logger.S().Infof("[Server] shutting down")
	shutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdown); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
