package cli

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"library-lending/internal/httpapi"
	"library-lending/internal/scheduler"
)

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the overdue sweep",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg
			mgr, err := a.manager()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			var sweeper *scheduler.OverdueSweeper
			if cfg.OverdueSweep.Enabled {
				sweeper = scheduler.NewOverdueSweeper(mgr, cfg.OverdueSweep.Schedule, a.log)
				if err := sweeper.Start(ctx); err != nil {
					return err
				}
			} else {
				a.log.Info(ctx, "overdue sweep disabled")
			}

			if !strings.EqualFold(cfg.Log.Level, "debug") {
				gin.SetMode(gin.ReleaseMode)
			}
			router := httpapi.NewRouter(httpapi.RouterConfig{
				Store:   mgr,
				Logger:  a.log,
				Version: Version,
			})

			addr := fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
			timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second
			return httpapi.Serve(ctx, router, addr, timeout, a.log, func(context.Context) {
				if sweeper != nil {
					sweeper.Stop()
				}
			})
		},
	}
}
