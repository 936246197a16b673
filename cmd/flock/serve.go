package main

import (
	"context"
	"errors"
	"expvar"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"flockcore/internal/api"
	"flockcore/internal/core"
	"flockcore/internal/navigation"
	"flockcore/internal/payment"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(a *app) *cobra.Command {
	var (
		addr        string
		metricsKind string
		syncOnStart bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr == "" {
				addr = a.cfg.Server.Addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx, addr, metricsKind, syncOnStart)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (defaults to server.addr)")
	cmd.Flags().StringVar(&metricsKind, "metrics", "prometheus", "metrics backend: prometheus or expvar")
	cmd.Flags().BoolVar(&syncOnStart, "sync", true, "refresh the local cache from the remote store before serving")
	return cmd
}

func (a *app) serve(ctx context.Context, addr, metricsKind string, syncOnStart bool) error {
	reg := prometheus.NewRegistry()
	var (
		recorder core.MetricsRecorder
		gatherer prometheus.Gatherer
	)
	switch metricsKind {
	case "prometheus":
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		m, err := core.NewPrometheusMetrics(reg)
		if err != nil {
			return err
		}
		recorder, gatherer = m, reg
	case "expvar":
		recorder = core.NewExpvarMetricsRecorder("flockcore_repository")
	default:
		return fmt.Errorf("unknown metrics backend %q", metricsKind)
	}

	repo, cleanup, err := a.openRepository(ctx, core.WithMetricsRecorder(recorder))
	if err != nil {
		return err
	}
	defer cleanup()

	if syncOnStart {
		if stats, err := repo.Refresh(ctx); err != nil {
			a.log.Warn("initial sync failed, serving cached data", zap.Error(err))
		} else {
			a.log.Info("initial sync", zap.Int("synced", stats.Synced), zap.Int("pruned", stats.Pruned))
		}
	}

	payments, err := payment.Select(a.cfg, a.log)
	if err != nil {
		a.log.Warn("payments disabled", zap.Error(err))
	}

	dispatcher := navigation.NewDispatcher(navigation.WithLogger(a.log))
	defer dispatcher.Close()
	presenter := navigation.NewPresenter(dispatcher, navigation.LogNotifier{Log: a.log.Named("navigation")}, nil, a.log)

	if !a.cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.NewRouter(api.Deps{
		Repo:       repo,
		Config:     a.cfg,
		Dispatcher: dispatcher,
		Payments:   payments,
		Gatherer:   gatherer,
		Logger:     a.log,
	})
	mux := http.NewServeMux()
	mux.Handle("/debug/vars", expvar.Handler())
	mux.Handle("/", router)
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.log.Info("listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		err := presenter.Run(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		for ev := range repo.Watch(gctx) {
			a.log.Debug("cache changed", zap.String("op", string(ev.Op)), zap.String("id", ev.FowlID))
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
