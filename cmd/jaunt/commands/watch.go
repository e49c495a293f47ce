package commands

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"git.home.luguber.info/inful/jaunt/internal/diagnostics"
	"git.home.luguber.info/inful/jaunt/internal/metrics"
	"git.home.luguber.info/inful/jaunt/internal/watcher"
)

// WatchCmd implements the 'watch' command.
type WatchCmd struct {
	Jobs        int    `short:"j" help:"Concurrency override"`
	NoInferDeps bool   `name:"no-infer-deps" help:"Disable dependency inference (explicit deps only)"`
	MetricsAddr string `name:"metrics-addr" help:"Expose Prometheus build metrics on this address (e.g. :9090)"`
}

func (w *WatchCmd) Run(g *Global, root *CLI) error {
	p, err := loadPipeline(root.Config, w.NoInferDeps)
	if err != nil {
		fmt.Fprintln(os.Stderr, diagnostics.FormatErrorWithHint(err))
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backend, err := p.newBackend(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, diagnostics.FormatErrorWithHint(err))
		return err
	}

	var recorder metrics.Recorder = metrics.NoopRecorder{}
	if w.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		recorder = metrics.NewPrometheusRecorder(reg)

		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		srv := &http.Server{Addr: w.MetricsAddr, Handler: mux}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				g.Logger.Error("Metrics server failed", "error", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		fmt.Printf("Serving metrics on %s/metrics\n", w.MetricsAddr)
	}

	rebuild := func(ctx context.Context) error {
		// Re-run discovery each round: declarations may have changed.
		p, err := loadPipeline(root.Config, w.NoInferDeps)
		if err != nil {
			return err
		}
		svc := p.newService(backend, w.Jobs, false)
		svc.Recorder = recorder
		stale, err := svc.DetectStale()
		if err != nil {
			return err
		}
		report, err := svc.Run(ctx, stale)
		if err != nil {
			return err
		}
		if !report.OK() {
			fmt.Fprint(os.Stderr, diagnostics.FormatBuildFailures(report.Failed, "build"))
		}
		return nil
	}

	// Build once before watching so the tree starts fresh.
	if err := rebuild(ctx); err != nil {
		fmt.Fprintln(os.Stderr, diagnostics.FormatErrorWithHint(err))
	}

	wt, err := watcher.New(p.cfg.Paths.SourceRoots, time.Duration(p.cfg.Watch.Debounce), g.Logger)
	if err != nil {
		return err
	}
	fmt.Println("Watching for changes (Ctrl-C to stop)")
	if err := wt.Run(ctx, rebuild); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
