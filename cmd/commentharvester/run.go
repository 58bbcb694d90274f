// cmd/commentharvester/run.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/valpere/CommentHarvester/internal/api"
	"github.com/valpere/CommentHarvester/internal/browser"
	"github.com/valpere/CommentHarvester/internal/config"
	"github.com/valpere/CommentHarvester/internal/domdriver"
	"github.com/valpere/CommentHarvester/internal/intercept"
	"github.com/valpere/CommentHarvester/internal/monitoring"
	"github.com/valpere/CommentHarvester/internal/output"
	"github.com/valpere/CommentHarvester/internal/replay"
	"github.com/valpere/CommentHarvester/internal/scan"
	"github.com/valpere/CommentHarvester/internal/utils"
)

// runCommand executes one scan and exports the results.
func runCommand(configFile string) {
	cfg, logger, metrics := loadRuntime(configFile)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Metrics.Enabled {
		go func() {
			if err := metrics.Serve(ctx, cfg.Metrics.Listen, "/metrics"); err != nil {
				logger.Warnf("metrics server failed: %v", err)
			}
		}()
	}

	sink := func(p scan.Progress) {
		logger.Infof("progress: state=%s emails=%d comments=%d/%d passes=%d",
			p.State, p.EmailsFound, p.CommentsScanned, p.DeclaredTotal, p.Passes)
	}

	result := executeScan(ctx, cfg, cfg.Target.PostURL, sink, metrics, logger)

	fmt.Printf("Scan finished: %s\n", result.State)
	fmt.Printf("  emails found:     %d\n", len(result.Records))
	fmt.Printf("  comments scanned: %d of %d declared\n", result.CommentsScanned, result.DeclaredTotal)
	fmt.Printf("  coverage:         %.0f%%\n", result.Coverage*100)
	fmt.Printf("  pages:            %d intercepted, %d replayed\n", result.InterceptedPages, result.ReplayedPages)
	if result.ErrorMessage != "" {
		fmt.Printf("  note: %s\n", result.ErrorMessage)
	}

	if len(result.Records) > 0 {
		manager, err := output.NewManager(cfg.Outputs, metrics, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %s\n", utils.UserMessage(err))
			os.Exit(1)
		}
		if err := manager.WriteAll(result.Records); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %s\n", utils.UserMessage(err))
			os.Exit(1)
		}
		fmt.Printf("Results written to %d output(s)\n", len(cfg.Outputs))
	}

	if result.State != scan.StateComplete {
		os.Exit(1)
	}
}

// serveCommand starts the HTTP API and runs scans on demand.
func serveCommand(configFile string) {
	cfg, logger, metrics := loadRuntime(configFile)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	service := scan.NewService(func(runCtx context.Context, postURL string, sink scan.ProgressSink) scan.Result {
		result := executeScan(runCtx, cfg, postURL, sink, metrics, logger)
		if len(result.Records) > 0 && len(cfg.Outputs) > 0 {
			if manager, err := output.NewManager(cfg.Outputs, metrics, logger); err == nil {
				if err := manager.WriteAll(result.Records); err != nil {
					logger.Errorf("output failed: %v", err)
				}
			}
		}
		return result
	})

	if cfg.Metrics.Enabled {
		go func() {
			if err := metrics.Serve(ctx, cfg.Metrics.Listen, "/metrics"); err != nil {
				logger.Warnf("metrics server failed: %v", err)
			}
		}()
	}

	health := monitoring.NewHealth(version, service.State)
	server := api.NewServer(service, health, cfg.Target.PostURL, logger)
	if err := server.Serve(ctx, cfg.API.Listen); err != nil {
		fmt.Fprintf(os.Stderr, "Error: api server failed: %v\n", err)
		os.Exit(1)
	}
}

// loadRuntime loads the config and builds the shared logger and metrics.
func loadRuntime(configFile string) (*config.Config, utils.Logger, *monitoring.Metrics) {
	cfg, err := config.LoadFromFile(configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", utils.UserMessage(err))
		if hasFlag("-v") || hasFlag("--verbose") {
			fmt.Fprintf(os.Stderr, "Detail: %v\n", err)
		}
		os.Exit(1)
	}

	level := utils.ParseLogLevel(cfg.LogLevel)
	if hasFlag("-v") || hasFlag("--verbose") {
		level = utils.DebugLevel
	}
	logger := utils.NewLoggerWithLevel(level)
	metrics := monitoring.NewMetrics(monitoring.Config{})

	return cfg, logger, metrics
}

// executeScan wires the browser, capture, replay, and DOM layers for one
// scan and runs it to a terminal state.
func executeScan(ctx context.Context, cfg *config.Config, postURL string, sink scan.ProgressSink, metrics *monitoring.Metrics, logger utils.Logger) scan.Result {
	client, err := browser.NewChromeClient(cfg.Browser.ToBrowser())
	if err != nil {
		return scan.Result{
			State:        scan.StateError,
			ErrorMessage: utils.UserMessage(utils.WrapError(err, utils.ErrCodeBrowserFailed, "browser launch failed")),
		}
	}
	defer client.Close()

	tabCtx := client.Context()

	interceptor := intercept.New(tabCtx, cfg.Target.EndpointPatterns, logger)
	if err := interceptor.InstallPageHook(); err != nil {
		logger.Warnf("page hook install failed: %v", err)
	}
	interceptor.Start()

	if err := client.Navigate(ctx, postURL); err != nil {
		return scan.Result{
			State:        scan.StateError,
			ErrorMessage: utils.UserMessage(utils.WrapError(err, utils.ErrCodeNavigationFailed, "navigation failed")),
		}
	}

	csrfToken, err := client.SessionCSRFToken(ctx)
	if err != nil {
		logger.Warnf("no session csrf token: %v", err)
	}

	session := scan.NewSession(postURL, cfg.Scan.BaseTimeout(), cfg.Scan.ExtendPerProgress(), cfg.Scan.MaxTimeout())
	driver := domdriver.New(client, logger)
	fetcher := replay.NewPageFetcher(tabCtx, csrfToken)

	// The replay handler feeds pages back into the orchestrator; the
	// variable closes the construction cycle.
	var orchestrator *scan.Orchestrator
	controller := replay.NewController(cfg.Replay.ToReplay(), fetcher, func(url, body string) {
		orchestrator.HandleReplayPage(url, body)
	}, logger)

	orchestrator = scan.NewOrchestrator(cfg, session, driver, interceptor, controller, sink, metrics, logger)
	return orchestrator.Run(ctx)
}
