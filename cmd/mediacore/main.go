// Command mediacore is the server's orchestration spine: it wires up the
// four concurrent long-lived services (torrent supervisor, media crawler,
// processor, subtitle service) plus the supplemental filesystem watch,
// and runs them until an interrupt signal arrives. Process wiring loads
// config, builds a cancellable root context, starts one goroutine per
// service, and waits on signal.Notify for SIGINT/SIGTERM before
// cancelling the root context and closing the service handles. It does
// not wait for the service goroutines to finish before exiting.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/omnicloud/mediacore/internal/appstate"
	"github.com/omnicloud/mediacore/internal/config"
	"github.com/omnicloud/mediacore/internal/crawl"
	"github.com/omnicloud/mediacore/internal/fswatch"
	"github.com/omnicloud/mediacore/internal/historylog"
	"github.com/omnicloud/mediacore/internal/processor"
	"github.com/omnicloud/mediacore/internal/subtitle"
	"github.com/omnicloud/mediacore/internal/subtitleprovider"
	"github.com/omnicloud/mediacore/internal/torrentsupervisor"
)

// Version is set at build time via ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "./mediacore.conf", "path to configuration file")
	flag.Parse()

	log.Printf("mediacore %s starting", Version)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	log.Printf("configuration:")
	log.Printf("  Media Root: %s", cfg.MediaRoot)
	log.Printf("  Server Name: %s", cfg.ServerName)
	log.Printf("  Torrent Profile Dir: %s", cfg.TorrentProfileDir)
	log.Printf("  Max Concurrent Prepares: %d", cfg.MaxConcurrentPrepares)
	log.Printf("  FSWatch Enabled: %v", cfg.FSWatchEnabled)

	if err := os.MkdirAll(cfg.MediaRoot, 0o755); err != nil {
		log.Fatalf("create media root %s: %v", cfg.MediaRoot, err)
	}
	if err := os.MkdirAll(cfg.TorrentProfileDir, 0o755); err != nil {
		log.Fatalf("create torrent profile dir %s: %v", cfg.TorrentProfileDir, err)
	}

	history, err := historylog.Connect(cfg.HistoryDatabaseURL)
	if err != nil {
		log.Fatalf("historylog: %v", err)
	}
	defer history.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	supervisorWatcher, supervisorWorker := torrentsupervisor.New(cfg.TorrentProfileDir)
	go supervisorWorker.Run(ctx)
	log.Println("torrent supervisor started")

	crawlerWatcher, crawlerWorker := crawl.NewWorker(cfg.MediaRoot)
	go crawlerWorker.Run(ctx)
	log.Println("media crawler started")

	startupCtx, startupCancel := context.WithTimeout(ctx, 30*time.Second)
	if err := crawl.SendCrawlAll(startupCtx, crawlerWatcher); err != nil {
		log.Printf("initial CrawlAll failed: %v", err)
	}
	startupCancel()

	provider := subtitleprovider.New(cfg.SubtitleProviderBaseURL, cfg.SubtitleProviderAPIKey)
	subtitleWatcher, subtitleWorker := subtitle.NewWorker(provider, crawlerWatcher, cfg.MediaRoot)
	go subtitleWorker.Run(ctx)
	log.Println("subtitle service started")

	processingWatcher, proc := processor.New(supervisorWatcher, crawlerWatcher, cfg.MediaRoot, cfg.MaxConcurrentPrepares, history)
	go proc.Run(ctx)
	log.Println("processor started")

	if cfg.FSWatchEnabled {
		watcher, err := fswatch.New(cfg.MediaRoot, crawlerWatcher)
		if err != nil {
			log.Printf("WARNING: failed to create filesystem watcher: %v (continuing without live file watching)", err)
		} else if err := watcher.Start(); err != nil {
			log.Printf("WARNING: failed to start filesystem watcher: %v (continuing without live file watching)", err)
		} else {
			defer watcher.Stop()
		}
	}

	state := appstate.AppState{
		Supervisor: supervisorWatcher,
		Crawler:    crawlerWatcher,
		Subtitle:   subtitleWatcher,
		Processing: processingWatcher,
		MediaRoot:  cfg.MediaRoot,
	}
	_ = state // handed to the (out-of-scope) HTTP layer in a full deployment

	log.Println("mediacore is running")
	log.Println("press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Println("shutdown signal received, stopping mediacore...")
	cancel()
	supervisorWatcher.Close()
	crawlerWatcher.Close()
	subtitleWatcher.Close()

	log.Println("mediacore stopped")
}
