// cmd/aozora/main.go
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	openai "github.com/sashabaranov/go-openai"
)

func main() {
	fmt.Println("Aozora news bot v" + VERSION + " starting up...")

	// .env is optional; real deployments use actual environment variables
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: could not load .env: %v", err)
	}

	cfg := LoadConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	if err := InitLogger(cfg.LogPath, cfg.LogLevel); err != nil {
		log.Fatalf("Failed to initialize logging: %v", err)
	}

	sources, err := LoadSources(cfg.SourcesPath)
	if err != nil {
		Logger().Error("Failed to load sources: %v", err)
		os.Exit(1)
	}
	if len(ActiveSources(sources)) == 0 {
		Logger().Warning("No active sources configured in %s", cfg.SourcesPath)
	}

	// Authenticate once; every run reuses this session
	bsky := NewBlueskyClient(cfg.BlueskyHost, cfg.BlueskyHandle, cfg.BlueskyPassword)
	loginCtx, cancel := context.WithTimeout(context.Background(), DefaultTimeout)
	err = bsky.CreateSession(loginCtx)
	cancel()
	if err != nil {
		Logger().Error("Bluesky login failed: %v", err)
		os.Exit(1)
	}
	Logger().Info("Logged in to Bluesky as %s", cfg.BlueskyHandle)

	fetcher := NewFetcher(sources, cfg.UserAgentString)
	composer := NewComposer(openai.NewClient(cfg.OpenAIAPIKey), cfg.OpenAIModel)
	images := NewImageResolver(cfg.SerpAPIKey, cfg.UserAgentString)
	publisher := NewPublisher(bsky)
	ledger := NewLedger(cfg.LedgerPath)

	stateStore, err := NewStateStore(cfg.StatePath)
	if err != nil {
		Logger().Error("Failed to load state: %v", err)
		os.Exit(1)
	}

	pipeline := NewPipeline(fetcher, composer, images, publisher, ledger)
	scheduler := NewScheduler(pipeline)
	dashboard := NewDashboard(pipeline, scheduler, ledger, stateStore)

	pipeline.OnRun(func(result RunResult, err error) {
		stateStore.RecordRun(result, err)
		dashboard.BroadcastRun(result, err)
	})

	watcher, err := StartSourcesWatcher(cfg.SourcesPath, fetcher)
	if err != nil {
		Logger().Warning("Sources auto-reload not available: %v", err)
	} else {
		defer watcher.Close()
	}

	dashboard.Start(cfg.DashboardPort)

	digest := NewDigestScheduler(ledger, stateStore, dashboard.BroadcastEvent)
	if err := digest.Start(cfg.DigestCronSchedule); err != nil {
		Logger().Warning("Digest not scheduled: %v", err)
	} else {
		defer digest.Stop()
	}

	if cfg.ScheduleOnStartup {
		if err := scheduler.Start(cfg.IntervalMinutes); err != nil {
			Logger().Error("Failed to start scheduler: %v", err)
		}
	}

	Logger().Info("Bot is now running. Press CTRL-C to exit.")

	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-sc

	Logger().Info("Shutting down...")
	scheduler.Stop()

	// Give the logger a beat to flush the shutdown message
	time.Sleep(100 * time.Millisecond)
	Logger().Close()
}
