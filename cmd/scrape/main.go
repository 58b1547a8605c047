package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/timmy/loginscraper/internal/agent"
	"github.com/timmy/loginscraper/internal/config"
	"github.com/timmy/loginscraper/internal/domain"
	"github.com/timmy/loginscraper/internal/logger"
	"github.com/timmy/loginscraper/internal/repository"
	"github.com/timmy/loginscraper/internal/service"
)

func main() {
	appLogger := logger.New(&logger.Config{
		Level:       "info",
		Format:      "text",
		Output:      os.Stderr,
		ServiceName: "loginscraper-cli",
	})
	logger.SetDefaultLogger(appLogger)

	targetURL := flag.String("url", "", "Login page URL")
	username := flag.String("username", "", "Account username")
	password := flag.String("password", os.Getenv("SCRAPE_PASSWORD"), "Account password (defaults to $SCRAPE_PASSWORD)")
	outPath := flag.String("out", "", "Write the extracted HTML to this file instead of printing the job record")
	configPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	if *targetURL == "" || *username == "" || *password == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		appLogger.Info("Received shutdown signal, canceling...")
		cancel()
	}()

	// RunSync never touches the pool.
	svc := service.NewScrapeService(
		repository.NewJobRegistry(),
		agent.NewFromConfig(cfg),
		service.NewPool(1, 0),
		nil,
		appLogger,
		&service.ScrapeConfig{JobTimeout: cfg.Agent.JobTimeout},
	)

	job, err := svc.RunSync(ctx, domain.ScrapeRequest{URL: *targetURL, Username: *username, Password: *password})
	if err != nil {
		appLogger.WithError(err).Fatal("Scrape failed")
	}

	if *outPath != "" && job.Status == domain.JobStatusCompleted {
		if err := os.WriteFile(*outPath, []byte(job.HTMLContent), 0644); err != nil {
			appLogger.WithError(err).Fatal("Failed to write HTML")
		}
		appLogger.WithFields(logger.Fields{
			logger.FieldJobID: job.JobID,
			logger.FieldSize:  len(job.HTMLContent),
			"out":             *outPath,
		}).Info("HTML written")
		return
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(job); err != nil {
		appLogger.WithError(err).Fatal("Failed to encode job")
	}
	if job.Status != domain.JobStatusCompleted {
		os.Exit(1)
	}
}
