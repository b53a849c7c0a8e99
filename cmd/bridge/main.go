package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/nomadicseo/slack-asana-bridge/internal/biz/usecase"
	"github.com/nomadicseo/slack-asana-bridge/internal/classifier"
	"github.com/nomadicseo/slack-asana-bridge/internal/conf"
	"github.com/nomadicseo/slack-asana-bridge/internal/data"
	"github.com/nomadicseo/slack-asana-bridge/internal/infra/asana"
	"github.com/nomadicseo/slack-asana-bridge/internal/infra/slackapi"
	"github.com/nomadicseo/slack-asana-bridge/internal/server"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Load configuration
	cfg := conf.LoadFromEnv()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	// Initialize clients
	slackClient := slackapi.NewClient(cfg.Slack.BotToken)
	asanaClient := asana.NewClient(cfg.Asana.AccessToken)
	llm := classifier.New(cfg.Classifier.APIKey, cfg.Classifier.Model)

	ctx := context.Background()

	botID, err := slackClient.AuthTest(ctx)
	if err != nil {
		log.Fatalf("Slack auth failed: %v", err)
	}
	fmt.Printf("[Bridge] Authenticated as bot %s\n", botID)

	// Load mapping files
	channelMap, err := data.LoadChannelMap(cfg.Storage.ChannelMapPath)
	if err != nil {
		log.Fatalf("Failed to load channel map: %v", err)
	}
	fmt.Printf("[Bridge] Channel map: %d channels\n", len(channelMap.Projects()))

	directory, err := data.LoadDirectory(cfg.Storage.AccountsPath)
	if err != nil {
		log.Fatalf("Failed to load accounts: %v", err)
	}
	fmt.Printf("[Bridge] Identity directory: %d accounts\n", directory.Len())

	// Initialize repository layer
	commitments, err := data.NewCommitmentRepo(cfg.Storage.DBPath)
	if err != nil {
		log.Fatalf("Failed to open commitment store: %v", err)
	}
	fmt.Printf("[Bridge] Commitment DB: %s\n", cfg.Storage.DBPath)

	// Initialize usecase layer
	engine := usecase.NewLifecycleUsecase(commitments, asanaClient, slackClient, directory, channelMap, cfg.ToLifecycleConfig())
	if err := engine.Restore(ctx); err != nil {
		log.Fatalf("Failed to restore commitment state: %v", err)
	}

	// Initialize server
	gate := server.NewGate(cfg.Slack.SigningSecret)
	srv := server.NewServer(gate, llm, engine, slackClient, cfg.Slack.CancelReaction, cfg.Server.ListenAddr)
	srv.SetCredentialStatus(cfg.Slack.BotToken != "", cfg.Asana.AccessToken != "", cfg.Classifier.APIKey != "")

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		fmt.Println("\nShutting down...")
		srv.Stop()
		engine.Stop()
		commitments.Close()
		os.Exit(0)
	}()

	fmt.Println("Starting Slack-Asana Bridge...")
	if err := srv.Start(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
