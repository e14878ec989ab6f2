package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/yegors/agentdeck/internal/chat"
	"github.com/yegors/agentdeck/internal/config"
	"github.com/yegors/agentdeck/internal/gateway"
	"github.com/yegors/agentdeck/internal/health"
	"github.com/yegors/agentdeck/internal/pipeline"
	"github.com/yegors/agentdeck/internal/ui"
	"github.com/yegors/agentdeck/pkg/logger"
)

var (
	// Version is injected at build time
	Version = "dev"
)

// clientTimeout bounds the gateway/pipeline detail requests; probes carry
// their own configured timeout.
const clientTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", "", "Path to configuration file (optional - will search configs/ and the root directory)")
	flag.Parse()

	cfg, err := config.LoadWithFallback(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		File:   cfg.Logging.File,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting agentdeck",
		logger.String("version", Version),
		logger.String("gateway", cfg.Gateway.BaseURL),
		logger.String("pipeline", cfg.Pipeline.BaseURL),
		logger.String("automation", cfg.Automation.BaseURL),
	)

	// Gateway components
	gatewayClient := gateway.NewClient(cfg.Gateway.BaseURL, clientTimeout, log)
	directory := gateway.NewDirectory(gatewayClient, log)

	// Chat session controller
	controller := chat.NewController(
		cfg.Gateway.BaseURL,
		time.Duration(cfg.Chat.SessionStartGraceMs)*time.Millisecond,
		&chat.WebSocketDialer{},
		log,
	)

	// Health polling components
	pipelineClient := pipeline.NewClient(cfg.Pipeline.BaseURL, clientTimeout, log)
	prober := health.NewProber(time.Duration(cfg.Health.ProbeTimeoutMs)*time.Millisecond, log)
	targets := []health.Target{
		{Key: health.TargetGateway, Name: "Conversation Gateway", HealthURL: cfg.Gateway.BaseURL + "/health"},
		{Key: health.TargetPipeline, Name: "Podcast Pipeline", HealthURL: cfg.Pipeline.BaseURL + "/health"},
		{Key: health.TargetAutomation, Name: "Workflow Automation", HealthURL: cfg.Automation.BaseURL + "/health"},
	}
	healthService := health.NewService(
		targets,
		prober,
		gatewayClient,
		pipelineClient,
		time.Duration(cfg.Health.PollIntervalMs)*time.Millisecond,
		log,
	)

	shell := ui.NewShell(
		ui.NewChatView(controller, directory, cfg.Chat.DefaultAgents),
		ui.NewDashboardView(healthService),
	)

	// The bubbletea program owns the terminal and translates SIGINT into a
	// quit message, so the shell's shutdown path runs either way.
	program := tea.NewProgram(shell, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		log.Error("Program exited with error", logger.Error(err))
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	_ = healthService.Stop()
	controller.EndSession()

	log.Info("agentdeck stopped")
}
