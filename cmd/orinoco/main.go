package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/awilfox/orinoco/internal/bot"
	"github.com/awilfox/orinoco/internal/config"
)

// Version information - set at build time via ldflags
var (
	version   = "dev"
	buildDate = "unknown"
	gitCommit = "unknown"
)

func main() {
	// Command line flags
	configPath := flag.String("c", "./orinoco.yaml", "Path to configuration file")
	showVersion := flag.Bool("v", false, "Show version information and exit")
	showVersionLong := flag.Bool("version", false, "Show version information and exit")
	flag.Parse()

	// Show version and exit
	if *showVersion || *showVersionLong {
		fmt.Printf("orinoco version %s\n", version)
		fmt.Printf("Built: %s\n", buildDate)
		fmt.Printf("Commit: %s\n", gitCommit)
		os.Exit(0)
	}

	// Set version info in bot package
	bot.Version = version
	bot.BuildDate = buildDate
	bot.GitCommit = gitCommit

	run(*configPath)
}

func run(configPath string) {
	// Make config path absolute
	if !filepath.IsAbs(configPath) {
		wd, _ := os.Getwd()
		configPath = filepath.Join(wd, configPath)
	}

	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Create data directory if it doesn't exist
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	// Create IRC client
	client, err := bot.NewClient(cfg)
	if err != nil {
		log.Fatalf("Failed to create IRC client: %v", err)
	}

	// Set up shutdown handler
	client.OnShutdown = func() {
		client.Quit("Shutdown requested")
	}

	// Signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Printf("Received signal %v, shutting down...", sig)
		client.Quit("Interrupted!")
	}()

	// Connect and run
	log.Printf("Connecting to %s:%d...", cfg.Server, cfg.Port)
	if err := client.Connect(); err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}

	// Loop returns once the QUIT has gone out and the connection is torn
	// down, so exiting here cannot drop the farewell line.
	log.Println("Connected, entering main loop...")
	client.Loop()

	log.Println("Disconnected, exiting")
}
