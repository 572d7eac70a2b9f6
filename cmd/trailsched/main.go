package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"trailsched/internal/app"
	"trailsched/internal/config"
	"trailsched/internal/database"
)

func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "trailsched.yaml"
	}
	return filepath.Join(dir, "trailsched", "config.yaml")
}

func main() {
	configPath := flag.String("config", defaultConfigPath(), "path to YAML config")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.Init()
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.Close()

	application, err := app.New(db, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize services: %v", err)
	}
	if err := application.Start(); err != nil {
		log.Printf("WARNING: Failed to start housekeeping: %v", err)
	}
	defer application.Stop()

	// The HTTP layer mounts on application's services; until it is
	// wired in, this process runs the schedulers and waits.
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	log.Println("Shutting down")
}
