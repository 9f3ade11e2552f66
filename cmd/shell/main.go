package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/cdnboot/cdnboot/internal/config"
	"github.com/cdnboot/cdnboot/internal/logging"
)

func main() {
	// .env is optional; envconfig picks up whatever it defines.
	_ = godotenv.Load()

	cfg := config.LoadOrDefault()

	port := flag.String("port", cfg.Server.Port, "Server port")
	manifestURL := flag.String("manifest", cfg.Manifest.URL, "Deployment manifest URL")
	shellPath := flag.String("shell", cfg.Manifest.ShellPath, "Shell page path")
	flag.Parse()

	cfg.Server.Port = *port
	cfg.Manifest.URL = *manifestURL
	cfg.Manifest.ShellPath = *shellPath

	logger, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
	})
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	srv, err := NewServer(cfg, logger)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		if err := srv.Run(cfg.Server.Host + ":" + cfg.Server.Port); err != nil {
			errChan <- err
		}
	}()

	select {
	case <-sigChan:
		log.Println("Shutting down")
	case err := <-errChan:
		log.Fatalf("Server error: %v", err)
	}
}
