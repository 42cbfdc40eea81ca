package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/reny1cao/crypto-insights/internal/gateway/app"
)

func main() {
	configPath := flag.String("config", "", "optional TOML config file")
	grace := flag.Duration("shutdown-timeout", 5*time.Second, "time allowed for in-flight requests on shutdown")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(app.Version)
		return
	}

	a, err := app.New(*configPath)
	if err != nil {
		log.Fatalf("Failed to initialize report gateway: %v", err)
	}

	serveErr := make(chan error, 1)
	go func() { serveErr <- a.Start() }()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		log.Printf("Received %s, shutting down report gateway...", sig)
	case err := <-serveErr:
		if err != nil {
			log.Printf("Server error: %v", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), *grace)
	defer cancel()
	if err := a.Shutdown(ctx); err != nil {
		log.Fatalf("Report gateway forced to shutdown: %v", err)
	}
	log.Println("Report gateway exited")
}
