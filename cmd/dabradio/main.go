// Command dabradio demodulates and decodes a DAB/DAB+ ensemble from a
// recorded or live IQ sample stream, following the same
// flags-then-config-then-run structure as the teacher's main.go.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/cwsl/dabradio/internal/config"
	"github.com/cwsl/dabradio/internal/dablog"
	"github.com/cwsl/dabradio/internal/iqsource"
	"github.com/cwsl/dabradio/internal/metrics"
	"github.com/cwsl/dabradio/internal/radio"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *debug {
		cfg.Logging.Level = "debug"
	}

	appLog := dablog.Default("main")
	appLog.SetLevel(dablog.ParseLevel(cfg.Logging.Level))

	m := metrics.New()
	if cfg.Metrics.Enabled {
		go func() {
			appLog.Infof("serving metrics on %s", cfg.Metrics.Listen)
			if err := http.ListenAndServe(cfg.Metrics.Listen, metrics.Handler()); err != nil {
				appLog.Errorf("metrics server stopped: %v", err)
			}
		}()
	}

	src, err := openSource(cfg)
	if err != nil {
		log.Fatalf("Failed to open sample source: %v", err)
	}

	rx := radio.New(cfg, m)

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		appLog.Infof("shutdown signal received")
		cancel()
	}()

	if err := rx.Run(ctx, src); err != nil && ctx.Err() == nil {
		log.Fatalf("Receiver stopped unexpectedly: %v", err)
	}
}

func openSource(cfg *config.Config) (*iqsource.FileReader, error) {
	f, err := os.Open(cfg.Tuner.InputPath)
	if err != nil {
		return nil, err
	}
	return iqsource.NewFileReader(f), nil
}
