// streamtest connects to a venue feed and prints decoded events to the
// console without writing any files.
// Usage: go run ./cmd/streamtest --config configs/recorder.example.yaml
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rickgao/market-recorder/internal/auth"
	"github.com/rickgao/market-recorder/internal/config"
	"github.com/rickgao/market-recorder/internal/connection"
	"github.com/rickgao/market-recorder/internal/venue"
	"github.com/rickgao/market-recorder/internal/venue/coinbase"
)

func main() {
	configPath := flag.String("config", "configs/recorder.example.yaml", "path to config file")
	venueName := flag.String("venue", "coinbase", "venue to connect to")
	verbose := flag.Bool("verbose", false, "print raw frames")
	duration := flag.Duration("duration", 0, "stop after this long (0 = until interrupted)")
	flag.Parse()

	// Setup logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	// Load config
	cfg, err := config.LoadWithDefaults(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	var vc *config.VenueConfig
	for i := range cfg.Venues {
		if cfg.Venues[i].Name == *venueName {
			vc = &cfg.Venues[i]
		}
	}
	if vc == nil {
		logger.Error("venue not configured", "venue", *venueName)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if *duration > 0 {
		ctx, cancel = context.WithTimeout(ctx, *duration)
		defer cancel()
	}

	// Handle signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal")
		cancel()
	}()

	var creds *auth.Credentials
	if vc.Auth.Enabled() {
		creds, err = auth.LoadCredentials(vc.Auth.Key, vc.Auth.Secret, vc.Auth.Passphrase)
		if err != nil {
			logger.Error("failed to load credentials", "error", err)
			os.Exit(1)
		}
		logger.Info("using API credentials", "key", vc.Auth.Key)
	}

	dec, err := coinbase.NewDecoder(coinbase.Config{
		ProductIDs:  vc.ProductIDs,
		Channels:    vc.Channels,
		Credentials: creds,
	})
	if err != nil {
		logger.Error("failed to create decoder", "error", err)
		os.Exit(1)
	}

	client := connection.NewClient(connection.ClientConfig{
		URL:              vc.WSURL,
		HandshakeTimeout: vc.Connection.HandshakeTimeout,
		PingInterval:     vc.Connection.PingInterval,
		PingTimeout:      vc.Connection.PingTimeout,
		WriteTimeout:     vc.Connection.WriteTimeout,
		ReadLimit:        vc.Connection.ReadLimit,
		BufferSize:       vc.Connection.BufferSize,
	}, logger)

	logger.Info("connecting", "url", vc.WSURL, "channels", vc.Channels, "products", vc.ProductIDs)
	if err := client.Connect(ctx); err != nil {
		logger.Error("failed to connect", "error", err)
		os.Exit(1)
	}
	defer client.Close()

	frames, err := dec.Subscribe()
	if err != nil {
		logger.Error("failed to build subscription", "error", err)
		os.Exit(1)
	}
	for _, f := range frames {
		if err := client.Send(f); err != nil {
			logger.Error("failed to subscribe", "error", err)
			os.Exit(1)
		}
	}

	counts := make(map[venue.EventType]int)
	malformed := 0
	stats := time.NewTicker(10 * time.Second)
	defer stats.Stop()

	for {
		select {
		case <-ctx.Done():
			printStats(counts, malformed)
			return

		case <-stats.C:
			printStats(counts, malformed)

		case msg, ok := <-client.Messages():
			if !ok {
				logger.Error("connection closed", "error", client.Err())
				printStats(counts, malformed)
				os.Exit(1)
			}
			if *verbose {
				fmt.Printf("[RAW] %s\n", msg.Data)
			}

			ev, err := dec.Decode(msg)
			if err != nil {
				malformed++
				logger.Warn("malformed frame", "error", err)
				continue
			}
			counts[ev.Type]++
			printEvent(ev)
		}
	}
}

func printEvent(ev venue.Event) {
	switch ev.Type {
	case venue.EventRecord:
		if ev.HasSeq() {
			fmt.Printf("[%s] seq=%d %+v\n", ev.Table, ev.Seq, ev.Record)
		} else {
			fmt.Printf("[%s] %+v\n", ev.Table, ev.Record)
		}
	case venue.EventAck:
		fmt.Printf("[ACK] %s\n", ev.Message)
	case venue.EventHeartbeat:
		fmt.Printf("[HEARTBEAT] %s seq=%d\n", ev.SeqKey, ev.Seq)
	case venue.EventError:
		fmt.Printf("[ERROR] %s\n", ev.Message)
	}
}

func printStats(counts map[venue.EventType]int, malformed int) {
	fmt.Printf("--- records=%d acks=%d heartbeats=%d errors=%d skipped=%d malformed=%d\n",
		counts[venue.EventRecord],
		counts[venue.EventAck],
		counts[venue.EventHeartbeat],
		counts[venue.EventError],
		counts[venue.EventSkip],
		malformed,
	)
}
