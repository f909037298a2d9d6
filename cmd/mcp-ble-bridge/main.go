// Command mcp-ble-bridge serves the example tools over the packet link.
//
// By default packets are relayed through Redis streams (see
// carrier/redislink) to a gateway that owns the radio. With -stdio the same
// server is exposed as newline-delimited JSON on stdin/stdout instead.
// Logs are JSON on stderr.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ggoodman/mcp-ble-go/ble"
	"github.com/ggoodman/mcp-ble-go/carrier/redislink"
	"github.com/ggoodman/mcp-ble-go/examples/echo"
	"github.com/ggoodman/mcp-ble-go/internal/logctx"
	"github.com/ggoodman/mcp-ble-go/mcpservice"
	"github.com/ggoodman/mcp-ble-go/stdio"
	"golang.org/x/sync/errgroup"
)

func main() {
	useStdio := flag.Bool("stdio", false, "serve newline-delimited JSON on stdin/stdout instead of the packet link")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn or error")
	flag.Parse()

	var level slog.Level
	if err := level.UnmarshalText([]byte(*logLevel)); err != nil {
		fmt.Fprintf(os.Stderr, "invalid -log-level: %v\n", err)
		os.Exit(2)
	}
	log := slog.New(logctx.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, log, *useStdio); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("bridge.exit", slog.String("err", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, log *slog.Logger, useStdio bool) error {
	cfg, err := ble.ConfigFromEnv()
	if err != nil {
		return err
	}
	srv := echo.New(append(cfg.ServerOptions(), mcpservice.WithLogger(log))...)

	if useStdio {
		return stdio.NewHandler(srv, stdio.WithLogger(log)).Serve(ctx)
	}

	carrier, err := redislink.NewFromEnv(redislink.WithLogger(log))
	if err != nil {
		return err
	}
	defer carrier.Close()

	h := ble.NewHandler(srv, carrier, append(cfg.Options(), ble.WithLogger(log))...)
	defer h.Close()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return h.Serve(gctx) })
	g.Go(func() error { return carrier.Run(gctx, h) })
	return g.Wait()
}
