// pyramid-mcp serves multi-resolution raster coverages over the Model
// Context Protocol. Clients name pyramid definitions; the server builds
// each coverage once and answers questions about its levels and
// coordinate system.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/ironsheep/raster-pyramid/internal/crs"
	"github.com/ironsheep/raster-pyramid/internal/geotiff"
	"github.com/ironsheep/raster-pyramid/internal/pyramid"
	"github.com/ironsheep/raster-pyramid/internal/raster"
	"github.com/ironsheep/raster-pyramid/internal/server"
	"github.com/ironsheep/raster-pyramid/internal/workspace"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		logLevel    string
		crsTable    string
		showVersion bool
		showHelp    bool
	)

	flagSet := pflag.NewFlagSet("pyramid-mcp", pflag.ContinueOnError)
	flagSet.StringVar(&logLevel, "log-level", os.Getenv("PYRAMID_MCP_LOG_LEVEL"), "log level: debug, info, warn or error (default info)")
	flagSet.StringVar(&crsTable, "crs-table", "", "YAML table of additional EPSG entries")
	flagSet.BoolVarP(&showVersion, "version", "v", false, "print version information")
	flagSet.BoolVarP(&showHelp, "help", "h", false, "print this help message")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			printHelp(flagSet)
			return nil
		}
		return err
	}
	if showHelp {
		printHelp(flagSet)
		return nil
	}
	if showVersion {
		fmt.Printf("pyramid-mcp %s\n", Version)
		fmt.Printf("  Build time: %s\n", BuildTime)
		fmt.Printf("  Git commit: %s\n", GitCommit)
		return nil
	}

	level, err := parseLevel(logLevel)
	if err != nil {
		return err
	}
	// stdout is for MCP protocol
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	logger.Debug("starting", "version", Version, "built", BuildTime, "commit", GitCommit)

	backends := raster.NewRegistry()
	geotiff.Register(backends)

	registry, err := crs.NewRegistry()
	if err != nil {
		return err
	}
	if crsTable != "" {
		data, err := os.ReadFile(crsTable)
		if err != nil {
			return fmt.Errorf("reading CRS table: %w", err)
		}
		if err := registry.LoadYAML(data); err != nil {
			return fmt.Errorf("loading CRS table %s: %w", crsTable, err)
		}
	}

	provider := pyramid.NewProvider(backends, registry, logger)
	coverages := workspace.NewManager(provider, logger)
	defer coverages.Clear()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Definitions named on the command line are published before serving.
	for _, path := range flagSet.Args() {
		if _, err := coverages.Load(ctx, path); err != nil {
			return err
		}
	}

	srv := server.New(coverages, server.Options{Logger: logger, Version: Version})
	if err := srv.Run(ctx, os.Stdin, os.Stdout); err != nil && ctx.Err() == nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

func parseLevel(s string) (slog.Level, error) {
	if s == "" {
		return slog.LevelInfo, nil
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return 0, fmt.Errorf("invalid log level %q", s)
	}
	return level, nil
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `pyramid-mcp - MCP server for multi-resolution raster coverages

Usage:
  pyramid-mcp [flags] [definition...]

Definitions named as arguments are loaded at startup; a definition that
fails to load stops the server.

Environment variables:
  PYRAMID_MCP_LOG_LEVEL=debug    Default for --log-level

This server communicates via MCP protocol over stdin/stdout.
Configure it in your MCP client.

Flags:
`)
	flagSet.SetOutput(os.Stderr)
	flagSet.PrintDefaults()
}
