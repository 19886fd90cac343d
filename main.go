package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"highlight_reel/common"
	"highlight_reel/pipelines/highlight"
)

var CLI struct {
	Config    string `short:"c" help:"Configuration file path" default:"config.yaml"`
	Verbose   bool   `short:"v" help:"Enable verbose logging"`
	LogFormat string `help:"Log format (text or json)" default:"text" enum:"text,json"`

	Generate struct {
		Keyword    string  `arg:"" help:"Keyword to highlight"`
		Pages      int     `short:"n" help:"Number of pages to generate" default:"10"`
		Duration   float64 `short:"d" help:"Seconds each snapshot stays on screen" default:"0.2"`
		SingleFont bool    `help:"Use one font family for every page"`
		Seed       *int64  `help:"Seed for reproducible page structure"`
	} `cmd:"" help:"Generate a highlight reel for a keyword"`

	Serve struct {
		Addr    string `help:"Listen address (overrides config)"`
		Workers int    `help:"Number of worker goroutines (overrides config)"`
	} `cmd:"" help:"Run the HTTP server"`
}

func main() {
	kctx := kong.Parse(&CLI,
		kong.Name("highlight-reel"),
		kong.Description("Generate keyword highlight reels from synthesized pages"))

	level := slog.LevelInfo
	if CLI.Verbose {
		level = slog.LevelDebug
	}
	logger := common.NewLogger(os.Stderr, level, CLI.LogFormat)
	slog.SetDefault(logger)

	if err := common.LoadEnv(".env"); err != nil {
		slog.Debug("No .env file loaded", "reason", err)
	}

	cfg, err := common.LoadConfig(CLI.Config)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch kctx.Command() {
	case "generate <keyword>":
		err = runGenerate(ctx, cfg, logger)
	case "serve":
		if CLI.Serve.Addr != "" {
			cfg.Server.Addr = CLI.Serve.Addr
		}
		if CLI.Serve.Workers > 0 {
			cfg.Server.Workers = CLI.Serve.Workers
		}
		err = StartServer(ctx, cfg, logger)
	default:
		err = fmt.Errorf("unknown command: %s", kctx.Command())
	}

	if err != nil {
		slog.Error("Command failed", "command", kctx.Command(), "error", err)
		stop()
		os.Exit(1)
	}
}

func runGenerate(ctx context.Context, cfg common.Config, logger *slog.Logger) error {
	if CLI.Generate.Seed != nil {
		cfg.Synth.Seed = CLI.Generate.Seed
	}

	pipeline := highlight.NewPipeline(cfg, logger, common.NewRecorder(nil))
	manifest, err := pipeline.Run(ctx, common.Request{
		Keyword:         CLI.Generate.Keyword,
		Count:           CLI.Generate.Pages,
		SegmentDuration: CLI.Generate.Duration,
		SingleFont:      CLI.Generate.SingleFont,
	})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(manifest)
}
