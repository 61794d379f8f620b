package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"

	"labelconv/inspect"
	"labelconv/label"
	"labelconv/mangle"
	"labelconv/parallel"

	"github.com/alecthomas/kong"
)

type CLI struct {
	LogLevel slog.Level `help:"Log level (debug, info, warn, error)" default:"info" env:"LABELCONV_LOG_LEVEL"`
	Workers  int        `help:"Worker goroutines for batch commands, 0 for one per CPU" default:"0"`

	Label   label.CLICmd   `cmd:"" help:"Convert a base64 encoded PDF label into an indexed bitmap"`
	Mangle  mangle.CLICmd  `cmd:"" help:"Convert every picture of a folder into an indexed bitmap"`
	Inspect inspect.CLICmd `cmd:"" help:"Report or sort indexed bitmaps by bit depth"`
}

func main() {
	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("labelconv"),
		kong.Description("Indexed color bitmap encoder for label printing."),
		kong.UsageOnError(),
		kong.Configuration(kong.JSON, "labelconv.json", "~/.config/labelconv.json"),
	)

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cli.LogLevel})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	kctx.BindTo(ctx, (*context.Context)(nil))

	pool := parallel.Start(cli.Workers)
	err := kctx.Run(kctx.Selected().Name, pool.Do, pool.Wait)
	pool.Wait(true)
	if err != nil {
		slog.Error("failed", "command", kctx.Command(), "error", err)
		stop()
		os.Exit(1)
	}
}
