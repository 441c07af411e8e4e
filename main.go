package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"

	"github.com/alecthomas/kong"

	"spriteforge/animate"
	"spriteforge/compose"
	"spriteforge/extract"
	"spriteforge/mirror"
	"spriteforge/parallel"
)

const desc = `Turns chroma-keyed character renders into pixel-art sprites, sprite sheets and animations.`

type CLI struct {
	Verbose   bool   `help:"Log debug messages" short:"v"`
	LogFormat string `help:"Log output format" enum:"auto,text,json" default:"auto"`
	Workers   int    `help:"Number of parallel workers, 0 for one per CPU" default:"0"`

	Extract extract.CLICmd `cmd:"" help:"Cut sprites out of chroma-keyed images"`
	Mirror  mirror.CLICmd  `cmd:"" help:"Reflect sprites left to right"`
	Sheet   compose.CLICmd `cmd:"" help:"Compose the sprite sheet of a design"`
	Animate animate.CLICmd `cmd:"" help:"Write looping GIFs for the animated poses of a design"`
}

func main() {
	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("spriteforge"),
		kong.Description(desc),
		kong.UsageOnError(),
	)

	slog.SetDefault(slog.New(newHandler(os.Stderr, cli.LogFormat, cli.Verbose)))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	pool := parallel.Start(cli.Workers)
	kctx.BindTo(ctx, (*context.Context)(nil))
	kctx.Bind(pool.Do, pool.Wait, parallel.Limit(parallel.Workers(cli.Workers)))

	slog.Debug("running", "command", kctx.Command(), "workers", parallel.Workers(cli.Workers))
	err := kctx.Run()
	pool.Wait(true)
	if err != nil {
		slog.Error("failed", "command", kctx.Command(), "error", err)
		os.Exit(1)
	}
}
