// Command flightroute 估算航线经济指标、重排经停并合并低收益航线.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/wyfcoding/flightroute/app"
)

var (
	configPath   = flag.String("config", "", "path to a TOML config file (defaults and APP_* env vars when empty)")
	airportsPath = flag.String("airports", "", "airport table file: code, name, population, longitude, latitude")
)

type command struct {
	name  string
	usage string
	sinks bool
	run   func(ctx context.Context, a *app.App, args []string) error
}

var commands = []command{
	{name: "estimate", usage: "estimate -path LAX,PHX,JFK [-passengers N] [-flight N]", run: runEstimate},
	{name: "reorder", usage: "reorder (-path LAX,JFK,PHX | -in FILE [-out FILE]) [-strategy S]", sinks: true, run: runReorder},
	{name: "optimize", usage: "optimize -in FILE [-out FILE] [-reorder]", sinks: true, run: runOptimize},
	{name: "run", usage: "run [-in-dir DIR] [-out-dir DIR] [FILE...]", sinks: true, run: runBatch},
	{name: "watch", usage: "watch -in-dir DIR [-out-dir DIR]", sinks: true, run: runWatch},
	{name: "airports", usage: "airports [-out FILE]", run: runAirports},
}

func usage() {
	fmt.Fprintf(os.Stderr, "usage: flightroute [flags] <command> [command flags]\nwhere [flags] may be:\n")
	flag.PrintDefaults()
	fmt.Fprintf(os.Stderr, "commands:\n")
	for _, c := range commands {
		fmt.Fprintf(os.Stderr, "  %s\n", c.usage)
	}
}

func main() {
	flag.Usage = usage
	flag.Parse()
	if flag.NArg() == 0 {
		usage()
		os.Exit(2)
	}

	var cmd *command
	for i := range commands {
		if commands[i].name == flag.Arg(0) {
			cmd = &commands[i]
		}
	}
	if cmd == nil {
		fmt.Fprintf(os.Stderr, "flightroute: unknown command %q\n", flag.Arg(0))
		usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := execute(ctx, cmd, flag.Args()[1:])
	stop()
	if err != nil {
		slog.Error("command failed", "command", cmd.name, "error", err)
		os.Exit(1)
	}
}

func execute(ctx context.Context, cmd *command, args []string) error {
	a, err := app.New(ctx, app.Options{
		ConfigPath:   *configPath,
		AirportsPath: *airportsPath,
		Module:       cmd.name,
		Sinks:        cmd.sinks,
	})
	if err != nil {
		return err
	}
	runErr := cmd.run(ctx, a, args)
	if err := a.Close(context.Background()); err != nil && runErr == nil {
		return err
	}
	return runErr
}
