package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	goerrors "github.com/go-errors/errors"
)

const usage = `usage: pythgo [-config file] [-env file] [-debug] <command> [flags]

commands:
  read     check that a feed's price is fresh
  address  derive the push oracle account of a feed
  invoke   simulate or send a consumer program instruction
  feeds    list price feeds from Hermes or on-chain
  watch    check feeds on a schedule and serve metrics
  events   follow the price logs of a consumer program
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		var stack *goerrors.Error
		if debugRequested(os.Args[1:]) && errors.As(err, &stack) {
			fmt.Fprintln(os.Stderr, stack.ErrorStack())
		}
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func debugRequested(args []string) bool {
	for _, arg := range args {
		if arg == "-debug" || arg == "--debug" {
			return true
		}
	}
	return false
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	global := flag.NewFlagSet("pythgo", flag.ContinueOnError)
	global.SetOutput(stderr)
	global.Usage = func() { fmt.Fprint(stderr, usage) }
	configPath := global.String("config", "", "YAML configuration file")
	envFile := global.String("env", "", "file of KEY=VALUE environment overrides")
	debug := global.Bool("debug", false, "debug logging and dumps")
	if err := global.Parse(args); err != nil {
		return err
	}
	if global.NArg() == 0 {
		global.Usage()
		return fmt.Errorf("no command given")
	}

	app, err := newApp(*configPath, *envFile, *debug, stdout, stderr)
	if err != nil {
		return err
	}
	command, rest := global.Arg(0), global.Args()[1:]
	switch command {
	case "read":
		return app.read(ctx, rest)
	case "address":
		return app.address(rest)
	case "invoke":
		return app.invoke(ctx, rest)
	case "feeds":
		return app.feeds(ctx, rest)
	case "watch":
		return app.watch(ctx, rest)
	case "events":
		return app.events(ctx, rest)
	default:
		global.Usage()
		return fmt.Errorf("unknown command %q", command)
	}
}
