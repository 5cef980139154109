// Command gantrain trains one of the adversarial variants.
//
// Usage:
//
//	gantrain -variant acgan|mocogan|pix2pix|stackgan [-config run.yaml] [flags]
//	gantrain version
//
// Without -dataroot the run uses generated data, which is enough for a
// smoke test:
//
//	gantrain -variant mocogan -epochs 1 -outf /tmp/run
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

	"github.com/born-ml/gantrain/internal/config"
	"github.com/born-ml/gantrain/internal/experiment"
)

const version = "v0.1.0"

// Exit codes.
const (
	exitOK     = 0
	exitFailed = 1
	exitUsage  = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) > 0 && args[0] == "version" {
		fmt.Fprintf(stdout, "gantrain %s\n", version)
		return exitOK
	}

	cfg, err := config.Load("gantrain", args)
	if errors.Is(err, flag.ErrHelp) {
		return exitOK
	}
	if err != nil {
		fmt.Fprintf(stderr, "gantrain: %v\n", err)
		return exitUsage
	}

	e, err := experiment.New(cfg, stdout)
	if err != nil {
		fmt.Fprintf(stderr, "gantrain: %v\n", err)
		return exitUsage
	}
	defer e.Close()

	state, err := e.Run(ctx)
	if errors.Is(err, context.Canceled) {
		fmt.Fprintf(stderr, "gantrain: interrupted at epoch %d step %d\n", state.Epoch, state.Step)
		return exitFailed
	}
	if err != nil {
		fmt.Fprintf(stderr, "gantrain: %v\n", err)
		return exitFailed
	}
	fmt.Fprintf(stdout, "done: %d steps, %d skipped (mismatch), %d skipped (non-finite)\n",
		state.GlobalStep, state.SkippedMismatch, state.SkippedNonFinite)
	return exitOK
}
