package main

import (
	"consult-chat/errors"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

// Exit codes for the client application.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "consult: %v\n", err)
	}
	os.Exit(code)
}

// run executes the command tree and maps its error to an exit code.
func run() (int, error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand(newApp(os.Stdin, os.Stdout)).ExecuteContext(ctx); err != nil {
		return exitCode(err), err
	}
	return exitOK, nil
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, errors.ErrInvalidConfig),
		errors.Is(err, errors.ErrAuthRequired),
		errors.Is(err, errors.ErrInvalidRequest):
		return exitConfig
	default:
		return exitRuntime
	}
}
