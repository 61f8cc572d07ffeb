package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"userconsole/internal/cli"
)

func main() {
	root, err := cli.NewRootCommand()
	if err != nil {
		cli.PrintError(os.Stderr, err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		cli.PrintError(root.ErrOrStderr(), err)
		stop()
		os.Exit(1)
	}
}
