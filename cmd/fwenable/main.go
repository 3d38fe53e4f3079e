package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Schleppy/fwenable/cmd/fwenable/cmd"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := cmd.NewRootCommand(cmd.Deps{})
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		var usage *cmd.UsageError
		if errors.As(err, &usage) {
			fmt.Fprintln(os.Stderr, root.UsageString())
			os.Exit(2)
		}
		os.Exit(1)
	}
}
