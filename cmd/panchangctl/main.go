// Command panchangctl queries the almanac service from the shell.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/zapponejosh/panchang-api/cmd/panchangctl/commands"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := commands.NewRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "panchangctl: %v\n", err)
		os.Exit(1)
	}
}
