// Package main runs the mutation registry command-line client.
package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/louisbranch/mutation-registry/internal/cmd/mutationctl"
	"github.com/louisbranch/mutation-registry/internal/platform/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := mutationctl.NewRootCommand().ExecuteContext(ctx); err != nil {
		config.Exitf("mutationctl: %v", err)
	}
}
