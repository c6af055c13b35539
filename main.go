// ./main.go
package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/navlens/navlens-cli/cmd"
)

func main() {
	// Listen for interrupt signals so an in-flight audit can drain its
	// sessions instead of orphaning browser processes.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd.ExecuteContext(ctx)
}
