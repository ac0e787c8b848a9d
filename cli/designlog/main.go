package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	designlogcmder "github.com/papercomputeco/designlog/cmd/designlog"
	"github.com/papercomputeco/designlog/cmd/designlog/cmdutil"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	cmd := designlogcmder.NewDesignlogCmd()
	err := cmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		cmdutil.ReportError(os.Stderr, err)
		os.Exit(1)
	}
}
