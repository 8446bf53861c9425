package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"reviewrag/internal/cli"
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.Execute(ctx); err != nil {
		stop()
		logutil.GetLogger(context.Background()).Fatal("reviewrag failed", zap.Error(err))
	}
}
