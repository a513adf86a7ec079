package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"portfolio-monitor/internal/cli"
)

func main() {
	// Optional .env with MONITOR_* overrides.
	_ = godotenv.Load()

	if err := cli.NewRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
