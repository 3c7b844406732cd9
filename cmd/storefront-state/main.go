package main

import (
	"context"
	"fmt"
	"os"

	"gitlab.com/timkado/web/storefront-state/internal/bootstrap"
	"gitlab.com/timkado/web/storefront-state/pkg/contextkeys"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ctx = context.WithValue(ctx, contextkeys.RequestIDKey, "app-main")

	app, cleanup, err := bootstrap.InitializeApp(ctx)
	if err != nil {
		// the structured logger is not available yet
		fmt.Fprintf(os.Stderr, "Failed to initialize application: %v\n", err)
		os.Exit(1)
	}

	runErr := app.Run(ctx)
	cancel()
	cleanup()
	if runErr != nil {
		fmt.Fprintf(os.Stderr, "Application run failed: %v\n", runErr)
		os.Exit(1)
	}
}
