package main

import (
	"context"
	"errors"
	"io/fs"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/CSYE6225NCLOUD/webapp/cmd/api/app"
	"github.com/CSYE6225NCLOUD/webapp/cmd/api/server"
)

func main() {
	// .env is optional; real environment variables still win.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("failed to load .env: %v", err)
	}

	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the gRPC health server",
		RunE:  runServe,
	}

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.Migrate()
		},
	}

	root := &cobra.Command{
		Use:          "webapp",
		Short:        "User account API",
		SilenceUsage: true,
		RunE:         runServe,
	}
	root.AddCommand(serveCmd, migrateCmd)
	return root
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := server.WithSignal(cmd.Context())
	defer stop()

	a, err := app.New(ctx)
	if err != nil {
		log.Printf("application exited with error: %v", err)
		return err
	}
	if err := a.Run(ctx); err != nil {
		log.Printf("application exited with error: %v", err)
		return err
	}
	return nil
}
