// Command catalog is the operator CLI for the recipe catalog: it seeds and
// imports ingredients, prints costs and runs invoices through reconciliation.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"subrecetas/internal/catalog"
	"subrecetas/internal/config"
	"subrecetas/internal/db"
	"subrecetas/internal/db/mock"
	"subrecetas/internal/invoice"
	applog "subrecetas/internal/log"
)

// app carries the collaborators shared by every subcommand.
type app struct {
	out        io.Writer
	openRepos  func(ctx context.Context) (catalog.Repositories, error)
	openParser func(ctx context.Context) (invoice.Parser, error)
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	applog.ReplaceLogger(applog.NewTextLogger(os.Stderr))
	defer applog.Sync()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if err := applog.SetLevel(cfg.Logging.Level); err != nil {
		fmt.Fprintf(os.Stderr, "log level: %v\n", err)
		os.Exit(1)
	}

	a := &app{
		out: os.Stdout,
		openRepos: func(ctx context.Context) (catalog.Repositories, error) {
			return openRepositories(ctx, cfg.Database)
		},
		openParser: func(ctx context.Context) (invoice.Parser, error) {
			return invoice.New(ctx, cfg.Parser)
		},
	}

	if err := newRootCmd(a).ExecuteContext(ctx); err != nil {
		applog.Sync()
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "catalog",
		Short:         "Recipe catalog costing and invoice reconciliation",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.SetOut(a.out)
	root.SetErr(a.out)

	root.AddCommand(
		newSeedCmd(a),
		newImportCmd(a),
		newListCmd(a),
		newCostCmd(a),
		newDanglingCmd(a),
		newParseCmd(a),
	)
	return root
}

func openRepositories(ctx context.Context, cfg config.DatabaseConfig) (catalog.Repositories, error) {
	if cfg.UseMock {
		database, err := mock.New(ctx)
		if err != nil {
			return catalog.Repositories{}, fmt.Errorf("open mock database: %w", err)
		}
		return db.NewRepositories(database), nil
	}
	database, err := db.Configure(cfg)
	if err != nil {
		return catalog.Repositories{}, fmt.Errorf("open database: %w", err)
	}
	return db.NewRepositories(database), nil
}
