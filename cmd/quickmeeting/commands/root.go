package commands

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/pysugar/quickmeeting/internal/config"
	"github.com/pysugar/quickmeeting/internal/db"
	"github.com/pysugar/quickmeeting/internal/version"
	"github.com/urfave/cli/v3"
	"gorm.io/gorm"
)

// Execute runs the root command with the given context and arguments.
func Execute(ctx context.Context, args []string) error {
	return execute(ctx, args, os.Stdout)
}

func execute(ctx context.Context, args []string, out io.Writer) error {
	cmd := &cli.Command{
		Name:    "quickmeeting",
		Writer:  out,
		Usage:   "Google account and OAuth token manager",
		Version: version.String(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to quickmeeting.yaml",
			},
		},
		Commands: []*cli.Command{
			serveCommand(),
			accountsCommand(),
			apiKeyCommand(),
		},
		// Without a subcommand the server starts.
		Action: serveAction,
	}

	return cmd.Run(ctx, args)
}

func accountsCommand() *cli.Command {
	return &cli.Command{
		Name:  "accounts",
		Usage: "list known accounts",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			_, database, err := openDatabase(cmd)
			if err != nil {
				return err
			}
			store := db.NewAccountStore(database)
			defer store.Close()

			emails, err := store.ListEmailsAscending(ctx)
			if err != nil {
				return fmt.Errorf("list accounts: %w", err)
			}
			active, err := store.QueryByActive(ctx)
			if err != nil {
				return fmt.Errorf("query active account: %w", err)
			}
			for _, email := range emails {
				marker := " "
				if active != nil && active.Email == email {
					marker = "*"
				}
				fmt.Fprintf(cmd.Root().Writer, "%s %s\n", marker, email)
			}
			return nil
		},
	}
}

func apiKeyCommand() *cli.Command {
	return &cli.Command{
		Name:  "api-key",
		Usage: "show or rotate the key protecting /api",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			_, database, err := openDatabase(cmd)
			if err != nil {
				return err
			}
			defer closeDatabase(database)

			fmt.Fprintln(cmd.Root().Writer, db.GetAPIKey(database))
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "rotate",
				Usage: "replace the API key with a new one",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					_, database, err := openDatabase(cmd)
					if err != nil {
						return err
					}
					defer closeDatabase(database)

					key, err := db.RegenerateAPIKey(database)
					if err != nil {
						return fmt.Errorf("rotate api key: %w", err)
					}
					fmt.Fprintln(cmd.Root().Writer, key)
					return nil
				},
			},
		},
	}
}

func openDatabase(cmd *cli.Command) (*config.Config, *gorm.DB, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	database, err := db.InitDB(cfg.DBPath, cfg.Verbose)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return cfg, database, nil
}

func closeDatabase(database *gorm.DB) {
	sqlDB, err := database.DB()
	if err != nil {
		return
	}
	if err := sqlDB.Close(); err != nil {
		log.Printf("⚠️ Failed to close database: %v", err)
	}
}
