// Command migrate applies or reverts the embedded schema migrations.
// Without --dsn it connects using the [database] section of the service
// configuration.
package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/BerndBr/taskana/internal/config"
	"github.com/BerndBr/taskana/migrations"
)

func main() {
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var dsn string

	root := &cobra.Command{
		Use:          "migrate",
		Short:        "Manage the classification schema",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&dsn, "dsn", "", "postgres:// connection URL (default: from config)")

	// run opens a migrator for the resolved DSN and hands it to fn.
	run := func(fn func(*cobra.Command, *migrate.Migrate) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, _ []string) error {
			url, err := resolveDSN(dsn)
			if err != nil {
				return err
			}
			m, err := migrations.New(url)
			if err != nil {
				return err
			}
			defer m.Close()
			return fn(cmd, m)
		}
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			RunE: run(func(cmd *cobra.Command, m *migrate.Migrate) error {
				return report(cmd, ignoreNoChange(m.Up()), "schema up to date")
			}),
		},
		&cobra.Command{
			Use:   "down",
			Short: "Revert every migration",
			RunE: run(func(cmd *cobra.Command, m *migrate.Migrate) error {
				return report(cmd, ignoreNoChange(m.Down()), "schema reverted")
			}),
		},
		&cobra.Command{
			Use:   "steps N",
			Short: "Apply N migrations, or revert when N is negative",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				n, err := strconv.Atoi(args[0])
				if err != nil || n == 0 {
					return fmt.Errorf("steps must be a non-zero integer: %q", args[0])
				}
				return run(func(cmd *cobra.Command, m *migrate.Migrate) error {
					return report(cmd, ignoreNoChange(m.Steps(n)), fmt.Sprintf("applied %d steps", n))
				})(cmd, args)
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the current schema version",
			RunE: run(func(cmd *cobra.Command, m *migrate.Migrate) error {
				v, dirty, err := m.Version()
				if errors.Is(err, migrate.ErrNilVersion) {
					return report(cmd, nil, "no migrations applied")
				}
				if err != nil {
					return err
				}
				return report(cmd, nil, fmt.Sprintf("version %d (dirty: %t)", v, dirty))
			}),
		},
		&cobra.Command{
			Use:   "force VERSION",
			Short: "Set the schema version without running migrations",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				v, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("invalid version %q", args[0])
				}
				return run(func(cmd *cobra.Command, m *migrate.Migrate) error {
					return report(cmd, m.Force(v), fmt.Sprintf("forced to version %d", v))
				})(cmd, args)
			},
		},
	)
	return root
}

func resolveDSN(flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	cfg, err := config.Load()
	if err != nil {
		return "", fmt.Errorf("load config: %w", err)
	}
	return cfg.Database.URL(), nil
}

func ignoreNoChange(err error) error {
	if errors.Is(err, migrate.ErrNoChange) {
		return nil
	}
	return err
}

func report(cmd *cobra.Command, err error, msg string) error {
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), msg)
	return err
}
