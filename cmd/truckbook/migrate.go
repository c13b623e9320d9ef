package main

import (
	"database/sql"

	"github.com/Ryan-Har/truckbook/database"
	"github.com/Ryan-Har/truckbook/internal/config"
	"github.com/samber/oops"
	"github.com/spf13/cobra"
)

// NewMigrateCmd creates the migrate subcommand.
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:       "migrate [up|down|version]",
		Short:     "Manage the account database schema",
		Long:      `Apply (up, the default) or roll back (down) the account schema, or print its version.`,
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"up", "down", "version"},
		RunE:      runMigrate,
	}
	config.RegisterFlags(cmd.Flags())
	return cmd
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	action := "up"
	if len(args) == 1 {
		action = args[0]
	}

	m, closeDB, err := newMigrator(cfg.Database)
	if err != nil {
		return err
	}
	defer closeDB()
	defer m.Close()

	switch action {
	case "down":
		cmd.Println("Rolling back migrations...")
		if err := m.Down(); err != nil {
			return oops.Code("MIGRATION_FAILED").With("operation", "down").Wrap(err)
		}
	case "up":
		cmd.Println("Running migrations...")
		if err := m.Up(); err != nil {
			return oops.Code("MIGRATION_FAILED").With("operation", "up").Wrap(err)
		}
	}

	version, dirty, err := m.Version()
	if err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "version").Wrap(err)
	}
	cmd.Printf("Schema version %d (dirty: %t)\n", version, dirty)
	return nil
}

func newMigrator(cfg config.DatabaseConfig) (*database.Migrator, func(), error) {
	if cfg.Driver == "postgres" {
		m, err := database.NewPostgresMigrator(cfg.DSN)
		if err != nil {
			return nil, nil, oops.Code("DB_CONNECT_FAILED").With("driver", cfg.Driver).Wrap(err)
		}
		return m, func() {}, nil
	}

	db, err := sql.Open("sqlite3", cfg.DSN)
	if err != nil {
		return nil, nil, oops.Code("DB_CONNECT_FAILED").With("driver", cfg.Driver).Wrap(err)
	}
	m, err := database.NewSqliteMigrator(db)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return m, func() { db.Close() }, nil
}
