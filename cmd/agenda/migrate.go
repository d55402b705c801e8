package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/zulandar/agenda/internal/config"
	"github.com/zulandar/agenda/internal/db"
)

func newMigrateCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the agenda database",
		Long:  "Creates the MySQL database if needed and migrates all tables. For SQLite the file is created on first use.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "agenda.yaml", "path to agenda config file")
	return cmd
}

func runMigrate(cmd *cobra.Command, configPath string) error {
	out := cmd.OutOrStdout()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	dbc := cfg.Database

	var gormDB *gorm.DB
	switch dbc.Driver {
	case "mysql":
		adminDB, err := db.ConnectAdmin(dbc.Host, dbc.Port, dbc.User, dbc.Password)
		if err != nil {
			return fmt.Errorf("connect to MySQL at %s:%d: %w", dbc.Host, dbc.Port, err)
		}
		fmt.Fprintf(out, "Connected to MySQL at %s:%d\n", dbc.Host, dbc.Port)

		if err := db.CreateDatabase(adminDB, dbc.Name); err != nil {
			return err
		}
		fmt.Fprintf(out, "Database %s ready\n", dbc.Name)

		gormDB, err = db.Open(dbc)
		if err != nil {
			return fmt.Errorf("connect to %s: %w", dbc.Name, err)
		}
	default:
		gormDB, err = db.Open(dbc)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Opened SQLite database %s\n", dbc.Path)
	}
	if sqlDB, err := gormDB.DB(); err == nil {
		defer sqlDB.Close()
	}

	if err := db.AutoMigrate(gormDB); err != nil {
		return err
	}
	fmt.Fprintf(out, "Migrated %d tables\n", len(db.AllModels()))
	return nil
}
