package main

import (
	"fmt"
	"os"

	"github.com/geocoder89/ratingportal/internal/config"
	"github.com/geocoder89/ratingportal/internal/db"
	"github.com/geocoder89/ratingportal/internal/observability"
	"github.com/geocoder89/ratingportal/internal/repo/postgres"
	"github.com/geocoder89/ratingportal/internal/security"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:          "migrate",
	Short:        "Manage the ratingportal database schema",
	SilenceUsage: true,
}

var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all up migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		if err := db.MigrateUp(cfg.DBURL); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
		return nil
	},
}

var downSteps int

var downCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		if downSteps < 1 {
			return fmt.Errorf("--steps must be at least 1")
		}
		cfg := config.Load()
		if err := db.MigrateDown(cfg.DBURL, downSteps); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "rolled back %d migration(s)\n", downSteps)
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the current schema version",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		v, dirty, err := db.MigrationVersion(cfg.DBURL)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "version=%d dirty=%t\n", v, dirty)
		return nil
	},
}

var seedAdminCmd = &cobra.Command{
	Use:   "seed-admin",
	Short: "Create the configured admin account if it does not exist",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		if cfg.AdminPassword == "" {
			return fmt.Errorf("ADMIN_PASSWORD is not set")
		}

		pool, err := db.NewPool(cmd.Context(), cfg.DBURL)
		if err != nil {
			return err
		}
		defer pool.Close()

		hasher, err := security.NewHasher(cfg.BcryptCost, 1)
		if err != nil {
			return err
		}

		users := postgres.NewUsersRepo(pool, observability.NewProm(prometheus.NewRegistry()))
		created, err := db.EnsureAdminUser(cmd.Context(), users, hasher, cfg)
		if err != nil {
			return err
		}
		if created {
			fmt.Fprintln(cmd.OutOrStdout(), "admin created:", cfg.AdminEmail)
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), "admin already exists:", cfg.AdminEmail)
		}
		return nil
	},
}

func init() {
	downCmd.Flags().IntVar(&downSteps, "steps", 1, "number of migrations to roll back")
	rootCmd.AddCommand(upCmd, downCmd, versionCmd, seedAdminCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
