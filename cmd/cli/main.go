package main

import (
	"fmt"
	"os"

	"github.com/agora-social/agora/backend/internal/config"
	"github.com/agora-social/agora/backend/internal/database"
	"github.com/agora-social/agora/backend/internal/logger"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var (
	output string = "text" // "text" or "json"
	cfg    *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "agora-admin",
	Short: "Agora admin CLI - database maintenance for the Agora backend",
	Long: `agora-admin runs maintenance tasks against the database configured by
the same environment variables as the server (DB_DRIVER, DATABASE_URL, ...).`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Parent() == nil {
			return nil
		}
		var err error
		if cfg, err = config.LoadTooling(); err != nil {
			return err
		}
		return logger.Initialize(cfg.Log.Level, cfg.Log.File)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = database.Close()
		_ = logger.Close()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&output, "output", output, "Output format: text or json")

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(reconcileCmd)
	rootCmd.AddCommand(seedCmd)
}

// openDB connects using the loaded config; the admin commands share the
// server's connection setup.
func openDB() (*gorm.DB, error) {
	if err := database.Initialize(cfg); err != nil {
		return nil, err
	}
	return database.DB, nil
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		if err := database.Migrate(db); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "✅ Migrations applied")
		return nil
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
