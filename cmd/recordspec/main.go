// Command recordspec serves the record access API over the configured
// database connections.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bitechdev/RecordSpec/pkg/config"
)

func main() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// NewRootCommand builds the recordspec command tree
func NewRootCommand() *cobra.Command {
	rc := &cobra.Command{
		Use:   "recordspec",
		Short: "RecordSpec serves restricted record access over relational pipeline schemas.",
		Long: `RecordSpec serves restricted record access over relational pipeline schemas.

It lets clients browse, filter, insert, update and delete rows of MySQL,
PostgreSQL and SQLite tables through a JSON API, preview the rows a delete
would reach across foreign keys and mount configured per-table endpoints.`,
		SilenceUsage: true,
	}
	rc.PersistentFlags().StringP("config", "c", "", "Configuration file to read from.")
	rc.PersistentFlags().String("env-file", ".env", "Environment file loaded before the configuration.")

	rc.AddCommand(newServeCommand())
	rc.AddCommand(newValidateCommand())
	return rc
}

// loadConfig reads the configuration named by the persistent flags
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	configFile, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	envFile, err := cmd.Flags().GetString("env-file")
	if err != nil {
		return nil, err
	}
	if err := loadEnvFile(envFile); err != nil {
		return nil, err
	}

	mgr := config.NewManager(config.WithConfigFile(configFile))
	if err := mgr.Load(); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	cfg, err := mgr.GetConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to get configuration: %w", err)
	}
	return cfg, nil
}
