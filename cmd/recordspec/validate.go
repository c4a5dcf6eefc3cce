package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bitechdev/RecordSpec/pkg/components"
)

func newValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the configuration and component declarations without connecting.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			registry, err := components.NewRegistryFromConfig(nil, cfg.Components)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%d connection(s), default %q\n", len(cfg.DBManager.Connections), cfg.DBManager.DefaultConnection)
			for _, c := range registry.Components() {
				fmt.Fprintf(out, "%-8s %s%s -> %s.%s (%s)\n", c.Kind.Method(), cfg.Server.Prefix, c.Route, c.Schema, c.Table, c.Name)
			}
			return nil
		},
	}
}
