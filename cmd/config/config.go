// Package config prints the effective configuration.
package config

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mkoivun/antdb-go/internal/conf"
)

// Command creates the config subcommand
func Command(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := conf.DumpYAML(settings)
			if err != nil {
				return err
			}
			fmt.Print(string(out))
			return nil
		},
	}
}
