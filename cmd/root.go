package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mkoivun/antdb-go/cmd/config"
	"github.com/mkoivun/antdb-go/cmd/importcsv"
	"github.com/mkoivun/antdb-go/cmd/initdb"
	"github.com/mkoivun/antdb-go/cmd/query"
	speciescmd "github.com/mkoivun/antdb-go/cmd/species"
	"github.com/mkoivun/antdb-go/internal/conf"
	"github.com/mkoivun/antdb-go/internal/datastore"
	"github.com/mkoivun/antdb-go/internal/logging"
)

// configFile is the explicit config file path from the --config flag
var configFile string

// RootCommand creates and returns the root command
func RootCommand(settings *conf.Settings) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "antdb",
		Short: "AntDB CLI",
		Long:  "Species observation database: CSV import, dictionary maintenance and queries.",
	}

	setupFlags(rootCmd, settings)

	subcommands := []*cobra.Command{
		initdb.Command(settings),
		importcsv.Command(settings),
		speciescmd.Command(settings),
		query.Command(settings),
		config.Command(settings),
	}
	rootCmd.AddCommand(subcommands...)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if configFile != "" {
			if err := conf.LoadFile(configFile, settings); err != nil {
				return err
			}
		}
		// command-line flags win over the config file
		if viper.IsSet("debug") {
			settings.Debug = viper.GetBool("debug")
		}
		if err := conf.ValidateSettings(settings); err != nil {
			return err
		}

		if err := datastore.InitializeLogger(""); err != nil {
			logging.Warn("datastore file logging unavailable", "error", err)
		}
		if settings.Debug {
			datastore.SetLogLevel(slog.LevelDebug)
		}
		return nil
	}

	rootCmd.PersistentPostRun = func(cmd *cobra.Command, args []string) {
		if err := datastore.CloseLogger(); err != nil {
			logging.Warn("failed to close datastore logger", "error", err)
		}
	}

	return rootCmd
}

// setupFlags defines flags that are global to the command line interface
func setupFlags(rootCmd *cobra.Command, settings *conf.Settings) {
	rootCmd.PersistentFlags().BoolVarP(&settings.Debug, "debug", "d", viper.GetBool("debug"), "Enable debug output")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to a config file")

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		cobra.CheckErr(err)
	}
}
