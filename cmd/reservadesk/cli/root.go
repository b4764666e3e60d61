package cli

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/reservadesk/reservadesk/internal/config"
)

var (
	cfgFile    string
	appVersion string // set in Execute, reported by serve and the MCP server
)

// Execute creates the root command tree and runs it.
func Execute(version, commit, date string) error {
	appVersion = version
	rootCmd := newRootCmd(version, commit, date)
	return rootCmd.Execute()
}

func newRootCmd(version, commit, date string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reservadesk",
		Short: "Reservation admin API and panel",
		Long: `reservadesk: a reservation admin service.

It serves a token-protected REST API for reservations, stores them in SQLite,
PostgreSQL, MySQL or a JSON document directory, notifies guests by mail when a
reservation is confirmed or cancelled, and ships a terminal admin panel and an
MCP server for AI agents.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./reservadesk.yaml)")
	cmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "data directory for the default store and panel token (default: ~/.reservadesk)")

	cobra.OnInitialize(initConfig)

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newVersionCmd(version, commit, date))
	cmd.AddCommand(newUserCmd())
	cmd.AddCommand(newPanelCmd())
	cmd.AddCommand(newOpenAPICmd())
	cmd.AddCommand(newMCPCmd())
	cmd.AddCommand(newConfigCmd())

	return cmd
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName(config.FileName)
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.reservadesk")
	}

	config.Configure(viper.GetViper())
	viper.ReadInConfig() // Ignore error - config file is optional
}
