package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Proton-105/storefront-account/pkg/config"
)

var (
	cfgFile string
	envName string
)

var rootCmd = &cobra.Command{
	Use:          "account",
	Short:        "Storefront account widget service",
	Long:         "account serves the storefront account widget: sign in, password reset, signup wizard and the logged-in menu.",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path (default ./configs/<env>.yaml)")
	rootCmd.PersistentFlags().StringVar(&envName, "env", "", "environment name, overrides APP_ENV")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig resolves the environment and config file from flags, APP_ENV and the .env files.
func loadConfig() (*config.Config, *viper.Viper, error) {
	return config.LoadFor(envName, cfgFile)
}
