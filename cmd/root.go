// file: cmd/root.go
// version: 2.0.0
// guid: 6a7b8c9d-0e1f-2a3b-4c5d-6e7f8a9b0c1d

package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/DS09AT/Shelvance-sub001/internal/config"
)

var cfgFile string
var databasePath string
var databaseType string
var enableSQLite bool
var providersFile string
var secretsKeyPath string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "shelvance",
	Short: "Federated book and author metadata lookups",
	Long: `Shelvance asks several metadata providers for book and author data,
tracks the health of each provider with a circuit breaker, and merges
their answers into one record with per-field provenance.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.shelvance.yaml)")
	rootCmd.PersistentFlags().StringVar(&databasePath, "db", "shelvance.pebble", "path to database (default: shelvance.pebble for PebbleDB)")
	rootCmd.PersistentFlags().StringVar(&databaseType, "db-type", "pebble", "database type: pebble (default) or sqlite")
	rootCmd.PersistentFlags().BoolVar(&enableSQLite, "enable-sqlite3-i-know-the-risks", false, "enable SQLite3 database (WARNING: cross-compilation issues, PebbleDB recommended)")
	rootCmd.PersistentFlags().StringVar(&providersFile, "providers", "", "YAML file of provider definitions to import and watch")
	rootCmd.PersistentFlags().StringVar(&secretsKeyPath, "secrets-key", "", "key file sealing provider settings at rest (created if missing)")

	viper.BindPFlag("database_path", rootCmd.PersistentFlags().Lookup("db"))
	viper.BindPFlag("database_type", rootCmd.PersistentFlags().Lookup("db-type"))
	viper.BindPFlag("enable_sqlite3_i_know_the_risks", rootCmd.PersistentFlags().Lookup("enable-sqlite3-i-know-the-risks"))
	viper.BindPFlag("providers_file", rootCmd.PersistentFlags().Lookup("providers"))
	viper.BindPFlag("secrets_key_path", rootCmd.PersistentFlags().Lookup("secrets-key"))

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(providersCmd)
	rootCmd.AddCommand(lookupCmd)
	rootCmd.AddCommand(refreshCmd)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".shelvance")
	}

	viper.SetEnvPrefix("shelvance")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}

	// Ensure database directory exists
	if databasePath != "" {
		dbDir := filepath.Dir(databasePath)
		if dbDir != "." {
			if err := os.MkdirAll(dbDir, 0755); err != nil {
				fmt.Fprintf(os.Stderr, "Error creating database directory: %v\n", err)
			}
		}
	}

	config.InitConfig()
}
