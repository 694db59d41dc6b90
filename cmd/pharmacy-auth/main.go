package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
	debugFlag  bool
	debugSQL   bool
	dbDriver   string
	dbDSN      string
)

var rootCmd = &cobra.Command{
	Use:   "pharmacy-auth",
	Short: "Authentication service for pharmacy and hospital tenants",
	Long: `pharmacy-auth registers staff accounts, signs session tokens and
answers role based access questions for retail pharmacies and hospitals.

The signing secret is read from PHARMACY_AUTH_SECRET and is required by
every command.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&debugSQL, "debug-sql", false, "Log every SQL query")
	rootCmd.PersistentFlags().StringVar(&dbDriver, "db-driver", "", "Database driver: sqlite or postgres")
	rootCmd.PersistentFlags().StringVar(&dbDSN, "db-dsn", "", "Database connection string")
}

// bootstrap loads configuration, applies flags and wires the app
func bootstrap(cmd *cobra.Command) (*App, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("debug") {
		cfg.Log.Debug = debugFlag
	}
	if flags.Changed("debug-sql") {
		cfg.Persistence.DebugSQL = debugSQL
	}
	if flags.Changed("db-driver") {
		cfg.Persistence.Driver = dbDriver
	}
	if flags.Changed("db-dsn") {
		cfg.Persistence.DSN = dbDSN
	}

	return newApp(cmd.Context(), cfg)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
