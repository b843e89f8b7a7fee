package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sited-io/websites/internal/config"
)

var (
	// Global flags
	configFile string
	envFile    string
	dbURL      string
	verbose    bool
	jsonOutput bool
)

var rootCmd = &cobra.Command{
	Use:   "websites",
	Short: "sited.io websites service",
	Long: `websites manages sited.io websites: their domains, pages, static page content
and customization.

Commands:
  serve    - Run the HTTP API and the pending domain sweep
  migrate  - Apply, roll back or inspect the embedded database migrations`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "config.yaml", "YAML config file (skipped when missing)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file (skipped when missing)")
	rootCmd.PersistentFlags().StringVar(&dbURL, "db", "", "Database URL, overrides database.url")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
}

func loadConfig() (*config.Config, error) {
	if dbURL != "" {
		if err := os.Setenv("WEBSITES_DATABASE__URL", dbURL); err != nil {
			return nil, err
		}
	}
	return config.Load(config.Options{EnvFile: envFile, YAMLFile: configFile})
}
