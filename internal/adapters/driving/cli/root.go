// Package cli implements the command-line surface: serving, ingestion,
// index merging and artifact sync.
package cli

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/greenplate-labs/greenplate/internal/config"
	"github.com/greenplate-labs/greenplate/internal/logger"
)

var (
	configPath string
	verbose    bool

	// cfg is loaded once in the root PersistentPreRun and shared by every
	// command.
	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "greenplate",
	Short: "Retrieval-augmented answers about the environmental footprint of food",
	Long: `greenplate serves grounded answers about food sustainability.
It combines dense vector search with keyword search over an ingested
document corpus, and synthesises answers with a language model.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger.SetVerbose(verbose)

		// Missing .env is fine; real deployments use the environment.
		if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
			logger.Warn("Could not load .env: %v", err)
		}

		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to the configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug output")
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}
