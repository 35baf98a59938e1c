package cli

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/greenplate-labs/greenplate/internal/adapters/driving/httpapi"
	"github.com/greenplate-labs/greenplate/internal/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the question-answering HTTP server",
	Long: `Loads the merged index partition and the document corpus, builds the
keyword index, and serves POST /ask until interrupted.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Section("startup")
	pipeline, err := buildPipeline(ctx)
	if err != nil {
		return err
	}

	verifier, err := buildVerifier()
	if err != nil {
		return err
	}
	if verifier == nil {
		logger.Warn("Authentication is DISABLED; every caller is granted admin")
	}

	server := httpapi.NewServer(httpapi.Config{
		Addr:          cfg.Server.Addr,
		Verifier:      verifier,
		RequiredGroup: cfg.Auth.RequiredGroup,
	}, pipeline)

	return server.Run(ctx)
}
