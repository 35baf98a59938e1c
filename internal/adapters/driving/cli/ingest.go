package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Ingest a source into the corpus and index",
	Long: `Processes one source document into a corpus partition and a vector
index partition. Run "merge" afterwards to rebuild the serving index.`,
}

var ingestPDFCmd = &cobra.Command{
	Use:   "pdf [file]",
	Short: "Ingest a PDF file",
	Args:  cobra.ExactArgs(1),
	RunE:  runIngestPDF,
}

var ingestWebCmd = &cobra.Command{
	Use:   "web [url]",
	Short: "Ingest a web page",
	Args:  cobra.ExactArgs(1),
	RunE:  runIngestWeb,
}

var ingestSQLCmd = &cobra.Command{
	Use:   "sql [database]",
	Short: "Ingest a SQLite database table",
	Args:  cobra.ExactArgs(1),
	RunE:  runIngestSQL,
}

func init() {
	ingestCmd.AddCommand(ingestPDFCmd, ingestWebCmd, ingestSQLCmd)
	rootCmd.AddCommand(ingestCmd)
}

func runIngestPDF(cmd *cobra.Command, args []string) error {
	ingestor, err := buildIngestor(cmd.Context())
	if err != nil {
		return err
	}
	if err := ingestor.IngestPDF(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("ingest pdf: %w", err)
	}
	cmd.Printf("Ingested %s\n", args[0])
	return nil
}

func runIngestWeb(cmd *cobra.Command, args []string) error {
	ingestor, err := buildIngestor(cmd.Context())
	if err != nil {
		return err
	}
	if err := ingestor.IngestWeb(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("ingest web: %w", err)
	}
	cmd.Printf("Ingested %s\n", args[0])
	return nil
}

func runIngestSQL(cmd *cobra.Command, args []string) error {
	ingestor, err := buildIngestor(cmd.Context())
	if err != nil {
		return err
	}
	if err := ingestor.IngestSQL(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("ingest sql: %w", err)
	}
	cmd.Printf("Ingested %s\n", args[0])
	return nil
}
