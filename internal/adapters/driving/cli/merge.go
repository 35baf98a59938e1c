package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var mergeCmd = &cobra.Command{
	Use:   "merge",
	Short: "Rebuild the serving index from all source partitions",
	Long: `Combines every per-source index partition into the single merged
partition the server loads. Fails if the same chunk appears in more than one
source partition, since that indicates corrupted ingestion state.`,
	RunE: runMerge,
}

func init() {
	rootCmd.AddCommand(mergeCmd)
}

func runMerge(cmd *cobra.Command, args []string) error {
	ingestor, err := buildIngestor(cmd.Context())
	if err != nil {
		return err
	}
	if err := ingestor.MergeIndex(cmd.Context()); err != nil {
		return fmt.Errorf("merge failed: %w", err)
	}
	cmd.Println("Merged serving index rebuilt")
	return nil
}
