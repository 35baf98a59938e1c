package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/greenplate-labs/greenplate/internal/adapters/driven/artifacts/hf"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Download missing artifacts from the dataset repository",
	Long: `Fetches index partitions and corpus files that exist in the remote
dataset repository but not locally. Existing local files are never
overwritten. Set HF_TOKEN for private repositories.`,
	RunE: runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	syncer, err := hf.NewSyncer(hf.Config{
		Repo:     cfg.Sync.DatasetRepo,
		Revision: cfg.Sync.Revision,
		Dir:      cfg.Paths.ArtifactsDir,
		Token:    os.Getenv("HF_TOKEN"),
	})
	if err != nil {
		return err
	}

	downloaded, err := syncer.Sync(cmd.Context())
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}
	cmd.Printf("Downloaded %d files\n", downloaded)
	return nil
}
