package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var askJSON bool

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask one question from the command line",
	Long: `Runs the full pipeline locally for a single question and prints the
answer. Useful for smoke-testing an index without starting the server.`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output the full pipeline state as JSON")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	pipeline, err := buildPipeline(ctx)
	if err != nil {
		return err
	}

	state, err := pipeline.Ask(ctx, args[0])
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}

	if askJSON {
		data, err := json.MarshalIndent(state, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal state: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	cmd.Println(state.Answer)
	cmd.Println()
	cmd.Printf("Model: %s, contexts: %d\n", state.Metadata["model_name"], len(state.Contexts))
	return nil
}
