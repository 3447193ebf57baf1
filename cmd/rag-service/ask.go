// cmd/rag-service/ask.go
package main

import (
	"encoding/json"
	"strings"

	"github.com/spf13/cobra"

	ra "rag-answer-service/internal/workers/ai-conversation/rag-answer"
)

var askContext string

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer one question and print the JSON answer",
	Long: `Runs the full pipeline once and prints {text, sources, confidence}.

Example:
  rag-service ask "What are the signs of anthrax in cattle?" --context "dairy herd"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVar(&askContext, "context", "", "optional caller context passed to the model")
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx, "rag-answer-cli")
	if err != nil {
		return err
	}
	defer a.Close()

	answer, err := a.pipeline.Ask(ctx, ra.AskRequest{
		Prompt:  strings.Join(args, " "),
		Context: askContext,
	})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(answer)
}
