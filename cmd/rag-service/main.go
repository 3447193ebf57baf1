// cmd/rag-service/main.go
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "rag-service",
	Short: "Veterinary RAG answer service",
	Long: `rag-service answers questions against a veterinary RAG corpus.

It retrieves context passages, synthesizes an answer through the Gemini
provider matrix, falls back to an extractive answer when every provider
fails, and returns sanitized HTML with deduplicated sources.

Commands:
  serve   - run the HTTP ask endpoint with health and metrics
  worker  - run the Zeebe job workers
  ask     - answer a single question and print the JSON result`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a config file (defaults to ./configs/config.yaml)")
	rootCmd.AddCommand(serveCmd, workerCmd, askCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
