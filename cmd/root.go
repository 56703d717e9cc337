package cmd

import (
	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "convobot",
	Short: "Semantic intent chatbot with multi-turn lead capture",
	Long: `Convobot recognizes user intents by semantic similarity search over a
pattern corpus and drives multi-turn structured data collection
(lead capture, forms) across chat sessions. It serves a REST and
WebSocket chat API backed by precomputed pattern embeddings.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", ".convobot.yml", "config file path")
}
