package cmd

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/convobot/internal/flows"
	"github.com/ziadkadry99/convobot/internal/index"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the bot in the terminal",
	Long: `Starts a local interactive session against the configured corpus, using
an in-memory session store. Completed flows are printed instead of
persisted. Useful for corpus tuning.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, c, err := loadConfigAndCorpus()
		if err != nil {
			return err
		}

		embedder, err := createEmbedder(cfg)
		if err != nil {
			return fmt.Errorf("creating embedder: %w", err)
		}

		ctx := cmd.Context()
		builder := &index.Builder{Embedder: embedder, Dir: filepath.Join(cfg.DataDir, "index")}
		idx, err := builder.BuildOrLoad(ctx, c)
		if err != nil {
			return fmt.Errorf("building index: %w", err)
		}

		store, err := createSessionStore(ctx, cfg)
		if err != nil {
			return fmt.Errorf("creating session store: %w", err)
		}

		sink := flows.SinkFunc(func(_ context.Context, sub flows.Submission) error {
			fmt.Printf("\n[flow %s completed: %v]\n", sub.FlowID, sub.Answers)
			return nil
		})

		eng := assembleEngine(cfg, c, embedder, idx, store, sink)
		sessionID := uuid.New().String()

		fmt.Println("convobot ready. Ctrl-C or Ctrl-D to quit.")
		for {
			prompt := promptui.Prompt{Label: "you"}
			input, err := prompt.Run()
			if err != nil {
				if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
					return nil
				}
				return err
			}
			fmt.Println("bot:", eng.HandleMessage(ctx, sessionID, input))
		}
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
}
