package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/convobot/internal/index"
)

var precomputeForce bool

var precomputeCmd = &cobra.Command{
	Use:   "precompute",
	Short: "Build the pattern embedding index artifacts",
	Long: `Embeds every corpus pattern and writes the similarity index, the
embeddings map, and the manifest to the data directory. When the corpus
fingerprint is unchanged the existing artifacts are kept as-is; use
--force to rebuild regardless.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, c, err := loadConfigAndCorpus()
		if err != nil {
			return err
		}

		embedder, err := createEmbedder(cfg)
		if err != nil {
			return fmt.Errorf("creating embedder: %w", err)
		}

		bar := progressbar.NewOptions(c.PatternCount(),
			progressbar.OptionSetDescription("Embedding patterns"),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)

		builder := &index.Builder{
			Embedder: embedder,
			Dir:      filepath.Join(cfg.DataDir, "index"),
			Progress: func(done, total int) { _ = bar.Set(done) },
		}

		var ix *index.Index
		if precomputeForce {
			ix, err = builder.Build(cmd.Context(), c)
		} else {
			ix, err = builder.BuildOrLoad(cmd.Context(), c)
		}
		if err != nil {
			return fmt.Errorf("building index: %w", err)
		}
		_ = bar.Finish()

		status := "ready"
		if ix.Degraded() {
			status = "in-memory only (artifact write failed)"
		}
		fmt.Printf("Index %s: %d patterns, fingerprint %.12s\n", status, ix.Count(), c.Fingerprint())
		return nil
	},
}

func init() {
	precomputeCmd.Flags().BoolVar(&precomputeForce, "force", false, "rebuild even if the corpus is unchanged")
	rootCmd.AddCommand(precomputeCmd)
}
