package cmd

import (
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lavoro-tech/reranker/internal/dataset"
	"github.com/lavoro-tech/reranker/internal/dei"
)

var deiCmd = &cobra.Command{
	Use:   "dei",
	Short: "Apply the DEI boost and rank-shift analysis to the feature table",
	Run: func(_ *cobra.Command, _ []string) {
		applyDEI()
	},
}

func init() {
	rootCmd.AddCommand(deiCmd)
}

func applyDEI() {
	log := newLogger()

	config, err := getConfig()
	if err != nil {
		log.Fatal("getting a config", zap.Error(err))
	}

	outputDir := config.Data.OutputDir

	table, err := dataset.ReadCSV(filepath.Join(outputDir, fileFeatures))
	if err != nil {
		log.Fatal("reading feature table", zap.Error(err))
	}
	cvs, err := dataset.ReadCSV(filepath.Join(outputDir, fileCVNormalized))
	if err != nil {
		log.Fatal("reading normalized CVs", zap.Error(err))
	}

	dei.Apply(table, cvs, deiConfig(config), log)

	out := filepath.Join(outputDir, fileFeaturesDEI)
	if err := table.WriteCSV(out); err != nil {
		log.Fatal("writing adjusted feature table", zap.Error(err))
	}

	log.Info("dei adjustment written", zap.String("path", out), zap.Int("pairs", len(table.Rows)))
}
