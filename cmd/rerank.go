package cmd

import (
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lavoro-tech/reranker/internal/dataset"
	"github.com/lavoro-tech/reranker/internal/feature"
	"github.com/lavoro-tech/reranker/internal/rerank"
)

var rerankCmd = &cobra.Command{
	Use:   "rerank",
	Short: "Score the feature table with the linear model and emit the ranked output",
	Run: func(_ *cobra.Command, _ []string) {
		runRerank()
	},
}

func init() {
	rootCmd.AddCommand(rerankCmd)
}

func runRerank() {
	log := newLogger()

	config, err := getConfig()
	if err != nil {
		log.Fatal("getting a config", zap.Error(err))
	}

	outputDir := config.Data.OutputDir

	table, err := dataset.ReadCSV(filepath.Join(outputDir, fileFeaturesDEI))
	if err != nil {
		log.Fatal("reading adjusted feature table", zap.Error(err))
	}
	cvs, err := dataset.ReadCSV(filepath.Join(outputDir, fileCVNormalized))
	if err != nil {
		log.Fatal("reading normalized CVs", zap.Error(err))
	}
	jds, err := dataset.ReadCSV(filepath.Join(outputDir, fileJDNormalized))
	if err != nil {
		log.Fatal("reading normalized JDs", zap.Error(err))
	}

	cfg := scoringConfig(config)
	rerank.Score(table, cfg, log)

	scoredOut := filepath.Join(outputDir, fileFeaturesFinal)
	if err := table.WriteCSV(scoredOut); err != nil {
		log.Fatal("writing scored feature table", zap.Error(err))
	}

	output := rerank.BuildOutput(table, cvs, jds, cfg, feature.Defaults(), log)
	jsonOut := filepath.Join(outputDir, fileRerankOutput)
	if err := output.Save(jsonOut); err != nil {
		log.Fatal("writing rerank output", zap.Error(err))
	}

	log.Info("rerank complete",
		zap.String("scored_csv", scoredOut),
		zap.String("output_json", jsonOut),
		zap.String("run_id", output.Metadata.RunID),
	)
}
