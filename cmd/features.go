package cmd

import (
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/lavoro-tech/reranker/internal/dataset"
	"github.com/lavoro-tech/reranker/internal/feature"
)

var featuresCmd = &cobra.Command{
	Use:   "features",
	Short: "Compute the pairwise feature table for retrieved CV/JD pairs",
	Run: func(_ *cobra.Command, _ []string) {
		features()
	},
}

func init() {
	rootCmd.AddCommand(featuresCmd)

	featuresCmd.Flags().String("pairs", "", "retrieval pairs CSV (jd_id, user_id, cosine_similarity, rank)")

	viper.BindPFlag("data.pairs", featuresCmd.Flags().Lookup("pairs"))
}

func features() {
	log := newLogger()

	config, err := getConfig()
	if err != nil {
		log.Fatal("getting a config", zap.Error(err))
	}

	outputDir := config.Data.OutputDir

	pairs, err := dataset.ReadCSV(config.Data.Pairs)
	if err != nil {
		log.Fatal("reading retrieval pairs", zap.Error(err))
	}
	cvs, err := dataset.ReadCSV(filepath.Join(outputDir, fileCVNormalized))
	if err != nil {
		log.Fatal("reading normalized CVs", zap.Error(err))
	}
	jds, err := dataset.ReadCSV(filepath.Join(outputDir, fileJDNormalized))
	if err != nil {
		log.Fatal("reading normalized JDs", zap.Error(err))
	}

	table, err := feature.BuildTable(pairs, cvs, jds, feature.Defaults(), log)
	if err != nil {
		log.Fatal("building feature table", zap.Error(err))
	}

	out := filepath.Join(outputDir, fileFeatures)
	if err := table.WriteCSV(out); err != nil {
		log.Fatal("writing feature table", zap.Error(err))
	}

	log.Info("feature table written",
		zap.String("path", out),
		zap.Int("pairs", len(table.Rows)),
		zap.Int("columns", len(table.Columns)),
	)
}
