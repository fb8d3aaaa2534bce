package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lavoro-tech/reranker/internal/rerank"
	"github.com/lavoro-tech/reranker/internal/xai"
)

var xaiCmd = &cobra.Command{
	Use:   "xai",
	Short: "Attach deterministic explanations to the ranked output",
	Run: func(_ *cobra.Command, _ []string) {
		runXAI()
	},
}

func init() {
	rootCmd.AddCommand(xaiCmd)
}

func runXAI() {
	log := newLogger()

	config, err := getConfig()
	if err != nil {
		log.Fatal("getting a config", zap.Error(err))
	}

	outputDir := config.Data.OutputDir
	inPath := filepath.Join(outputDir, fileRerankOutput)

	data, err := os.ReadFile(inPath)
	if err != nil {
		log.Fatal("reading rerank output", zap.Error(err))
	}

	var output rerank.Output
	if err := json.Unmarshal(data, &output); err != nil {
		log.Fatal("parsing rerank output", zap.Error(err))
	}

	xai.Enrich(&output, xai.DefaultThresholds(), qualityBands(config, xai.BatchQuality()), log)

	outPath, err := xai.SaveEnriched(&output, outputDir)
	if err != nil {
		log.Fatal("writing enriched output", zap.Error(err))
	}

	log.Info("explanations written", zap.String("path", outPath))
}
