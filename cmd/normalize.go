package cmd

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/lavoro-tech/reranker/internal/dataset"
	"github.com/lavoro-tech/reranker/internal/ontology"
)

var normalizeCmd = &cobra.Command{
	Use:   "normalize",
	Short: "Normalize the raw CV and JD datasets against the skill ontology",
	Run: func(_ *cobra.Command, _ []string) {
		normalize()
	},
}

func init() {
	rootCmd.AddCommand(normalizeCmd)

	normalizeCmd.Flags().String("cvs", "", "raw CV dataset CSV")
	normalizeCmd.Flags().String("jds", "", "raw JD dataset CSV")
	normalizeCmd.Flags().String("ontology", "", "skill ontology JSON")
	normalizeCmd.Flags().StringP("output-dir", "o", "", "directory for the normalized datasets")

	viper.BindPFlag("data.cvs", normalizeCmd.Flags().Lookup("cvs"))
	viper.BindPFlag("data.jds", normalizeCmd.Flags().Lookup("jds"))
	viper.BindPFlag("ontology", normalizeCmd.Flags().Lookup("ontology"))
	viper.BindPFlag("data.output-dir", normalizeCmd.Flags().Lookup("output-dir"))
}

func normalize() {
	log := newLogger()

	config, err := getConfig()
	if err != nil {
		log.Fatal("getting a config", zap.Error(err))
	}

	ont, err := ontology.Load(config.Ontology, log)
	if err != nil {
		log.Fatal("loading ontology", zap.Error(err))
	}

	outputDir := config.Data.OutputDir
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		log.Fatal("creating output directory", zap.Error(err))
	}

	cvs, err := dataset.ReadCSV(config.Data.CVs)
	if err != nil {
		log.Fatal("reading CV dataset", zap.Error(err))
	}
	dataset.NormalizeCV(cvs, ont, log)

	cvOut := filepath.Join(outputDir, fileCVNormalized)
	if err := cvs.WriteCSV(cvOut); err != nil {
		log.Fatal("writing normalized CVs", zap.Error(err))
	}

	jds, err := dataset.ReadCSV(config.Data.JDs)
	if err != nil {
		log.Fatal("reading JD dataset", zap.Error(err))
	}
	dataset.NormalizeJD(jds, ont, log)

	jdOut := filepath.Join(outputDir, fileJDNormalized)
	if err := jds.WriteCSV(jdOut); err != nil {
		log.Fatal("writing normalized JDs", zap.Error(err))
	}

	// Persist newly seen unmapped skills so the curation flow picks them up.
	if err := ont.Save(); err != nil {
		log.Fatal("saving ontology", zap.Error(err))
	}

	log.Info("datasets normalized",
		zap.String("cvs", cvOut),
		zap.String("jds", jdOut),
		zap.Int("unmapped_skills", len(ont.Backlog())),
	)
}
