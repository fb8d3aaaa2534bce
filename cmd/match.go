package cmd

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/lavoro-tech/reranker/internal/match"
)

var matchCmd = &cobra.Command{
	Use:   "match <jd_id> <user_id>",
	Short: "Score one CV against one JD and print the result as JSON",
	Args:  cobra.ExactArgs(2),
	Run: func(_ *cobra.Command, args []string) {
		runMatch(args[0], args[1])
	},
}

func init() {
	rootCmd.AddCommand(matchCmd)

	matchCmd.Flags().String("cv-embeddings", "", "CV embeddings CSV")
	matchCmd.Flags().String("jd-embeddings", "", "JD embeddings CSV")

	viper.BindPFlag("data.cv-embeddings", matchCmd.Flags().Lookup("cv-embeddings"))
	viper.BindPFlag("data.jd-embeddings", matchCmd.Flags().Lookup("jd-embeddings"))
}

func runMatch(jdID, userID string) {
	log := newLogger()

	config, err := getConfig()
	if err != nil {
		log.Fatal("getting a config", zap.Error(err))
	}

	service, err := newMatchService(config, log)
	if err != nil {
		log.Fatal("loading snapshot", zap.Error(err))
	}

	result, err := service.Match(userID, jdID)
	if err != nil {
		var notFound *match.NotFoundError
		if errors.As(err, &notFound) {
			log.Fatal("unknown id",
				zap.String("kind", notFound.Kind),
				zap.String("id", notFound.ID),
				zap.Strings("suggestions", notFound.Suggestions),
			)
		}
		log.Fatal("matching pair", zap.Error(err))
	}

	pretty, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		log.Fatal("encoding result", zap.Error(err))
	}
	fmt.Println(string(pretty))
}

func newMatchService(config *Config, log *zap.Logger) (*match.Service, error) {
	snap, err := match.LoadSnapshot(match.SnapshotPaths{
		CVs:          normalizedPath(config, fileCVNormalized),
		JDs:          normalizedPath(config, fileJDNormalized),
		CVEmbeddings: config.Data.CVEmbeddings,
		JDEmbeddings: config.Data.JDEmbeddings,
	}, log)
	if err != nil {
		return nil, err
	}

	cfg := match.Defaults()
	if config.Scoring != nil && len(config.Scoring.Weights) > 0 {
		cfg.Weights = config.Scoring.Weights
	}
	if config.Scoring != nil && config.Scoring.Version != "" {
		cfg.Version = config.Scoring.Version
	}
	cfg.DEI = deiConfig(config)
	cfg.Quality = qualityBands(config, cfg.Quality)

	return match.NewService(snap, cfg, log), nil
}
