package cmd

import (
	"errors"
	"log"
	"path/filepath"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/lavoro-tech/reranker/internal/dei"
	"github.com/lavoro-tech/reranker/internal/logger"
	"github.com/lavoro-tech/reranker/internal/rerank"
	"github.com/lavoro-tech/reranker/internal/xai"
)

const (
	app = "reranker"
)

// Stage outputs under data.output-dir. The names are part of the pipeline
// contract with downstream consumers.
const (
	fileCVNormalized  = "cv_dataset_normalized.csv"
	fileJDNormalized  = "jd_dataset_normalized.csv"
	fileFeatures      = "features.csv"
	fileFeaturesDEI   = "features_dei.csv"
	fileFeaturesFinal = "reranker_features.csv"
	fileRerankOutput  = "rerank_output.json"
)

type Config struct {
	Ontology string         `mapstructure:"ontology"`
	Data     *DataConfig    `mapstructure:"data"`
	Scoring  *ScoringConfig `mapstructure:"scoring"`
	DEI      *DEIConfig     `mapstructure:"dei"`
	XAI      *XAIConfig     `mapstructure:"xai"`
	Serve    *ServeConfig   `mapstructure:"serve"`
	AI       *AIConfig      `mapstructure:"ai"`
}

type DataConfig struct {
	CVs          string `mapstructure:"cvs"`
	JDs          string `mapstructure:"jds"`
	Pairs        string `mapstructure:"pairs"`
	CVEmbeddings string `mapstructure:"cv-embeddings"`
	JDEmbeddings string `mapstructure:"jd-embeddings"`
	OutputDir    string `mapstructure:"output-dir"`
}

type ScoringConfig struct {
	Weights        map[string]float64 `mapstructure:"weights"`
	GroupNormalize *bool              `mapstructure:"group-normalize"`
	Version        string             `mapstructure:"version"`
}

type DEIConfig struct {
	TagBoost *float64 `mapstructure:"tag-boost"`
	Tags     []string `mapstructure:"tags"`
}

type XAIConfig struct {
	QualityExcellent *float64 `mapstructure:"quality-excellent"`
	QualityGood      *float64 `mapstructure:"quality-good"`
}

type ServeConfig struct {
	Addr string `mapstructure:"addr"`
}

type AIConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	Provider      string        `mapstructure:"provider"`
	MinConfidence float64       `mapstructure:"min-confidence"`
	Gemini        *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKeyFile   string `mapstructure:"api-key-file"`
	Model        string `mapstructure:"model"`
	MaxRetries   int    `mapstructure:"max-retries"`
	MaxLogLength int    `mapstructure:"max-log-length"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "reranker normalizes CV/JD datasets, scores retrieved pairs and explains the ranking",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	if err := viper.BindEnv("ai.gemini.api-key-file", "GEMINI_API_KEY_FILE"); err != nil {
		log.Fatalf("binding GEMINI_API_KEY_FILE environment variable: %v", err)
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is reranker.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func initConfig() {
	viper.SetDefault("ontology", "data/skill_ontology.json")
	viper.SetDefault("data.cvs", "data/cv_dataset.csv")
	viper.SetDefault("data.jds", "data/jd_dataset.csv")
	viper.SetDefault("data.pairs", "data/reranker_input.csv")
	viper.SetDefault("data.cv-embeddings", "data/cv_embeddings.csv")
	viper.SetDefault("data.jd-embeddings", "data/jd_embeddings.csv")
	viper.SetDefault("data.output-dir", "output")
	viper.SetDefault("serve.addr", ":8080")

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app + ".yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		// Every setting has a default or a flag, so a missing file is fine.
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	var config *Config
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := viper.Unmarshal(&config, hook); err != nil {
		return config, err
	}
	if config == nil {
		config = &Config{}
	}
	if config.Data == nil {
		config.Data = &DataConfig{}
	}
	return config, nil
}

func newLogger() *zap.Logger {
	l, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}
	return l
}

// scoringConfig merges configured weights over the built-in table.
func scoringConfig(config *Config) rerank.Config {
	cfg := rerank.Defaults()
	if config.Scoring == nil {
		return cfg
	}
	if len(config.Scoring.Weights) > 0 {
		cfg.Weights = config.Scoring.Weights
	}
	if config.Scoring.GroupNormalize != nil {
		cfg.GroupNormalize = *config.Scoring.GroupNormalize
	}
	if config.Scoring.Version != "" {
		cfg.Version = config.Scoring.Version
	}
	return cfg
}

// qualityBands overrides the given defaults with configured thresholds.
func qualityBands(config *Config, defaults xai.QualityBands) xai.QualityBands {
	if config.XAI == nil {
		return defaults
	}
	if config.XAI.QualityExcellent != nil {
		defaults.Excellent = *config.XAI.QualityExcellent
	}
	if config.XAI.QualityGood != nil {
		defaults.Good = *config.XAI.QualityGood
	}
	return defaults
}

func normalizedPath(config *Config, name string) string {
	return filepath.Join(config.Data.OutputDir, name)
}

func deiConfig(config *Config) dei.Config {
	cfg := dei.Defaults()
	if config.DEI == nil {
		return cfg
	}
	if config.DEI.TagBoost != nil {
		cfg.TagBoost = *config.DEI.TagBoost
	}
	if len(config.DEI.Tags) > 0 {
		cfg.Tags = config.DEI.Tags
	}
	return cfg
}
