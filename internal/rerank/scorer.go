// Package rerank implements the final scoring stage: a configurable linear
// model over the feature table, per-JD rank assignment and the stable JSON
// output consumed by the explanation layer and the product backend.
package rerank

import (
	"sort"
	"strconv"

	"go.uber.org/zap"

	"github.com/lavoro-tech/reranker/internal/dataset"
	"github.com/lavoro-tech/reranker/internal/dei"
	"github.com/lavoro-tech/reranker/internal/logger"
	"github.com/lavoro-tech/reranker/internal/ranking"
)

// Columns appended by the scorer. Per-feature contributions land in
// "contrib_<feature>" columns.
const (
	ColLinearScoreRaw = "linear_score_raw"
	ColLinearScore    = "linear_score"
	ColFinalScore     = "final_score"
	ColFinalRank      = "final_rank"

	ContribPrefix = "contrib_"
)

// ScoringMethod identifies the model in output metadata.
const ScoringMethod = "linear_weighted_model"

// Config drives the linear model. The weight table is data, not code: it is
// loaded from configuration and recorded verbatim in the output metadata.
type Config struct {
	Weights map[string]float64
	// GroupNormalize min-max rescales the raw sum within each JD group
	// before the DEI boost. Disabling it keeps raw sums, which makes
	// scores comparable across JDs at the cost of a spread per group.
	GroupNormalize bool
	Version        string
}

// DefaultWeights returns the v1.0 weight table. Positive weights are boosts,
// negative are penalties; the positive side sums to roughly 1 so raw scores
// stay interpretable.
func DefaultWeights() map[string]float64 {
	return map[string]float64{
		"cosine_similarity_normalized": 0.30,

		"skill_overlap_core_norm": 0.15,
		"skill_coverage_total":    0.05,
		"skill_overlap_nice_norm": 0.05,

		"experience_meets_requirement": 0.20,

		"seniority_match": 0.15,

		"role_similarity_jaccard": 0.05,
		"role_coherent":           0.05,

		// Surplus experience is tracked but neutral until recalibration.
		"experience_bonus": 0.0,

		"must_have_missing":         -0.05,
		"experience_penalty_soft":   -0.10,
		"seniority_mismatch_strong": -0.15,
		"seniority_underskilled":    -0.05,
	}
}

// Defaults returns the standard scorer configuration.
func Defaults() Config {
	return Config{
		Weights:        DefaultWeights(),
		GroupNormalize: true,
		Version:        "1.0",
	}
}

// Score computes the weighted sum per row and the final per-JD ranking,
// mutating the feature table. Features missing from a row count as 0.
func Score(features *dataset.Table, cfg Config, log *zap.Logger) {
	log = logger.WithStage(log, "rerank", "")

	weightNames := sortedWeightNames(cfg.Weights)
	for _, name := range weightNames {
		features.EnsureColumn(ContribPrefix + name)
	}
	for _, col := range []string{ColLinearScoreRaw, ColLinearScore, ColFinalScore, ColFinalRank} {
		features.EnsureColumn(col)
	}

	groupRaw := make(map[string][]float64)
	groupRows := make(map[string][]dataset.Row)
	var groupOrder []string

	for _, row := range features.Rows {
		raw := 0.0
		for _, name := range weightNames {
			contribution := cfg.Weights[name] * row.Float(name)
			row[ContribPrefix+name] = formatScore(contribution)
			raw += contribution
		}
		row[ColLinearScoreRaw] = formatScore(raw)

		jdID := row[dataset.ColJDID]
		if _, seen := groupRaw[jdID]; !seen {
			groupOrder = append(groupOrder, jdID)
		}
		groupRaw[jdID] = append(groupRaw[jdID], raw)
		groupRows[jdID] = append(groupRows[jdID], row)
	}

	for _, jdID := range groupOrder {
		linear := groupRaw[jdID]
		if cfg.GroupNormalize {
			linear = ranking.MinMaxNormalize(linear)
		}

		finals := make([]float64, len(linear))
		for i, row := range groupRows[jdID] {
			final := ranking.Clamp01(linear[i] + row.Float(dei.ColBoost))
			finals[i] = final
			row[ColLinearScore] = formatScore(linear[i])
			row[ColFinalScore] = formatScore(final)
		}

		ranks := ranking.DenseRank(finals)
		for i, row := range groupRows[jdID] {
			row[ColFinalRank] = strconv.Itoa(ranks[i])
		}
	}

	log.Info("linear scores computed",
		zap.Int("pairs", len(features.Rows)),
		zap.Int("jd_groups", len(groupOrder)),
		zap.Int("weights", len(cfg.Weights)),
		zap.Bool("group_normalize", cfg.GroupNormalize),
		zap.String("version", cfg.Version),
	)
}

func sortedWeightNames(weights map[string]float64) []string {
	names := make([]string, 0, len(weights))
	for name := range weights {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
