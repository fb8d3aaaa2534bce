// Package dei applies the diversity-tag adjustment to the feature table:
// tag columns are joined in from the CV dataset, a fixed per-tag boost is
// added to the normalized semantic score, and the per-JD ranking is
// recomputed for movement reporting.
package dei

import (
	"strconv"

	"go.uber.org/zap"

	"github.com/lavoro-tech/reranker/internal/dataset"
	"github.com/lavoro-tech/reranker/internal/feature"
	"github.com/lavoro-tech/reranker/internal/logger"
	"github.com/lavoro-tech/reranker/internal/ranking"
)

// Columns appended by this stage.
const (
	ColTagCount     = "dei_tag_count"
	ColBoost        = "dei_boost"
	ColScoreWithDEI = "score_with_dei"
	ColRankOriginal = "rank_original"
	ColRankWithDEI  = "rank_with_dei"
	ColRankDelta    = "rank_delta"
)

// Config holds the DEI adjustment parameters.
type Config struct {
	// TagBoost is added to the score once per active tag.
	TagBoost float64
	// Tags lists the CV tag columns considered; columns absent from the
	// dataset count as inactive rather than failing the stage.
	Tags []string
}

// Defaults returns the standard adjustment: the two platform tags at 0.05
// boost per tag.
func Defaults() Config {
	return Config{
		TagBoost: 0.05,
		Tags:     []string{"tag_women", "tag_protected_category"},
	}
}

// Apply mutates the feature table: copies the configured tag columns from
// the CV dataset as 0/1, computes dei_tag_count, dei_boost and
// score_with_dei, and reranks each JD group by the boosted score.
// rank_delta = rank_original − rank_with_dei, positive when the candidate
// moved up.
func Apply(features, cvTable *dataset.Table, cfg Config, log *zap.Logger) {
	log = logger.WithStage(log, "dei", "")

	cvIndex := cvTable.Index(dataset.ColUserID)

	for _, tag := range cfg.Tags {
		features.EnsureColumn(tag)
	}
	for _, col := range []string{ColTagCount, ColBoost, ColScoreWithDEI, ColRankOriginal, ColRankWithDEI, ColRankDelta} {
		features.EnsureColumn(col)
	}

	tagged := 0
	groupScores := make(map[string][]float64)
	groupRows := make(map[string][]dataset.Row)

	for _, row := range features.Rows {
		cvRow := cvIndex[row[dataset.ColUserID]]

		count := 0
		for _, tag := range cfg.Tags {
			if dataset.Truthy(cvRow[tag]) {
				row[tag] = "1"
				count++
			} else {
				row[tag] = "0"
			}
		}
		if count > 0 {
			tagged++
		}

		boost := float64(count) * cfg.TagBoost
		score := ranking.Clamp01(row.Float("cosine_similarity_normalized") + boost)

		row[ColTagCount] = strconv.Itoa(count)
		row[ColBoost] = formatScore(boost)
		row[ColScoreWithDEI] = formatScore(score)
		row[ColRankOriginal] = row[feature.ColRetrievalRank]

		jdID := row[dataset.ColJDID]
		groupScores[jdID] = append(groupScores[jdID], score)
		groupRows[jdID] = append(groupRows[jdID], row)
	}

	moved := 0
	for jdID, scores := range groupScores {
		ranks := ranking.DenseRank(scores)
		for i, row := range groupRows[jdID] {
			row[ColRankWithDEI] = strconv.Itoa(ranks[i])
			delta := int(row.Float(ColRankOriginal)) - ranks[i]
			row[ColRankDelta] = strconv.Itoa(delta)
			if delta != 0 {
				moved++
			}
		}
	}

	log.Info("dei adjustment applied",
		zap.Int("pairs", len(features.Rows)),
		zap.Int("tagged_candidates", tagged),
		zap.Int("rank_changes", moved),
		zap.Float64("tag_boost", cfg.TagBoost),
	)
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
