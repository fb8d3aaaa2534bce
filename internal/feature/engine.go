package feature

import (
	"fmt"
	"sort"
	"strconv"

	"go.uber.org/zap"

	"github.com/lavoro-tech/reranker/internal/dataset"
	"github.com/lavoro-tech/reranker/internal/logger"
	"github.com/lavoro-tech/reranker/internal/ranking"
)

// Input table columns: one row per retrieved CV↔JD pair with its precomputed
// semantic similarity and retrieval rank.
const (
	ColCosineSimilarity = "cosine_similarity"
	ColRank             = "rank"
	ColRetrievalRank    = "retrieval_rank"
)

// BuildTable computes the full feature table for the retrieved pairs. Rows
// keep the input order; columns are the pair ids, the retrieval rank, then
// the feature names sorted alphabetically so the output schema is stable.
func BuildTable(pairs, cvTable, jdTable *dataset.Table, cfg Config, log *zap.Logger) (*dataset.Table, error) {
	log = logger.WithStage(log, "features", "")

	for _, col := range []string{dataset.ColJDID, dataset.ColUserID, ColCosineSimilarity, ColRank} {
		if !pairs.HasColumn(col) {
			return nil, fmt.Errorf("pair table missing column %q", col)
		}
	}

	cvIndex := cvTable.Index(dataset.ColUserID)
	jdIndex := jdTable.Index(dataset.ColJDID)

	rows := make([]dataset.Row, 0, len(pairs.Rows))
	featureNames := make(map[string]struct{})
	missingCVs, missingJDs := 0, 0

	// Cosines per JD group for the second normalization pass. Groups follow
	// first-appearance order of each jd_id.
	groupCosines := make(map[string][]float64)
	groupRows := make(map[string][]dataset.Row)

	for _, pair := range pairs.Rows {
		jdID := pair[dataset.ColJDID]
		userID := pair[dataset.ColUserID]

		cvRow, ok := cvIndex[userID]
		if !ok {
			missingCVs++
		}
		jdRow, ok := jdIndex[jdID]
		if !ok {
			missingJDs++
		}

		cosine := pair.Float(ColCosineSimilarity)
		features, _ := ComputePair(cvRow, jdRow, cosine, cfg)

		out := dataset.Row{
			dataset.ColJDID:   jdID,
			dataset.ColUserID: userID,
			ColRetrievalRank:  pair[ColRank],
		}
		for name, value := range features {
			out[name] = formatFeature(value)
			featureNames[name] = struct{}{}
		}

		rows = append(rows, out)
		groupCosines[jdID] = append(groupCosines[jdID], cosine)
		groupRows[jdID] = append(groupRows[jdID], out)
	}

	for jdID, cosines := range groupCosines {
		normalized := ranking.MinMaxNormalize(cosines)
		for i, row := range groupRows[jdID] {
			row["cosine_similarity_normalized"] = formatFeature(normalized[i])
		}
	}

	columns := []string{dataset.ColJDID, dataset.ColUserID, ColRetrievalRank}
	names := make([]string, 0, len(featureNames))
	for name := range featureNames {
		names = append(names, name)
	}
	sort.Strings(names)
	columns = append(columns, names...)

	log.Info("feature table built",
		zap.Int("pairs", len(rows)),
		zap.Int("features", len(names)),
		zap.Int("jd_groups", len(groupCosines)),
		zap.Int("missing_cvs", missingCVs),
		zap.Int("missing_jds", missingJDs),
	)

	return &dataset.Table{Columns: columns, Rows: rows}, nil
}

func formatFeature(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
