// Package match serves a single CV/JD comparison from an in-memory snapshot
// of the normalized datasets and their embedding vectors. The snapshot is
// loaded once and never mutated, so lookups need no locking.
package match

import (
	"encoding/json"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/lavoro-tech/reranker/internal/dataset"
	"github.com/lavoro-tech/reranker/internal/logger"
)

// ColEmbedding holds the JSON-encoded embedding vector in embedding CSVs.
const ColEmbedding = "embedding_vector"

// Snapshot is the immutable working set of the match service.
type Snapshot struct {
	cvIndex map[string]dataset.Row
	jdIndex map[string]dataset.Row

	cvVectors map[string][]float64
	jdVectors map[string][]float64

	cvIDs []string
	jdIDs []string
}

// SnapshotPaths names the four input files of a snapshot.
type SnapshotPaths struct {
	CVs          string
	JDs          string
	CVEmbeddings string
	JDEmbeddings string
}

// LoadSnapshot reads the normalized CV/JD tables and the embedding CSVs.
// Rows without an embedding stay servable with a zero similarity.
func LoadSnapshot(paths SnapshotPaths, log *zap.Logger) (*Snapshot, error) {
	log = logger.WithStage(log, "match", "")

	cvs, err := dataset.ReadCSV(paths.CVs)
	if err != nil {
		return nil, fmt.Errorf("loading CVs: %w", err)
	}
	jds, err := dataset.ReadCSV(paths.JDs)
	if err != nil {
		return nil, fmt.Errorf("loading JDs: %w", err)
	}

	snap := &Snapshot{
		cvIndex: cvs.Index(dataset.ColUserID),
		jdIndex: jds.Index(dataset.ColJDID),
	}
	for _, row := range cvs.Rows {
		if id := row[dataset.ColUserID]; id != "" {
			snap.cvIDs = append(snap.cvIDs, id)
		}
	}
	for _, row := range jds.Rows {
		if id := row[dataset.ColJDID]; id != "" {
			snap.jdIDs = append(snap.jdIDs, id)
		}
	}

	snap.cvVectors, err = loadVectors(paths.CVEmbeddings, dataset.ColUserID)
	if err != nil {
		return nil, fmt.Errorf("loading CV embeddings: %w", err)
	}
	snap.jdVectors, err = loadVectors(paths.JDEmbeddings, dataset.ColJDID)
	if err != nil {
		return nil, fmt.Errorf("loading JD embeddings: %w", err)
	}

	log.Info("snapshot loaded",
		zap.Int("cvs", len(snap.cvIDs)),
		zap.Int("jds", len(snap.jdIDs)),
		zap.Int("cv_vectors", len(snap.cvVectors)),
		zap.Int("jd_vectors", len(snap.jdVectors)),
	)
	return snap, nil
}

func loadVectors(path, idColumn string) (map[string][]float64, error) {
	table, err := dataset.ReadCSV(path)
	if err != nil {
		return nil, err
	}
	if !table.HasColumn(idColumn) || !table.HasColumn(ColEmbedding) {
		return nil, fmt.Errorf("%s: need %q and %q columns", path, idColumn, ColEmbedding)
	}

	vectors := make(map[string][]float64, len(table.Rows))
	for i, row := range table.Rows {
		id := row[idColumn]
		if id == "" {
			continue
		}
		var vec []float64
		if err := json.Unmarshal([]byte(row[ColEmbedding]), &vec); err != nil {
			return nil, fmt.Errorf("%s row %d: decoding embedding for %q: %w", path, i+1, id, err)
		}
		vectors[id] = vec
	}
	return vectors, nil
}

// Cosine computes the cosine similarity between two vectors. Mismatched
// lengths compare over the shorter prefix; a zero-norm side yields 0.
func Cosine(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += a[i] * b[i]
	}
	for _, v := range a {
		normA += v * v
	}
	for _, v := range b {
		normB += v * v
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
