package xai

import (
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/lavoro-tech/reranker/internal/logger"
	"github.com/lavoro-tech/reranker/internal/rerank"
)

// Version identifies the explanation rule set in output metadata.
const Version = "1.2"

var nowFunc = time.Now

// Enrich attaches an explanation block to every candidate of a scored output
// and stamps the metadata with the rule-set version and thresholds. The
// output is modified in place.
func Enrich(out *rerank.Output, th Thresholds, quality QualityBands, log *zap.Logger) {
	log = logger.WithStage(log, "xai", "")

	enriched := 0
	for i := range out.Results {
		for j := range out.Results[i].Candidates {
			candidate := &out.Results[i].Candidates[j]
			candidate.XAI = BuildBlock(candidate, th, quality)
			enriched++
		}
	}

	out.Metadata.XAIVersion = Version
	out.Metadata.XAIGeneratedAt = nowFunc().Format(time.RFC3339)
	out.Metadata.XAIThresholds = th.asMap()

	log.Info("explanations attached",
		zap.Int("candidates", enriched),
		zap.Int("jds", len(out.Results)),
		zap.String("xai_version", Version),
	)
}

// SaveEnriched writes the enriched output into dir under a timestamped name
// and returns the full path.
func SaveEnriched(out *rerank.Output, dir string) (string, error) {
	path := filepath.Join(dir, Filename(nowFunc()))
	if err := out.Save(path); err != nil {
		return "", err
	}
	return path, nil
}

// Filename returns the timestamped output file name for t.
func Filename(t time.Time) string {
	return "xai_" + t.Format("2006-01-02_15-04-05") + ".json"
}

func (th Thresholds) asMap() map[string]float64 {
	return map[string]float64{
		"cosine_strong":        th.CosineStrong,
		"cosine_moderate":      th.CosineModerate,
		"skill_core_strong":    th.SkillCoreStrong,
		"skill_core_partial":   th.SkillCorePartial,
		"skill_nice_threshold": th.SkillNiceThreshold,
		"role_similarity_min":  th.RoleSimilarityMin,
		"missing_skills_high":  float64(th.MissingSkillsHigh),
		"experience_gap_high":  th.ExperienceGapHigh,
	}
}
