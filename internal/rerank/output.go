package rerank

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lavoro-tech/reranker/internal/dataset"
	"github.com/lavoro-tech/reranker/internal/dei"
	"github.com/lavoro-tech/reranker/internal/feature"
	"github.com/lavoro-tech/reranker/internal/logger"
)

// Output is the stable JSON document written by the rerank stage.
type Output struct {
	Metadata Metadata   `json:"metadata"`
	Results  []JDResult `json:"results"`
}

// Metadata describes the scoring run.
type Metadata struct {
	GeneratedAt     string             `json:"generated_at"`
	RunID           string             `json:"run_id"`
	TotalJDs        int                `json:"total_jds"`
	TotalCandidates int                `json:"total_candidates"`
	ScoringMethod   string             `json:"scoring_method"`
	Version         string             `json:"version"`
	Weights         map[string]float64 `json:"weights"`

	// Filled by the explanation stage.
	XAIVersion     string             `json:"xai_version,omitempty"`
	XAIGeneratedAt string             `json:"xai_generated_at,omitempty"`
	XAIThresholds  map[string]float64 `json:"xai_thresholds,omitempty"`
}

// JDResult groups the ranked candidates of one job posting.
type JDResult struct {
	JDID            string      `json:"jd_id"`
	JDTitle         string      `json:"jd_title"`
	TotalCandidates int         `json:"total_candidates"`
	Candidates      []Candidate `json:"candidates"`
}

// Candidate is one scored CV for a JD, with full attribution of the score
// to its causes.
type Candidate struct {
	UserID               string             `json:"user_id"`
	Rank                 int                `json:"rank"`
	Score                float64            `json:"score"`
	ScoreBreakdown       ScoreBreakdown     `json:"score_breakdown"`
	FeatureValues        map[string]float64 `json:"feature_values"`
	FeatureContributions map[string]float64 `json:"feature_contributions"`
	Flags                Flags              `json:"flags"`
	DEITags              DEITags            `json:"dei_tags"`
	Details              Details            `json:"details"`
	ExperienceDetails    ExperienceDetails  `json:"experience_details"`
	SeniorityDetails     SeniorityDetails   `json:"seniority_details"`
	SkillsDetails        SkillsDetails      `json:"skills_details"`

	// XAI is attached by the explanation stage; absent in the raw output.
	XAI any `json:"xai,omitempty"`
}

// ScoreBreakdown traces the path from raw weighted sum to final score.
type ScoreBreakdown struct {
	LinearScoreRaw        float64 `json:"linear_score_raw"`
	LinearScoreNormalized float64 `json:"linear_score_normalized"`
	DEIBoost              float64 `json:"dei_boost"`
	FinalScore            float64 `json:"final_score"`
}

// Flags are the boolean signals surfaced to the consumer UI.
type Flags struct {
	SeniorityMismatchStrong    bool `json:"seniority_mismatch_strong"`
	Underskilled               bool `json:"underskilled"`
	ExperienceBelowRequirement bool `json:"experience_below_requirement"`
	HasDEITag                  bool `json:"has_dei_tag"`
}

// DEITags reports the individual diversity tags.
type DEITags struct {
	Women             bool `json:"women"`
	ProtectedCategory bool `json:"protected_category"`
}

// Details carries pair-level context shared by every explanation rule.
type Details struct {
	CVCurrentRole       string  `json:"cv_current_role"`
	CVCompletenessScore float64 `json:"cv_completeness_score"`
}

// ExperienceDetails is the experience evidence block.
type ExperienceDetails struct {
	CVYears       float64 `json:"cv_years"`
	RequiredYears float64 `json:"required_years"`
	Gap           float64 `json:"gap"`
}

// SeniorityDetails is the seniority evidence block.
type SeniorityDetails struct {
	CVSeniority       string `json:"cv_seniority"`
	RequiredSeniority string `json:"required_seniority"`
	Gap               int    `json:"gap"`
}

// SkillsDetails is the skills evidence block.
type SkillsDetails struct {
	CVSkillsMatched   int      `json:"cv_skills_matched"`
	JDSkillsRequired  int      `json:"jd_skills_required"`
	MustHaveMissing   int      `json:"must_have_missing"`
	NiceToHaveMatched int      `json:"nice_to_have_matched"`
	NiceToHaveTotal   int      `json:"nice_to_have_total"`
	SkillsMatched     []string `json:"skills_matched"`
	SkillsNiceMatched []string `json:"skills_nice_matched"`
}

// BuildOutput assembles the output document from the scored feature table.
// JD groups keep first-appearance order; candidates are sorted by final
// rank. The normalized CV/JD tables supply the evidence blocks.
func BuildOutput(features, cvTable, jdTable *dataset.Table, cfg Config, featCfg feature.Config, log *zap.Logger) *Output {
	log = logger.WithStage(log, "rerank", "")

	cvIndex := cvTable.Index(dataset.ColUserID)
	jdIndex := jdTable.Index(dataset.ColJDID)

	groupRows := make(map[string][]dataset.Row)
	var groupOrder []string
	for _, row := range features.Rows {
		jdID := row[dataset.ColJDID]
		if _, seen := groupRows[jdID]; !seen {
			groupOrder = append(groupOrder, jdID)
		}
		groupRows[jdID] = append(groupRows[jdID], row)
	}

	out := &Output{
		Metadata: Metadata{
			GeneratedAt:     time.Now().Format(time.RFC3339),
			RunID:           uuid.NewString(),
			TotalJDs:        len(groupOrder),
			TotalCandidates: len(features.Rows),
			ScoringMethod:   ScoringMethod,
			Version:         cfg.Version,
			Weights:         cfg.Weights,
		},
	}

	for _, jdID := range groupOrder {
		rows := groupRows[jdID]
		sort.SliceStable(rows, func(i, j int) bool {
			return rows[i].Float(ColFinalRank) < rows[j].Float(ColFinalRank)
		})

		jdRow := jdIndex[jdID]
		result := JDResult{
			JDID:            jdID,
			JDTitle:         jdRow[dataset.ColJDTitle],
			TotalCandidates: len(rows),
		}
		for _, row := range rows {
			result.Candidates = append(result.Candidates, buildCandidate(row, cvIndex[row[dataset.ColUserID]], jdRow, cfg, featCfg))
		}
		out.Results = append(out.Results, result)
	}

	log.Info("rerank output built",
		zap.Int("jds", out.Metadata.TotalJDs),
		zap.Int("candidates", out.Metadata.TotalCandidates),
		zap.String("run_id", out.Metadata.RunID),
	)

	return out
}

func buildCandidate(row, cvRow, jdRow dataset.Row, cfg Config, featCfg feature.Config) Candidate {
	values := make(map[string]float64, len(cfg.Weights))
	contributions := make(map[string]float64, len(cfg.Weights))
	for name := range cfg.Weights {
		values[name] = round4(row.Float(name))
		contributions[name] = round4(row.Float(ContribPrefix + name))
	}

	_, details := feature.ComputePair(cvRow, jdRow, row.Float("cosine_similarity_raw"), featCfg)

	cvYears := row.Float("years_experience_cv")
	jdYears := row.Float("years_required_jd")

	return Candidate{
		UserID: row[dataset.ColUserID],
		Rank:   int(row.Float(ColFinalRank)),
		Score:  round4(row.Float(ColFinalScore)),
		ScoreBreakdown: ScoreBreakdown{
			LinearScoreRaw:        round4(row.Float(ColLinearScoreRaw)),
			LinearScoreNormalized: round4(row.Float(ColLinearScore)),
			DEIBoost:              round4(row.Float(dei.ColBoost)),
			FinalScore:            round4(row.Float(ColFinalScore)),
		},
		FeatureValues:        values,
		FeatureContributions: contributions,
		Flags: Flags{
			SeniorityMismatchStrong:    row.Float("seniority_mismatch_strong") != 0,
			Underskilled:               row.Float("seniority_underskilled") != 0,
			ExperienceBelowRequirement: row.Float("experience_meets_requirement") == 0,
			HasDEITag:                  row.Float(dei.ColTagCount) > 0,
		},
		DEITags: DEITags{
			Women:             row.Float("tag_women") != 0,
			ProtectedCategory: row.Float("tag_protected_category") != 0,
		},
		Details: Details{
			CVCurrentRole:       details.CVRole,
			CVCompletenessScore: round4(row.Float("cv_completeness_score")),
		},
		ExperienceDetails: ExperienceDetails{
			CVYears:       cvYears,
			RequiredYears: jdYears,
			Gap:           round4(cvYears - jdYears),
		},
		SeniorityDetails: SeniorityDetails{
			CVSeniority:       details.SeniorityCV,
			RequiredSeniority: details.SeniorityJD,
			Gap:               int(row.Float("seniority_gap")),
		},
		SkillsDetails: SkillsDetails{
			CVSkillsMatched:   len(details.SkillsMatched),
			JDSkillsRequired:  len(details.JDRequirements),
			MustHaveMissing:   int(row.Float("must_have_missing")),
			NiceToHaveMatched: len(details.SkillsNiceMatched),
			NiceToHaveTotal:   len(details.JDNiceToHave),
			SkillsMatched:     details.SkillsMatched,
			SkillsNiceMatched: details.SkillsNiceMatched,
		},
	}
}

// Save writes the output document as indented JSON.
func (o *Output) Save(path string) error {
	data, err := json.MarshalIndent(o, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding rerank output: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing %q: %w", path, err)
	}
	return nil
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
