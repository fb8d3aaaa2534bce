package match

import (
	"math"

	"github.com/lavoro-tech/reranker/internal/rerank"
	"github.com/lavoro-tech/reranker/internal/xai"
)

// Result is the single-pair comparison document.
type Result struct {
	Metadata       Metadata          `json:"metadata"`
	JobDescription JobDescription    `json:"job_description"`
	Candidate      Candidate         `json:"candidate"`
	Quality        QualityAssessment `json:"quality_assessment"`
}

// Metadata describes the comparison run.
type Metadata struct {
	GeneratedAt    string             `json:"generated_at"`
	ComparisonType string             `json:"comparison_type"`
	ScoringMethod  string             `json:"scoring_method"`
	Version        string             `json:"version"`
	Weights        map[string]float64 `json:"weights"`
}

// JobDescription identifies the compared posting.
type JobDescription struct {
	JDID  string `json:"jd_id"`
	Title string `json:"title"`
}

// Candidate is the scored CV side of the pair. The score breakdown, flags and
// tag blocks share their shape with the batch output; the details block is
// richer here because a single comparison is typically inspected by a human.
type Candidate struct {
	UserID               string               `json:"user_id"`
	Rank                 int                  `json:"rank"`
	Score                float64              `json:"score"`
	ScoreBreakdown       rerank.ScoreBreakdown `json:"score_breakdown"`
	FeatureValues        map[string]float64   `json:"feature_values"`
	FeatureContributions map[string]float64   `json:"feature_contributions"`
	Flags                rerank.Flags         `json:"flags"`
	DEITags              rerank.DEITags       `json:"dei_tags"`
	Details              Details              `json:"details"`
	XAI                  xai.Block            `json:"xai"`
}

// Details lists the concrete values behind the pair's features.
type Details struct {
	SkillsMatched       []string `json:"skills_matched"`
	SkillsNiceMatched   []string `json:"skills_nice_matched"`
	CVSkills            []string `json:"cv_skills"`
	JDRequirements      []string `json:"jd_requirements"`
	JDNiceToHave        []string `json:"jd_nice_to_have"`
	CVCurrentRole       string   `json:"cv_current_role"`
	YearsExperienceCV   float64  `json:"years_experience_cv"`
	YearsRequiredJD     float64  `json:"years_required_jd"`
	SeniorityCV         string   `json:"seniority_cv"`
	SeniorityJD         string   `json:"seniority_jd"`
	CVCompletenessScore float64  `json:"cv_completeness_score"`
}

// QualityAssessment grades the semantic similarity on absolute bands.
type QualityAssessment struct {
	CosineSimilarity float64 `json:"cosine_similarity"`
	QualityLabel     string  `json:"quality_label"`
	FinalScore       float64 `json:"final_score"`
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
