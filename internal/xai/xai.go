// Package xai derives deterministic explanations from the scored output: no
// model calls, every reason and risk follows from feature values, weights
// and fixed thresholds. The reason/risk ids are a consumer contract.
package xai

import (
	"fmt"
	"sort"

	"github.com/lavoro-tech/reranker/internal/rerank"
)

// Thresholds drive the explanation rules.
type Thresholds struct {
	CosineStrong       float64
	CosineModerate     float64
	SkillCoreStrong    float64
	SkillCorePartial   float64
	SkillNiceThreshold float64
	RoleSimilarityMin  float64
	MissingSkillsHigh  int
	ExperienceGapHigh  float64
}

// DefaultThresholds returns the calibrated rule thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		CosineStrong:       0.65,
		CosineModerate:     0.45,
		SkillCoreStrong:    0.6,
		SkillCorePartial:   0.2,
		SkillNiceThreshold: 0.25,
		RoleSimilarityMin:  0.2,
		MissingSkillsHigh:  2,
		ExperienceGapHigh:  1.5,
	}
}

// QualityBands maps a final score to a label. The bands differ between the
// batch flow (scores are group-normalized) and the single-pair flow (scores
// are absolute).
type QualityBands struct {
	Excellent float64
	Good      float64
}

// BatchQuality are the label bands for group-normalized scores.
func BatchQuality() QualityBands { return QualityBands{Excellent: 0.45, Good: 0.20} }

// SingleQuality are the label bands for absolute single-pair scores.
func SingleQuality() QualityBands { return QualityBands{Excellent: 0.5, Good: 0.3} }

// Label classifies a final score.
func (q QualityBands) Label(score float64) string {
	switch {
	case score >= q.Excellent:
		return "EXCELLENT"
	case score >= q.Good:
		return "GOOD"
	default:
		return "WEAK"
	}
}

// Reason is one positive explanation.
type Reason struct {
	ReasonID     string  `json:"reason_id"`
	Category     string  `json:"category"`
	Text         string  `json:"text"`
	Contribution float64 `json:"contribution"`
	Evidence     string  `json:"evidence"`
}

// Risk is one negative signal with a severity.
type Risk struct {
	RiskID       string  `json:"risk_id"`
	Category     string  `json:"category"`
	Severity     string  `json:"severity"`
	Text         string  `json:"text"`
	Contribution float64 `json:"contribution"`
	Evidence     string  `json:"evidence"`
	MissingCount int     `json:"missing_count,omitempty"`
}

// Evidence is the flat readout of raw values behind the explanation, with
// no thresholds applied.
type Evidence struct {
	SkillsCoreMatched    int     `json:"skills_core_matched"`
	SkillsCoreRequired   int     `json:"skills_core_required"`
	SkillsCoreMissing    int     `json:"skills_core_missing"`
	SkillsNiceMatched    int     `json:"skills_nice_matched"`
	SkillsNiceTotal      int     `json:"skills_nice_total"`
	CVCurrentRole        string  `json:"cv_current_role"`
	ExperienceCVYears    int     `json:"experience_cv_years"`
	ExperienceJDRequired int     `json:"experience_jd_required"`
	ExperienceGap        int     `json:"experience_gap"`
	SeniorityCV          string  `json:"seniority_cv"`
	SeniorityJD          string  `json:"seniority_jd"`
	SeniorityGap         int     `json:"seniority_gap"`
	CVCompleteness       float64 `json:"cv_completeness"`
}

// Block is the per-candidate explanation attached to the output.
type Block struct {
	QualityLabel string   `json:"quality_label"`
	TopReasons   []Reason `json:"top_reasons"`
	MainRisks    []Risk   `json:"main_risks"`
	Evidence     Evidence `json:"evidence"`
}

const (
	maxReasons = 5
	maxRisks   = 3
)

var reasonTexts = map[string]string{
	"semantic_match_strong":   "Overall profile is strongly aligned with the position",
	"semantic_match_moderate": "Profile shows good alignment with the position",
	"core_skills_strong":      "Has most of the required core skills",
	"core_skills_partial":     "Has some of the required core skills",
	"nice_skills_present":     "Has desired additional (nice-to-have) skills",
	"experience_sufficient":   "Experience meets the minimum requirements",
	"experience_exceeds":      "Experience exceeds the requirements",
	"seniority_aligned":       "Seniority level matches the position",
	"seniority_higher":        "Has higher seniority than required",
	"role_aligned":            "Current role is consistent with the position",
}

var riskTexts = map[string]string{
	"missing_core_skills_high":   "Several required core skills are missing",
	"missing_core_skills_medium": "Some required core skills are missing",
	"experience_below_critical":  "Experience significantly below the minimum requirement",
	"experience_below_minor":     "Experience slightly below the minimum requirement",
	"seniority_gap_critical":     "Significant seniority gap (2+ levels)",
	"underskilled":               "Seniority below the required level",
}

// BuildBlock evaluates every explanation rule for one scored candidate.
func BuildBlock(c *rerank.Candidate, th Thresholds, quality QualityBands) Block {
	return Block{
		QualityLabel: quality.Label(c.Score),
		TopReasons:   buildReasons(c, th),
		MainRisks:    buildRisks(c, th),
		Evidence:     buildEvidence(c),
	}
}

func buildReasons(c *rerank.Candidate, th Thresholds) []Reason {
	values := c.FeatureValues
	contribs := c.FeatureContributions
	var reasons []Reason

	// Semantic similarity: strong and moderate are mutually exclusive.
	cosine := values["cosine_similarity_normalized"]
	if cosine >= th.CosineStrong {
		reasons = append(reasons, Reason{
			ReasonID:     "semantic_match_strong",
			Category:     "profile_fit",
			Text:         reasonTexts["semantic_match_strong"],
			Contribution: contribs["cosine_similarity_normalized"],
			Evidence:     "Skills and experience in line with the role",
		})
	} else if cosine >= th.CosineModerate {
		reasons = append(reasons, Reason{
			ReasonID:     "semantic_match_moderate",
			Category:     "profile_fit",
			Text:         reasonTexts["semantic_match_moderate"],
			Contribution: contribs["cosine_similarity_normalized"],
			Evidence:     "Compatible professional background",
		})
	}

	// Core skills.
	core := values["skill_overlap_core_norm"]
	coreEvidence := fmt.Sprintf("%d core skills present", c.SkillsDetails.CVSkillsMatched)
	if core >= th.SkillCoreStrong {
		reasons = append(reasons, Reason{
			ReasonID:     "core_skills_strong",
			Category:     "skills",
			Text:         reasonTexts["core_skills_strong"],
			Contribution: contribs["skill_overlap_core_norm"],
			Evidence:     coreEvidence,
		})
	} else if core >= th.SkillCorePartial {
		reasons = append(reasons, Reason{
			ReasonID:     "core_skills_partial",
			Category:     "skills",
			Text:         reasonTexts["core_skills_partial"],
			Contribution: contribs["skill_overlap_core_norm"],
			Evidence:     coreEvidence,
		})
	}

	// Nice-to-have skills need at least one concrete match.
	if values["skill_overlap_nice_norm"] >= th.SkillNiceThreshold && c.SkillsDetails.NiceToHaveMatched > 0 {
		reasons = append(reasons, Reason{
			ReasonID:     "nice_skills_present",
			Category:     "skills",
			Text:         reasonTexts["nice_skills_present"],
			Contribution: contribs["skill_overlap_nice_norm"],
			Evidence:     fmt.Sprintf("%d nice-to-have skills present", c.SkillsDetails.NiceToHaveMatched),
		})
	}

	// Experience.
	cvYears := c.ExperienceDetails.CVYears
	jdYears := c.ExperienceDetails.RequiredYears
	if values["experience_meets_requirement"] == 1 {
		evidence := fmt.Sprintf("%d years (required: %d)", roundInt(cvYears), roundInt(jdYears))
		id := "experience_sufficient"
		if jdYears > 0 && cvYears >= jdYears*1.5 {
			id = "experience_exceeds"
		}
		reasons = append(reasons, Reason{
			ReasonID:     id,
			Category:     "experience",
			Text:         reasonTexts[id],
			Contribution: contribs["experience_meets_requirement"],
			Evidence:     evidence,
		})
	}

	// Seniority.
	seniorityCV := c.SeniorityDetails.CVSeniority
	seniorityJD := c.SeniorityDetails.RequiredSeniority
	if values["seniority_match"] == 1 && seniorityCV != "" && seniorityJD != "" {
		reasons = append(reasons, Reason{
			ReasonID:     "seniority_aligned",
			Category:     "seniority",
			Text:         reasonTexts["seniority_aligned"],
			Contribution: contribs["seniority_match"],
			Evidence:     fmt.Sprintf("Seniority: %s (required: %s)", seniorityCV, seniorityJD),
		})
	} else if c.SeniorityDetails.Gap > 0 && seniorityCV != "" && seniorityJD != "" {
		reasons = append(reasons, Reason{
			ReasonID:     "seniority_higher",
			Category:     "seniority",
			Text:         reasonTexts["seniority_higher"],
			Contribution: contribs["seniority_match"],
			Evidence:     fmt.Sprintf("Seniority: %s > %s required", seniorityCV, seniorityJD),
		})
	}

	// Role coherence.
	if values["role_coherent"] == 1 && c.Details.CVCurrentRole != "" {
		reasons = append(reasons, Reason{
			ReasonID:     "role_aligned",
			Category:     "role",
			Text:         reasonTexts["role_aligned"],
			Contribution: contribs["role_coherent"],
			Evidence:     fmt.Sprintf("Current role: %s", c.Details.CVCurrentRole),
		})
	}

	sort.SliceStable(reasons, func(i, j int) bool {
		return reasons[i].Contribution > reasons[j].Contribution
	})
	if len(reasons) > maxReasons {
		reasons = reasons[:maxReasons]
	}
	return reasons
}

func buildRisks(c *rerank.Candidate, th Thresholds) []Risk {
	values := c.FeatureValues
	contribs := c.FeatureContributions
	var risks []Risk

	if values["must_have_missing"] > 0 {
		missing := c.SkillsDetails.MustHaveMissing
		if missing == 0 {
			missing = int(values["must_have_missing"])
		}
		severity := "medium"
		if missing >= th.MissingSkillsHigh {
			severity = "high"
		}
		risks = append(risks, Risk{
			RiskID:       "missing_core_skills",
			Category:     "skills",
			Severity:     severity,
			Text:         fmt.Sprintf("%s (%d)", riskTexts["missing_core_skills_"+severity], missing),
			Contribution: contribs["must_have_missing"],
			Evidence:     fmt.Sprintf("%d core skills not clearly explicit in the CV", missing),
			MissingCount: missing,
		})
	}

	seniorityCV := c.SeniorityDetails.CVSeniority
	seniorityJD := c.SeniorityDetails.RequiredSeniority
	gapCritical := values["seniority_mismatch_strong"] == 1
	if gapCritical {
		evidence := "Gap of 2+ levels"
		if seniorityCV != "" && seniorityJD != "" {
			evidence = fmt.Sprintf("Candidate: %s, required: %s", seniorityCV, seniorityJD)
		}
		risks = append(risks, Risk{
			RiskID:       "seniority_gap_critical",
			Category:     "seniority",
			Severity:     "high",
			Text:         riskTexts["seniority_gap_critical"],
			Contribution: contribs["seniority_mismatch_strong"],
			Evidence:     evidence,
		})
	}

	// The critical gap already covers underskilled; reporting both would
	// double-count the same signal.
	if values["seniority_underskilled"] == 1 && !gapCritical {
		evidence := "Insufficient seniority"
		if seniorityCV != "" && seniorityJD != "" {
			evidence = fmt.Sprintf("Candidate: %s, required: %s", seniorityCV, seniorityJD)
		}
		risks = append(risks, Risk{
			RiskID:       "underskilled",
			Category:     "seniority",
			Severity:     "medium",
			Text:         riskTexts["underskilled"],
			Contribution: contribs["seniority_underskilled"],
			Evidence:     evidence,
		})
	}

	cvYears := c.ExperienceDetails.CVYears
	jdYears := c.ExperienceDetails.RequiredYears
	if values["experience_meets_requirement"] == 0 && jdYears > 0 {
		gap := jdYears - cvYears
		severity := "medium"
		key := "experience_below_minor"
		if gap >= th.ExperienceGapHigh {
			severity = "high"
			key = "experience_below_critical"
		}
		risks = append(risks, Risk{
			RiskID:       "experience_below_requirement",
			Category:     "experience",
			Severity:     severity,
			Text:         fmt.Sprintf("%s (%d years gap)", riskTexts[key], roundInt(gap)),
			Contribution: contribs["experience_penalty_soft"],
			Evidence:     fmt.Sprintf("Candidate: %d years, required: %d years", roundInt(cvYears), roundInt(jdYears)),
		})
	}

	sort.SliceStable(risks, func(i, j int) bool {
		si, sj := severityRank(risks[i].Severity), severityRank(risks[j].Severity)
		if si != sj {
			return si < sj
		}
		return risks[i].Contribution < risks[j].Contribution
	})
	if len(risks) > maxRisks {
		risks = risks[:maxRisks]
	}
	return risks
}

func buildEvidence(c *rerank.Candidate) Evidence {
	return Evidence{
		SkillsCoreMatched:    c.SkillsDetails.CVSkillsMatched,
		SkillsCoreRequired:   c.SkillsDetails.JDSkillsRequired,
		SkillsCoreMissing:    c.SkillsDetails.MustHaveMissing,
		SkillsNiceMatched:    c.SkillsDetails.NiceToHaveMatched,
		SkillsNiceTotal:      c.SkillsDetails.NiceToHaveTotal,
		CVCurrentRole:        c.Details.CVCurrentRole,
		ExperienceCVYears:    roundInt(c.ExperienceDetails.CVYears),
		ExperienceJDRequired: roundInt(c.ExperienceDetails.RequiredYears),
		ExperienceGap:        roundInt(c.ExperienceDetails.CVYears - c.ExperienceDetails.RequiredYears),
		SeniorityCV:          c.SeniorityDetails.CVSeniority,
		SeniorityJD:          c.SeniorityDetails.RequiredSeniority,
		SeniorityGap:         c.SeniorityDetails.Gap,
		CVCompleteness:       c.Details.CVCompletenessScore,
	}
}

func severityRank(severity string) int {
	switch severity {
	case "high":
		return 0
	case "medium":
		return 1
	default:
		return 2
	}
}

func roundInt(v float64) int {
	if v < 0 {
		return -int(-v + 0.5)
	}
	return int(v + 0.5)
}
