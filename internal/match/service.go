package match

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/agnivade/levenshtein"
	"go.uber.org/zap"

	"github.com/lavoro-tech/reranker/internal/dataset"
	"github.com/lavoro-tech/reranker/internal/dei"
	"github.com/lavoro-tech/reranker/internal/feature"
	"github.com/lavoro-tech/reranker/internal/logger"
	"github.com/lavoro-tech/reranker/internal/ranking"
	"github.com/lavoro-tech/reranker/internal/rerank"
	"github.com/lavoro-tech/reranker/internal/xai"
)

const maxSuggestions = 3

// Config drives the single-pair scorer. Unlike the batch stage there is no
// group to normalize against, so the raw weighted sum is the score.
type Config struct {
	Weights    map[string]float64
	Version    string
	Feature    feature.Config
	DEI        dei.Config
	Thresholds xai.Thresholds
	Quality    xai.QualityBands
}

// Defaults returns the standard single-pair configuration.
func Defaults() Config {
	return Config{
		Weights:    rerank.DefaultWeights(),
		Version:    "1.0",
		Feature:    feature.Defaults(),
		DEI:        dei.Defaults(),
		Thresholds: xai.DefaultThresholds(),
		Quality:    xai.SingleQuality(),
	}
}

// NotFoundError reports an unknown id along with close matches from the
// snapshot, so a caller can correct a typo without a second listing call.
type NotFoundError struct {
	Kind        string // "user" or "jd"
	ID          string
	Suggestions []string
}

func (e *NotFoundError) Error() string {
	if len(e.Suggestions) == 0 {
		return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
	}
	return fmt.Sprintf("%s %q not found (close matches: %s)", e.Kind, e.ID, strings.Join(e.Suggestions, ", "))
}

// Service scores one CV against one JD on demand.
type Service struct {
	snap *Snapshot
	cfg  Config
	log  *zap.Logger
}

// NewService wraps a loaded snapshot.
func NewService(snap *Snapshot, cfg Config, log *zap.Logger) *Service {
	return &Service{snap: snap, cfg: cfg, log: logger.WithStage(log, "match", "")}
}

// Match scores the pair and returns the full result document. Unknown ids
// return a *NotFoundError.
func (s *Service) Match(userID, jdID string) (*Result, error) {
	cvRow, ok := s.snap.cvIndex[userID]
	if !ok {
		return nil, &NotFoundError{Kind: "user", ID: userID, Suggestions: suggest(userID, s.snap.cvIDs)}
	}
	jdRow, ok := s.snap.jdIndex[jdID]
	if !ok {
		return nil, &NotFoundError{Kind: "jd", ID: jdID, Suggestions: suggest(jdID, s.snap.jdIDs)}
	}

	cosine := Cosine(s.snap.cvVectors[userID], s.snap.jdVectors[jdID])
	values, details := feature.ComputePair(cvRow, jdRow, cosine, s.cfg.Feature)

	contributions := make(map[string]float64, len(s.cfg.Weights))
	raw := 0.0
	for name, weight := range s.cfg.Weights {
		contribution := weight * values[name]
		contributions[name] = round4(contribution)
		raw += contribution
	}

	tagCount := 0
	tags := make(map[string]bool, len(s.cfg.DEI.Tags))
	for _, tag := range s.cfg.DEI.Tags {
		tagged := dataset.Truthy(cvRow[tag])
		tags[tag] = tagged
		if tagged {
			tagCount++
		}
	}
	boost := float64(tagCount) * s.cfg.DEI.TagBoost
	final := ranking.Clamp01(raw + boost)

	candidate := s.buildCandidate(userID, cvRow, values, contributions, details, raw, boost, final, tags)

	s.log.Debug("pair scored",
		zap.String("user_id", userID),
		zap.String("jd_id", jdID),
		zap.Float64("cosine", cosine),
		zap.Float64("final_score", final),
	)

	return &Result{
		Metadata: Metadata{
			GeneratedAt:    time.Now().Format(time.RFC3339),
			ComparisonType: "user_single_jd",
			ScoringMethod:  rerank.ScoringMethod,
			Version:        s.cfg.Version,
			Weights:        s.cfg.Weights,
		},
		JobDescription: JobDescription{
			JDID:  jdID,
			Title: jdRow[dataset.ColJDTitle],
		},
		Candidate: candidate,
		Quality: QualityAssessment{
			CosineSimilarity: round4(cosine),
			QualityLabel:     s.cfg.Quality.Label(cosine),
			FinalScore:       round4(final),
		},
	}, nil
}

func (s *Service) buildCandidate(userID string, cvRow dataset.Row, values, contributions map[string]float64, details feature.Details, raw, boost, final float64, tags map[string]bool) Candidate {
	weighted := make(map[string]float64, len(s.cfg.Weights))
	for name := range s.cfg.Weights {
		weighted[name] = round4(values[name])
	}

	// The explanation rules run on the same shape the batch stage emits.
	scored := rerank.Candidate{
		UserID:               userID,
		Rank:                 1,
		Score:                round4(final),
		FeatureValues:        weighted,
		FeatureContributions: contributions,
		Details: rerank.Details{
			CVCurrentRole:       details.CVRole,
			CVCompletenessScore: values["cv_completeness_score"],
		},
		ExperienceDetails: rerank.ExperienceDetails{
			CVYears:       values["years_experience_cv"],
			RequiredYears: values["years_required_jd"],
			Gap:           round4(values["experience_gap"]),
		},
		SeniorityDetails: rerank.SeniorityDetails{
			CVSeniority:       details.SeniorityCV,
			RequiredSeniority: details.SeniorityJD,
			Gap:               int(values["seniority_gap"]),
		},
		SkillsDetails: rerank.SkillsDetails{
			CVSkillsMatched:   len(details.SkillsMatched),
			JDSkillsRequired:  len(details.JDRequirements),
			MustHaveMissing:   int(values["must_have_missing"]),
			NiceToHaveMatched: len(details.SkillsNiceMatched),
			NiceToHaveTotal:   len(details.JDNiceToHave),
			SkillsMatched:     details.SkillsMatched,
			SkillsNiceMatched: details.SkillsNiceMatched,
		},
	}

	return Candidate{
		UserID: userID,
		Rank:   1,
		Score:  round4(final),
		ScoreBreakdown: rerank.ScoreBreakdown{
			LinearScoreRaw:        round4(raw),
			LinearScoreNormalized: round4(raw),
			DEIBoost:              round4(boost),
			FinalScore:            round4(final),
		},
		FeatureValues:        weighted,
		FeatureContributions: contributions,
		Flags: rerank.Flags{
			SeniorityMismatchStrong:    values["seniority_mismatch_strong"] != 0,
			Underskilled:               values["seniority_underskilled"] != 0,
			ExperienceBelowRequirement: values["experience_meets_requirement"] == 0,
			HasDEITag:                  len(tags) > 0 && anyTag(tags),
		},
		DEITags: rerank.DEITags{
			Women:             tags["tag_women"],
			ProtectedCategory: tags["tag_protected_category"],
		},
		Details: Details{
			SkillsMatched:       details.SkillsMatched,
			SkillsNiceMatched:   details.SkillsNiceMatched,
			CVSkills:            details.CVSkills,
			JDRequirements:      details.JDRequirements,
			JDNiceToHave:        details.JDNiceToHave,
			CVCurrentRole:       details.CVRole,
			YearsExperienceCV:   values["years_experience_cv"],
			YearsRequiredJD:     values["years_required_jd"],
			SeniorityCV:         details.SeniorityCV,
			SeniorityJD:         details.SeniorityJD,
			CVCompletenessScore: values["cv_completeness_score"],
		},
		XAI: xai.BuildBlock(&scored, s.cfg.Thresholds, s.cfg.Quality),
	}
}

// suggest returns up to three known ids close to the requested one, nearest
// first. Ids further than half their length away are not worth suggesting.
func suggest(id string, known []string) []string {
	type scored struct {
		id   string
		dist int
	}
	var close []scored
	for _, candidate := range known {
		dist := levenshtein.ComputeDistance(id, candidate)
		limit := len(candidate)
		if len(id) > limit {
			limit = len(id)
		}
		if dist*2 <= limit {
			close = append(close, scored{candidate, dist})
		}
	}
	sort.SliceStable(close, func(i, j int) bool {
		if close[i].dist != close[j].dist {
			return close[i].dist < close[j].dist
		}
		return close[i].id < close[j].id
	})
	if len(close) > maxSuggestions {
		close = close[:maxSuggestions]
	}
	out := make([]string, len(close))
	for i, c := range close {
		out[i] = c.id
	}
	return out
}

func anyTag(tags map[string]bool) bool {
	for _, tagged := range tags {
		if tagged {
			return true
		}
	}
	return false
}
