// Package feature computes the interpretable match features for CV↔JD pairs.
// The feature names are an output contract consumed by the scoring and
// explanation stages; renaming one breaks downstream readers.
package feature

import (
	"regexp"
	"sort"
	"strings"

	"github.com/lavoro-tech/reranker/internal/dataset"
)

// Config holds the tunable feature parameters. Zero values are not usable;
// construct with Defaults and override from configuration.
type Config struct {
	ExperienceGapPenaltyFactor float64
	ExperienceBonusFactor      float64
	ExperienceBonusCap         float64
	RoleCoherentThreshold      float64
}

// Defaults returns the calibrated feature parameters.
func Defaults() Config {
	return Config{
		ExperienceGapPenaltyFactor: 0.1,
		ExperienceBonusFactor:      0.05,
		ExperienceBonusCap:         0.25,
		RoleCoherentThreshold:      0.2,
	}
}

// seniorityLevels maps the canonical seniority strings to ordinals; anything
// else (including empty) is 0, which keeps gap arithmetic neutral.
var seniorityLevels = map[string]int{
	"junior": 1,
	"mid":    2,
	"senior": 3,
}

var roleStopwords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "of": {}, "in": {}, "at": {},
	"for": {}, "and": {}, "or": {}, "di": {}, "e": {}, "il": {}, "la": {},
}

var (
	leadingJunkPattern  = regexp.MustCompile(`^[\*e\s]+`)
	yearsTokenPattern   = regexp.MustCompile(`\d+\+?\s*(years?|anni)`)
	yearsEnglishPattern = regexp.MustCompile(`(\d+)\+?\s*years?`)
	yearsItalianPattern = regexp.MustCompile(`(\d+)\+?\s*anni`)
	currentRolePattern  = regexp.MustCompile(`^([^@]+)\s*@`)
	wordPattern         = regexp.MustCompile(`\w+`)
)

// Details carries the human-readable evidence behind the numeric features:
// the matched skill lists, role strings and seniority labels used by the
// output and explanation builders.
type Details struct {
	CVSkills          []string
	JDRequirements    []string
	JDNiceToHave      []string
	SkillsMatched     []string
	SkillsNiceMatched []string
	CVRole            string
	JDTitle           string
	SeniorityCV       string
	SeniorityJD       string
}

// ParseSkillSet tokenizes a comma-separated skill string into a set:
// lowercase, leading junk characters stripped.
func ParseSkillSet(s string) map[string]struct{} {
	out := make(map[string]struct{})
	if strings.TrimSpace(s) == "" {
		return out
	}
	for _, token := range strings.Split(s, ",") {
		clean := leadingJunkPattern.ReplaceAllString(strings.ToLower(strings.TrimSpace(token)), "")
		if clean != "" {
			out[clean] = struct{}{}
		}
	}
	return out
}

// RequiredYears resolves the JD's minimum experience requirement with a
// three-tier priority: the normalized column, the raw column, then a
// years-pattern scan of the free-text requirements. 0 means no requirement.
func RequiredYears(jdRow dataset.Row) float64 {
	if v, ok := dataset.ParseFloat(jdRow[dataset.ColMinExpYearsNorm]); ok {
		return v
	}
	if v, ok := dataset.ParseFloat(jdRow[dataset.ColMinExpYears]); ok {
		return v
	}
	return yearsFromText(jdRow[dataset.ColRequirements])
}

func yearsFromText(s string) float64 {
	lowered := strings.ToLower(s)
	for _, pattern := range []*regexp.Regexp{yearsEnglishPattern, yearsItalianPattern} {
		if m := pattern.FindStringSubmatch(lowered); m != nil {
			v, _ := dataset.ParseFloat(m[1])
			return v
		}
	}
	return 0
}

// ExtractCurrentRole returns the lowercased title preceding the first "@" of
// the experience string, which by construction is the most recent position.
func ExtractCurrentRole(experience string) string {
	if m := currentRolePattern.FindStringSubmatch(experience); m != nil {
		return strings.ToLower(strings.TrimSpace(m[1]))
	}
	return ""
}

// RoleSimilarity computes the stopword-filtered token Jaccard between the CV
// role and the JD title, plus a flag for any token overlap.
func RoleSimilarity(cvRole, jdTitle string) (jaccard float64, tokenMatch int) {
	if cvRole == "" || jdTitle == "" {
		return 0, 0
	}

	cvTokens := roleTokens(cvRole)
	jdTokens := roleTokens(jdTitle)
	if len(cvTokens) == 0 || len(jdTokens) == 0 {
		return 0, 0
	}

	intersection := 0
	union := len(jdTokens)
	for token := range cvTokens {
		if _, ok := jdTokens[token]; ok {
			intersection++
		} else {
			union++
		}
	}

	if intersection > 0 {
		tokenMatch = 1
	}
	return float64(intersection) / float64(union), tokenMatch
}

func roleTokens(s string) map[string]struct{} {
	tokens := make(map[string]struct{})
	for _, token := range wordPattern.FindAllString(strings.ToLower(s), -1) {
		if _, stop := roleStopwords[token]; !stop {
			tokens[token] = struct{}{}
		}
	}
	return tokens
}

// ComputePair computes every feature for one CV↔JD pair. The semantic score
// is copied into cosine_similarity_normalized as-is; the batch engine
// overwrites it with the per-JD min-max value afterwards.
func ComputePair(cvRow, jdRow dataset.Row, cosine float64, cfg Config) (map[string]float64, Details) {
	features := make(map[string]float64, 32)
	var details Details

	features["cosine_similarity_raw"] = cosine
	features["cosine_similarity_normalized"] = cosine

	// Skills.
	cvSkills := ParseSkillSet(cvRow[dataset.ColSkillsNormalized])
	jdRequirements := ParseSkillSet(jdRow[dataset.ColRequirementsNorm])
	jdNice := ParseSkillSet(jdRow[dataset.ColNiceToHaveNorm])

	// Requirement tokens that are really a years annotation ("3+ years")
	// are not skills.
	for token := range jdRequirements {
		if yearsTokenPattern.MatchString(token) {
			delete(jdRequirements, token)
		}
	}

	coreOverlap := intersect(cvSkills, jdRequirements)
	niceOverlap := intersect(cvSkills, jdNice)
	allJD := union(jdRequirements, jdNice)
	allOverlap := intersect(cvSkills, allJD)

	features["skill_overlap_core_abs"] = float64(len(coreOverlap))
	features["skill_overlap_core_norm"] = ratio(len(coreOverlap), len(jdRequirements))
	features["skill_overlap_nice_abs"] = float64(len(niceOverlap))
	features["skill_overlap_nice_norm"] = ratio(len(niceOverlap), len(jdNice))
	features["skill_coverage_total"] = ratio(len(allOverlap), len(allJD))
	features["must_have_missing"] = float64(len(jdRequirements) - len(coreOverlap))

	details.CVSkills = sortedKeys(cvSkills)
	details.JDRequirements = sortedKeys(jdRequirements)
	details.JDNiceToHave = sortedKeys(jdNice)
	details.SkillsMatched = sortedKeys(coreOverlap)
	details.SkillsNiceMatched = sortedKeys(niceOverlap)

	// Experience.
	cvYears := cvRow.Float(dataset.ColYearsOfExperience)
	jdYears := RequiredYears(jdRow)
	gap := cvYears - jdYears

	features["years_experience_cv"] = cvYears
	features["years_required_jd"] = jdYears
	features["experience_gap"] = gap
	features["experience_gap_abs"] = abs(gap)
	features["experience_meets_requirement"] = boolFeature(cvYears >= jdYears)
	if gap < 0 {
		features["experience_penalty_soft"] = abs(gap) * cfg.ExperienceGapPenaltyFactor
	} else {
		features["experience_penalty_soft"] = 0
	}
	features["experience_bonus"] = experienceBonus(gap, cfg)

	// Seniority.
	seniorityCV := strings.TrimSpace(cvRow[dataset.ColInferredSeniority])
	seniorityJD := strings.TrimSpace(jdRow[dataset.ColConstraintsSenNorm])
	cvLevel := seniorityLevels[strings.ToLower(seniorityCV)]
	jdLevel := seniorityLevels[strings.ToLower(seniorityJD)]
	seniorityGap := cvLevel - jdLevel

	details.SeniorityCV = seniorityCV
	details.SeniorityJD = seniorityJD
	features["seniority_cv_level"] = float64(cvLevel)
	features["seniority_jd_level"] = float64(jdLevel)
	features["seniority_gap"] = float64(seniorityGap)
	features["seniority_match"] = boolFeature(cvLevel == jdLevel)
	features["seniority_mismatch_strong"] = boolFeature(seniorityGap >= 2 || seniorityGap <= -2)
	features["seniority_underskilled"] = boolFeature(cvLevel < jdLevel)

	// Role coherence.
	cvRole := ExtractCurrentRole(cvRow[dataset.ColExperience])
	jdTitle := strings.ToLower(strings.TrimSpace(jdRow[dataset.ColJDTitle]))
	jaccard, tokenMatch := RoleSimilarity(cvRole, jdTitle)

	details.CVRole = cvRole
	details.JDTitle = strings.TrimSpace(jdRow[dataset.ColJDTitle])
	features["role_similarity_jaccard"] = jaccard
	features["role_token_match"] = float64(tokenMatch)
	features["role_coherent"] = boolFeature(jaccard > cfg.RoleCoherentThreshold)

	// CV completeness.
	hasSummary := presence(cvRow[dataset.ColSummary])
	hasExperience := presence(cvRow[dataset.ColExperience])
	hasEducation := presence(cvRow[dataset.ColEducation])
	hasSkills := presence(cvRow[dataset.ColSkillsNormalized])
	hasLanguages := presence(cvRow[dataset.ColLangsNormalized])

	features["cv_has_summary"] = hasSummary
	features["cv_has_experience"] = hasExperience
	features["cv_has_education"] = hasEducation
	features["cv_has_skills"] = hasSkills
	features["cv_has_languages"] = hasLanguages
	features["cv_completeness_score"] = (hasSummary + hasExperience + hasEducation + hasSkills + hasLanguages) / 5
	features["cv_skills_count"] = float64(len(cvSkills))

	return features, details
}

func experienceBonus(gap float64, cfg Config) float64 {
	if gap <= 0 {
		return 0
	}
	bonus := gap * cfg.ExperienceBonusFactor
	if bonus > cfg.ExperienceBonusCap {
		return cfg.ExperienceBonusCap
	}
	return bonus
}

func intersect(a, b map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{})
	for k := range a {
		if _, ok := b[k]; ok {
			out[k] = struct{}{}
		}
	}
	return out
}

func union(a, b map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{}, len(a)+len(b))
	for k := range a {
		out[k] = struct{}{}
	}
	for k := range b {
		out[k] = struct{}{}
	}
	return out
}

func ratio(n, d int) float64 {
	if d == 0 {
		return 0
	}
	return float64(n) / float64(d)
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func boolFeature(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func presence(s string) float64 {
	return boolFeature(strings.TrimSpace(s) != "")
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
