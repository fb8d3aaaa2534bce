package dataset

import (
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/lavoro-tech/reranker/internal/logger"
	"github.com/lavoro-tech/reranker/internal/ontology"
)

// JD column names.
const (
	ColJDID                = "jd_id"
	ColJDTitle             = "title"
	ColCompanyName         = "company_name"
	ColCompanyNameNorm     = "company_name_normalized"
	ColRequirements        = "requirements"
	ColRequirementsNorm    = "requirements_normalized"
	ColNiceToHave          = "nice_to_have"
	ColNiceToHaveNorm      = "nice_to_have_normalized"
	ColConstraintsSen      = "constraints_seniority"
	ColConstraintsSenNorm  = "constraints_seniority_normalized"
	ColMinExpYears         = "min_experience_years"
	ColMinExpYearsNorm     = "min_experience_years_normalized"
	ColConstraintsLang     = "constraints_languages"
	ColConstraintsLangNorm = "constraints_languages_normalized"
	ColSalaryMin           = "salary_min"
	ColSalaryMax           = "salary_max"
	ColSalaryCurrency      = "salary_currency"
	ColSalaryNormalized    = "salary_normalized"
)

const (
	minExpYearsDefault = 2
	minExpYearsFloor   = 1
	minExpYearsCeil    = 10
)

// seniorityToYears backs the second tier of min-experience resolution.
var seniorityToYears = map[string]int{
	"junior": 1,
	"mid":    3,
	"senior": 5,
}

// seniorityExpectedYears flags inconsistent postings, e.g. "senior" with a
// 1-year requirement. Advisory only.
var seniorityExpectedYears = map[string][2]int{
	"junior": {0, 2},
	"mid":    {2, 5},
	"senior": {5, 15},
}

// NormalizeJD derives the canonical JD columns in place. Missing optional
// columns (company_name, min_experience_years) are created with neutral
// defaults and a logged notice; they never fail the stage.
func NormalizeJD(t *Table, ont *ontology.Ontology, log *zap.Logger) {
	log = logger.WithStage(log, "normalize", "jd")

	if t.HasColumn(ColRequirementsNorm) {
		log.Info("normalized columns already present, recomputing from raw columns")
	}

	if !t.HasColumn(ColCompanyName) {
		log.Info("optional column missing, creating empty", zap.String("column", ColCompanyName))
		t.EnsureColumn(ColCompanyName)
	}
	hasMinExp := t.HasColumn(ColMinExpYears)
	if !hasMinExp {
		log.Info("optional column missing, inferring from seniority", zap.String("column", ColMinExpYears))
	}

	for _, col := range []string{
		ColCompanyNameNorm,
		ColRequirementsNorm,
		ColNiceToHaveNorm,
		ColConstraintsSenNorm,
		ColMinExpYearsNorm,
		ColConstraintsLangNorm,
		ColSalaryNormalized,
	} {
		t.EnsureColumn(col)
	}

	inconsistent := 0
	for _, row := range t.Rows {
		row[ColCompanyNameNorm] = trimCell(row[ColCompanyName])
		row[ColRequirementsNorm] = NormalizeSkillList(row[ColRequirements], ont)
		row[ColNiceToHaveNorm] = NormalizeSkillList(row[ColNiceToHave], ont)

		seniority := ont.NormalizeSeniority(row[ColConstraintsSen])
		row[ColConstraintsSenNorm] = seniority

		minYears := resolveMinExperienceYears(row[ColMinExpYears], seniority)
		row[ColMinExpYearsNorm] = FormatInt(minYears)

		if warn := seniorityYearsWarning(seniority, minYears); warn != "" {
			inconsistent++
			log.Warn("inconsistent seniority requirement",
				zap.String("jd_id", row[ColJDID]),
				zap.String("detail", warn),
			)
		}

		row[ColConstraintsLangNorm] = NormalizeLanguageList(row[ColConstraintsLang], ont)
		row[ColSalaryNormalized] = CleanSalary(rebuildSalary(row))
	}

	log.Info("jd dataset normalized",
		zap.Int("rows", len(t.Rows)),
		zap.Int("inconsistent_seniority", inconsistent),
	)
}

// resolveMinExperienceYears applies the three-tier fallback: a valid numeric
// value (clamped into range), then the seniority table, then the default.
func resolveMinExperienceYears(raw, seniority string) int {
	if v, ok := ParseFloat(raw); ok {
		years := int(math.Trunc(v))
		if years < minExpYearsFloor {
			return minExpYearsFloor
		}
		if years > minExpYearsCeil {
			return minExpYearsCeil
		}
		return years
	}

	if years, ok := seniorityToYears[seniority]; ok {
		return years
	}

	return minExpYearsDefault
}

func seniorityYearsWarning(seniority string, minYears int) string {
	expected, ok := seniorityExpectedYears[seniority]
	if !ok {
		return ""
	}
	if minYears < expected[0] {
		return "requires fewer years than the seniority level implies"
	}
	if minYears > expected[1] {
		return "requires more years than the seniority level implies"
	}
	return ""
}

// rebuildSalary joins the structured salary fields back into one display
// string ("40000-55000 EUR").
func rebuildSalary(row Row) string {
	min, hasMin := ParseFloat(row[ColSalaryMin])
	max, hasMax := ParseFloat(row[ColSalaryMax])
	if !hasMin && !hasMax {
		return ""
	}

	var s string
	switch {
	case hasMin && hasMax:
		s = FormatInt(int(min)) + "-" + FormatInt(int(max))
	case hasMin:
		s = FormatInt(int(min))
	default:
		s = FormatInt(int(max))
	}

	if currency := trimCell(row[ColSalaryCurrency]); currency != "" {
		s += " " + currency
	}

	return s
}

func trimCell(s string) string {
	return strings.TrimSpace(s)
}
