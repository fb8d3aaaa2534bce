package dataset

import (
	"go.uber.org/zap"

	"github.com/lavoro-tech/reranker/internal/logger"
	"github.com/lavoro-tech/reranker/internal/ontology"
)

// CV column names. The *_normalized and derived columns are the stage's
// output contract; everything else comes from ingestion.
const (
	ColUserID             = "user_id"
	ColSkills             = "skills"
	ColSkillsNormalized   = "skills_normalized"
	ColLanguages          = "languages"
	ColLangsNormalized    = "languages_normalized"
	ColExperience         = "experience"
	ColInferredSeniority  = "inferred_seniority"
	ColYearsOfExperience  = "years_of_experience"
	ColPrefSalary         = "pref_salary_expectation"
	ColPrefSalaryNorm     = "pref_salary_normalized"
	ColSummary            = "summary"
	ColEducation          = "education"
	TagColumnPrefix       = "tag_"
)

// NormalizeCV derives the canonical CV columns in place. Derived columns are
// always recomputed from the raw ones, so running the stage on an already
// normalized table yields identical output.
func NormalizeCV(t *Table, ont *ontology.Ontology, log *zap.Logger) {
	log = logger.WithStage(log, "normalize", "cv")

	if t.HasColumn(ColSkillsNormalized) {
		log.Info("normalized columns already present, recomputing from raw columns")
	}

	for _, col := range []string{
		ColSkillsNormalized,
		ColLangsNormalized,
		ColInferredSeniority,
		ColYearsOfExperience,
		ColPrefSalaryNorm,
	} {
		t.EnsureColumn(col)
	}

	tagColumns := t.ColumnsWithPrefix(TagColumnPrefix)

	for _, row := range t.Rows {
		row[ColSkillsNormalized] = NormalizeSkillList(row[ColSkills], ont)
		row[ColLangsNormalized] = NormalizeLanguageList(row[ColLanguages], ont)

		years := YearsOfExperience(row[ColExperience])
		row[ColYearsOfExperience] = FormatFloat(years, 1)
		// Seniority comes from computed years, never from a title keyword.
		row[ColInferredSeniority] = ontology.SeniorityFromYears(years)

		row[ColPrefSalaryNorm] = CleanSalary(row[ColPrefSalary])

		for _, tag := range tagColumns {
			if Truthy(row[tag]) {
				row[tag] = "True"
			} else {
				row[tag] = ""
			}
		}
	}

	log.Info("cv dataset normalized",
		zap.Int("rows", len(t.Rows)),
		zap.Int("tag_columns", len(tagColumns)),
		zap.Int("skill_mappings", ont.SkillCount()),
	)
}
