package dataset

import (
	"testing"
)

func TestResolveMinExperienceYears(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		seniority string
		expect    int
	}{
		{name: "valid value wins", raw: "4", seniority: "junior", expect: 4},
		{name: "float truncated", raw: "3.7", seniority: "", expect: 3},
		{name: "clamped to ceiling", raw: "25", seniority: "mid", expect: 10},
		{name: "clamped to floor", raw: "0", seniority: "senior", expect: 1},
		{name: "missing falls back to seniority", raw: "", seniority: "senior", expect: 5},
		{name: "junior seniority", raw: "n/a", seniority: "junior", expect: 1},
		{name: "no signal uses default", raw: "", seniority: "", expect: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := resolveMinExperienceYears(tt.raw, tt.seniority); got != tt.expect {
				t.Fatalf("resolveMinExperienceYears(%q, %q) = %d, want %d", tt.raw, tt.seniority, got, tt.expect)
			}
		})
	}
}

func TestNormalizeJD(t *testing.T) {
	ont := testOntology(t)

	table := &Table{
		Columns: []string{"jd_id", "title", "requirements", "nice_to_have", "constraints_seniority", "min_experience_years", "constraints_languages", "salary_min", "salary_max", "salary_currency"},
		Rows: []Row{
			{
				"jd_id":                 "jd1",
				"title":                 "Senior Backend Engineer",
				"requirements":          "python, postgres (3 years)",
				"nice_to_have":          "js",
				"constraints_seniority": "Senior level",
				"min_experience_years":  "",
				"constraints_languages": "English (fluent)",
				"salary_min":            "40000",
				"salary_max":            "55000",
				"salary_currency":       "EUR",
			},
			{
				"jd_id":                 "jd2",
				"title":                 "Junior Developer",
				"requirements":          "reactjs",
				"nice_to_have":          "",
				"constraints_seniority": "",
				"min_experience_years":  "7",
				"constraints_languages": "",
				"salary_min":            "",
				"salary_max":            "30000",
				"salary_currency":       "",
			},
		},
	}

	NormalizeJD(table, ont, nil)

	if !table.HasColumn("company_name") || !table.HasColumn("company_name_normalized") {
		t.Fatal("missing company_name columns must be created")
	}

	first := table.Rows[0]
	if got := first["requirements_normalized"]; got != "Python, PostgreSQL" {
		t.Errorf("requirements_normalized = %q", got)
	}
	if got := first["nice_to_have_normalized"]; got != "JavaScript" {
		t.Errorf("nice_to_have_normalized = %q", got)
	}
	if got := first["constraints_seniority_normalized"]; got != "senior" {
		t.Errorf("constraints_seniority_normalized = %q", got)
	}
	if got := first["min_experience_years_normalized"]; got != "5" {
		t.Errorf("min_experience_years_normalized = %q, want seniority fallback 5", got)
	}
	if got := first["constraints_languages_normalized"]; got != "English (C1)" {
		t.Errorf("constraints_languages_normalized = %q", got)
	}
	if got := first["salary_normalized"]; got != "40000-55000 EUR" {
		t.Errorf("salary_normalized = %q", got)
	}

	second := table.Rows[1]
	if got := second["constraints_seniority_normalized"]; got != "mid" {
		t.Errorf("empty seniority should default to mid, got %q", got)
	}
	if got := second["min_experience_years_normalized"]; got != "7" {
		t.Errorf("explicit value must win, got %q", got)
	}
	if got := second["salary_normalized"]; got != "30000" {
		t.Errorf("salary_normalized = %q", got)
	}
	if got := second["company_name_normalized"]; got != "" {
		t.Errorf("company_name_normalized = %q, want empty", got)
	}
}
