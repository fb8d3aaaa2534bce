package dataset

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func cvTable() *Table {
	return &Table{
		Columns: []string{"user_id", "summary", "experience", "education", "skills", "languages", "pref_salary_expectation", "tag_women"},
		Rows: []Row{
			{
				"user_id":                 "u1",
				"summary":                 "Backend developer",
				"experience":              "Senior Dev @ Acme [2018-01 - 2024-01]",
				"education":               "MSc",
				"skills":                  "python (advanced), js, Python",
				"languages":               "English (fluent), Italiano (madrelingua)",
				"pref_salary_expectation": "circa 45k EUR",
				"tag_women":               "True",
			},
			{
				"user_id":                 "u2",
				"summary":                 "",
				"experience":              "Intern @ Startup [2024-01 - 2025-01]",
				"education":               "",
				"skills":                  "reactjs",
				"languages":               "",
				"pref_salary_expectation": "",
				"tag_women":               "",
			},
		},
	}
}

func TestNormalizeCV(t *testing.T) {
	withFixedNow(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))

	table := cvTable()
	NormalizeCV(table, testOntology(t), nil)

	first := table.Rows[0]
	if got := first["skills_normalized"]; got != "Python, JavaScript" {
		t.Errorf("skills_normalized = %q", got)
	}
	if got := first["languages_normalized"]; got != "English (C1), Italiano (C2)" {
		t.Errorf("languages_normalized = %q", got)
	}
	if got := first["years_of_experience"]; got != "6.0" {
		t.Errorf("years_of_experience = %q", got)
	}
	if got := first["inferred_seniority"]; got != "senior" {
		t.Errorf("inferred_seniority = %q", got)
	}
	if got := first["pref_salary_normalized"]; got != "45k EUR" {
		t.Errorf("pref_salary_normalized = %q", got)
	}
	if got := first["tag_women"]; got != "True" {
		t.Errorf("tag_women = %q", got)
	}

	second := table.Rows[1]
	if got := second["years_of_experience"]; got != "1.0" {
		t.Errorf("years_of_experience = %q", got)
	}
	if got := second["inferred_seniority"]; got != "junior" {
		t.Errorf("inferred_seniority = %q", got)
	}
	if got := second["tag_women"]; got != "" {
		t.Errorf("inactive tag should stay empty, got %q", got)
	}
}

func TestNormalizeCVIdempotent(t *testing.T) {
	withFixedNow(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	ont := testOntology(t)

	table := cvTable()
	NormalizeCV(table, ont, nil)

	once := make([]Row, len(table.Rows))
	for i, row := range table.Rows {
		copied := make(Row, len(row))
		for k, v := range row {
			copied[k] = v
		}
		once[i] = copied
	}
	columnsOnce := append([]string(nil), table.Columns...)

	NormalizeCV(table, ont, nil)

	if !reflect.DeepEqual(table.Columns, columnsOnce) {
		t.Fatalf("columns changed on second run: %v vs %v", table.Columns, columnsOnce)
	}
	for i, row := range table.Rows {
		if !reflect.DeepEqual(row, once[i]) {
			t.Fatalf("row %d changed on second run:\n first: %v\nsecond: %v", i, once[i], row)
		}
	}
}

func TestNormalizeCVRoundTripThroughCSV(t *testing.T) {
	withFixedNow(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	ont := testOntology(t)

	table := cvTable()
	NormalizeCV(table, ont, nil)

	path := filepath.Join(t.TempDir(), "cv_dataset_normalized.csv")
	if err := table.WriteCSV(path); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	first, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	reloaded, err := ReadCSV(path)
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	NormalizeCV(reloaded, ont, nil)
	if err := reloaded.WriteCSV(path); err != nil {
		t.Fatalf("WriteCSV second pass: %v", err)
	}
	second, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	if string(first) != string(second) {
		t.Fatalf("normalizing a normalized dataset changed it:\n first:\n%s\nsecond:\n%s", first, second)
	}
}
