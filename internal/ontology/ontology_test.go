package ontology

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

const fixture = `{
  "skill_mappings": {
    "_comment": "raw -> canonical",
    "reactjs": "React",
    "golang": "Go",
    "postgres": "PostgreSQL"
  },
  "seniority_mappings": {
    "_comment": "keyword -> level",
    "senior": "senior",
    "lead": "senior",
    "junior": "junior",
    "entry level": "junior",
    "mid": "mid"
  },
  "cefr_mappings": {
    "madrelingua": "C2",
    "fluent": "C1",
    "intermediate": "B1"
  },
  "_metadata": {
    "version": "1.0"
  },
  "unmapped_skills": {
    "_comment": "Skills found in the datasets but not mapped yet",
    "skills": [
      {"skill": "Terraformm", "frequency": 3, "suggested_canonical": "Terraformm"}
    ]
  }
}`

func loadFixture(t *testing.T) *Ontology {
	t.Helper()

	path := filepath.Join(t.TempDir(), "skill_ontology.json")
	if err := os.WriteFile(path, []byte(fixture), 0o644); err != nil {
		t.Fatal(err)
	}

	o, err := Load(path, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return o
}

func TestNormalizeSkill(t *testing.T) {
	o := loadFixture(t)

	tests := []struct {
		name   string
		input  string
		expect string
	}{
		{name: "mapped lowercase", input: "reactjs", expect: "React"},
		{name: "mapped with case and padding", input: "  ReactJS  ", expect: "React"},
		{name: "unmapped falls back to capitalized", input: "KUBERNETES", expect: "Kubernetes"},
		{name: "empty stays empty", input: "   ", expect: ""},
		{name: "comment key is not a mapping", input: "_comment", expect: "_comment"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := o.NormalizeSkill(tt.input); got != tt.expect {
				t.Fatalf("NormalizeSkill(%q) = %q, want %q", tt.input, got, tt.expect)
			}
		})
	}
}

func TestNormalizeSkillTally(t *testing.T) {
	o := loadFixture(t)

	o.NormalizeSkill("Kubernetes")
	o.NormalizeSkill("kubernetes ")
	o.NormalizeSkill("Kubernetes")

	// Already in the persisted backlog, must not be tallied again.
	o.NormalizeSkill("Terraformm")

	fresh := o.NewlyUnmapped()
	if len(fresh) != 2 {
		t.Fatalf("expected 2 newly unmapped skills, got %d: %+v", len(fresh), fresh)
	}
	if fresh[0].Skill != "Kubernetes" || fresh[0].Frequency != 2 {
		t.Fatalf("unexpected top entry: %+v", fresh[0])
	}
	if fresh[1].Skill != "kubernetes" || fresh[1].Frequency != 1 {
		t.Fatalf("case variants must tally separately, got %+v", fresh[1])
	}
}

func TestNormalizeSeniority(t *testing.T) {
	o := loadFixture(t)

	tests := []struct {
		name   string
		input  string
		expect string
	}{
		{name: "direct keyword", input: "Senior Backend Engineer", expect: "senior"},
		{name: "longer keyword wins", input: "entry level developer", expect: "junior"},
		{name: "years pattern junior", input: "1 year of coding", expect: "junior"},
		{name: "years pattern mid", input: "3+ years experience", expect: "mid"},
		{name: "years pattern senior", input: "7 anni di esperienza", expect: "senior"},
		{name: "no signal defaults", input: "software developer", expect: "mid"},
		{name: "empty defaults", input: "", expect: "mid"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := o.NormalizeSeniority(tt.input); got != tt.expect {
				t.Fatalf("NormalizeSeniority(%q) = %q, want %q", tt.input, got, tt.expect)
			}
		})
	}
}

func TestNormalizeCEFR(t *testing.T) {
	o := loadFixture(t)

	tests := []struct {
		name   string
		input  string
		expect string
	}{
		{name: "exact match", input: "madrelingua", expect: "C2"},
		{name: "case insensitive", input: "Fluent", expect: "C1"},
		{name: "unknown defaults", input: "conversational", expect: "B2"},
		{name: "empty defaults", input: "", expect: "B2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := o.NormalizeCEFR(tt.input); got != tt.expect {
				t.Fatalf("NormalizeCEFR(%q) = %q, want %q", tt.input, got, tt.expect)
			}
		})
	}
}

func TestSeniorityFromYears(t *testing.T) {
	tests := []struct {
		years  float64
		expect string
	}{
		{0, "junior"},
		{1.9, "junior"},
		{2, "mid"},
		{4.9, "mid"},
		{5, "senior"},
		{12, "senior"},
	}

	for _, tt := range tests {
		if got := SeniorityFromYears(tt.years); got != tt.expect {
			t.Errorf("SeniorityFromYears(%v) = %q, want %q", tt.years, got, tt.expect)
		}
	}
}

func TestSaveMergesAndUpdatesMetadata(t *testing.T) {
	o := loadFixture(t)

	o.NormalizeSkill("Kubernetes")
	o.NormalizeSkill("Kubernetes")
	o.NormalizeSkill("Datadog")

	if err := o.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	data, err := os.ReadFile(o.path)
	if err != nil {
		t.Fatal(err)
	}

	var doc struct {
		SkillMappings map[string]string `json:"skill_mappings"`
		Metadata      map[string]any    `json:"_metadata"`
		Unmapped      struct {
			Comment string          `json:"_comment"`
			Skills  []UnmappedSkill `json:"skills"`
		} `json:"unmapped_skills"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("reparsing saved ontology: %v", err)
	}

	if _, ok := doc.SkillMappings["_comment"]; !ok {
		t.Error("comment keys must survive a save")
	}
	if doc.Metadata["version"] != "1.0" {
		t.Errorf("existing metadata lost: %v", doc.Metadata)
	}
	if doc.Metadata["total_mappings"] != float64(3) {
		t.Errorf("total_mappings = %v, want 3", doc.Metadata["total_mappings"])
	}
	if doc.Metadata["unmapped_skills_count"] != float64(3) {
		t.Errorf("unmapped_skills_count = %v, want 3", doc.Metadata["unmapped_skills_count"])
	}
	if doc.Metadata["last_updated"] == nil {
		t.Error("last_updated missing")
	}

	want := []string{"Terraformm", "Kubernetes", "Datadog"}
	if len(doc.Unmapped.Skills) != len(want) {
		t.Fatalf("backlog length = %d, want %d", len(doc.Unmapped.Skills), len(want))
	}
	for i, skill := range want {
		if doc.Unmapped.Skills[i].Skill != skill {
			t.Errorf("backlog[%d] = %q, want %q (frequency-desc order)", i, doc.Unmapped.Skills[i].Skill, skill)
		}
	}
}

func TestSaveIdempotent(t *testing.T) {
	o := loadFixture(t)
	o.NormalizeSkill("Kubernetes")

	if err := o.Save(); err != nil {
		t.Fatalf("first Save: %v", err)
	}
	first, err := os.ReadFile(o.path)
	if err != nil {
		t.Fatal(err)
	}

	if err := o.Save(); err != nil {
		t.Fatalf("second Save: %v", err)
	}
	second, err := os.ReadFile(o.path)
	if err != nil {
		t.Fatal(err)
	}

	// last_updated may differ between the two writes.
	var a, b map[string]json.RawMessage
	if err := json.Unmarshal(first, &a); err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(second, &b); err != nil {
		t.Fatal(err)
	}
	if string(a["unmapped_skills"]) != string(b["unmapped_skills"]) {
		t.Error("unmapped backlog must not grow on repeated saves")
	}
	if string(a["skill_mappings"]) != string(b["skill_mappings"]) {
		t.Error("skill mappings must be stable across saves")
	}
}

func TestAddMappingClearsBacklog(t *testing.T) {
	o := loadFixture(t)

	o.AddMapping("Terraformm", "Terraform")

	if got := o.NormalizeSkill("terraformm"); got != "Terraform" {
		t.Fatalf("NormalizeSkill after AddMapping = %q, want Terraform", got)
	}
	if backlog := o.Backlog(); len(backlog) != 0 {
		t.Fatalf("backlog should be empty after curation, got %+v", backlog)
	}
}
