package dataset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/lavoro-tech/reranker/internal/ontology"
)

const ontologyFixture = `{
  "skill_mappings": {
    "js": "JavaScript",
    "python": "Python",
    "reactjs": "React",
    "postgres": "PostgreSQL"
  },
  "seniority_mappings": {
    "senior": "senior",
    "junior": "junior",
    "mid": "mid"
  },
  "cefr_mappings": {
    "native": "C2",
    "madrelingua": "C2",
    "fluent": "C1",
    "intermediate": "B1"
  }
}`

func testOntology(t *testing.T) *ontology.Ontology {
	t.Helper()

	path := filepath.Join(t.TempDir(), "skill_ontology.json")
	if err := os.WriteFile(path, []byte(ontologyFixture), 0o644); err != nil {
		t.Fatal(err)
	}

	ont, err := ontology.Load(path, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return ont
}

func TestNormalizeSkillList(t *testing.T) {
	ont := testOntology(t)

	tests := []struct {
		name   string
		input  string
		expect string
	}{
		{
			name:   "maps and dedupes preserving order",
			input:  "js, Python, JS, reactjs",
			expect: "JavaScript, Python, React",
		},
		{
			name:   "strips parenthetical qualifiers before mapping",
			input:  "Python (Advanced), postgres (3 years)",
			expect: "Python, PostgreSQL",
		},
		{
			name:   "unmapped skill capitalized",
			input:  "KUBERNETES",
			expect: "Kubernetes",
		},
		{name: "empty", input: "  ", expect: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeSkillList(tt.input, ont); got != tt.expect {
				t.Fatalf("NormalizeSkillList(%q) = %q, want %q", tt.input, got, tt.expect)
			}
		})
	}
}

func TestNormalizeLanguageList(t *testing.T) {
	ont := testOntology(t)

	tests := []struct {
		name   string
		input  string
		expect string
	}{
		{
			name:   "levels mapped to cefr",
			input:  "English (fluent), italiano (madrelingua)",
			expect: "English (C1), Italiano (C2)",
		},
		{
			name:   "missing level defaults to B2",
			input:  "spanish",
			expect: "Spanish (B2)",
		},
		{
			name:   "unknown level defaults to B2",
			input:  "German (conversational)",
			expect: "German (B2)",
		},
		{name: "empty", input: "", expect: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeLanguageList(tt.input, ont); got != tt.expect {
				t.Fatalf("NormalizeLanguageList(%q) = %q, want %q", tt.input, got, tt.expect)
			}
		})
	}
}

func TestCleanSalary(t *testing.T) {
	tests := []struct {
		input  string
		expect string
	}{
		{"circa 40k EUR", "40k EUR"},
		{"About 50000  -  60000", "50000 - 60000"},
		{"approximately   45k", "45k"},
		{"40000-55000 EUR", "40000-55000 EUR"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := CleanSalary(tt.input); got != tt.expect {
			t.Errorf("CleanSalary(%q) = %q, want %q", tt.input, got, tt.expect)
		}
	}
}
