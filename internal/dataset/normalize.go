package dataset

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/lavoro-tech/reranker/internal/ontology"
)

var (
	parentheticalPattern = regexp.MustCompile(`\([^)]*\)`)
	languagePattern      = regexp.MustCompile(`([^(]+)\(([^)]+)\)`)
	vagueWordPattern     = regexp.MustCompile(`(?i)\b(circa|about|around|approximately)\b`)
	whitespacePattern    = regexp.MustCompile(`\s+`)
)

// NormalizeSkillList canonicalizes a comma-separated skill string: drops
// parenthetical qualifiers, maps each token through the ontology and removes
// duplicates while keeping first-seen order.
func NormalizeSkillList(skills string, ont *ontology.Ontology) string {
	if strings.TrimSpace(skills) == "" {
		return ""
	}

	skills = parentheticalPattern.ReplaceAllString(skills, "")

	seen := make(map[string]struct{})
	var unique []string
	for _, token := range strings.Split(skills, ",") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		normalized := ont.NormalizeSkill(token)
		if normalized == "" {
			continue
		}
		if _, dup := seen[normalized]; dup {
			continue
		}
		seen[normalized] = struct{}{}
		unique = append(unique, normalized)
	}

	return strings.Join(unique, ", ")
}

// NormalizeLanguageList rewrites "English (fluent), Italiano (madrelingua)"
// as "English (C1), Italiano (C2)". Entries without a level default to B2.
func NormalizeLanguageList(languages string, ont *ontology.Ontology) string {
	if strings.TrimSpace(languages) == "" {
		return ""
	}

	var normalized []string
	for _, entry := range strings.Split(languages, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		name, level := normalizeLanguage(entry, ont)
		if name == "" {
			continue
		}
		normalized = append(normalized, fmt.Sprintf("%s (%s)", name, level))
	}

	return strings.Join(normalized, ", ")
}

func normalizeLanguage(entry string, ont *ontology.Ontology) (name, level string) {
	if m := languagePattern.FindStringSubmatch(entry); m != nil {
		return ontology.Capitalize(m[1]), ont.NormalizeCEFR(m[2])
	}
	return ontology.Capitalize(entry), ontology.DefaultCEFR
}

// CleanSalary strips vague qualifier words ("circa 40k" → "40k") and
// collapses whitespace. Salary text stays free-form otherwise.
func CleanSalary(salary string) string {
	cleaned := vagueWordPattern.ReplaceAllString(strings.TrimSpace(salary), "")
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(cleaned, " "))
}
