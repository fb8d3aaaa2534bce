// Package ontology holds the persisted canonicalization tables for skills,
// seniority labels and CEFR language levels, together with the running tally
// of skill strings that no mapping covers yet.
package ontology

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"
)

const (
	// DefaultSeniority is returned whenever no seniority signal can be
	// extracted. Absence of signal must not penalize downstream scoring,
	// so the neutral middle level is used instead of an "unknown" marker.
	DefaultSeniority = "mid"
	// DefaultCEFR is the neutral language level used on lookup miss.
	DefaultCEFR = "B2"

	unmappedComment = "Skills found in the datasets but not mapped yet"
)

var yearsPattern = regexp.MustCompile(`(\d+)\+?\s*(years|anni)`)

// UnmappedSkill is one entry of the persisted unmapped-skill backlog.
type UnmappedSkill struct {
	Skill              string `json:"skill"`
	Frequency          int    `json:"frequency"`
	SuggestedCanonical string `json:"suggested_canonical"`
}

type document struct {
	SkillMappings     map[string]string `json:"skill_mappings"`
	SeniorityMappings map[string]string `json:"seniority_mappings"`
	CEFRMappings      map[string]string `json:"cefr_mappings"`
	Metadata          map[string]any    `json:"_metadata"`
	Unmapped          *unmappedSection  `json:"unmapped_skills,omitempty"`
}

type unmappedSection struct {
	Comment string          `json:"_comment,omitempty"`
	Skills  []UnmappedSkill `json:"skills"`
}

type seniorityRule struct {
	keyword string
	level   string
}

// Ontology is the in-memory mapping state. It is loaded once per run,
// consulted read-mostly during normalization, and written back exactly once
// at the end of the run via Save.
type Ontology struct {
	path   string
	logger *zap.Logger

	skills    map[string]string
	seniority []seniorityRule
	cefr      map[string]string

	// raw maps keep comment keys so Save round-trips the document.
	rawSkills    map[string]string
	rawSeniority map[string]string
	rawCEFR      map[string]string

	metadata map[string]any

	tally            map[string]int
	previousUnmapped map[string]struct{}
	persisted        []UnmappedSkill
}

// Load reads the ontology document from path. A missing or unreadable file is
// fatal to the run: every downstream normalization depends on these tables.
func Load(path string, logger *zap.Logger) (*Ontology, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading ontology %q: %w", path, err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing ontology %q: %w", path, err)
	}

	o := &Ontology{
		path:             path,
		logger:           logger,
		skills:           make(map[string]string),
		cefr:             make(map[string]string),
		rawSkills:        doc.SkillMappings,
		rawSeniority:     doc.SeniorityMappings,
		rawCEFR:          doc.CEFRMappings,
		metadata:         doc.Metadata,
		tally:            make(map[string]int),
		previousUnmapped: make(map[string]struct{}),
	}

	if o.rawSkills == nil {
		o.rawSkills = map[string]string{}
	}
	if o.rawSeniority == nil {
		o.rawSeniority = map[string]string{}
	}
	if o.rawCEFR == nil {
		o.rawCEFR = map[string]string{}
	}
	if o.metadata == nil {
		o.metadata = map[string]any{}
	}

	// Keys prefixed with "_" are comments inside the document, not mappings.
	for k, v := range o.rawSkills {
		if !strings.HasPrefix(k, "_") {
			o.skills[Fold(k)] = v
		}
	}
	for k, v := range o.rawCEFR {
		if !strings.HasPrefix(k, "_") {
			o.cefr[Fold(k)] = v
		}
	}
	for k, v := range o.rawSeniority {
		if !strings.HasPrefix(k, "_") {
			o.seniority = append(o.seniority, seniorityRule{keyword: Fold(k), level: v})
		}
	}

	// Longer keywords first so "senior engineer" wins over "senior" and the
	// scan order stays deterministic across runs.
	sort.Slice(o.seniority, func(i, j int) bool {
		if len(o.seniority[i].keyword) != len(o.seniority[j].keyword) {
			return len(o.seniority[i].keyword) > len(o.seniority[j].keyword)
		}
		return o.seniority[i].keyword < o.seniority[j].keyword
	})

	if doc.Unmapped != nil {
		o.persisted = doc.Unmapped.Skills
		for _, item := range doc.Unmapped.Skills {
			o.previousUnmapped[item.Skill] = struct{}{}
		}
	}

	logger.Info("ontology loaded",
		zap.String("path", path),
		zap.Int("skill_mappings", len(o.skills)),
		zap.Int("seniority_mappings", len(o.seniority)),
		zap.Int("cefr_mappings", len(o.cefr)),
		zap.Int("unmapped_backlog", len(o.persisted)),
	)

	return o, nil
}

// Fold normalizes a token for table lookup: unicode NFKC, trim, lowercase.
func Fold(s string) string {
	return strings.ToLower(strings.TrimSpace(norm.NFKC.String(s)))
}

// Capitalize uppercases the first rune and lowercases the rest, which is the
// fallback canonical form for unmapped skills.
func Capitalize(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	runes := []rune(strings.ToLower(s))
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

// NormalizeSkill maps a raw skill token to its canonical form. Unknown tokens
// are tallied for curation (unless already in the persisted backlog) and
// returned in capitalized form; the function never fails.
func (o *Ontology) NormalizeSkill(skill string) string {
	clean := strings.TrimSpace(skill)
	if clean == "" {
		return ""
	}

	if canonical, ok := o.skills[Fold(clean)]; ok {
		return canonical
	}

	if _, known := o.previousUnmapped[clean]; !known {
		o.tally[clean]++
	}

	return Capitalize(clean)
}

// NormalizeSeniority maps free-text seniority to junior/mid/senior. Keyword
// substrings win, then an explicit "N years/anni" pattern, then the neutral
// default.
func (o *Ontology) NormalizeSeniority(text string) string {
	folded := Fold(text)
	if folded == "" {
		return DefaultSeniority
	}

	for _, rule := range o.seniority {
		if strings.Contains(folded, rule.keyword) {
			return rule.level
		}
	}

	if m := yearsPattern.FindStringSubmatch(folded); m != nil {
		years := 0
		fmt.Sscanf(m[1], "%d", &years)
		return SeniorityFromYears(float64(years))
	}

	return DefaultSeniority
}

// NormalizeCEFR maps a language-level phrase to a CEFR code, defaulting to B2.
func (o *Ontology) NormalizeCEFR(text string) string {
	folded := Fold(text)
	if folded == "" {
		return DefaultCEFR
	}
	if level, ok := o.cefr[folded]; ok {
		return level
	}
	return DefaultCEFR
}

// SeniorityFromYears buckets years of experience into the standard levels.
func SeniorityFromYears(years float64) string {
	switch {
	case years < 2.0:
		return "junior"
	case years < 5.0:
		return "mid"
	default:
		return "senior"
	}
}

// NewlyUnmapped returns the skills first observed during this run, most
// frequent first.
func (o *Ontology) NewlyUnmapped() []UnmappedSkill {
	out := make([]UnmappedSkill, 0, len(o.tally))
	for skill, freq := range o.tally {
		out = append(out, UnmappedSkill{
			Skill:              skill,
			Frequency:          freq,
			SuggestedCanonical: Capitalize(skill),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Frequency != out[j].Frequency {
			return out[i].Frequency > out[j].Frequency
		}
		return out[i].Skill < out[j].Skill
	})
	return out
}

// Backlog returns the merged unmapped-skill list as it would be persisted,
// most frequent first.
func (o *Ontology) Backlog() []UnmappedSkill {
	merged := append([]UnmappedSkill(nil), o.persisted...)
	for _, item := range o.NewlyUnmapped() {
		if _, exists := o.previousUnmapped[item.Skill]; !exists {
			merged = append(merged, item)
		}
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Frequency > merged[j].Frequency
	})
	return merged
}

// AddMapping registers a curated skill mapping and drops the skill from the
// unmapped backlog.
func (o *Ontology) AddMapping(raw, canonical string) {
	raw = strings.TrimSpace(raw)
	canonical = strings.TrimSpace(canonical)
	if raw == "" || canonical == "" {
		return
	}

	key := Fold(raw)
	o.skills[key] = canonical
	o.rawSkills[key] = canonical

	delete(o.tally, raw)
	delete(o.previousUnmapped, raw)

	kept := o.persisted[:0]
	for _, item := range o.persisted {
		if item.Skill != raw {
			kept = append(kept, item)
		}
	}
	o.persisted = kept
}

// SkillCount reports the number of active skill mappings.
func (o *Ontology) SkillCount() int { return len(o.skills) }

// Canonicals returns the distinct canonical skill names, sorted.
func (o *Ontology) Canonicals() []string {
	seen := make(map[string]struct{}, len(o.skills))
	out := make([]string, 0, len(o.skills))
	for _, canonical := range o.skills {
		if _, dup := seen[canonical]; dup {
			continue
		}
		seen[canonical] = struct{}{}
		out = append(out, canonical)
	}
	sort.Strings(out)
	return out
}

// Save merges the newly observed unmapped skills into the persisted backlog
// (append-only, exact string match) and rewrites the ontology document with
// refreshed metadata. Calling it again with no new observations produces
// equivalent content, so a retry after a partial failure is safe.
func (o *Ontology) Save() error {
	merged := o.Backlog()

	// The merged list becomes the new persisted state; the tally is kept so
	// repeated Save calls stay idempotent.
	o.persisted = merged
	for _, item := range merged {
		o.previousUnmapped[item.Skill] = struct{}{}
	}

	metadata := make(map[string]any, len(o.metadata)+3)
	for k, v := range o.metadata {
		metadata[k] = v
	}
	metadata["last_updated"] = time.Now().Format("2006-01-02 15:04:05")
	metadata["total_mappings"] = len(o.skills)
	metadata["unmapped_skills_count"] = len(merged)

	doc := document{
		SkillMappings:     o.rawSkills,
		SeniorityMappings: o.rawSeniority,
		CEFRMappings:      o.rawCEFR,
		Metadata:          metadata,
		Unmapped: &unmappedSection{
			Comment: unmappedComment,
			Skills:  merged,
		},
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding ontology: %w", err)
	}

	if err := os.WriteFile(o.path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing ontology %q: %w", o.path, err)
	}

	o.logger.Info("ontology saved",
		zap.String("path", o.path),
		zap.Int("unmapped_backlog", len(merged)),
	)

	return nil
}
