package dataset

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// nowFunc is swapped in tests so open-ended ranges stay deterministic.
var nowFunc = time.Now

var ongoingSentinels = map[string]struct{}{
	"present":  {},
	"presente": {},
	"current":  {},
	"attuale":  {},
	"now":      {},
}

var italianMonths = [][2]string{
	{"gennaio", "january"},
	{"febbraio", "february"},
	{"marzo", "march"},
	{"aprile", "april"},
	{"maggio", "may"},
	{"giugno", "june"},
	{"luglio", "july"},
	{"agosto", "august"},
	{"settembre", "september"},
	{"ottobre", "october"},
	{"novembre", "november"},
	{"dicembre", "december"},
}

var dateLayouts = []string{
	"2006-01-02",
	"2006-01",
	"2006/01/02",
	"02/01/2006",
	"01/2006",
	"2 January 2006",
	"January 2, 2006",
	"January 2006",
	"Jan 2006",
	"2006",
}

var (
	yearOnlyPattern = regexp.MustCompile(`\b(19|20)\d{2}\b`)
	bracketPattern  = regexp.MustCompile(`\[(.*?)\]`)
	// A range separator must be surrounded by whitespace so hyphenated
	// dates like "2020-01" survive; a bare dash split is accepted only
	// when it yields exactly two sides.
	spacedDashPattern = regexp.MustCompile(`\s+[-–—]\s+`)
	bareDashPattern   = regexp.MustCompile(`[-–]`)
)

var englishTitle = cases.Title(language.English)

// ParseDateFlexible parses the date formats found in ingested experience
// strings: ISO dates, day/month orders, English and Italian month names,
// bare years, and ongoing-employment sentinels mapped to the current time.
func ParseDateFlexible(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	lowered := strings.ToLower(s)
	if _, ok := ongoingSentinels[lowered]; ok {
		return nowFunc(), true
	}

	for _, pair := range italianMonths {
		if strings.Contains(lowered, pair[0]) {
			lowered = strings.Replace(lowered, pair[0], pair[1], 1)
			break
		}
	}

	candidates := []string{s, englishTitle.String(lowered)}
	for _, candidate := range candidates {
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, candidate); err == nil {
				return t, true
			}
		}
	}

	if m := yearOnlyPattern.FindString(s); m != "" {
		year, _ := strconv.Atoi(m)
		return time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC), true
	}

	return time.Time{}, false
}

// YearsOfExperience sums the durations of every "[start - end]" range in an
// experience string ("Title @ Company [2020-01 - 2022-01] | ..."). Segments
// without a parseable range contribute nothing; negative spans are clamped to
// zero. The total is rounded to one decimal.
func YearsOfExperience(experience string) float64 {
	if strings.TrimSpace(experience) == "" {
		return 0
	}

	total := 0.0
	for _, segment := range strings.Split(experience, "|") {
		m := bracketPattern.FindStringSubmatch(segment)
		if m == nil {
			continue
		}

		start, end, ok := splitDateRange(m[1])
		if !ok {
			continue
		}

		startDate, okStart := ParseDateFlexible(start)
		endDate, okEnd := ParseDateFlexible(end)
		if !okStart || !okEnd {
			continue
		}

		years := endDate.Sub(startDate).Hours() / 24 / 365.25
		if years > 0 {
			total += years
		}
	}

	return math.Round(total*10) / 10
}

func splitDateRange(r string) (start, end string, ok bool) {
	if parts := spacedDashPattern.Split(r, -1); len(parts) == 2 {
		return parts[0], parts[1], true
	}
	if parts := bareDashPattern.Split(r, -1); len(parts) == 2 {
		return parts[0], parts[1], true
	}
	return "", "", false
}
