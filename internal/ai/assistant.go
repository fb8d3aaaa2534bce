package ai

import "context"

// Suggestion is a canonical-name proposal for a skill the ontology could not
// map.
type Suggestion struct {
	Canonical  string
	Confidence float64
	Reason     string
	Raw        string
}

// Suggester proposes canonical ontology entries for unmapped skills. The
// canonical slice is the current vocabulary; implementations should prefer an
// existing entry over inventing a new one.
type Suggester interface {
	Suggest(ctx context.Context, skill string, canonical []string) (*Suggestion, error)
}
