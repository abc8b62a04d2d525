package dispatch

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"roobot/internal/domain"
)

// Scoring weights and thresholds for rate-card matching.
const (
	nameSubstringScore = 50
	descSubstringScore = 30
	similarityFloor    = 60
	inclusionThreshold = 40
	confidentThreshold = 80
	maxSuggestions     = 3
)

// RateCardMatch is one scored rate-card candidate.
type RateCardMatch struct {
	Entry domain.RateCardEntry
	Score int
}

// RateCardResolution is the advisory outcome of a fuzzy lookup. The
// resolver only ever proposes; it never moves points itself.
type RateCardResolution struct {
	// Confident is set when there is a single candidate or a clear
	// front-runner; Candidates[0] is then the proposal.
	Confident  bool
	Candidates []RateCardMatch
}

// RateCardResolver infers a point value for a free-text reason from the
// live price list. The card is fetched fresh per attempt since prices
// may change between calls.
type RateCardResolver struct {
	api    domain.PointsAPI
	logger *slog.Logger
}

func NewRateCardResolver(api domain.PointsAPI, logger *slog.Logger) *RateCardResolver {
	return &RateCardResolver{api: api, logger: logger}
}

// Resolve scores the reason against every rate-card entry and returns
// the candidates above the inclusion threshold, ranked descending.
func (r *RateCardResolver) Resolve(ctx context.Context, reason string) (*RateCardResolution, error) {
	card, err := r.api.RateCard(ctx)
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(strings.TrimSpace(reason))
	if needle == "" || len(card) == 0 {
		return &RateCardResolution{}, nil
	}

	var matches []RateCardMatch
	for _, entry := range card {
		score := scoreEntry(needle, entry)
		if score > inclusionThreshold {
			matches = append(matches, RateCardMatch{Entry: entry, Score: score})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })

	resolution := &RateCardResolution{Candidates: matches}
	if len(matches) == 1 || (len(matches) > 1 && matches[0].Score > confidentThreshold) {
		resolution.Confident = true
	}
	if len(matches) > maxSuggestions {
		resolution.Candidates = matches[:maxSuggestions]
	}
	return resolution, nil
}

func scoreEntry(needle string, entry domain.RateCardEntry) int {
	name := strings.ToLower(entry.Name)
	desc := strings.ToLower(entry.Description)

	score := 0
	if strings.Contains(name, needle) {
		score += nameSubstringScore
	}
	if desc != "" && strings.Contains(desc, needle) {
		score += descSubstringScore
	}
	if sim := similarity(needle, name); sim > similarityFloor {
		score += sim
	}
	return score
}

// similarity is a 0-100 edit-distance ratio between two strings.
func similarity(a, b string) int {
	if a == b {
		return 100
	}
	longest := max(len(a), len(b))
	if longest == 0 {
		return 100
	}
	return (longest - levenshtein(a, b)) * 100 / longest
}

func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}
