package alert

import (
	"sort"
	"strings"
	"time"

	"github.com/couchcryptid/wildfire-evac-planner/internal/config"
	"github.com/couchcryptid/wildfire-evac-planner/internal/domain"
)

// Deduplicator collapses near-identical alerts that share an event type and
// area. Two alerts in the same group are duplicates when they were sent
// within Window of each other and their description word sets have a Jaccard
// similarity of at least SimilarityThreshold. The later alert wins.
type Deduplicator struct {
	window    time.Duration
	threshold float64
}

// NewDeduplicator creates a Deduplicator from the dedupe settings.
func NewDeduplicator(cfg config.DedupeConfig) *Deduplicator {
	return &Deduplicator{window: cfg.Window, threshold: cfg.SimilarityThreshold}
}

type similarityKey struct {
	eventType string
	area      string
}

// Deduplicate returns the surviving alerts in their input order. Running it
// on its own output returns the same set.
func (d *Deduplicator) Deduplicate(alerts []domain.AlertRecord) []domain.AlertRecord {
	if len(alerts) < 2 {
		return append([]domain.AlertRecord(nil), alerts...)
	}

	tokens := make([]map[string]struct{}, len(alerts))
	groups := make(map[similarityKey][]int)
	for i, a := range alerts {
		tokens[i] = tokenSet(a.Description)
		key := similarityKey{eventType: a.EventType, area: a.AreaDescription}
		groups[key] = append(groups[key], i)
	}

	keep := make([]bool, len(alerts))
	for _, idx := range groups {
		// Newest first, so the later record of any duplicate pair is seen first.
		sort.SliceStable(idx, func(i, j int) bool {
			return alerts[idx[i]].SentAt.After(alerts[idx[j]].SentAt)
		})

		var kept []int
		for _, i := range idx {
			duplicate := false
			for _, k := range kept {
				if d.isDuplicate(alerts[i], alerts[k], tokens[i], tokens[k]) {
					duplicate = true
					break
				}
			}
			if !duplicate {
				kept = append(kept, i)
				keep[i] = true
			}
		}
	}

	out := make([]domain.AlertRecord, 0, len(alerts))
	for i, a := range alerts {
		if keep[i] {
			out = append(out, a)
		}
	}
	return out
}

func (d *Deduplicator) isDuplicate(a, b domain.AlertRecord, ta, tb map[string]struct{}) bool {
	gap := a.SentAt.Sub(b.SentAt)
	if gap < 0 {
		gap = -gap
	}
	if gap > d.window {
		return false
	}
	return Jaccard(ta, tb) >= d.threshold
}

func tokenSet(text string) map[string]struct{} {
	fields := strings.Fields(strings.ToLower(text))
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

// Jaccard returns |a ∩ b| / |a ∪ b|. Two empty sets are identical.
func Jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	inter := 0
	for w := range a {
		if _, ok := b[w]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}
