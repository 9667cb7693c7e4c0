package alert

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/wildfire-evac-planner/internal/config"
	"github.com/couchcryptid/wildfire-evac-planner/internal/domain"
)

var baseTime = time.Date(2025, 8, 14, 12, 0, 0, 0, time.UTC)

func redFlag(id string, sent time.Time, desc string) domain.AlertRecord {
	return domain.AlertRecord{
		ID:              id,
		EventType:       "Red Flag Warning",
		Severity:        domain.SeveritySevere,
		AreaDescription: "Larimer County",
		Description:     desc,
		SentAt:          sent,
	}
}

const redFlagText = "red flag warning for gusty winds and low humidity"

func TestDeduplicate_KeepsLaterOfNearDuplicates(t *testing.T) {
	d := NewDeduplicator(config.DefaultDedupe())

	earlier := redFlag("a", baseTime, redFlagText)
	later := redFlag("b", baseTime.Add(time.Hour), redFlagText+" tonight")
	require.InDelta(t, 0.9, Jaccard(tokenSet(earlier.Description), tokenSet(later.Description)), 1e-9)

	got := d.Deduplicate([]domain.AlertRecord{earlier, later})

	require.Len(t, got, 1)
	assert.Equal(t, "b", got[0].ID)
}

func TestDeduplicate_DistinctWhenEitherCriterionFails(t *testing.T) {
	d := NewDeduplicator(config.DefaultDedupe())

	tests := []struct {
		name string
		a, b domain.AlertRecord
	}{
		{
			name: "outside time window",
			a:    redFlag("a", baseTime, redFlagText),
			b:    redFlag("b", baseTime.Add(73*time.Hour), redFlagText),
		},
		{
			name: "text not similar",
			a:    redFlag("a", baseTime, redFlagText),
			b:    redFlag("b", baseTime.Add(time.Hour), "fire weather watch for dry lightning"),
		},
		{
			name: "different area",
			a:    redFlag("a", baseTime, redFlagText),
			b: func() domain.AlertRecord {
				r := redFlag("b", baseTime.Add(time.Hour), redFlagText)
				r.AreaDescription = "Boulder County"
				return r
			}(),
		},
		{
			name: "different event type",
			a:    redFlag("a", baseTime, redFlagText),
			b: func() domain.AlertRecord {
				r := redFlag("b", baseTime.Add(time.Hour), redFlagText)
				r.EventType = "Fire Weather Watch"
				return r
			}(),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := d.Deduplicate([]domain.AlertRecord{tt.a, tt.b})
			assert.Len(t, got, 2)
		})
	}
}

func TestDeduplicate_ExactWindowBoundaryIsDuplicate(t *testing.T) {
	d := NewDeduplicator(config.DefaultDedupe())
	a := redFlag("a", baseTime, redFlagText)
	b := redFlag("b", baseTime.Add(72*time.Hour), redFlagText)

	got := d.Deduplicate([]domain.AlertRecord{b, a})

	require.Len(t, got, 1)
	assert.Equal(t, "b", got[0].ID)
}

func TestDeduplicate_PreservesInputOrder(t *testing.T) {
	d := NewDeduplicator(config.DefaultDedupe())
	heat := domain.AlertRecord{ID: "heat", EventType: "Excessive Heat Warning", AreaDescription: "Mesa", Description: "dangerous heat", SentAt: baseTime}
	old := redFlag("old", baseTime, redFlagText)
	wind := domain.AlertRecord{ID: "wind", EventType: "High Wind Warning", AreaDescription: "Mesa", Description: "strong winds", SentAt: baseTime}
	newer := redFlag("newer", baseTime.Add(2*time.Hour), redFlagText)

	got := d.Deduplicate([]domain.AlertRecord{heat, old, wind, newer})

	ids := make([]string, len(got))
	for i, a := range got {
		ids[i] = a.ID
	}
	assert.Equal(t, []string{"heat", "wind", "newer"}, ids)
}

func TestDeduplicate_Idempotent(t *testing.T) {
	d := NewDeduplicator(config.DefaultDedupe())
	input := []domain.AlertRecord{
		redFlag("1", baseTime, redFlagText),
		redFlag("2", baseTime.Add(time.Hour), redFlagText+" tonight"),
		redFlag("3", baseTime.Add(2*time.Hour), "fire weather watch for dry lightning"),
		redFlag("4", baseTime.Add(100*time.Hour), redFlagText),
		redFlag("5", baseTime.Add(101*time.Hour), redFlagText),
		{ID: "6", EventType: "Evacuation Order", AreaDescription: "Larimer County", SentAt: baseTime},
		{ID: "7", EventType: "Evacuation Order", AreaDescription: "Larimer County", SentAt: baseTime.Add(time.Minute)},
	}

	once := d.Deduplicate(input)
	twice := d.Deduplicate(once)

	if diff := cmp.Diff(once, twice); diff != "" {
		t.Errorf("second pass changed the set (-once +twice):\n%s", diff)
	}
	assert.Len(t, once, 4)
}

func TestDeduplicate_EmptyDescriptionsAreIdentical(t *testing.T) {
	d := NewDeduplicator(config.DefaultDedupe())
	a := domain.AlertRecord{ID: "a", EventType: "Evacuation Order", AreaDescription: "Zone 4", SentAt: baseTime}
	b := domain.AlertRecord{ID: "b", EventType: "Evacuation Order", AreaDescription: "Zone 4", SentAt: baseTime.Add(time.Minute)}

	got := d.Deduplicate([]domain.AlertRecord{a, b})

	require.Len(t, got, 1)
	assert.Equal(t, "b", got[0].ID)
}

func TestDeduplicate_Empty(t *testing.T) {
	d := NewDeduplicator(config.DefaultDedupe())
	assert.Empty(t, d.Deduplicate(nil))
}

func TestJaccard(t *testing.T) {
	assert.InDelta(t, 1.0, Jaccard(tokenSet(""), tokenSet("  ")), 0)
	assert.InDelta(t, 0.0, Jaccard(tokenSet("a b"), tokenSet("")), 0)
	assert.InDelta(t, 1.0, Jaccard(tokenSet("Low Humidity"), tokenSet("humidity LOW")), 0)
	assert.InDelta(t, 1.0/3.0, Jaccard(tokenSet("a b"), tokenSet("b c")), 1e-9)
}
