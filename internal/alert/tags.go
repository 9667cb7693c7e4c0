package alert

import (
	"strings"

	"github.com/couchcryptid/wildfire-evac-planner/internal/domain"
)

type tagRule struct {
	tag   domain.Tag
	match func(eventType, description string) bool
}

// tagRules is evaluated against the lower-cased event type and description.
var tagRules = []tagRule{
	{domain.TagFireRisk, func(ev, desc string) bool {
		return containsAny(ev, "fire", "red flag") || containsAny(desc, "fire", "red flag")
	}},
	{domain.TagHighWinds, func(ev, desc string) bool {
		return containsAny(ev, "high wind", "strong wind") || containsAny(desc, "high wind", "strong wind")
	}},
	{domain.TagLowHumidity, func(_, desc string) bool {
		return strings.Contains(desc, "humidity") && containsAny(desc, "low", "critical")
	}},
	{domain.TagExtremeHeat, func(ev, desc string) bool {
		return strings.Contains(ev, "heat") && containsAny(desc, "warning", "advisory")
	}},
	{domain.TagEvacuationOrdered, func(ev, _ string) bool {
		return strings.Contains(ev, "evacuation")
	}},
}

// Tags derives the tag set for a single alert.
func Tags(a domain.AlertRecord) domain.TagSet {
	ev := strings.ToLower(a.EventType)
	desc := strings.ToLower(a.Description)

	var set domain.TagSet
	for _, r := range tagRules {
		if r.match(ev, desc) {
			set = set.Add(r.tag)
		}
	}
	return set
}

// TagAll tags every alert and returns the union alongside the per-alert sets.
func TagAll(alerts []domain.AlertRecord) (domain.TagSet, []TaggedAlert) {
	var union domain.TagSet
	per := make([]TaggedAlert, len(alerts))
	for i, a := range alerts {
		tags := Tags(a)
		per[i] = TaggedAlert{AlertRecord: a, Tags: tags}
		union = union.Union(tags)
	}
	return union, per
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
