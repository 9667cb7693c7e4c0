package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Severity is the CAP severity of an alert, ordered from least to most severe.
type Severity int

const (
	SeverityUnknown Severity = iota
	SeverityMinor
	SeverityModerate
	SeveritySevere
	SeverityExtreme
)

var severityNames = map[Severity]string{
	SeverityUnknown:  "Unknown",
	SeverityMinor:    "Minor",
	SeverityModerate: "Moderate",
	SeveritySevere:   "Severe",
	SeverityExtreme:  "Extreme",
}

func (s Severity) String() string {
	if name, ok := severityNames[s]; ok {
		return name
	}
	return severityNames[SeverityUnknown]
}

// ParseSeverity maps a CAP severity string to a Severity. Unrecognized
// values map to SeverityUnknown.
func ParseSeverity(s string) Severity {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "minor":
		return SeverityMinor
	case "moderate":
		return SeverityModerate
	case "severe":
		return SeveritySevere
	case "extreme":
		return SeverityExtreme
	default:
		return SeverityUnknown
	}
}

func (s Severity) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Severity) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return fmt.Errorf("severity: %w", err)
	}
	*s = ParseSeverity(str)
	return nil
}

// AlertRecord is a raw hazard alert from the alert feed. Records are
// read-only; several may describe the same real-world condition.
type AlertRecord struct {
	ID              string    `json:"id,omitempty"`
	EventType       string    `json:"event_type"`
	Severity        Severity  `json:"severity"`
	AreaDescription string    `json:"area_description"`
	Description     string    `json:"description"`
	Instruction     *string   `json:"instruction,omitempty"`
	SentAt          time.Time `json:"sent_at"`
	EffectiveAt     time.Time `json:"effective_at"`
	ExpiresAt       time.Time `json:"expires_at"`
}

// Tag is a semantic label derived from alert text.
type Tag uint8

const (
	TagFireRisk Tag = 1 << iota
	TagHighWinds
	TagLowHumidity
	TagExtremeHeat
	TagEvacuationOrdered
)

// AllTags lists every tag in display order.
var AllTags = []Tag{TagFireRisk, TagHighWinds, TagLowHumidity, TagExtremeHeat, TagEvacuationOrdered}

var tagNames = map[Tag]string{
	TagFireRisk:          "FireRisk",
	TagHighWinds:         "HighWinds",
	TagLowHumidity:       "LowHumidity",
	TagExtremeHeat:       "ExtremeHeat",
	TagEvacuationOrdered: "EvacuationOrdered",
}

func (t Tag) String() string {
	if name, ok := tagNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Tag(%d)", uint8(t))
}

// ParseTag resolves a tag by name, case-insensitively.
func ParseTag(s string) (Tag, bool) {
	for t, name := range tagNames {
		if strings.EqualFold(name, s) {
			return t, true
		}
	}
	return 0, false
}

// TagSet is a set of Tags.
type TagSet uint8

// NewTagSet builds a set from the given tags.
func NewTagSet(tags ...Tag) TagSet {
	var s TagSet
	for _, t := range tags {
		s = s.Add(t)
	}
	return s
}

func (s TagSet) Add(t Tag) TagSet          { return s | TagSet(t) }
func (s TagSet) Has(t Tag) bool            { return s&TagSet(t) != 0 }
func (s TagSet) Union(other TagSet) TagSet { return s | other }
func (s TagSet) Empty() bool               { return s == 0 }

// Tags returns the members in AllTags order.
func (s TagSet) Tags() []Tag {
	out := make([]Tag, 0, len(AllTags))
	for _, t := range AllTags {
		if s.Has(t) {
			out = append(out, t)
		}
	}
	return out
}

func (s TagSet) Strings() []string {
	tags := s.Tags()
	out := make([]string, len(tags))
	for i, t := range tags {
		out[i] = t.String()
	}
	return out
}

func (s TagSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Strings())
}

func (s *TagSet) UnmarshalJSON(data []byte) error {
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return fmt.Errorf("tag set: %w", err)
	}
	var out TagSet
	for _, n := range names {
		t, ok := ParseTag(n)
		if !ok {
			return fmt.Errorf("tag set: unknown tag %q", n)
		}
		out = out.Add(t)
	}
	*s = out
	return nil
}

// RiskLevel is the ordinal classification of situational danger.
type RiskLevel int

const (
	RiskLow RiskLevel = iota
	RiskModerate
	RiskHigh
	RiskExtreme
)

func (r RiskLevel) String() string {
	switch r {
	case RiskLow:
		return "LOW"
	case RiskModerate:
		return "MODERATE"
	case RiskHigh:
		return "HIGH"
	case RiskExtreme:
		return "EXTREME"
	default:
		return fmt.Sprintf("RiskLevel(%d)", int(r))
	}
}

func (r RiskLevel) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

func (r *RiskLevel) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return fmt.Errorf("risk level: %w", err)
	}
	for _, l := range []RiskLevel{RiskLow, RiskModerate, RiskHigh, RiskExtreme} {
		if strings.EqualFold(l.String(), str) {
			*r = l
			return nil
		}
	}
	return fmt.Errorf("risk level: unknown level %q", str)
}

// Urbanity is the tri-state answer of the urban classifier.
type Urbanity int

const (
	UrbanityUnknown Urbanity = iota
	UrbanityUrban
	UrbanityRural
)

func (u Urbanity) String() string {
	switch u {
	case UrbanityUrban:
		return "urban"
	case UrbanityRural:
		return "rural"
	default:
		return "unknown"
	}
}

func (u Urbanity) MarshalJSON() ([]byte, error) {
	return json.Marshal(u.String())
}

func (u *Urbanity) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return fmt.Errorf("urbanity: %w", err)
	}
	switch strings.ToLower(str) {
	case "urban":
		*u = UrbanityUrban
	case "rural":
		*u = UrbanityRural
	default:
		*u = UrbanityUnknown
	}
	return nil
}

// RiskAssessment is the outcome of risk scoring for a location.
type RiskAssessment struct {
	Level      RiskLevel `json:"level"`
	Score      int       `json:"score"`
	Tags       TagSet    `json:"tags"`
	Overridden bool      `json:"overridden"`
	Urbanity   Urbanity  `json:"urbanity"`
	AlertCount int       `json:"alert_count"`
	AssessedAt time.Time `json:"assessed_at"`
}
