package alert

import (
	"github.com/couchcryptid/wildfire-evac-planner/internal/config"
	"github.com/couchcryptid/wildfire-evac-planner/internal/domain"
)

// Scorer maps an aggregated tag set to a risk level using configured tag
// weights and ascending thresholds.
type Scorer struct {
	cfg config.RiskConfig
}

// NewScorer creates a Scorer. cfg is expected to have passed Validate.
func NewScorer(cfg config.RiskConfig) *Scorer {
	return &Scorer{cfg: cfg}
}

// Score computes the risk for tags. An active hazard forces EXTREME
// regardless of the tags. An urban location lowers the raw score by the
// configured adjustment, never below zero.
func (s *Scorer) Score(tags domain.TagSet, activeHazard bool, urbanity domain.Urbanity) domain.RiskAssessment {
	if activeHazard {
		return domain.RiskAssessment{
			Level:      domain.RiskExtreme,
			Score:      s.rawScore(tags),
			Tags:       tags,
			Overridden: true,
			Urbanity:   urbanity,
		}
	}

	score := s.rawScore(tags)
	if urbanity == domain.UrbanityUrban {
		score = max(score-s.cfg.UrbanAdjustment, 0)
	}

	return domain.RiskAssessment{
		Level:    s.Level(score),
		Score:    score,
		Tags:     tags,
		Urbanity: urbanity,
	}
}

// Level maps a numeric score onto a risk level.
func (s *Scorer) Level(score int) domain.RiskLevel {
	switch {
	case score >= s.cfg.ExtremeThreshold:
		return domain.RiskExtreme
	case score >= s.cfg.HighThreshold:
		return domain.RiskHigh
	case score >= s.cfg.ModerateThreshold:
		return domain.RiskModerate
	default:
		return domain.RiskLow
	}
}

func (s *Scorer) rawScore(tags domain.TagSet) int {
	score := 0
	for _, t := range tags.Tags() {
		score += s.weight(t)
	}
	return score
}

func (s *Scorer) weight(t domain.Tag) int {
	switch t {
	case domain.TagFireRisk:
		return s.cfg.FireRiskWeight
	case domain.TagHighWinds:
		return s.cfg.HighWindsWeight
	case domain.TagLowHumidity:
		return s.cfg.LowHumidityWeight
	case domain.TagExtremeHeat:
		return s.cfg.ExtremeHeatWeight
	case domain.TagEvacuationOrdered:
		return s.cfg.EvacuationOrderedWeight
	default:
		return 0
	}
}
