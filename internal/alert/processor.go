package alert

import (
	"github.com/couchcryptid/wildfire-evac-planner/internal/domain"
	"github.com/couchcryptid/wildfire-evac-planner/internal/observability"
)

// TaggedAlert pairs a surviving alert with its own tags for detail display.
type TaggedAlert struct {
	domain.AlertRecord
	Tags domain.TagSet `json:"tags"`
}

// Processed is the result of processing a raw alert batch. Tags is the union
// over all surviving alerts.
type Processed struct {
	Tags         domain.TagSet        `json:"tags"`
	Deduplicated []domain.AlertRecord `json:"deduplicated"`
	PerAlert     []TaggedAlert        `json:"per_alert"`
}

// Processor de-duplicates and tags alert batches.
type Processor struct {
	dedupe  *Deduplicator
	metrics *observability.Metrics
}

// NewProcessor creates a Processor.
func NewProcessor(dedupe *Deduplicator, metrics *observability.Metrics) *Processor {
	return &Processor{dedupe: dedupe, metrics: metrics}
}

// Process de-duplicates raw and tags each survivor.
func (p *Processor) Process(raw []domain.AlertRecord) Processed {
	survivors := p.dedupe.Deduplicate(raw)

	p.metrics.AlertsProcessed.Add(float64(len(raw)))
	p.metrics.AlertsDeduplicated.Add(float64(len(raw) - len(survivors)))

	tags, perAlert := TagAll(survivors)
	return Processed{Tags: tags, Deduplicated: survivors, PerAlert: perAlert}
}
