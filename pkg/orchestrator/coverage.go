package orchestrator

// CoverageMetrics is the four orthogonal coverage dimensions spec §4.12
// names, each in [0,1].
type CoverageMetrics struct {
	SourceDiversity    float64
	GeographicCoverage float64
	TemporalRange      float64
	TopicCompleteness  float64
}

// CoverageTargets are the per-dimension targets spec §4.12 fixes.
var CoverageTargets = CoverageMetrics{
	SourceDiversity:    0.7,
	GeographicCoverage: 0.6,
	TemporalRange:      0.5,
	TopicCompleteness:  0.6,
}

// MeetsTargets reports whether every dimension has reached its target.
func (c CoverageMetrics) MeetsTargets() bool {
	return c.SourceDiversity >= CoverageTargets.SourceDiversity &&
		c.GeographicCoverage >= CoverageTargets.GeographicCoverage &&
		c.TemporalRange >= CoverageTargets.TemporalRange &&
		c.TopicCompleteness >= CoverageTargets.TopicCompleteness
}

// Gaps returns the dimensions still short of target, for diagnostics and
// for steering the next refinement's subtask assignment.
func (c CoverageMetrics) Gaps() []string {
	var gaps []string
	if c.SourceDiversity < CoverageTargets.SourceDiversity {
		gaps = append(gaps, "source_diversity")
	}
	if c.GeographicCoverage < CoverageTargets.GeographicCoverage {
		gaps = append(gaps, "geographic_coverage")
	}
	if c.TemporalRange < CoverageTargets.TemporalRange {
		gaps = append(gaps, "temporal_range")
	}
	if c.TopicCompleteness < CoverageTargets.TopicCompleteness {
		gaps = append(gaps, "topic_completeness")
	}
	return gaps
}
