package orchestrator

// NoveltyInputs are the three novelty dimensions computed against the
// accumulated finding set (spec §4.12), each in [0,1].
type NoveltyInputs struct {
	SourceNovelty  float64 // fraction of sources not already seen
	EntityNovelty  float64 // fraction of entities not already seen
	ContentNovelty float64 // fraction of content not substantially duplicated
}

// defaultDiminishingReturnsThreshold is spec §4.12's default; configurable
// per investigation via Config.DiminishingReturnsThreshold.
const defaultDiminishingReturnsThreshold = 0.2

// NoveltyScore computes spec §4.12's weighted novelty:
//
//	0.3*source_novelty + 0.4*entity_novelty + 0.3*content_novelty
func NoveltyScore(in NoveltyInputs) float64 {
	return 0.3*in.SourceNovelty + 0.4*in.EntityNovelty + 0.3*in.ContentNovelty
}

// DiminishingReturns reports whether the latest iteration's novelty has
// fallen below threshold (0 uses the spec default).
func DiminishingReturns(novelty, threshold float64) bool {
	if threshold <= 0 {
		threshold = defaultDiminishingReturnsThreshold
	}
	return novelty < threshold
}
