package classification

import (
	"strings"

	"github.com/watchtower-oss/watchtower/pkg/schema"
)

// Contradiction records one detected pair (spec §4.9 ANOMALY input).
type Contradiction struct {
	FactA, FactB string
	Type         schema.ContradictionType
	Confidence   float64
}

var negationWords = map[string]struct{}{
	"not": {}, "no": {}, "never": {}, "denies": {}, "denied": {}, "false": {}, "isn't": {}, "wasn't": {}, "didn't": {},
}

var stopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "of": {}, "in": {}, "on": {}, "at": {}, "to": {}, "and": {}, "is": {}, "was": {}, "are": {}, "were": {}, "for": {}, "with": {},
}

// DetectContradictions runs the two-pass O(n^2) comparison over facts
// described in spec §4.9, returning every pair that trips one of the four
// detectors.
func DetectContradictions(facts []schema.ExtractedFact) []Contradiction {
	var out []Contradiction
	for i := 0; i < len(facts); i++ {
		for j := i + 1; j < len(facts); j++ {
			a, b := facts[i], facts[j]
			if c, ok := negationContradiction(a, b); ok {
				out = append(out, c)
			}
			if c, ok := attributionContradiction(a, b); ok {
				out = append(out, c)
			}
			if c, ok := numericContradiction(a, b); ok {
				out = append(out, c)
			}
			if c, ok := temporalContradiction(a, b); ok {
				out = append(out, c)
			}
		}
	}
	return out
}

func tokens(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.Fields(strings.ToLower(text)) {
		w = strings.Trim(w, ".,!?;:\"'")
		if w == "" {
			continue
		}
		if _, stop := stopWords[w]; stop {
			continue
		}
		set[w] = struct{}{}
	}
	return set
}

func overlap(a, b map[string]struct{}) int {
	n := 0
	for w := range a {
		if _, ok := b[w]; ok {
			n++
		}
	}
	return n
}

func hasNegation(text string) bool {
	for w := range tokens(text) {
		if _, neg := negationWords[w]; neg {
			return true
		}
	}
	return false
}

// negationContradiction: one claim negated, the other not, sharing >= 2
// content tokens. Confidence scales with token overlap.
func negationContradiction(a, b schema.ExtractedFact) (Contradiction, bool) {
	negA, negB := hasNegation(a.Claim.Text), hasNegation(b.Claim.Text)
	if negA == negB {
		return Contradiction{}, false
	}
	ta, tb := tokens(a.Claim.Text), tokens(b.Claim.Text)
	shared := overlap(ta, tb)
	if shared < 2 {
		return Contradiction{}, false
	}
	denom := len(ta)
	if len(tb) < denom {
		denom = len(tb)
	}
	confidence := 0.5
	if denom > 0 {
		confidence = float64(shared) / float64(denom)
	}
	return Contradiction{FactA: a.FactID, FactB: b.FactID, Type: schema.ContradictionNegation, Confidence: confidence}, true
}

func sharedEntity(a, b schema.ExtractedFact) bool {
	for _, ea := range a.Entities {
		for _, eb := range b.Entities {
			if strings.EqualFold(ea.Text, eb.Text) {
				return true
			}
		}
	}
	return false
}

// attributionContradiction: one fact is a statement, another a denial,
// sharing >= 1 entity.
func attributionContradiction(a, b schema.ExtractedFact) (Contradiction, bool) {
	isStatementDenialPair := (a.Claim.AssertionType == schema.AssertionStatement && b.Claim.AssertionType == schema.AssertionDenial) ||
		(a.Claim.AssertionType == schema.AssertionDenial && b.Claim.AssertionType == schema.AssertionStatement)
	if !isStatementDenialPair || !sharedEntity(a, b) {
		return Contradiction{}, false
	}
	return Contradiction{FactA: a.FactID, FactB: b.FactID, Type: schema.ContradictionAttribution, Confidence: 0.7}, true
}

// numericValue extracts the first number found in text as a crude value
// probe; absent a real NER pipeline this is a deliberately simple proxy.
func numericValue(text string) (float64, bool) {
	var num strings.Builder
	found := false
	for _, r := range text {
		if r >= '0' && r <= '9' {
			num.WriteRune(r)
			found = true
		} else if num.Len() > 0 {
			break
		}
	}
	if !found {
		return 0, false
	}
	var v float64
	for _, r := range num.String() {
		v = v*10 + float64(r-'0')
	}
	return v, true
}

// numericContradiction: disjoint value ranges with >= 1 shared entity.
func numericContradiction(a, b schema.ExtractedFact) (Contradiction, bool) {
	va, oka := numericValue(a.Claim.Text)
	vb, okb := numericValue(b.Claim.Text)
	if !oka || !okb || !sharedEntity(a, b) {
		return Contradiction{}, false
	}
	// "disjoint" proxy: values differ by more than 10% of the larger.
	larger := va
	if vb > larger {
		larger = vb
	}
	if larger == 0 {
		return Contradiction{}, false
	}
	diff := va - vb
	if diff < 0 {
		diff = -diff
	}
	if diff/larger < 0.1 {
		return Contradiction{}, false
	}
	return Contradiction{FactA: a.FactID, FactB: b.FactID, Type: schema.ContradictionNumeric, Confidence: 0.6}, true
}

// temporalContradiction: different explicit dates at the same precision,
// >= 1 shared entity.
func temporalContradiction(a, b schema.ExtractedFact) (Contradiction, bool) {
	if a.Temporal == nil || b.Temporal == nil {
		return Contradiction{}, false
	}
	if a.Temporal.TemporalPrecision != schema.TemporalExplicit || b.Temporal.TemporalPrecision != schema.TemporalExplicit {
		return Contradiction{}, false
	}
	if a.Temporal.Precision != b.Temporal.Precision {
		return Contradiction{}, false
	}
	if a.Temporal.Value == b.Temporal.Value {
		return Contradiction{}, false
	}
	if !sharedEntity(a, b) {
		return Contradiction{}, false
	}
	return Contradiction{FactA: a.FactID, FactB: b.FactID, Type: schema.ContradictionTemporal, Confidence: 0.65}, true
}
