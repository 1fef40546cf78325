package verification

import (
	"strings"

	"github.com/watchtower-oss/watchtower/pkg/schema"
	"github.com/watchtower-oss/watchtower/pkg/urlman"
)

// confidenceBoost implements spec §4.11's graduated-confidence table.
func confidenceBoost(sourceType string) float64 {
	switch sourceType {
	case "wire":
		return 0.30
	case "official":
		return 0.25
	case "news":
		return 0.20
	case "social":
		return 0.10
	default:
		return 0.0
	}
}

// independent reports whether two evidence items count as independent
// corroboration: different domains, and (where known) different parent
// organizations via the registrable-domain approximation (spec §4.11,
// same proxy as the classifier's circular-reporting check, §9 open question).
func independent(a, b schema.Evidence) bool {
	if a.Domain == b.Domain {
		return false
	}
	return urlman.Registrable(a.Domain) != urlman.Registrable(b.Domain)
}

var negationMarkers = []string{"not", "no ", "never", "denies", "denied", "false", "debunk", "isn't", "wasn't", "didn't"}

// agrees is a crude stance detector: a snippet "refutes" the claim when it
// is relevant but carries a negation marker the claim itself doesn't, the
// same token-level signal the classifier's negation-contradiction detector
// uses (pkg/classification). A dedicated NLI model is out of scope; this is
// a deliberately simple proxy.
func agrees(claimText, snippet string) bool {
	lower := strings.ToLower(snippet)
	claimLower := strings.ToLower(claimText)
	for _, marker := range negationMarkers {
		if strings.Contains(lower, marker) && !strings.Contains(claimLower, marker) {
			return false
		}
	}
	return true
}

// Aggregation is the evidence aggregator's verdict for one fact.
type Aggregation struct {
	Confirmed       bool
	Refuted         bool
	ConfidenceBoost float64
	Supporting      []schema.Evidence
	Refuting        []schema.Evidence
}

// Aggregate applies spec §4.11's confirmation/refutation rules and
// graduated confidence boosts over scored evidence. Each item's stance is
// decided by agrees(); confirmation then requires one supporting source
// with authority >= 0.85 OR two independent supporting sources with
// authority >= 0.7. Refutation requires a disagreeing source with
// authority >= 0.7 AND relevance >= 0.7.
func Aggregate(claimText string, evidence []schema.Evidence) Aggregation {
	var supporting, refuting []schema.Evidence
	var boost float64

	for i := range evidence {
		e := evidence[i]
		if e.Relevance < 0.5 {
			continue // too weakly related to either confirm or refute
		}
		e.Supports = agrees(claimText, e.Snippet)
		if e.Supports {
			supporting = append(supporting, e)
			boost += confidenceBoost(e.SourceType)
		} else if e.Authority >= 0.7 && e.Relevance >= 0.7 {
			refuting = append(refuting, e)
		}
	}

	confirmed := hasHighAuthority(supporting, 0.85) || hasTwoIndependentAbove(supporting, 0.7)
	refuted := len(refuting) > 0

	return Aggregation{
		Confirmed:       confirmed && !refuted,
		Refuted:         refuted,
		ConfidenceBoost: schema.CapConfidence(boost),
		Supporting:      supporting,
		Refuting:        refuting,
	}
}

func hasHighAuthority(evidence []schema.Evidence, min float64) bool {
	for _, e := range evidence {
		if e.Authority >= min {
			return true
		}
	}
	return false
}

func hasTwoIndependentAbove(evidence []schema.Evidence, min float64) bool {
	var qualifying []schema.Evidence
	for _, e := range evidence {
		if e.Authority >= min {
			qualifying = append(qualifying, e)
		}
	}
	for i := 0; i < len(qualifying); i++ {
		for j := i + 1; j < len(qualifying); j++ {
			if independent(qualifying[i], qualifying[j]) {
				return true
			}
		}
	}
	return false
}
