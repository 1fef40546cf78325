package classification

import (
	"math"

	"github.com/watchtower-oss/watchtower/pkg/schema"
	"github.com/watchtower-oss/watchtower/pkg/urlman"
)

// EchoConfig tunes the credibility formula's decay and dampening constants
// (spec §6.4 proximity.decay, echo.alpha).
type EchoConfig struct {
	ProximityDecay float64 // default 0.7
	EchoAlpha      float64 // default 0.2
	// CircularWarnThreshold is the N in "N>=4 same non-primary root" (spec §4.9).
	CircularWarnThreshold int
}

// DefaultEchoConfig returns the defaults spec §6.4 names.
func DefaultEchoConfig() EchoConfig {
	return EchoConfig{ProximityDecay: 0.7, EchoAlpha: 0.2, CircularWarnThreshold: 4}
}

// Proximity implements spec §4.9: decay^hop_count, with decay 0.7 by
// default (also used when decay <= 0). Hop 0 (eyewitness) always yields
// 1.0, matching spec §8 "Proximity at hop=0 is 1.0".
func Proximity(hopCount int, decay float64) float64 {
	if decay <= 0 {
		decay = 0.7
	}
	return math.Pow(decay, float64(hopCount))
}

// Precision implements the weighted combination in spec §4.9: entity count
// (30%, diminishing returns), temporal precision (30%), quote presence
// (20%), document citation (20%).
func Precision(entityCount int, hasExplicitTemporal, hasQuote, hasDocCitation bool) float64 {
	entityScore := 1 - 1/(1+float64(entityCount)) // diminishing returns, asymptotes to 1
	if entityCount == 0 {
		entityScore = 0
	}
	temporalScore := 0.0
	if hasExplicitTemporal {
		temporalScore = 1.0
	}
	quoteScore := 0.0
	if hasQuote {
		quoteScore = 1.0
	}
	docScore := 0.0
	if hasDocCitation {
		docScore = 1.0
	}
	return 0.3*entityScore + 0.3*temporalScore + 0.2*quoteScore + 0.2*docScore
}

// PerSourceScore computes one source's contribution: SourceCred x Proximity x Precision.
func PerSourceScore(sourceCred, proximity, precision float64) float64 {
	return sourceCred * proximity * precision
}

// EchoSource is one source contributing to a multi-source fact's
// credibility, already reduced to its per-source score plus the root of
// its attribution chain (for clustering, spec §4.9).
type EchoSource struct {
	Score            float64
	AttributionRoot  string
	RootIsPrimary    bool
}

// Credibility applies logarithmic echo dampening across a root source plus
// its echoes, clustered by attribution-chain root (spec §4.9):
//
//	total = S_root + alpha * log10(1 + sum(S_echoes))
//
// and flags circular reporting when all sources of a non-primary root
// count reach CircularWarnThreshold.
func Credibility(sources []EchoSource, cfg EchoConfig) schema.CredibilityBreakdown {
	if cfg.ProximityDecay <= 0 {
		cfg = DefaultEchoConfig()
	}
	if len(sources) == 0 {
		return schema.CredibilityBreakdown{}
	}

	// root = highest-scoring source; echoes = the rest.
	rootIdx := 0
	for i, s := range sources[1:] {
		if s.Score > sources[rootIdx].Score {
			rootIdx = i + 1
		}
	}
	root := sources[rootIdx]

	var echoSum float64
	roots := map[string]int{root.AttributionRoot: 1}
	for i, s := range sources {
		if i == rootIdx {
			continue
		}
		echoSum += s.Score
		roots[s.AttributionRoot]++
	}

	echoBoost := cfg.EchoAlpha * math.Log10(1+echoSum)

	circular := false
	if !root.RootIsPrimary {
		for _, count := range roots {
			if count >= cfg.CircularWarnThreshold {
				circular = true
				break
			}
		}
	}

	return schema.CredibilityBreakdown{
		SourceCred:   root.Score,
		PerSource:    root.Score,
		EchoBoost:    echoBoost,
		UniqueRoots:  len(roots),
		CircularWarn: circular,
	}
}

// SourceCredibility looks up a host's authority score using urlman's
// domain-tier table (spec §4.4/§4.9 "SourceCred: baseline-table lookup").
func SourceCredibility(host string, signals urlman.SourceSignals) float64 {
	return urlman.Authority(host, signals)
}
