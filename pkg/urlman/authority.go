package urlman

import "strings"

// baseAuthority is the domain-tier lookup table (spec §4.4).
var baseAuthority = []struct {
	suffix string
	score  float64
}{
	{".gov", 0.85},
	{".edu", 0.85},
	{".org", 0.7},
}

// wireServices get the highest baseline; named explicitly since "wire
// service" is not a TLD-detectable property.
var wireServices = map[string]float64{
	"reuters.com":  0.9,
	"apnews.com":   0.9,
	"afp.com":      0.9,
	"bloomberg.com": 0.9,
}

var socialDomains = map[string]struct{}{
	"reddit.com":  {},
	"twitter.com": {},
	"x.com":       {},
}

// SourceSignals are metadata-derived adjustments layered on the baseline
// (spec §4.4).
type SourceSignals struct {
	VerifiedAuthor     bool
	RecentPublication  bool
	HighEngagement     bool
}

// Authority computes the baseline + adjustment authority score for host,
// clamped to [0, 1].
func Authority(host string, signals SourceSignals) float64 {
	host = strings.ToLower(host)
	registrable := Registrable(host)

	score := 0.5 // unknown baseline
	if s, ok := wireServices[registrable]; ok {
		score = s
	} else if _, ok := socialDomains[registrable]; ok {
		score = 0.3
	} else {
		for _, tier := range baseAuthority {
			if strings.HasSuffix(host, tier.suffix) {
				score = tier.score
				break
			}
		}
	}

	if signals.VerifiedAuthor {
		score += 0.05
	}
	if signals.RecentPublication {
		score += 0.03
	}
	if signals.HighEngagement {
		score += 0.02
	}

	if score > 1 {
		score = 1
	}
	if score < 0 {
		score = 0
	}
	return score
}
