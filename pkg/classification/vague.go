// Package classification implements the classification engine (spec §4.9):
// credibility scoring with echo dampening, impact tiering, the four-gate
// dubious taxonomy, contradiction detection, and priority scoring — plus
// the classification store (spec §4.10).
package classification

import "regexp"

// vaguePattern matches the starter vague-attribution set named in spec §9's
// open question (FOG gate "attribution matches vague pattern"). Documented
// as a tunable starting point, not an exhaustive list.
var vaguePattern = regexp.MustCompile(`(?i)\b(allegedly|reportedly|sources say|officials familiar with|sources close to|may|might|appears to|is said to)\b`)

// IsVagueAttribution reports whether text matches the configured
// vague-attribution/hedge pattern set.
func IsVagueAttribution(text string) bool {
	return vaguePattern.MatchString(text)
}
