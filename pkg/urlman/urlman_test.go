package urlman

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeStripsTrackingParamsAndSortsRemaining(t *testing.T) {
	got, err := Normalize("HTTPS://Example.COM:443/a/b/?utm_source=x&z=1&a=2&fbclid=abc")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/a/b?a=2&z=1", got)
}

func TestNormalizeRemovesDefaultPort(t *testing.T) {
	got, err := Normalize("http://example.com:80/path")
	require.NoError(t, err)
	assert.Equal(t, "http://example.com/path", got)
}

func TestNormalizeRemovesFragment(t *testing.T) {
	got, err := Normalize("http://example.com/path#section")
	require.NoError(t, err)
	assert.Equal(t, "http://example.com/path", got)
}

func TestNormalizeIsIdempotent(t *testing.T) {
	// spec §8: normalize(normalize(u)) == normalize(u)
	raw := "HTTPS://Example.COM:443/a/./b/../c/?utm_campaign=y&b=2&a=1"
	once, err := Normalize(raw)
	require.NoError(t, err)
	twice, err := Normalize(once)
	require.NoError(t, err)
	assert.Equal(t, once, twice)
}

func TestNormalizeResolvesDotSegments(t *testing.T) {
	got, err := Normalize("http://example.com/a/./b/../c")
	require.NoError(t, err)
	assert.Equal(t, "http://example.com/a/c", got)
}

func TestAuthorityWireServiceHighest(t *testing.T) {
	score := Authority("www.reuters.com", SourceSignals{})
	assert.InDelta(t, 0.9, score, 1e-9)
}

func TestAuthorityGovDomain(t *testing.T) {
	score := Authority("state.gov", SourceSignals{})
	assert.InDelta(t, 0.85, score, 1e-9)
}

func TestAuthorityUnknownDomainWithSignals(t *testing.T) {
	score := Authority("random-blog.net", SourceSignals{VerifiedAuthor: true, RecentPublication: true, HighEngagement: true})
	assert.InDelta(t, 0.5+0.05+0.03+0.02, score, 1e-9)
}

func TestAuthorityClampsAtOne(t *testing.T) {
	score := Authority("reuters.com", SourceSignals{VerifiedAuthor: true, RecentPublication: true, HighEngagement: true})
	assert.LessOrEqual(t, score, 1.0)
}

func TestRegistrableDropsSubdomains(t *testing.T) {
	assert.Equal(t, "reuters.com", Registrable("www.reuters.com"))
	assert.Equal(t, "reuters.com", Registrable("reuters.com"))
}

func TestDedupCheckAndMarkPerInvestigation(t *testing.T) {
	d := NewDedup()
	assert.False(t, d.CheckAndMark("inv-1", "https://example.com/a"))
	assert.True(t, d.CheckAndMark("inv-1", "https://example.com/a"))
	assert.False(t, d.CheckAndMark("inv-2", "https://example.com/a"))
}

func TestEntityContextObserveBroadcastsOnlyOnce(t *testing.T) {
	ctx := NewEntityContext(nil)
	assert.False(t, ctx.Observe("inv-1", "Vladimir Putin"))
	assert.True(t, ctx.Observe("inv-1", "vladimir putin"))
	assert.Len(t, ctx.Known("inv-1"), 1)
}
