package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadWatchtowerConfigDefaultsWithNoFile(t *testing.T) {
	cfg, err := LoadWatchtowerConfig("")
	require.NoError(t, err)

	assert.Equal(t, 50, cfg.LLM.RPM)
	assert.Equal(t, 100000, cfg.LLM.TPM)
	assert.Equal(t, 10, cfg.Extraction.BatchSize)
	assert.Equal(t, 8, cfg.Verification.BatchSize)
	assert.Equal(t, 3, cfg.Verification.MaxQueryAttempts)
	require.NotNil(t, cfg.Verification.HumanReviewForCritical)
	assert.True(t, *cfg.Verification.HumanReviewForCritical)
	assert.InDelta(t, 0.3, cfg.Dedup.SemanticThreshold, 1e-9)
	assert.InDelta(t, 0.2, cfg.Echo.Alpha, 1e-9)
	assert.InDelta(t, 0.7, cfg.Proximity.Decay, 1e-9)
	assert.Equal(t, 7, cfg.Orchestrator.MaxRefinements)
	assert.InDelta(t, 0.2, cfg.Orchestrator.DiminishingReturnsThreshold, 1e-9)
	assert.InDelta(t, 0.7, cfg.Coverage.SourceDiversity, 1e-9)
	assert.InDelta(t, 0.6, cfg.Coverage.Geographic, 1e-9)
	assert.InDelta(t, 0.5, cfg.Coverage.Temporal, 1e-9)
	assert.InDelta(t, 0.6, cfg.Coverage.Topic, 1e-9)
}

func TestLoadWatchtowerConfigMissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := LoadWatchtowerConfig(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Orchestrator.MaxRefinements)
}

func TestLoadWatchtowerConfigUserFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "watchtower.yaml")
	content := `
llm:
  model: claude-sonnet
  rpm: 20
orchestrator:
  max_refinements: 3
mock_mode: true
crawler:
  reddit:
    rate_per_second: 0.5
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadWatchtowerConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "claude-sonnet", cfg.LLM.Model)
	assert.Equal(t, 20, cfg.LLM.RPM)
	assert.Equal(t, 3, cfg.Orchestrator.MaxRefinements)
	assert.True(t, cfg.MockMode)
	// Untouched fields keep their defaults.
	assert.Equal(t, 10, cfg.Extraction.BatchSize)
	assert.InDelta(t, 0.5, cfg.Crawler["reddit"].RatePerSecond, 1e-9)
}

func TestRequireLLMCredentialRefusesWithoutCredentialOrMockMode(t *testing.T) {
	cfg, err := LoadWatchtowerConfig("")
	require.NoError(t, err)

	os.Unsetenv("WATCHTOWER_TEST_LLM_KEY")
	assert.Error(t, cfg.RequireLLMCredential("WATCHTOWER_TEST_LLM_KEY"))

	t.Setenv("WATCHTOWER_TEST_LLM_KEY", "sk-test")
	assert.NoError(t, cfg.RequireLLMCredential("WATCHTOWER_TEST_LLM_KEY"))
}

func TestRequireLLMCredentialAllowsMockModeWithoutCredential(t *testing.T) {
	cfg, err := LoadWatchtowerConfig("")
	require.NoError(t, err)
	cfg.MockMode = true

	os.Unsetenv("WATCHTOWER_TEST_LLM_KEY_2")
	assert.NoError(t, cfg.RequireLLMCredential("WATCHTOWER_TEST_LLM_KEY_2"))
}

func TestConversionMethodsWireDownstreamConfigs(t *testing.T) {
	cfg, err := LoadWatchtowerConfig("")
	require.NoError(t, err)

	limiter := cfg.LLMLimiterConfig()
	assert.Equal(t, 50, limiter.RPM)
	assert.Equal(t, 100000, limiter.TPM)

	echo := cfg.EchoConfig()
	assert.InDelta(t, 0.7, echo.ProximityDecay, 1e-9)
	assert.InDelta(t, 0.2, echo.EchoAlpha, 1e-9)

	orch := cfg.OrchestratorConfig()
	assert.Equal(t, 7, orch.MaxRefinements)

	targets := cfg.CoverageTargets()
	assert.InDelta(t, 0.7, targets.SourceDiversity, 1e-9)
}

func TestHostLimiterOverridesConvertsCrawlerMap(t *testing.T) {
	cfg, err := LoadWatchtowerConfig("")
	require.NoError(t, err)
	cfg.Crawler["rss"] = CrawlerSourceSettings{RatePerSecond: 2}

	overrides := cfg.HostLimiterOverrides()
	assert.InDelta(t, 2.0, overrides["rss"], 1e-9)
}
