package config

import (
	"fmt"
	"os"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"

	"github.com/watchtower-oss/watchtower/pkg/classification"
	"github.com/watchtower-oss/watchtower/pkg/orchestrator"
	"github.com/watchtower-oss/watchtower/pkg/ratelimit"
)

// WatchtowerYAMLConfig is the watchtower.yaml file structure (spec §6.4),
// loaded and merged the same way TarsyYAMLConfig is: defaults first, then
// an optional user file layered on top with dario.cat/mergo, with env vars
// expanded via ExpandEnv before parsing.
type WatchtowerYAMLConfig struct {
	LLM           *LLMSettings           `yaml:"llm"`
	Extraction    *ExtractionSettings    `yaml:"extraction"`
	Verification  *VerificationSettings  `yaml:"verification"`
	Dedup         *DedupSettings         `yaml:"dedup"`
	Echo          *EchoSettings          `yaml:"echo"`
	Proximity     *ProximitySettings     `yaml:"proximity"`
	Orchestrator  *OrchestratorSettings  `yaml:"orchestrator"`
	Coverage      *CoverageSettings      `yaml:"coverage"`
	Crawler       map[string]CrawlerSourceSettings `yaml:"crawler"`
	MockMode      bool                   `yaml:"mock_mode"`
}

// LLMSettings covers spec §6.4's llm.* options.
type LLMSettings struct {
	Model string `yaml:"model"`
	RPM   int    `yaml:"rpm"`
	TPM   int    `yaml:"tpm"`
}

// ExtractionSettings covers extraction.batch_size.
type ExtractionSettings struct {
	BatchSize int `yaml:"batch_size"`
}

// VerificationSettings covers verification.batch_size,
// verification.max_query_attempts, verification.human_review_for_critical.
type VerificationSettings struct {
	BatchSize              int   `yaml:"batch_size"`
	MaxQueryAttempts       int   `yaml:"max_query_attempts"`
	HumanReviewForCritical *bool `yaml:"human_review_for_critical,omitempty"`
}

// DedupSettings covers dedup.semantic_threshold.
type DedupSettings struct {
	SemanticThreshold float64 `yaml:"semantic_threshold"`
}

// EchoSettings covers echo.alpha.
type EchoSettings struct {
	Alpha float64 `yaml:"alpha"`
}

// ProximitySettings covers proximity.decay.
type ProximitySettings struct {
	Decay float64 `yaml:"decay"`
}

// OrchestratorSettings covers orchestrator.max_refinements and
// orchestrator.diminishing_returns_threshold.
type OrchestratorSettings struct {
	MaxRefinements              int     `yaml:"max_refinements"`
	DiminishingReturnsThreshold float64 `yaml:"diminishing_returns_threshold"`
}

// CoverageSettings covers coverage.targets, the four-dimension targets
// orchestrator.CoverageMetrics.MeetsTargets checks against.
type CoverageSettings struct {
	SourceDiversity   float64 `yaml:"source_diversity"`
	Geographic        float64 `yaml:"geographic"`
	Temporal          float64 `yaml:"temporal"`
	Topic             float64 `yaml:"topic"`
}

// CrawlerSourceSettings covers crawler.<source>.rate_per_second.
type CrawlerSourceSettings struct {
	RatePerSecond float64 `yaml:"rate_per_second"`
}

// defaultWatchtowerConfig returns spec §6.4's stated defaults, in the same
// role builtin.go's embedded defaults play for the agent/chain system.
func defaultWatchtowerConfig() WatchtowerYAMLConfig {
	humanReview := true
	return WatchtowerYAMLConfig{
		LLM:        &LLMSettings{Model: "", RPM: 50, TPM: 100000},
		Extraction: &ExtractionSettings{BatchSize: 10},
		Verification: &VerificationSettings{
			BatchSize:              8,
			MaxQueryAttempts:       3,
			HumanReviewForCritical: &humanReview,
		},
		Dedup:        &DedupSettings{SemanticThreshold: 0.3},
		Echo:         &EchoSettings{Alpha: 0.2},
		Proximity:    &ProximitySettings{Decay: 0.7},
		Orchestrator: &OrchestratorSettings{MaxRefinements: 7, DiminishingReturnsThreshold: 0.2},
		Coverage:     &CoverageSettings{SourceDiversity: 0.7, Geographic: 0.6, Temporal: 0.5, Topic: 0.6},
		Crawler:      map[string]CrawlerSourceSettings{},
	}
}

// LoadWatchtowerConfig reads path (if it exists), expands environment
// variables, and merges it over the stated defaults. A missing path is not
// an error — the defaults alone are a complete, valid configuration (spec
// §6.4: every option names a default).
func LoadWatchtowerConfig(path string) (*WatchtowerYAMLConfig, error) {
	cfg := defaultWatchtowerConfig()

	if path == "" {
		return &cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &cfg, nil
		}
		return nil, fmt.Errorf("reading watchtower config %s: %w", path, err)
	}

	var user WatchtowerYAMLConfig
	if err := yaml.Unmarshal(ExpandEnv(raw), &user); err != nil {
		return nil, fmt.Errorf("parsing watchtower config %s: %w", path, err)
	}
	if err := mergo.Merge(&cfg, user, mergo.WithOverride); err != nil {
		return nil, fmt.Errorf("merging watchtower config %s: %w", path, err)
	}
	return &cfg, nil
}

// RequireLLMCredential enforces spec §6.4: the process refuses to start
// without an LLM credential unless MockMode is set, so a forgotten
// credential fails loudly at boot rather than degrading silently mid-run.
func (c *WatchtowerYAMLConfig) RequireLLMCredential(envVar string) error {
	if c.MockMode {
		return nil
	}
	if os.Getenv(envVar) == "" {
		return fmt.Errorf("config: %s is not set and mock_mode is false; refusing to start without an LLM credential", envVar)
	}
	return nil
}

// LLMLimiterConfig converts the loaded LLM settings into the dual
// token-bucket limiter's config (pkg/ratelimit).
func (c *WatchtowerYAMLConfig) LLMLimiterConfig() ratelimit.LLMLimiterConfig {
	return ratelimit.LLMLimiterConfig{
		RPM: c.LLM.RPM,
		TPM: c.LLM.TPM,
	}
}

// HostLimiterOverrides returns crawler.<source>.rate_per_second entries
// keyed by source name, for NewHostLimiter's override map. NewHostLimiter
// matches keys against request hosts, so an entry affects only a host
// whose name equals the source name.
func (c *WatchtowerYAMLConfig) HostLimiterOverrides() map[string]float64 {
	overrides := make(map[string]float64, len(c.Crawler))
	for source, s := range c.Crawler {
		overrides[source] = s.RatePerSecond
	}
	return overrides
}

// EchoConfig converts echo.alpha/proximity.decay into the credibility
// formula's tuning struct (pkg/classification).
func (c *WatchtowerYAMLConfig) EchoConfig() classification.EchoConfig {
	cfg := classification.DefaultEchoConfig()
	cfg.ProximityDecay = c.Proximity.Decay
	cfg.EchoAlpha = c.Echo.Alpha
	return cfg
}

// OrchestratorConfig converts orchestrator.*/coverage.* into
// orchestrator.Config. Coverage targets are a package-level var in
// pkg/orchestrator (CoverageTargets) rather than part of Config, since
// MeetsTargets/Gaps read them directly — callers who need custom targets
// assign orchestrator.CoverageTargets before constructing an Orchestrator.
func (c *WatchtowerYAMLConfig) OrchestratorConfig() orchestrator.Config {
	cfg := orchestrator.DefaultConfig()
	if c.Orchestrator.MaxRefinements > 0 {
		cfg.MaxRefinements = c.Orchestrator.MaxRefinements
	}
	if c.Orchestrator.DiminishingReturnsThreshold > 0 {
		cfg.DiminishingReturnsThreshold = c.Orchestrator.DiminishingReturnsThreshold
	}
	return cfg
}

// CoverageTargets converts coverage.* into orchestrator.CoverageMetrics,
// for callers that want to override orchestrator.CoverageTargets.
func (c *WatchtowerYAMLConfig) CoverageTargets() orchestrator.CoverageMetrics {
	return orchestrator.CoverageMetrics{
		SourceDiversity:    c.Coverage.SourceDiversity,
		GeographicCoverage: c.Coverage.Geographic,
		TemporalRange:      c.Coverage.Temporal,
		TopicCompleteness:  c.Coverage.Topic,
	}
}
