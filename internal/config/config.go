package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultsVersion identifies the default set a config was built from, so a
// saved file can be told apart from one written against older defaults.
const DefaultsVersion = 1

// Weights are the composite score coefficients. GapPenalty subtracts; the
// other terms add.
type Weights struct {
	TokenSim    float64 `yaml:"token_sim"`
	Coverage    float64 `yaml:"coverage"`
	GapPenalty  float64 `yaml:"gap_penalty"`
	AnchorBonus float64 `yaml:"anchor_bonus"`
	BigramBonus float64 `yaml:"bigram_bonus"`
}

// Fallback controls the single widened retry the matcher makes before
// declaring a sentence failed.
type Fallback struct {
	ExpandWindow int     `yaml:"expand_window"`
	ElasticGap   int     `yaml:"elastic_gap"`
	TokenRatio   float64 `yaml:"token_ratio"`
}

// Fuzzy configures the windowed matcher and composite scorer.
type Fuzzy struct {
	WindowTokens int     `yaml:"window_tokens"`
	ElasticGap   int     `yaml:"elastic_gap"`
	MinAccept    float64 `yaml:"min_accept"`
	WarnAccept   float64 `yaml:"warn_accept"`
	// TokenRatio is the 0-100 fuzzy similarity cutoff for two tokens to
	// count as matching.
	TokenRatio float64  `yaml:"token_ratio"`
	MaxAnchors int      `yaml:"max_anchors"`
	Weights    Weights  `yaml:"weights"`
	Fallback   Fallback `yaml:"fallback"`
}

// Remote configures the external alignment capability.
type Remote struct {
	Enabled         bool    `yaml:"enabled"`
	BaseURL         string  `yaml:"base_url"`
	Model           string  `yaml:"model"`
	APIKeyEnv       string  `yaml:"api_key_env"`
	MaxWorkers      int     `yaml:"max_workers"`
	MaxRetries      int     `yaml:"max_retries"`
	TimeoutSeconds  int     `yaml:"timeout_seconds"`
	RetryDelayMS    int     `yaml:"retry_delay_ms"`
	ConfidenceFloor float64 `yaml:"confidence_floor"`
	// WarnConfidence is the floor below which an accepted remote result is
	// reported as a warning rather than ok.
	WarnConfidence float64 `yaml:"warn_confidence"`
	// ContextWords bounds the word window sent with each request, counted
	// from the sentence's estimated position in the stream.
	ContextWords int `yaml:"context_words"`
	// CacheDB, when set, is a sqlite file caching validated responses so
	// re-runs of the same material skip remote calls.
	CacheDB string `yaml:"cache_db"`
}

func (r Remote) Timeout() time.Duration {
	return time.Duration(r.TimeoutSeconds) * time.Second
}

func (r Remote) RetryDelay() time.Duration {
	return time.Duration(r.RetryDelayMS) * time.Millisecond
}

// Config is the single explicit configuration for an alignment run. There is
// no legacy-parameter merging: callers start from Default and overlay.
type Config struct {
	Version int    `yaml:"version"`
	Fuzzy   Fuzzy  `yaml:"fuzzy"`
	Remote  Remote `yaml:"remote"`
	PadMS   int64  `yaml:"pad_ms"`
	// FullDetails includes ok sentences in the report detail list.
	FullDetails bool `yaml:"full_details"`
}

// Default returns the versioned default configuration.
func Default() Config {
	return Config{
		Version: DefaultsVersion,
		Fuzzy: Fuzzy{
			WindowTokens: 4000,
			ElasticGap:   10,
			MinAccept:    0.85,
			WarnAccept:   0.78,
			TokenRatio:   92,
			MaxAnchors:   3,
			Weights: Weights{
				TokenSim:    0.50,
				Coverage:    0.25,
				GapPenalty:  0.20,
				AnchorBonus: 0.08,
				BigramBonus: 0.05,
			},
			Fallback: Fallback{
				ExpandWindow: 1000,
				ElasticGap:   18,
				TokenRatio:   88,
			},
		},
		Remote: Remote{
			Enabled:         false,
			BaseURL:         "https://api.x.ai/v1",
			Model:           "grok-4-fast",
			APIKeyEnv:       "XAI_API_KEY",
			MaxWorkers:      5,
			MaxRetries:      3,
			TimeoutSeconds:  30,
			RetryDelayMS:    1000,
			ConfidenceFloor: 0.5,
			WarnConfidence:  0.9,
			ContextWords:    600,
		},
		PadMS: 100,
	}
}

// Validate rejects configurations the engine cannot run with. Any error here
// is fatal at startup.
func (c Config) Validate() error {
	f := c.Fuzzy
	if f.WindowTokens <= 0 {
		return fmt.Errorf("config: fuzzy.window_tokens must be positive, got %d", f.WindowTokens)
	}
	if f.ElasticGap < 0 {
		return fmt.Errorf("config: fuzzy.elastic_gap must not be negative, got %d", f.ElasticGap)
	}
	if f.MinAccept <= 0 || f.MinAccept > 1 {
		return fmt.Errorf("config: fuzzy.min_accept must be in (0,1], got %v", f.MinAccept)
	}
	if f.WarnAccept <= 0 || f.WarnAccept > f.MinAccept {
		return fmt.Errorf("config: fuzzy.warn_accept must be in (0, min_accept], got %v", f.WarnAccept)
	}
	if f.TokenRatio <= 0 || f.TokenRatio > 100 {
		return fmt.Errorf("config: fuzzy.token_ratio must be in (0,100], got %v", f.TokenRatio)
	}
	if f.MaxAnchors < 0 {
		return fmt.Errorf("config: fuzzy.max_anchors must not be negative, got %d", f.MaxAnchors)
	}
	for name, w := range map[string]float64{
		"token_sim":    f.Weights.TokenSim,
		"coverage":     f.Weights.Coverage,
		"gap_penalty":  f.Weights.GapPenalty,
		"anchor_bonus": f.Weights.AnchorBonus,
		"bigram_bonus": f.Weights.BigramBonus,
	} {
		if w < 0 || w > 1 {
			return fmt.Errorf("config: fuzzy.weights.%s must be in [0,1], got %v", name, w)
		}
	}
	if f.Weights.TokenSim+f.Weights.Coverage+f.Weights.AnchorBonus+f.Weights.BigramBonus <= 0 {
		return fmt.Errorf("config: fuzzy weights sum to zero; no candidate could ever score")
	}
	if f.Fallback.ExpandWindow < 0 || f.Fallback.ElasticGap < 0 {
		return fmt.Errorf("config: fuzzy.fallback values must not be negative")
	}
	if f.Fallback.TokenRatio <= 0 || f.Fallback.TokenRatio > 100 {
		return fmt.Errorf("config: fuzzy.fallback.token_ratio must be in (0,100], got %v", f.Fallback.TokenRatio)
	}

	r := c.Remote
	if r.MaxWorkers <= 0 {
		return fmt.Errorf("config: remote.max_workers must be positive, got %d", r.MaxWorkers)
	}
	if r.MaxRetries < 1 {
		return fmt.Errorf("config: remote.max_retries must be at least 1, got %d", r.MaxRetries)
	}
	if r.TimeoutSeconds <= 0 {
		return fmt.Errorf("config: remote.timeout_seconds must be positive, got %d", r.TimeoutSeconds)
	}
	if r.RetryDelayMS < 0 {
		return fmt.Errorf("config: remote.retry_delay_ms must not be negative, got %d", r.RetryDelayMS)
	}
	if r.ConfidenceFloor < 0 || r.ConfidenceFloor > 1 {
		return fmt.Errorf("config: remote.confidence_floor must be in [0,1], got %v", r.ConfidenceFloor)
	}
	if r.WarnConfidence < 0 || r.WarnConfidence > 1 {
		return fmt.Errorf("config: remote.warn_confidence must be in [0,1], got %v", r.WarnConfidence)
	}
	if r.Enabled && r.ContextWords <= 0 {
		return fmt.Errorf("config: remote.context_words must be positive, got %d", r.ContextWords)
	}
	if c.PadMS < 0 {
		return fmt.Errorf("config: pad_ms must not be negative, got %d", c.PadMS)
	}
	return nil
}

// Load reads a YAML file over the defaults and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
