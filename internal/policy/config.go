// Package policy enforces output constraints on synthesized answers.
// The guard runs after synthesis and before anything leaves the system;
// a violating answer is replaced wholesale with an abstention.
package policy

import (
	"fmt"
	"regexp"

	"github.com/harwell/attest/pkg/config"
)

// Config is the declarative policy, loadable from YAML. Zero values are
// filled in from defaults so a partial file still yields a full policy.
type Config struct {
	MinCitations      int      `yaml:"min_citations"`
	MinConfidence     float64  `yaml:"min_confidence"`
	MinAnswerLength   int      `yaml:"min_answer_length"`
	MaxAnswerLength   int      `yaml:"max_answer_length"`
	DisallowedTerms   []string `yaml:"disallowed_terms"`
	RestrictedAdvice  []string `yaml:"restricted_advice"`
	ProhibitedPhrases []string `yaml:"prohibited_phrases"`
}

// DefaultConfig returns the built-in policy used when no file is
// configured or the configured file is missing.
func DefaultConfig() Config {
	return Config{
		MinCitations:    1,
		MinConfidence:   0.65,
		MinAnswerLength: 10,
		MaxAnswerLength: 2000,
		DisallowedTerms: []string{
			"guarantee", "guaranteed", "certainly", "definitely",
			"always", "risk-free", "no risk", "assured",
		},
		RestrictedAdvice: []string{
			"tax structuring", "tax avoidance", "legal representation",
			"investment recommendation",
		},
		ProhibitedPhrases: []string{
			"in my opinion", "i believe", "i think", "probably",
		},
	}
}

// applyDefaults fills unset fields from DefaultConfig.
func (c *Config) applyDefaults() {
	def := DefaultConfig()
	if c.MinCitations <= 0 {
		c.MinCitations = def.MinCitations
	}
	if c.MinConfidence <= 0 {
		c.MinConfidence = def.MinConfidence
	}
	if c.MinAnswerLength <= 0 {
		c.MinAnswerLength = def.MinAnswerLength
	}
	if c.MaxAnswerLength <= 0 {
		c.MaxAnswerLength = def.MaxAnswerLength
	}
	if c.DisallowedTerms == nil {
		c.DisallowedTerms = def.DisallowedTerms
	}
	if c.RestrictedAdvice == nil {
		c.RestrictedAdvice = def.RestrictedAdvice
	}
	if c.ProhibitedPhrases == nil {
		c.ProhibitedPhrases = def.ProhibitedPhrases
	}
}

// LoadConfig reads a policy file, falling back to defaults when path is
// empty or the file does not exist. A malformed file is an error; the
// caller decides whether to keep a previous snapshot.
func LoadConfig(path string) (Config, error) {
	cfg := Config{}
	if path == "" {
		return DefaultConfig(), nil
	}
	found, err := config.LoadIfExists(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("policy: load %s: %w", path, err)
	}
	if !found {
		return DefaultConfig(), nil
	}
	cfg.applyDefaults()
	return cfg, nil
}

// termPattern compiles a case-insensitive, word-boundary pattern for a
// policy term, so "always" does not match inside "hallways".
func termPattern(term string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(term) + `\b`)
}

// compiled is an immutable, precompiled view of a Config. Snapshots are
// swapped atomically on reload; in-flight requests keep the one they
// started with.
type compiled struct {
	cfg        Config
	disallowed []*regexp.Regexp
	restricted []*regexp.Regexp
	prohibited []*regexp.Regexp
}

func compilePolicy(cfg Config) *compiled {
	c := &compiled{cfg: cfg}
	for _, t := range cfg.DisallowedTerms {
		c.disallowed = append(c.disallowed, termPattern(t))
	}
	for _, t := range cfg.RestrictedAdvice {
		c.restricted = append(c.restricted, termPattern(t))
	}
	for _, t := range cfg.ProhibitedPhrases {
		c.prohibited = append(c.prohibited, termPattern(t))
	}
	return c
}
