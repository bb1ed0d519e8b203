package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Generation providers.
const (
	ProviderMock   = "mock"
	ProviderOpenAI = "openai"
)

// Config represents the application configuration.
type Config struct {
	App        ApplicationConfig `yaml:"app"`
	SQLite     SQLiteConfig      `yaml:"sqlite"`
	Corpus     CorpusConfig      `yaml:"corpus"`
	Retrieval  RetrievalConfig   `yaml:"retrieval"`
	Generation GenerationConfig  `yaml:"generation"`
	Policy     PolicyConfig      `yaml:"policy"`
	Valuation  ValuationConfig   `yaml:"valuation"`
	Auth       AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	if err := c.Corpus.Validate(); err != nil {
		return err
	}
	if err := c.Retrieval.Validate(); err != nil {
		return err
	}
	if err := c.Generation.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// SQLiteConfig holds paths to the two SQLite databases. The catalog and
// the audit trail are deliberately separate files: the trail can be
// retained and backed up independently of corpus rebuilds.
type SQLiteConfig struct {
	CatalogPath string `yaml:"catalog_path"`
	AuditPath   string `yaml:"audit_path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.CatalogPath, validation.Required),
		validation.Field(&c.AuditPath, validation.Required),
	)
}

// CorpusConfig holds the path to the raw document corpus directory.
type CorpusConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the corpus configuration.
func (c *CorpusConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// RetrievalConfig holds evidence retrieval tuning.
type RetrievalConfig struct {
	TopK           int     `yaml:"top_k"`
	MinScore       float64 `yaml:"min_score"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
}

// Timeout returns the retrieval timeout as a duration.
func (c *RetrievalConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Validate validates the retrieval configuration.
func (c *RetrievalConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.TopK, validation.Min(0), validation.Max(6)),
		validation.Field(&c.MinScore, validation.Min(0.0), validation.Max(1.0)),
		validation.Field(&c.TimeoutSeconds, validation.Min(0)),
	)
}

// GenerationConfig selects and configures the generation port.
type GenerationConfig struct {
	Provider       string `yaml:"provider"`
	Model          string `yaml:"model"`
	APIKey         string `yaml:"api_key"`
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Timeout returns the generation timeout as a duration.
func (c *GenerationConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Validate validates the generation configuration.
func (c *GenerationConfig) Validate() error {
	if c.Provider == "" {
		c.Provider = ProviderMock
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Provider, validation.Required, validation.In(ProviderMock, ProviderOpenAI)),
		validation.Field(&c.TimeoutSeconds, validation.Min(0)),
	); err != nil {
		return err
	}
	if c.Provider == ProviderOpenAI && (c.Model == "" || c.APIKey == "") {
		return fmt.Errorf("generation: provider %q requires model and api_key", ProviderOpenAI)
	}
	return nil
}

// PolicyConfig holds paths to the policy and checklist definitions and
// the checklist worker pool size. Empty paths select built-in defaults.
type PolicyConfig struct {
	Path          string `yaml:"path"`
	ChecklistPath string `yaml:"checklist_path"`
	Workers       int    `yaml:"workers"`
}

// ValuationConfig points at the read-only valuation reporting service.
// An empty base URL disables the reporting tools.
type ValuationConfig struct {
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Timeout returns the client timeout as a duration.
func (c *ValuationConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		SQLite: SQLiteConfig{
			CatalogPath: "./attest-catalog.db",
			AuditPath:   "./attest-audit.db",
		},
		Corpus: CorpusConfig{
			Path: "./corpus",
		},
		Retrieval: RetrievalConfig{
			TopK:           6,
			MinScore:       0.2,
			TimeoutSeconds: 5,
		},
		Generation: GenerationConfig{
			Provider:       ProviderMock,
			TimeoutSeconds: 30,
		},
		Policy: PolicyConfig{
			Path:          "config/policies.yaml",
			ChecklistPath: "config/checklist.yaml",
			Workers:       4,
		},
		Valuation: ValuationConfig{
			TimeoutSeconds: 10,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
