// Package checklist evaluates uploaded documents against a configurable
// set of compliance requirements and aggregates the results into a
// reviewer-facing feedback verdict.
package checklist

import (
	"fmt"

	"github.com/harwell/attest/internal/models"
	"github.com/harwell/attest/pkg/config"
)

// Config is the checklist definition, loadable from YAML.
type Config struct {
	Items []models.ChecklistItem `yaml:"items"`
}

// DefaultConfig returns the built-in checklist used when no file is
// configured. It covers the disclosure areas reviewers check first on
// financial-instrument documentation.
func DefaultConfig() Config {
	return Config{Items: []models.ChecklistItem{
		{
			ID:          "classification",
			Key:         "classification_basis",
			Description: "states the classification basis for financial instruments (amortised cost, FVOCI, or FVTPL)",
			Critical:    true,
			Category:    "IFRS 9",
		},
		{
			ID:          "measurement",
			Key:         "measurement_approach",
			Description: "describes the initial and subsequent measurement approach for recognised instruments",
			Critical:    true,
			Category:    "IFRS 9",
		},
		{
			ID:          "impairment",
			Key:         "expected_credit_losses",
			Description: "addresses impairment using the expected credit loss model",
			Critical:    true,
			Category:    "IFRS 9",
		},
		{
			ID:          "hedge-documentation",
			Key:         "hedge_documentation",
			Description: "documents hedging relationships, risk management objective and hedge effectiveness",
			Critical:    false,
			Category:    "IFRS 9",
		},
		{
			ID:          "fair-value-hierarchy",
			Key:         "fair_value_hierarchy",
			Description: "discloses the fair value hierarchy level for instruments measured at fair value",
			Critical:    false,
			Category:    "IFRS 13",
		},
		{
			ID:          "risk-disclosures",
			Key:         "risk_disclosures",
			Description: "discloses credit, liquidity and market risk exposures arising from financial instruments",
			Critical:    false,
			Category:    "IFRS 7",
		},
	}}
}

// LoadConfig reads a checklist file, falling back to the built-in
// checklist when path is empty or the file does not exist. A file with
// no items is treated as malformed.
func LoadConfig(path string) (Config, error) {
	cfg := Config{}
	if path == "" {
		return DefaultConfig(), nil
	}
	found, err := config.LoadIfExists(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("checklist: load %s: %w", path, err)
	}
	if !found {
		return DefaultConfig(), nil
	}
	if len(cfg.Items) == 0 {
		return Config{}, fmt.Errorf("checklist: %s defines no items", path)
	}
	for i, item := range cfg.Items {
		if item.ID == "" || item.Description == "" {
			return Config{}, fmt.Errorf("checklist: item %d missing id or description", i)
		}
	}
	return cfg, nil
}
