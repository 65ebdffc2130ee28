package config

import (
	"fmt"
	"os"

	"github.com/zeusync/swimrace/internal/core/observability/log"
)

// Settings are the process-level knobs handed in by the CLI.
type Settings struct {
	BalancePath string
	CatalogPath string
	LogLevel    string
}

// ProvideBalance loads the balance file (or defaults), overlays the
// environment and validates the result.
func ProvideBalance(s Settings) (Balance, error) {
	b := DefaultBalance()
	if s.BalancePath != "" {
		f, err := os.Open(s.BalancePath)
		if err != nil {
			return Balance{}, fmt.Errorf("open balance: %w", err)
		}
		defer f.Close()
		if b, err = LoadBalanceYAML(f); err != nil {
			return Balance{}, err
		}
	}
	if err := ApplyEnv(&b); err != nil {
		return Balance{}, err
	}
	if err := b.Validate(); err != nil {
		return Balance{}, err
	}
	return b, nil
}

// ProvideCatalog loads the catalog file, falling back to the embedded presets.
func ProvideCatalog(s Settings) (*Catalog, error) {
	if s.CatalogPath == "" {
		return DefaultCatalog()
	}
	f, err := os.Open(s.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()
	return LoadCatalogYAML(f)
}

func ProvideLogLevel(s Settings) log.Level {
	return log.ParseLevel(s.LogLevel)
}
