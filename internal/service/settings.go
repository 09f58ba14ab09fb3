package service

import (
	"errors"
	"fmt"

	"github.com/autolink/autolink/internal/config"
	"github.com/autolink/autolink/internal/patterns"
)

// Settings are the reloadable parts of the config.
type Settings struct {
	Categories   []patterns.Category
	Registry     *patterns.Registry
	MaxTextBytes int64
	RateLimit    config.RateLimitConfig
}

func SettingsFromConfig(cfg *config.Config) (*Settings, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	categories, err := cfg.ScanCategories()
	if err != nil {
		return nil, fmt.Errorf("scan categories: %w", err)
	}
	if cfg.Scan.CustomPattern != "" {
		if err := patterns.ValidatePattern(cfg.Scan.CustomPattern); err != nil {
			return nil, err
		}
	}
	maxText := cfg.Scan.MaxTextBytes
	if maxText <= 0 {
		maxText = config.DefaultMaxTextBytes
	}
	return &Settings{
		Categories:   categories,
		Registry:     patterns.NewRegistry(cfg.Scan.CustomPattern),
		MaxTextBytes: maxText,
		RateLimit:    cfg.RateLimit,
	}, nil
}
