package app

import (
	"errors"

	"github.com/vk/gridbind/internal/binding"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	DocPath string // hcl document file or directory

	Attrs  binding.Config // attribute names for {module, options, conditions, priority}
	Strict bool           // raise ArgumentError/ParseError instead of degrading

	LogFormat string
	LogLevel  string
}

// NewConfig validates a Config and fills in attribute-name defaults.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.DocPath == "" {
		return nil, errors.New("DocPath is a required configuration field and cannot be empty")
	}

	defaults := binding.DefaultConfig()
	if cfg.Attrs.ModuleAttr == "" {
		cfg.Attrs.ModuleAttr = defaults.ModuleAttr
	}
	if cfg.Attrs.OptionsAttr == "" {
		cfg.Attrs.OptionsAttr = defaults.OptionsAttr
	}
	if cfg.Attrs.ConditionsAttr == "" {
		cfg.Attrs.ConditionsAttr = defaults.ConditionsAttr
	}
	if cfg.Attrs.PriorityAttr == "" {
		cfg.Attrs.PriorityAttr = defaults.PriorityAttr
	}

	return &cfg, nil
}
