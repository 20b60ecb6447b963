package memorykeep

import (
	"github.com/youssefsiam38/memorykeep/hooks"
)

// Option is a functional option for configuring an Engine
type Option func(*Engine) error

// WithConfig sets the engine configuration. Zero fields take their defaults.
func WithConfig(cfg Config) Option {
	return func(e *Engine) error {
		cfg.ApplyDefaults()
		if err := cfg.Validate(); err != nil {
			return err
		}
		e.config = &cfg
		return nil
	}
}

// WithLogger sets the logger
func WithLogger(logger Logger) Option {
	return func(e *Engine) error {
		if logger != nil {
			e.logger = logger
		}
		return nil
	}
}

// WithDomain sets the domain collaborator that renders the profile block.
func WithDomain(domain Domain) Option {
	return func(e *Engine) error {
		e.domain = domain
		return nil
	}
}

// WithDirectives sets the static directive documents.
func WithDirectives(d Directives) Option {
	return func(e *Engine) error {
		e.directives = d
		return nil
	}
}

// WithHooks attaches an observer registry.
func WithHooks(registry *hooks.Registry) Option {
	return func(e *Engine) error {
		if registry != nil {
			e.hooks = registry
		}
		return nil
	}
}
