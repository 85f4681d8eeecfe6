package render

import (
	"log/slog"
	"time"

	"github.com/adamharrison/liquid-go/value"
)

// Config holds a Renderer's tunable behavior: falsiness policy,
// strictness flags, and the three resource limits of spec.md §4.3.
// Built through functional options (the same idiom as lexer.Option
// and parser.Option).
type Config struct {
	Policy          value.FalsinessPolicy
	StrictVariables bool
	StrictFilters   bool
	MaxDepth        int
	MaxMemory       int64
	MaxDuration     time.Duration
	Logger          *slog.Logger
}

func defaultConfig() Config {
	return Config{
		Policy:      value.Strict,
		MaxDepth:    500,
		MaxMemory:   64 << 20,
		MaxDuration: 5 * time.Second,
	}
}

// Option configures a Renderer at construction.
type Option func(*Config)

func WithPolicy(p value.FalsinessPolicy) Option { return func(c *Config) { c.Policy = p } }
func WithStrictVariables(strict bool) Option     { return func(c *Config) { c.StrictVariables = strict } }
func WithStrictFilters(strict bool) Option       { return func(c *Config) { c.StrictFilters = strict } }
func WithMaxDepth(n int) Option                  { return func(c *Config) { c.MaxDepth = n } }
func WithMaxMemory(n int64) Option               { return func(c *Config) { c.MaxMemory = n } }
func WithMaxDuration(d time.Duration) Option     { return func(c *Config) { c.MaxDuration = d } }
func WithLogger(logger *slog.Logger) Option      { return func(c *Config) { c.Logger = logger } }
