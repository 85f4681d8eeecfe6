package parser

import "log/slog"

// Config holds the parser's tunable behavior (spec.md §4.2): whether
// array literals and parenthesized grouping are recognized, strict
// filter handling, and the maximum pushdown depth. Built through
// functional options, the way every configurable component in this
// module is (see lexer.Option, render.Option).
type Config struct {
	ArrayLiterals bool
	Grouping      bool
	StrictFilters bool
	MaxDepth      int
	Logger        *slog.Logger
}

func defaultConfig() Config {
	return Config{
		ArrayLiterals: true,
		Grouping:      true,
		StrictFilters: false,
		MaxDepth:      250,
	}
}

// Option configures a Parser at construction.
type Option func(*Config)

// WithArrayLiterals enables or disables `[a, b, c]` syntax.
func WithArrayLiterals(enabled bool) Option {
	return func(c *Config) { c.ArrayLiterals = enabled }
}

// WithGrouping enables or disables `( expr )` in every expression; the
// setting is not limited to `{% assign %}`.
func WithGrouping(enabled bool) Option {
	return func(c *Config) { c.Grouping = enabled }
}

// WithStrictFilters turns an unknown filter name into a hard parse
// error instead of a warning-producing placeholder node.
func WithStrictFilters(strict bool) Option {
	return func(c *Config) { c.StrictFilters = strict }
}

// WithMaxDepth bounds pushdown nesting; exceeding it is
// PARSE_DEPTH_EXCEEDED.
func WithMaxDepth(depth int) Option {
	return func(c *Config) { c.MaxDepth = depth }
}

// WithLogger attaches a debug logger, propagated to the lexer.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) { c.Logger = logger }
}
