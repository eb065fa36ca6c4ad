package aliasing

import (
	"log/slog"
	"regexp"
	"strings"
)

type (
	// compiledPattern holds a pre-compiled regex pattern and its canonical
	// template.
	compiledPattern struct {
		regex     *regexp.Regexp
		canonical string
		variables []string
	}

	// Resolver resolves span kinds using pattern-based aliasing.
	// Thread-safe for concurrent use (immutable after construction).
	//
	// The resolver maps producer-specific kind tags to canonical kinds so
	// that a single kinds filter matches events from heterogeneous agent
	// frameworks.
	//
	// Pattern syntax:
	//   - {variable} captures one dot-free segment
	//   - Literal characters match exactly
	//   - First matching pattern wins (order matters)
	Resolver struct {
		patterns []compiledPattern
	}
)

// variableRegex matches {name} placeholders in the pattern string.
var variableRegex = regexp.MustCompile(`\{([a-zA-Z_][a-zA-Z0-9_]*)\}`)

// compilePattern converts a pattern string to a compiled regex.
//
// Pattern: "{provider}.tool.run" → Regex: ^(?P<provider>[^.]+)\.tool\.run$.
func compilePattern(pattern string) (*regexp.Regexp, []string, error) {
	variables := make([]string, 0, 2) //nolint:mnd // preallocate for typical pattern

	// Escape regex special characters in literal parts, then swap the
	// escaped placeholders back in as named capture groups.
	result := regexp.QuoteMeta(pattern)

	matches := variableRegex.FindAllStringSubmatch(pattern, -1)
	for _, match := range matches {
		fullMatch := match[0] // e.g. "{provider}"
		varName := match[1]   // e.g. "provider"

		variables = append(variables, varName)

		// Kinds are dot-delimited, so {var} captures one dot-free segment
		captureGroup := "(?P<" + varName + ">[^.]+)"

		escapedVar := regexp.QuoteMeta(fullMatch)
		result = strings.Replace(result, escapedVar, captureGroup, 1)
	}

	// Anchor the regex to match the entire kind
	result = "^" + result + "$"

	regex, err := regexp.Compile(result)
	if err != nil {
		return nil, nil, err
	}

	return regex, variables, nil
}

// substituteVariables replaces {var} placeholders in canonical with captured
// values.
func substituteVariables(canonical string, captures map[string]string) string {
	result := canonical

	for varName, value := range captures {
		result = strings.ReplaceAll(result, "{"+varName+"}", value)
	}

	return result
}

// NewResolver creates a resolver from config with validation.
//
// Validates:
//   - Aliases with empty pattern or canonical are skipped with warning
//   - Aliases with invalid patterns are skipped with warning
//
// Returns a resolver containing only valid patterns. If config is nil or
// has no aliases, returns a no-op resolver (passthrough).
func NewResolver(cfg *Config) *Resolver {
	if cfg == nil || len(cfg.KindAliases) == 0 {
		return &Resolver{
			patterns: []compiledPattern{},
		}
	}

	validPatterns := make([]compiledPattern, 0, len(cfg.KindAliases))

	for _, alias := range cfg.KindAliases {
		pattern := strings.TrimSpace(alias.Pattern)
		canonical := strings.TrimSpace(alias.Canonical)

		if pattern == "" {
			slog.Warn("Skipping kind alias with empty pattern")

			continue
		}

		if canonical == "" {
			slog.Warn("Skipping kind alias with empty canonical",
				slog.String("pattern", pattern))

			continue
		}

		regex, variables, err := compilePattern(pattern)
		if err != nil {
			slog.Warn("Skipping kind alias with invalid pattern",
				slog.String("pattern", pattern),
				slog.String("error", err.Error()))

			continue
		}

		validPatterns = append(validPatterns, compiledPattern{
			regex:     regex,
			canonical: canonical,
			variables: variables,
		})

		slog.Debug("Compiled kind alias",
			slog.String("pattern", pattern),
			slog.String("canonical", canonical),
			slog.Int("variables", len(variables)))
	}

	return &Resolver{
		patterns: validPatterns,
	}
}

// PatternCount returns the number of compiled patterns.
func (r *Resolver) PatternCount() int {
	if r == nil {
		return 0
	}

	return len(r.patterns)
}

// Resolve applies patterns to map a span kind to its canonical form.
// Returns the canonical kind if a pattern matches, otherwise the original.
//
// Patterns are evaluated in order; first match wins.
func (r *Resolver) Resolve(kind string) string {
	if r == nil || len(r.patterns) == 0 || kind == "" {
		return kind
	}

	for _, cp := range r.patterns {
		match := cp.regex.FindStringSubmatch(kind)
		if match == nil {
			continue
		}

		captures := make(map[string]string)

		for i, name := range cp.regex.SubexpNames() {
			if i > 0 && name != "" && i < len(match) {
				captures[name] = match[i]
			}
		}

		return substituteVariables(cp.canonical, captures)
	}

	// No pattern matched - return original
	return kind
}
