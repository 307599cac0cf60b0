// Package query provides pattern-based intent classification and filter
// extraction for natural-language queries over the ticketing dataset.
package query

import (
	_ "embed"
	"fmt"
	"regexp"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/supportlens/supportlens/pkg/models"
)

//go:embed patterns.yaml
var patternsYAML []byte

// Pattern is one entry of the static pattern library. Priority is an
// explicit numeric field rather than source position, so adding entries
// later cannot silently reshuffle match precedence.
type Pattern struct {
	Intent               models.Intent `yaml:"intent"`
	Category             string        `yaml:"category"`
	Operation            string        `yaml:"operation"`
	Priority             int           `yaml:"priority"`
	RequiresContext      bool          `yaml:"requires_context"`
	RequiresConfirmation bool          `yaml:"requires_confirmation"`
	Description          string        `yaml:"description"`
	Patterns             []string      `yaml:"patterns"`

	compiled []*regexp.Regexp
}

// Library is the immutable, priority-sorted pattern library.
type Library struct {
	Entries []Pattern
}

type libraryFile struct {
	Patterns []Pattern `yaml:"patterns"`
}

// LoadLibrary parses and compiles the embedded pattern library.
// All regexes compile case-insensitively. Called once at startup.
func LoadLibrary() (*Library, error) {
	var file libraryFile
	if err := yaml.Unmarshal(patternsYAML, &file); err != nil {
		return nil, fmt.Errorf("parse pattern library: %w", err)
	}
	if len(file.Patterns) == 0 {
		return nil, fmt.Errorf("pattern library is empty")
	}

	for i := range file.Patterns {
		entry := &file.Patterns[i]
		if !models.KnownIntents[entry.Intent] {
			return nil, fmt.Errorf("pattern %q: unknown intent %q", entry.Description, entry.Intent)
		}
		if len(entry.Patterns) == 0 {
			return nil, fmt.Errorf("pattern %q: no regexes", entry.Description)
		}
		entry.compiled = make([]*regexp.Regexp, 0, len(entry.Patterns))
		for _, expr := range entry.Patterns {
			re, err := regexp.Compile("(?i)" + expr)
			if err != nil {
				return nil, fmt.Errorf("pattern %q: compile %q: %w", entry.Description, expr, err)
			}
			entry.compiled = append(entry.compiled, re)
		}
	}

	// Sort once at load time; iteration order everywhere else is priority order.
	sort.SliceStable(file.Patterns, func(i, j int) bool {
		return file.Patterns[i].Priority < file.Patterns[j].Priority
	})

	return &Library{Entries: file.Patterns}, nil
}

// Match returns the first entry whose regexes match the query, or nil.
func (l *Library) Match(query string) *Pattern {
	for i := range l.Entries {
		entry := &l.Entries[i]
		for _, re := range entry.compiled {
			if re.MatchString(query) {
				return entry
			}
		}
	}
	return nil
}
