package rhino

import (
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

// ContextSummary lists what a context can recognise.
type ContextSummary struct {
	// Intents are sorted intent names.
	Intents []string
	// Expressions maps each intent to its expression templates.
	Expressions map[string][]string
	// Slots maps each slot type to its vocabulary.
	Slots map[string][]string
}

type contextSource struct {
	Context struct {
		Expressions map[string][]string `yaml:"expressions"`
		Slots       map[string][]string `yaml:"slots"`
	} `yaml:"context"`
}

// ParseContextInfo decodes the YAML context source reported by
// Session.ContextInfo.
func ParseContextInfo(info string) (ContextSummary, error) {
	var src contextSource
	if err := yaml.Unmarshal([]byte(info), &src); err != nil {
		return ContextSummary{}, fmt.Errorf("rhino: decode context info: %w", err)
	}

	summary := ContextSummary{
		Expressions: src.Context.Expressions,
		Slots:       src.Context.Slots,
	}
	if summary.Expressions == nil {
		summary.Expressions = map[string][]string{}
	}
	if summary.Slots == nil {
		summary.Slots = map[string][]string{}
	}
	for intent := range summary.Expressions {
		summary.Intents = append(summary.Intents, intent)
	}
	sort.Strings(summary.Intents)
	return summary, nil
}
