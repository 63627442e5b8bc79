package cache

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/wbdigital-chatbot/server/internal/agent/model"
	"github.com/wbdigital-chatbot/server/internal/agent/textutil"
)

//go:embed patterns.yaml
var defaultPatterns []byte

type patternFile struct {
	Rules []model.PatternRule `yaml:"rules"`
}

// PatternCache is the static first tier. It is read-only after construction.
type PatternCache struct {
	rules []model.PatternRule
}

// NewPatternCache normalizes triggers once so Match only lowercases the message.
func NewPatternCache(rules []model.PatternRule) *PatternCache {
	normalized := make([]model.PatternRule, 0, len(rules))
	for _, r := range rules {
		triggers := make([]string, 0, len(r.Triggers))
		for _, t := range r.Triggers {
			if t = textutil.Normalize(t); t != "" {
				triggers = append(triggers, t)
			}
		}
		r.Triggers = triggers
		normalized = append(normalized, r)
	}
	return &PatternCache{rules: normalized}
}

// ParsePatternRules decodes a YAML rule table.
func ParsePatternRules(data []byte) ([]model.PatternRule, error) {
	var f patternFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode pattern rules: %w", err)
	}
	for i, r := range f.Rules {
		if r.Category == "" {
			return nil, fmt.Errorf("pattern rule %d: missing category", i)
		}
		if len(r.Triggers) == 0 {
			return nil, fmt.Errorf("pattern rule %q: no triggers", r.Category)
		}
		if r.Responses.For(model.DefaultLanguage) == "" {
			return nil, fmt.Errorf("pattern rule %q: missing %s response", r.Category, model.DefaultLanguage)
		}
		if r.Intent != "" && !r.Intent.Valid() {
			return nil, fmt.Errorf("pattern rule %q: unknown intent %q", r.Category, r.Intent)
		}
	}
	return f.Rules, nil
}

// LoadPatternRules reads rules from path, or the embedded table when path is empty.
func LoadPatternRules(path string) ([]model.PatternRule, error) {
	if path == "" {
		return ParsePatternRules(defaultPatterns)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pattern rules: %w", err)
	}
	return ParsePatternRules(data)
}

// Match returns the first rule, in table order, with a trigger contained in message.
func (p *PatternCache) Match(message string, lang model.Language) (model.PatternMatch, bool) {
	msg := strings.ToLower(message)
	for _, r := range p.rules {
		for _, t := range r.Triggers {
			if strings.Contains(msg, t) {
				return model.PatternMatch{
					Category: r.Category,
					Intent:   r.Intent,
					Response: r.Responses.For(lang),
				}, true
			}
		}
	}
	return model.PatternMatch{}, false
}

// Len is the number of loaded rules.
func (p *PatternCache) Len() int {
	return len(p.rules)
}
