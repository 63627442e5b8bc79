package model

// PatternRule is one canned-response category of the pattern cache.
type PatternRule struct {
	Category  string    `yaml:"category"`
	Intent    Intent    `yaml:"intent"`
	Triggers  []string  `yaml:"triggers"`
	Responses Localized `yaml:"responses"`
}

// PatternMatch is the outcome of a pattern-cache hit.
type PatternMatch struct {
	Category string
	Intent   Intent
	Response string
}
