package textutil

import "strings"

// NeutralizeTags rewrites <name> and </name> markers in s as [name] and [/name]
// so injected text cannot close or open a prompt section.
func NeutralizeTags(s string, names ...string) string {
	pairs := make([]string, 0, len(names)*4)
	for _, n := range names {
		pairs = append(pairs,
			"<"+n+">", "["+n+"]",
			"</"+n+">", "[/"+n+"]",
		)
	}
	return strings.NewReplacer(pairs...).Replace(s)
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
