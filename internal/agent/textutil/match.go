package textutil

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	// loose phone shape: optional +country, optional (area), 8+ digits overall
	phonePattern = regexp.MustCompile(`\+?\d{0,3}[\s.\-]?\(?\d{2,3}\)?[\s.\-]?\d{4,5}[\s.\-]?\d{4}`)
)

// Normalize lowercases s and collapses runs of whitespace.
func Normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// ContainsPhrase reports whether phrase occurs in s on word boundaries.
// Both arguments are expected to be normalized.
func ContainsPhrase(s, phrase string) bool {
	if phrase == "" {
		return false
	}
	for offset := 0; offset < len(s); {
		i := strings.Index(s[offset:], phrase)
		if i < 0 {
			return false
		}
		start := offset + i
		end := start + len(phrase)
		if boundaryBefore(s, start) && boundaryAfter(s, end) {
			return true
		}
		_, size := utf8.DecodeRuneInString(s[start:])
		offset = start + size
	}
	return false
}

// ContainsAny reports whether any phrase matches.
func ContainsAny(s string, phrases []string) bool {
	_, ok := FirstMatch(s, phrases)
	return ok
}

// FirstMatch returns the first phrase, in list order, that occurs in s.
func FirstMatch(s string, phrases []string) (string, bool) {
	for _, p := range phrases {
		if ContainsPhrase(s, p) {
			return p, true
		}
	}
	return "", false
}

// WordCount counts whitespace-separated tokens.
func WordCount(s string) int {
	return len(strings.Fields(s))
}

// HasContact reports whether s contains an email address or phone number.
func HasContact(s string) bool {
	return emailPattern.MatchString(s) || phonePattern.MatchString(s)
}

// ExtractContacts returns every email and phone number found in s.
func ExtractContacts(s string) []string {
	var out []string
	out = append(out, emailPattern.FindAllString(s, -1)...)
	for _, p := range phonePattern.FindAllString(s, -1) {
		out = append(out, strings.TrimSpace(p))
	}
	return out
}

func boundaryBefore(s string, i int) bool {
	if i == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(s[:i])
	return !isWordRune(r)
}

func boundaryAfter(s string, i int) bool {
	if i >= len(s) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(s[i:])
	return !isWordRune(r)
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
