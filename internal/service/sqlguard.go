package service

import (
	"errors"
	"regexp"
	"strings"
	"unicode"
)

var (
	leadingFence  = regexp.MustCompile("(?i)^```(?:sqlite|sql)?[ \t]*\n?")
	trailingFence = regexp.MustCompile("\n?```[ \t]*$")
)

// cleanSQL strips the markdown code fences models tend to wrap queries in.
func cleanSQL(raw string) string {
	s := strings.TrimSpace(raw)
	s = leadingFence.ReplaceAllString(s, "")
	s = trailingFence.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// checkSelect accepts exactly one SELECT statement and returns it without the
// trailing semicolon. Statement separators and comments outside quoted text are rejected.
func checkSelect(stmt string) (string, error) {
	s := strings.TrimSpace(stmt)
	for strings.HasSuffix(s, ";") {
		s = strings.TrimSpace(strings.TrimSuffix(s, ";"))
	}
	if s == "" {
		return "", errors.New("empty statement")
	}

	var quote rune
	runes := []rune(s)
	for i, r := range runes {
		if quote != 0 {
			if r == quote {
				quote = 0
			}
			continue
		}
		switch r {
		case '\'', '"', '`':
			quote = r
		case '[':
			quote = ']'
		case ';':
			return "", errors.New("multiple statements are not allowed")
		case '-':
			if i+1 < len(runes) && runes[i+1] == '-' {
				return "", errors.New("comments are not allowed")
			}
		case '/':
			if i+1 < len(runes) && runes[i+1] == '*' {
				return "", errors.New("comments are not allowed")
			}
		}
	}
	if quote != 0 {
		return "", errors.New("unterminated quoted text")
	}

	end := strings.IndexFunc(s, func(r rune) bool { return !unicode.IsLetter(r) })
	keyword := s
	if end >= 0 {
		keyword = s[:end]
	}
	if !strings.EqualFold(keyword, "SELECT") {
		return "", errors.New("only SELECT statements are allowed")
	}
	return s, nil
}
