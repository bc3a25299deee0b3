package database

import (
	"fmt"
	"strings"
	"unicode"
)

var readOnlyLeadKeywords = map[string]bool{
	"SELECT":  true,
	"WITH":    true,
	"EXPLAIN": true,
}

var writeKeywords = map[string]bool{
	"INSERT":   true,
	"UPDATE":   true,
	"DELETE":   true,
	"MERGE":    true,
	"UPSERT":   true,
	"DROP":     true,
	"ALTER":    true,
	"CREATE":   true,
	"TRUNCATE": true,
	"ATTACH":   true,
	"DETACH":   true,
	"PRAGMA":   true,
	"VACUUM":   true,
	"COPY":     true,
	"GRANT":    true,
	"REVOKE":   true,
	"INTO":     true,
}

// IsReadOnlyStatement reports whether sqlText is exactly one SELECT, WITH or
// EXPLAIN statement with no data-modifying keyword outside of literals.
func IsReadOnlyStatement(sqlText string) bool {
	return CheckReadOnly(sqlText) == nil
}

func CheckReadOnly(sqlText string) error {
	words, statements := scanStatement(StripTrailingSemicolons(sqlText))
	if len(words) == 0 {
		return fmt.Errorf("%w: empty statement", ErrStatementNotAllowed)
	}
	if statements > 1 {
		return fmt.Errorf("%w: multiple statements", ErrStatementNotAllowed)
	}
	if !readOnlyLeadKeywords[words[0]] {
		return fmt.Errorf("%w: %s", ErrStatementNotAllowed, words[0])
	}
	for _, word := range words {
		if writeKeywords[word] {
			return fmt.Errorf("%w: %s", ErrStatementNotAllowed, word)
		}
	}
	return nil
}

func StripTrailingSemicolons(sqlText string) string {
	trimmed := strings.TrimSpace(sqlText)
	for strings.HasSuffix(trimmed, ";") {
		trimmed = strings.TrimSpace(strings.TrimSuffix(trimmed, ";"))
	}
	return trimmed
}

func QuoteIdent(value string) string {
	return `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
}

// scanStatement returns the upper-cased bare words of sqlText, skipping
// string literals, quoted identifiers and comments, plus the number of
// statements separated by semicolons.
func scanStatement(sqlText string) ([]string, int) {
	words := make([]string, 0)
	statements := 0
	pendingStatement := false
	runes := []rune(sqlText)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case r == '\'' || r == '"' || r == '`':
			i = skipQuoted(runes, i, r)
			pendingStatement = true
		case r == '[':
			i = skipQuoted(runes, i, ']')
			pendingStatement = true
		case r == '-' && i+1 < len(runes) && runes[i+1] == '-':
			for i < len(runes) && runes[i] != '\n' {
				i++
			}
		case r == '/' && i+1 < len(runes) && runes[i+1] == '*':
			i += 2
			for i+1 < len(runes) && !(runes[i] == '*' && runes[i+1] == '/') {
				i++
			}
			i++
		case r == ';':
			if pendingStatement {
				statements++
				pendingStatement = false
			}
		case unicode.IsLetter(r) || r == '_':
			start := i
			for i+1 < len(runes) && (unicode.IsLetter(runes[i+1]) || unicode.IsDigit(runes[i+1]) || runes[i+1] == '_') {
				i++
			}
			words = append(words, strings.ToUpper(string(runes[start:i+1])))
			pendingStatement = true
		case !unicode.IsSpace(r):
			pendingStatement = true
		}
	}
	if pendingStatement {
		statements++
	}
	return words, statements
}

func skipQuoted(runes []rune, start int, closing rune) int {
	open := runes[start]
	if open == '[' {
		open = ']'
	}
	for i := start + 1; i < len(runes); i++ {
		if runes[i] != closing {
			continue
		}
		if closing == open && i+1 < len(runes) && runes[i+1] == closing {
			i++
			continue
		}
		return i
	}
	return len(runes)
}
