package migration

import (
	"strings"
)

// splitSQL splits a SQL script into statements on top-level semicolons.
// Semicolons inside single-quoted strings, quoted identifiers, dollar-quoted
// bodies and comments do not end a statement. Comment-only statements are
// dropped.
func splitSQL(sql string) []string {
	var statements []string
	var current strings.Builder
	hasCode := false

	flush := func() {
		if stmt := strings.TrimSpace(current.String()); stmt != "" && hasCode {
			statements = append(statements, stmt)
		}
		current.Reset()
		hasCode = false
	}

	for i := 0; i < len(sql); {
		c := sql[i]

		switch {
		case c == '-' && i+1 < len(sql) && sql[i+1] == '-':
			end := strings.IndexByte(sql[i:], '\n')
			if end == -1 {
				end = len(sql) - i
			}
			current.WriteString(sql[i : i+end])
			i += end

		case c == '/' && i+1 < len(sql) && sql[i+1] == '*':
			end := strings.Index(sql[i+2:], "*/")
			if end == -1 {
				current.WriteString(sql[i:])
				i = len(sql)
				continue
			}
			current.WriteString(sql[i : i+2+end+2])
			i += 2 + end + 2

		case c == '\'' || c == '"':
			end := closingQuote(sql, i+1, c)
			current.WriteString(sql[i:end])
			hasCode = true
			i = end

		case c == '$':
			tag, ok := dollarTag(sql[i:])
			if !ok {
				current.WriteByte(c)
				hasCode = true
				i++
				continue
			}
			end := strings.Index(sql[i+len(tag):], tag)
			if end == -1 {
				current.WriteString(sql[i:])
				hasCode = true
				i = len(sql)
				continue
			}
			stop := i + len(tag) + end + len(tag)
			current.WriteString(sql[i:stop])
			hasCode = true
			i = stop

		case c == ';':
			flush()
			i++

		default:
			if c != ' ' && c != '\t' && c != '\n' && c != '\r' {
				hasCode = true
			}
			current.WriteByte(c)
			i++
		}
	}
	flush()

	return statements
}

// closingQuote returns the index just past the quote closing a literal that
// starts at start. Doubled quotes are escapes.
func closingQuote(sql string, start int, quote byte) int {
	for i := start; i < len(sql); i++ {
		if sql[i] != quote {
			continue
		}
		if i+1 < len(sql) && sql[i+1] == quote {
			i++
			continue
		}
		return i + 1
	}
	return len(sql)
}

// dollarTag returns the opening tag ($$ or $name$) at the start of s.
func dollarTag(s string) (string, bool) {
	for i := 1; i < len(s); i++ {
		c := s[i]
		if c == '$' {
			return s[:i+1], true
		}
		isIdent := c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (i > 1 && c >= '0' && c <= '9')
		if !isIdent {
			return "", false
		}
	}
	return "", false
}
