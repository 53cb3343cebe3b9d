package sqldriver

import (
	"strings"
	"unicode"
)

// Split breaks a script into statements at semicolons that are outside
// string literals, quoted identifiers and comments. Statements made only of
// whitespace and comments are dropped.
//
// Inside CREATE TRIGGER the body's own semicolons do not end the statement;
// only a semicolon following END does, which is the rule SQLite's
// sqlite3_complete applies.
func Split(script string) []string {
	var (
		stmts   []string
		start   int
		hasCode bool
		head    []string // leading keywords of the current statement
		last    string   // previous token, upper-cased when it is a word
	)

	flush := func(end int) {
		if hasCode {
			stmts = append(stmts, strings.TrimSpace(script[start:end]))
		}
		start = end + 1
		hasCode = false
		head = head[:0]
		last = ""
	}

	for i := 0; i < len(script); i++ {
		c := script[i]
		switch {
		case c == '\'' || c == '"' || c == '`':
			hasCode = true
			last = ""
			i = skipQuoted(script, i, c)
		case c == '[':
			hasCode = true
			last = ""
			if j := strings.IndexByte(script[i:], ']'); j >= 0 {
				i += j
			} else {
				i = len(script) - 1
			}
		case c == '-' && i+1 < len(script) && script[i+1] == '-':
			if j := strings.IndexByte(script[i:], '\n'); j >= 0 {
				i += j
			} else {
				i = len(script) - 1
			}
		case c == '/' && i+1 < len(script) && script[i+1] == '*':
			if j := strings.Index(script[i+2:], "*/"); j >= 0 {
				i += j + 3
			} else {
				i = len(script) - 1
			}
		case c == ';':
			if isTrigger(head) && last != "END" {
				last = ""
				continue
			}
			flush(i)
		case isWordByte(c):
			hasCode = true
			j := i
			for j < len(script) && isWordByte(script[j]) {
				j++
			}
			last = strings.ToUpper(script[i:j])
			if len(head) < 3 {
				head = append(head, last)
			}
			i = j - 1
		case !unicode.IsSpace(rune(c)):
			hasCode = true
			last = ""
		}
	}
	if start < len(script) {
		flush(len(script))
	}
	return stmts
}

func isWordByte(c byte) bool {
	return c == '_' || c == '$' || c >= 0x80 ||
		('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9')
}

// isTrigger reports whether the leading keywords open a CREATE TRIGGER.
func isTrigger(head []string) bool {
	if len(head) < 2 || head[0] != "CREATE" {
		return false
	}
	if head[1] == "TRIGGER" {
		return true
	}
	return len(head) == 3 && (head[1] == "TEMP" || head[1] == "TEMPORARY") && head[2] == "TRIGGER"
}

// skipQuoted returns the index of the closing quote of the literal that
// opens at i. A doubled quote inside the literal is an escape.
func skipQuoted(s string, i int, q byte) int {
	for j := i + 1; j < len(s); j++ {
		if s[j] != q {
			continue
		}
		if j+1 < len(s) && s[j+1] == q {
			j++
			continue
		}
		return j
	}
	return len(s) - 1
}
