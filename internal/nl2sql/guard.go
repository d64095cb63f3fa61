package nl2sql

import (
	"fmt"
	"strings"
)

var readOnlyKeywords = map[string]struct{}{
	"SELECT":    {},
	"WITH":      {},
	"VALUES":    {},
	"DESCRIBE":  {},
	"SHOW":      {},
	"SUMMARIZE": {},
	"FROM":      {},
	"TABLE":     {},
}

// CheckReadOnly rejects SQL that is not a single read-only statement. It is
// a keyword check, not a parser: it looks at the first keyword and at
// statement separators outside of quotes and comments.
func CheckReadOnly(sql string) error {
	s := sqlScanner{src: sql}
	s.skipSpaceAndComments()
	for s.pos < len(s.src) && s.src[s.pos] == '(' {
		s.pos++
		s.skipSpaceAndComments()
	}
	keyword := strings.ToUpper(s.word())
	if keyword == "" {
		return fmt.Errorf("statement does not start with a keyword")
	}
	if _, ok := readOnlyKeywords[keyword]; !ok {
		return fmt.Errorf("statement kind %s is not allowed", keyword)
	}
	if s.hasSecondStatement() {
		return fmt.Errorf("multiple statements are not allowed")
	}
	return nil
}

type sqlScanner struct {
	src string
	pos int
}

func (s *sqlScanner) skipSpaceAndComments() {
	for s.pos < len(s.src) {
		switch {
		case isSpace(s.src[s.pos]):
			s.pos++
		case strings.HasPrefix(s.src[s.pos:], "--"):
			end := strings.IndexByte(s.src[s.pos:], '\n')
			if end < 0 {
				s.pos = len(s.src)
				return
			}
			s.pos += end + 1
		case strings.HasPrefix(s.src[s.pos:], "/*"):
			end := strings.Index(s.src[s.pos+2:], "*/")
			if end < 0 {
				s.pos = len(s.src)
				return
			}
			s.pos += end + 4
		default:
			return
		}
	}
}

func (s *sqlScanner) word() string {
	start := s.pos
	for s.pos < len(s.src) {
		c := s.src[s.pos]
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '_') {
			break
		}
		s.pos++
	}
	return s.src[start:s.pos]
}

// hasSecondStatement reports whether a ';' outside quotes and comments is
// followed by anything other than whitespace, comments, or more ';'.
func (s *sqlScanner) hasSecondStatement() bool {
	for s.pos < len(s.src) {
		switch c := s.src[s.pos]; {
		case c == '\'' || c == '"':
			s.skipQuoted(c)
		case strings.HasPrefix(s.src[s.pos:], "--"), strings.HasPrefix(s.src[s.pos:], "/*"):
			s.skipSpaceAndComments()
		case c == ';':
			s.pos++
			for {
				s.skipSpaceAndComments()
				if s.pos < len(s.src) && s.src[s.pos] == ';' {
					s.pos++
					continue
				}
				break
			}
			if s.pos < len(s.src) {
				return true
			}
		default:
			s.pos++
		}
	}
	return false
}

func (s *sqlScanner) skipQuoted(quote byte) {
	s.pos++
	for s.pos < len(s.src) {
		if s.src[s.pos] == quote {
			if s.pos+1 < len(s.src) && s.src[s.pos+1] == quote {
				s.pos += 2
				continue
			}
			s.pos++
			return
		}
		s.pos++
	}
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f'
}
