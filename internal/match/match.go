// Package match finds which target terms occur in a line of code.
package match

import (
	"strings"

	"github.com/phobologic/impactscan/internal/model"
)

// Matcher tests code lines against a fixed term list.
type Matcher struct {
	terms []model.Term
}

// New returns a Matcher over terms. Terms are expected upper-cased, as the
// terms package builds them.
func New(terms []model.Term) *Matcher {
	return &Matcher{terms: terms}
}

// Find returns the terms present in code, in term-list order. Sub-routine
// terms must occur as whole identifiers; variable and free-text terms may
// occur anywhere, including inside longer tokens.
func (m *Matcher) Find(code string) []model.Term {
	if code == "" {
		return nil
	}
	upper := strings.ToUpper(code)

	var found []model.Term
	for _, t := range m.terms {
		var hit bool
		if t.Kind == model.SubRoutine {
			hit = containsWord(upper, t.Name)
		} else {
			hit = strings.Contains(upper, t.Name)
		}
		if hit {
			found = append(found, t)
		}
	}
	return found
}

// Match runs Find over line.Code. ok is false when no term is present.
func (m *Matcher) Match(line model.SourceLine) (model.MatchedLine, bool) {
	found := m.Find(line.Code)
	if len(found) == 0 {
		return model.MatchedLine{}, false
	}
	return model.MatchedLine{SourceLine: line, Terms: found}, true
}

// IsIdentChar reports whether b can be part of an identifier in the target
// language. The underscore is the concatenation operator there, not an
// identifier character.
func IsIdentChar(b byte) bool {
	return b == '%' ||
		(b >= 'A' && b <= 'Z') ||
		(b >= 'a' && b <= 'z') ||
		(b >= '0' && b <= '9')
}

func containsWord(s, word string) bool {
	if word == "" {
		return false
	}
	for from := 0; from <= len(s)-len(word); {
		i := strings.Index(s[from:], word)
		if i < 0 {
			return false
		}
		start := from + i
		end := start + len(word)
		leftOK := start == 0 || !IsIdentChar(s[start-1]) || !IsIdentChar(word[0])
		rightOK := end == len(s) || !IsIdentChar(s[end]) || !IsIdentChar(word[len(word)-1])
		if leftOK && rightOK {
			return true
		}
		from = start + 1
	}
	return false
}
