// Package model defines core data structures for impactscan.
package model

import (
	"sort"
	"strings"
)

// TermKind tells how a target term is matched and classified.
type TermKind string

const (
	Variable   TermKind = "variavel"
	SubRoutine TermKind = "sub-rotina"
	FreeText   TermKind = "texto-livre"
)

// Term is a single identifier targeted by the impact analysis.
type Term struct {
	Name    string // upper-cased, unique within a table
	Kind    TermKind
	Pattern string // Name escaped for use as a regex fragment
}

// Key identifies one physical line of a file.
type Key struct {
	File    string
	Locator string
}

// SourceLine is one parsed transcript entry.
type SourceLine struct {
	File    string
	Locator string
	Code    string
}

// Key returns the deduplication key of the line.
func (l SourceLine) Key() Key {
	return Key{File: l.File, Locator: l.Locator}
}

// MatchedLine is a SourceLine together with the terms found in its code.
type MatchedLine struct {
	SourceLine
	Terms []Term
}

// TermsOfKind returns the matched terms with the given kind, in match order.
func (m MatchedLine) TermsOfKind(kind TermKind) []Term {
	var out []Term
	for _, t := range m.Terms {
		if t.Kind == kind {
			out = append(out, t)
		}
	}
	return out
}

// TermNames returns the sorted, de-duplicated names of the matched terms.
func (m MatchedLine) TermNames() []string {
	names := make([]string, 0, len(m.Terms))
	for _, t := range m.Terms {
		names = append(names, t.Name)
	}
	return UnionNames(nil, names)
}

// UnionNames merges b into a and returns a sorted set.
func UnionNames(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	var out []string
	for _, list := range [][]string{a, b} {
		for _, n := range list {
			n = strings.ToUpper(n)
			if _, dup := seen[n]; dup {
				continue
			}
			seen[n] = struct{}{}
			out = append(out, n)
		}
	}
	sort.Strings(out)
	return out
}

// FileClass is the scope class of a source file, derived from its name.
type FileClass string

const (
	Official    FileClass = "Oficial"
	Script      FileClass = "Script"
	NonOfficial FileClass = "Não oficial"
)
