// Package aggregate deduplicates classified lines and builds the ordered result tables.
package aggregate

import (
	"sort"

	"github.com/phobologic/impactscan/internal/fileclass"
	"github.com/phobologic/impactscan/internal/model"
)

// Stats summarizes one run.
type Stats struct {
	LinesRead     int
	Skipped       int // banner and blank lines
	InvalidFormat int
	NoTerm        int
	Matched       int // matched lines, duplicates included
	Duplicates    int // matched lines collapsed into an existing key

	Critical     int
	Discarded    int
	Unclassified int

	ByCategory  map[model.Category]int
	ByReason    map[model.DiscardReason]int
	ByFileClass map[model.FileClass]int
}

// Unique returns the number of distinct (file, locator) keys.
func (s Stats) Unique() int {
	return s.Critical + s.Discarded + s.Unclassified
}

// Result holds the three ordered record tables, the diagnostics and the stats.
type Result struct {
	Critical     []model.CriticalRecord
	Discarded    []model.DiscardRecord
	Unclassified []model.UnclassifiedRecord
	Diagnostics  []model.Diagnostic
	Stats        Stats
}

type entry struct {
	line    model.SourceLine
	terms   []string
	outcome model.Outcome
}

// Aggregator accumulates outcomes keyed by (file, locator). The first
// outcome recorded for a key is kept; later ones only add their terms.
// It is not safe for concurrent use.
type Aggregator struct {
	classifier *fileclass.Classifier
	entries    map[model.Key]*entry
	diags      []model.Diagnostic
	stats      Stats
}

// New returns an empty Aggregator. A nil classifier means the default prefix table.
func New(classifier *fileclass.Classifier) *Aggregator {
	if classifier == nil {
		classifier = fileclass.Default()
	}
	return &Aggregator{
		classifier: classifier,
		entries:    make(map[model.Key]*entry),
	}
}

// Add records the outcome of a matched line. It reports whether the key was new.
func (a *Aggregator) Add(line model.MatchedLine, out model.Outcome) bool {
	a.stats.Matched++
	key := line.Key()
	if e, ok := a.entries[key]; ok {
		e.terms = model.UnionNames(e.terms, line.TermNames())
		a.stats.Duplicates++
		return false
	}
	a.entries[key] = &entry{
		line:    line.SourceLine,
		terms:   line.TermNames(),
		outcome: out,
	}
	return true
}

// Invalid records a transcript line that is not in file(locator): code form.
func (a *Aggregator) Invalid(lineNo int, raw string) {
	a.stats.InvalidFormat++
	a.diags = append(a.diags, model.Diagnostic{Kind: model.DiagInvalidFormat, LineNo: lineNo, Raw: raw})
}

// NoTerm records a well-formed line that carries none of the terms.
func (a *Aggregator) NoTerm(lineNo int, raw string) {
	a.stats.NoTerm++
	a.diags = append(a.diags, model.Diagnostic{Kind: model.DiagNoTerm, LineNo: lineNo, Raw: raw})
}

// SetReadCounts stores the reader's totals for the stats.
func (a *Aggregator) SetReadCounts(read, skipped int) {
	a.stats.LinesRead = read
	a.stats.Skipped = skipped
}

// Result builds the sorted tables. It can be called more than once.
func (a *Aggregator) Result() Result {
	stats := a.stats
	stats.Critical, stats.Discarded, stats.Unclassified = 0, 0, 0
	stats.ByCategory = make(map[model.Category]int)
	stats.ByReason = make(map[model.DiscardReason]int)
	stats.ByFileClass = make(map[model.FileClass]int)

	var res Result
	for _, e := range a.entries {
		file := e.line.File
		class := a.classifier.Classify(file)
		stats.ByFileClass[class]++

		switch e.outcome.Kind {
		case model.OutcomeDiscarded:
			stats.Discarded++
			stats.ByReason[e.outcome.Reason]++
			res.Discarded = append(res.Discarded, model.DiscardRecord{
				File:        file,
				ProgramType: fileclass.ProgramType(file),
				Prefix:      fileclass.Prefix(file),
				FileClass:   class,
				Locator:     e.line.Locator,
				Terms:       e.terms,
				Reason:      e.outcome.Reason,
				Code:        e.line.Code,
			})
		case model.OutcomeCritical:
			stats.Critical++
			stats.ByCategory[e.outcome.Category]++
			res.Critical = append(res.Critical, model.CriticalRecord{
				File:        file,
				ProgramType: fileclass.ProgramType(file),
				Prefix:      fileclass.Prefix(file),
				FileClass:   class,
				Locator:     e.line.Locator,
				Terms:       e.terms,
				Category:    e.outcome.Category,
				Pattern:     e.outcome.Pattern,
				Rationale:   e.outcome.Rationale,
				Code:        e.line.Code,
			})
		default:
			stats.Unclassified++
			stats.ByCategory[model.CategoryManualReview]++
			res.Unclassified = append(res.Unclassified, model.UnclassifiedRecord{
				File:      file,
				Prefix:    fileclass.Prefix(file),
				FileClass: class,
				Locator:   e.line.Locator,
				Terms:     e.terms,
				Rationale: e.outcome.Rationale,
				Code:      e.line.Code,
			})
		}
	}

	// Keys are unique, so (rank, file, locator) is a total order.
	sort.Slice(res.Critical, func(i, j int) bool {
		x, y := &res.Critical[i], &res.Critical[j]
		if x.Category != y.Category {
			return x.Category < y.Category
		}
		return lessFileLocator(x.File, x.Locator, y.File, y.Locator)
	})
	sort.Slice(res.Discarded, func(i, j int) bool {
		x, y := &res.Discarded[i], &res.Discarded[j]
		if x.Reason != y.Reason {
			return x.Reason < y.Reason
		}
		return lessFileLocator(x.File, x.Locator, y.File, y.Locator)
	})
	sort.Slice(res.Unclassified, func(i, j int) bool {
		x, y := &res.Unclassified[i], &res.Unclassified[j]
		return lessFileLocator(x.File, x.Locator, y.File, y.Locator)
	})

	res.Diagnostics = append([]model.Diagnostic(nil), a.diags...)
	res.Stats = stats
	return res
}

func lessFileLocator(fa, la, fb, lb string) bool {
	if fa != fb {
		return fa < fb
	}
	return CompareNatural(la, lb) < 0
}
