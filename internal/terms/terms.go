// Package terms loads the table of target identifiers.
package terms

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/dlclark/regexp2"

	"github.com/phobologic/impactscan/internal/model"
	"github.com/phobologic/impactscan/internal/textenc"
)

var (
	nameHeaders = []string{"variavel", "termo", "nome", "term", "name"}
	kindHeaders = []string{"tipo", "kind", "type"}

	kindValues = map[string]model.TermKind{
		"variavel":    model.Variable,
		"variable":    model.Variable,
		"sub-rotina":  model.SubRoutine,
		"subrotina":   model.SubRoutine,
		"sub-routine": model.SubRoutine,
		"subroutine":  model.SubRoutine,
		"texto-livre": model.FreeText,
		"texto livre": model.FreeText,
		"free-text":   model.FreeText,
	}

	identifierRe = regexp.MustCompile(`^[%^A-Za-z0-9.$]+$`)
)

// Options controls how the table is read.
type Options struct {
	Delimiter rune   // default ';'
	Encoding  string // default utf-8
}

// Rejected is a data row that was dropped during loading.
type Rejected struct {
	Row    int // 1-based, header is row 1
	Value  string
	Reason string
}

// Table is an immutable, name-sorted set of terms.
type Table struct {
	terms  []model.Term
	byName map[string]int
}

// NewTerm builds a term, upper-casing the name and escaping it for regex use.
func NewTerm(name string, kind model.TermKind) model.Term {
	name = strings.ToUpper(strings.TrimSpace(name))
	return model.Term{Name: name, Kind: kind, Pattern: regexp2.Escape(name)}
}

// New builds a table from terms. Later duplicates replace earlier ones.
func New(terms ...model.Term) *Table {
	last := make(map[string]model.Term, len(terms))
	for _, t := range terms {
		t = NewTerm(t.Name, t.Kind)
		last[t.Name] = t
	}
	out := make([]model.Term, 0, len(last))
	for _, t := range last {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })

	byName := make(map[string]int, len(out))
	for i, t := range out {
		byName[t.Name] = i
	}
	return &Table{terms: out, byName: byName}
}

// Terms returns the terms sorted by name. The slice must not be modified.
func (t *Table) Terms() []model.Term { return t.terms }

// Len returns the number of terms.
func (t *Table) Len() int { return len(t.terms) }

// Lookup finds a term by name, case-insensitively.
func (t *Table) Lookup(name string) (model.Term, bool) {
	i, ok := t.byName[strings.ToUpper(strings.TrimSpace(name))]
	if !ok {
		return model.Term{}, false
	}
	return t.terms[i], true
}

// Kinds returns the term→kind mapping.
func (t *Table) Kinds() map[string]model.TermKind {
	m := make(map[string]model.TermKind, len(t.terms))
	for _, term := range t.terms {
		m[term.Name] = term.Kind
	}
	return m
}

// LoadFile opens path and loads it with Load.
func LoadFile(path string, opts Options) (*Table, []Rejected, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", model.ErrTermTableMissing, err)
	}
	defer f.Close()
	return Load(f, opts)
}

// Load reads a delimited table with a header row. It returns ErrNoTerms when
// no row survives validation.
func Load(r io.Reader, opts Options) (*Table, []Rejected, error) {
	dec, err := textenc.NewReader(r, opts.Encoding)
	if err != nil {
		return nil, nil, err
	}

	cr := csv.NewReader(dec)
	cr.Comma = opts.Delimiter
	if cr.Comma == 0 {
		cr.Comma = ';'
	}
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, model.ErrNoTerms
		}
		return nil, nil, fmt.Errorf("%w: reading header: %v", model.ErrTermTableMissing, err)
	}
	nameCol := findColumn(header, nameHeaders)
	kindCol := findColumn(header, kindHeaders)
	if nameCol < 0 || kindCol < 0 {
		return nil, nil, fmt.Errorf("term table header %q: need a term column (%s) and a kind column (%s)",
			strings.Join(header, string(cr.Comma)), strings.Join(nameHeaders, "/"), strings.Join(kindHeaders, "/"))
	}

	var (
		kept     []model.Term
		rejected []Rejected
	)
	row := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		row++
		if err != nil {
			return nil, nil, fmt.Errorf("%w: row %d: %v", model.ErrTermTableMissing, row, err)
		}
		name := field(rec, nameCol)
		kindRaw := field(rec, kindCol)
		if name == "" || kindRaw == "" {
			continue
		}
		kind, ok := kindValues[textenc.Fold(kindRaw)]
		if !ok {
			rejected = append(rejected, Rejected{Row: row, Value: name, Reason: fmt.Sprintf("unknown kind %q", kindRaw)})
			continue
		}
		if kind != model.FreeText && !identifierRe.MatchString(name) {
			rejected = append(rejected, Rejected{Row: row, Value: name, Reason: "not a valid identifier"})
			continue
		}
		kept = append(kept, NewTerm(name, kind))
	}

	if len(kept) == 0 {
		return nil, rejected, model.ErrNoTerms
	}
	return New(kept...), rejected, nil
}

func findColumn(header []string, candidates []string) int {
	folded := make([]string, len(header))
	for i, h := range header {
		folded[i] = textenc.Fold(h)
	}
	for _, c := range candidates {
		for i, h := range folded {
			if h == c {
				return i
			}
		}
	}
	return -1
}

func field(rec []string, i int) string {
	if i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}
