// Package report renders result tables to csv, toon and json files.
package report

import (
	"strconv"
	"strings"

	"github.com/phobologic/impactscan/internal/effort"
	"github.com/phobologic/impactscan/internal/model"
)

// Column names a table column: Key is used by toon and json, Label by csv.
type Column struct {
	Key   string
	Label string
}

// Table is a named grid of already-rendered cells.
type Table struct {
	Name    string
	Columns []Column
	Rows    [][]string
}

// Keys returns the column keys.
func (t Table) Keys() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Key
	}
	return out
}

// Labels returns the column labels.
func (t Table) Labels() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Label
	}
	return out
}

var (
	colFile        = Column{"arquivo", "Arquivo"}
	colProgramType = Column{"tipo_programa", "Tipo de Programa"}
	colPrefix      = Column{"prefixo", "Prefixo"}
	colFileClass   = Column{"classe_arquivo", "Classe do Arquivo"}
	colLocator     = Column{"localizador", "Localizador"}
	colTerms       = Column{"termos", "Termos"}
	colCode        = Column{"codigo", "Código"}
)

func joinTerms(terms []string) string {
	return strings.Join(terms, ", ")
}

// CriticalTable builds the critical-findings table.
func CriticalTable(records []model.CriticalRecord) Table {
	t := Table{
		Name: "criticos",
		Columns: []Column{
			colFile, colProgramType, colPrefix, colFileClass, colLocator, colTerms,
			{"categoria", "Categoria"},
			{"padrao", "Padrão"},
			{"justificativa", "Justificativa"},
			colCode,
		},
	}
	for i := range records {
		r := &records[i]
		t.Rows = append(t.Rows, []string{
			r.File, r.ProgramType, r.Prefix, string(r.FileClass), r.Locator, joinTerms(r.Terms),
			r.Category.String(), r.Pattern, r.Rationale, r.Code,
		})
	}
	return t
}

// DiscardTable builds the discarded table.
func DiscardTable(records []model.DiscardRecord) Table {
	t := Table{
		Name: "descartes",
		Columns: []Column{
			colFile, colProgramType, colPrefix, colFileClass, colLocator, colTerms,
			{"motivo_descarte", "Motivo do Descarte"},
			colCode,
		},
	}
	for i := range records {
		r := &records[i]
		t.Rows = append(t.Rows, []string{
			r.File, r.ProgramType, r.Prefix, string(r.FileClass), r.Locator, joinTerms(r.Terms),
			r.Reason.String(), r.Code,
		})
	}
	return t
}

// UnclassifiedTable builds the manual-review table.
func UnclassifiedTable(records []model.UnclassifiedRecord) Table {
	t := Table{
		Name: "sem_classificacao",
		Columns: []Column{
			colFile, colPrefix, colFileClass, colLocator,
			{"termo_encontrado", "Termo Encontrado"},
			colCode,
		},
	}
	for i := range records {
		r := &records[i]
		t.Rows = append(t.Rows, []string{
			r.File, r.Prefix, string(r.FileClass), r.Locator, joinTerms(r.Terms), r.Code,
		})
	}
	return t
}

// SummaryTable builds the executive summary table.
func SummaryTable(s effort.Summary) Table {
	t := Table{
		Name:    "resumo",
		Columns: []Column{{"metrica", "Métrica"}, {"valor", "Valor"}},
	}
	for _, m := range s.Metrics() {
		t.Rows = append(t.Rows, []string{m.Name, m.Value})
	}
	return t
}

// DetailTable builds the pricing detail table.
func DetailTable(rows []effort.Row) Table {
	t := Table{
		Name: "detalhamento",
		Columns: []Column{
			{"item", "Item"},
			{"tipo", "Tipo"},
			{"ocorrencias", "Ocorrências"},
			{"horas_dev", "Horas Desenvolvimento"},
			{"horas_teste", "Horas Teste"},
			{"total_horas", "Total Horas"},
			{"justificativa", "Justificativa"},
		},
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []string{
			r.Name, r.Type, r.OccurrencesText(),
			effort.FormatHours(r.DevHours), effort.FormatHours(r.TestHours), effort.FormatHours(r.TotalHours),
			r.Rationale,
		})
	}
	return t
}

// DiagnosticsTable builds the diagnostics table.
func DiagnosticsTable(diags []model.Diagnostic) Table {
	t := Table{
		Name:    "diagnostico",
		Columns: []Column{{"tipo", "Tipo"}, {"linha", "Linha"}, {"conteudo", "Conteúdo"}},
	}
	for _, d := range diags {
		t.Rows = append(t.Rows, []string{string(d.Kind), strconv.Itoa(d.LineNo), d.Raw})
	}
	return t
}
