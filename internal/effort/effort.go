// Package effort prices the critical findings of a run in development and test hours.
package effort

import (
	"fmt"
	"math"
	"strconv"

	"github.com/phobologic/impactscan/internal/fileclass"
	"github.com/phobologic/impactscan/internal/model"
)

// Scaling is how a category's cost grows with its occurrence count.
type Scaling string

const (
	// DiminishingReturns multiplies the base cost by min(1+(n-1)*K, Cap).
	DiminishingReturns Scaling = "retornos-decrescentes"
	// Linear multiplies the base cost by n, without rounding or cap.
	Linear Scaling = "linear"
)

// Row types of the detail table.
const (
	TypeFixed  = "Atividade fixa"
	TypeScaled = "Escala com ocorrências"
)

// Entry is the cost model of one category.
type Entry struct {
	Category  model.Category
	DevHours  float64
	TestHours float64
	Scaling   Scaling
	K         float64
	Cap       float64
	Rationale string
}

// Activity is a baseline project activity, costed regardless of findings.
type Activity struct {
	Name      string
	DevHours  float64
	TestHours float64
	Rationale string
}

// Model is the full pricing table.
type Model struct {
	Entries       []Entry
	Activities    []Activity
	BufferPercent float64
}

// DefaultModel returns the built-in pricing table.
func DefaultModel() Model {
	return Model{
		Entries: []Entry{
			{model.CategoryValidation, 8, 4, DiminishingReturns, 0.15, 3,
				"Ajuste de máscaras, validações e aritmética sobre o identificador."},
			{model.CategoryBusinessLogic, 16, 8, DiminishingReturns, 0.20, 4,
				"Revisão de regras que extraem partes do identificador ou dependem da ordem das chaves."},
			{model.CategoryExternalIntegration, 24, 16, DiminishingReturns, 0.25, 4,
				"Adequação de layouts e contratos de integração com sistemas externos."},
			{model.CategoryDataStructure, 12, 6, DiminishingReturns, 0.15, 3,
				"Ajuste de tamanho e tipo de campos, índices e consultas."},
			{model.CategorySubroutineCall, 6, 3, DiminishingReturns, 0.10, 2.5,
				"Revisão das interfaces das sub-rotinas que recebem o identificador."},
			{model.CategoryFormatting, 4, 2, DiminishingReturns, 0.10, 2,
				"Ajuste de máscaras de exibição e impressão."},
			{model.CategoryManualReview, 0.5, 0.25, Linear, 0, 0,
				"Análise individual de cada ocorrência sem padrão conhecido."},
		},
		Activities: []Activity{
			{"Gestão de Projeto", 40, 0, "Planejamento, acompanhamento e comunicação."},
			{"Arquitetura e Análise", 60, 0, "Desenho da solução e análise de impacto detalhada."},
			{"Desenvolvimento da Solução Central", 80, 40, "Rotinas centrais de validação e formatação do novo identificador."},
			{"Documentação", 24, 0, "Documentação técnica e de usuário."},
			{"Migração de Integrações", 40, 24, "Coordenação das mudanças com parceiros externos."},
			{"Testes Finais e Homologação", 0, 80, "Testes integrados e homologação com a área de negócio."},
		},
		BufferPercent: 20,
	}
}

// Validate checks the model for values that would produce meaningless prices.
func (m Model) Validate() error {
	if m.BufferPercent < 0 || m.BufferPercent > 100 {
		return fmt.Errorf("buffer percent %v outside [0, 100]", m.BufferPercent)
	}
	seen := make(map[model.Category]bool)
	for _, e := range m.Entries {
		if seen[e.Category] {
			return fmt.Errorf("duplicate entry for %s", e.Category)
		}
		seen[e.Category] = true
		if e.DevHours < 0 || e.TestHours < 0 {
			return fmt.Errorf("%s: negative hours", e.Category)
		}
		switch e.Scaling {
		case Linear:
		case DiminishingReturns:
			if e.Cap < 1 {
				return fmt.Errorf("%s: cap %v below 1", e.Category, e.Cap)
			}
			if e.K < 0 {
				return fmt.Errorf("%s: negative k", e.Category)
			}
		default:
			return fmt.Errorf("%s: unknown scaling %q", e.Category, e.Scaling)
		}
	}
	for _, a := range m.Activities {
		if a.DevHours < 0 || a.TestHours < 0 {
			return fmt.Errorf("activity %q: negative hours", a.Name)
		}
	}
	return nil
}

// Entry returns the entry for c.
func (m Model) Entry(c model.Category) (Entry, bool) {
	for _, e := range m.Entries {
		if e.Category == c {
			return e, true
		}
	}
	return Entry{}, false
}

// ScaleFactor returns the cost multiplier of e for n occurrences.
func ScaleFactor(e Entry, n int) float64 {
	if n <= 0 {
		return 0
	}
	if e.Scaling == Linear {
		return float64(n)
	}
	return math.Min(1+float64(n-1)*e.K, e.Cap)
}

// Hours returns the dev and test hours of e for n occurrences. Diminishing
// returns categories are rounded half away from zero; linear ones are exact.
func Hours(e Entry, n int) (dev, test float64) {
	s := ScaleFactor(e, n)
	if e.Scaling == Linear {
		return e.DevHours * s, e.TestHours * s
	}
	return math.Round(e.DevHours * s), math.Round(e.TestHours * s)
}

// Row is one line of the detail table. Occurrences is meaningless when
// Type is TypeFixed.
type Row struct {
	Name        string
	Type        string
	Occurrences int
	DevHours    float64
	TestHours   float64
	TotalHours  float64
	Rationale   string
}

// OccurrencesText renders the occurrence column, "N/A" for fixed activities.
func (r Row) OccurrencesText() string {
	if r.Type == TypeFixed {
		return "N/A"
	}
	return strconv.Itoa(r.Occurrences)
}

// Summary is the executive summary of an estimate.
type Summary struct {
	DevHours        float64
	TestHours       float64
	TotalHours      float64
	TotalWithBuffer float64
	BufferPercent   float64
	CriticalPoints  int
	FilesImpacted   int
}

// Metric is one metric/value pair of the executive summary table.
type Metric struct {
	Name  string
	Value string
}

// Metrics renders the summary as ordered metric/value pairs.
func (s Summary) Metrics() []Metric {
	return []Metric{
		{"Horas de Desenvolvimento", FormatHours(s.DevHours)},
		{"Horas de Teste", FormatHours(s.TestHours)},
		{"Total de Horas", FormatHours(s.TotalHours)},
		{fmt.Sprintf("Total com Contingência (%s%%)", FormatHours(s.BufferPercent)), FormatHours(s.TotalWithBuffer)},
		{"Pontos Críticos (Oficiais)", strconv.Itoa(s.CriticalPoints)},
		{"Arquivos Oficiais Impactados", strconv.Itoa(s.FilesImpacted)},
	}
}

// Estimate is a priced run.
type Estimate struct {
	Summary Summary
	Detail  []Row
}

// Compute prices a run. Only records from official files count: critical
// records drive their categories and unclassified records drive manual
// review. Baseline activities are always included.
func Compute(critical []model.CriticalRecord, unclassified []model.UnclassifiedRecord, m Model, classifier *fileclass.Classifier) Estimate {
	if classifier == nil {
		classifier = fileclass.Default()
	}

	counts := make(map[model.Category]int)
	files := make(map[string]struct{})
	points := 0
	for i := range critical {
		r := &critical[i]
		if classifier.Classify(r.File) != model.Official {
			continue
		}
		counts[r.Category]++
		files[r.File] = struct{}{}
		points++
	}
	for i := range unclassified {
		if classifier.Classify(unclassified[i].File) == model.Official {
			counts[model.CategoryManualReview]++
		}
	}

	var est Estimate
	var dev, test float64
	for _, a := range m.Activities {
		est.Detail = append(est.Detail, Row{
			Name:       a.Name,
			Type:       TypeFixed,
			DevHours:   a.DevHours,
			TestHours:  a.TestHours,
			TotalHours: a.DevHours + a.TestHours,
			Rationale:  a.Rationale,
		})
		dev += a.DevHours
		test += a.TestHours
	}

	for _, c := range model.AllCategories() {
		n := counts[c]
		if n == 0 {
			continue
		}
		e, ok := m.Entry(c)
		if !ok {
			continue
		}
		d, t := Hours(e, n)
		est.Detail = append(est.Detail, Row{
			Name:        c.String(),
			Type:        TypeScaled,
			Occurrences: n,
			DevHours:    d,
			TestHours:   t,
			TotalHours:  d + t,
			Rationale:   e.Rationale,
		})
		dev += d
		test += t
	}

	total := dev + test
	est.Summary = Summary{
		DevHours:        dev,
		TestHours:       test,
		TotalHours:      total,
		TotalWithBuffer: round2(total * (1 + m.BufferPercent/100)),
		BufferPercent:   m.BufferPercent,
		CriticalPoints:  points,
		FilesImpacted:   len(files),
	}
	return est
}

// FormatHours renders hours without trailing zeros.
func FormatHours(h float64) string {
	return strconv.FormatFloat(round2(h), 'f', -1, 64)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
