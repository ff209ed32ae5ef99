package model

import "fmt"

// Category is a refactor category. The numeric order is the severity rank
// used to sort reports: lower values come first.
type Category int

const (
	CategoryValidation Category = iota + 1
	CategoryBusinessLogic
	CategoryExternalIntegration
	CategoryDataStructure
	CategorySubroutineCall
	CategoryFormatting
	CategoryManualReview
)

var categoryInfo = map[Category]struct {
	slug  string
	label string
}{
	CategoryValidation:          {"validacao", "Validação/Entrada"},
	CategoryBusinessLogic:       {"logica_negocio", "Lógica de Negócio"},
	CategoryExternalIntegration: {"integracao_externa", "Integrações Externas"},
	CategoryDataStructure:       {"estrutura_dados", "Estrutura de Dados"},
	CategorySubroutineCall:      {"chamada_subrotina", "Chamada de Sub-rotina"},
	CategoryFormatting:          {"formatacao", "Formatação/Exibição"},
	CategoryManualReview:        {"revisao_manual", "Revisão Manual"},
}

// AllCategories returns every category in severity order.
func AllCategories() []Category {
	return []Category{
		CategoryValidation,
		CategoryBusinessLogic,
		CategoryExternalIntegration,
		CategoryDataStructure,
		CategorySubroutineCall,
		CategoryFormatting,
		CategoryManualReview,
	}
}

// String returns the report label of the category.
func (c Category) String() string {
	if info, ok := categoryInfo[c]; ok {
		return info.label
	}
	return fmt.Sprintf("Categoria(%d)", int(c))
}

// Slug returns the configuration key of the category.
func (c Category) Slug() string {
	return categoryInfo[c].slug
}

// ParseCategory resolves a configuration key to a Category.
func ParseCategory(slug string) (Category, error) {
	for c, info := range categoryInfo {
		if info.slug == slug {
			return c, nil
		}
	}
	return 0, fmt.Errorf("unknown category %q", slug)
}

// DiscardReason explains why a matched line needs no change. The numeric
// order is the report order of the discarded table.
type DiscardReason int

const (
	ReasonNonOfficialFile DiscardReason = iota + 1
	ReasonScriptFile
	ReasonComment
	ReasonDeclaration
	ReasonSimpleAssignment
	ReasonEmptyComparison
	ReasonExistenceCheck
	ReasonLiteralContainment
	ReasonParameterPassthrough
	ReasonSimpleDisplay
)

var reasonLabels = map[DiscardReason]string{
	ReasonNonOfficialFile:      "Rotina não oficial",
	ReasonScriptFile:           "Rotina de script",
	ReasonComment:              "Comentário",
	ReasonDeclaration:          "Declaração (New/Kill)",
	ReasonSimpleAssignment:     "Atribuição simples",
	ReasonEmptyComparison:      "Comparação com vazio",
	ReasonExistenceCheck:       "Verificação de existência",
	ReasonLiteralContainment:   "Contém literal",
	ReasonParameterPassthrough: "Repasse de parâmetro",
	ReasonSimpleDisplay:        "Exibição simples",
}

// AllReasons returns every discard reason in report order.
func AllReasons() []DiscardReason {
	out := make([]DiscardReason, 0, len(reasonLabels))
	for r := ReasonNonOfficialFile; r <= ReasonSimpleDisplay; r++ {
		out = append(out, r)
	}
	return out
}

func (r DiscardReason) String() string {
	if l, ok := reasonLabels[r]; ok {
		return l
	}
	return fmt.Sprintf("Motivo(%d)", int(r))
}
