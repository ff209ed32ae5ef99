// Package rules holds the ordered pattern rules and the engine that applies them.
package rules

import (
	"fmt"
	"strings"

	"github.com/dlclark/regexp2"

	"github.com/phobologic/impactscan/internal/model"
)

// Placeholder in a rule template is replaced by an alternation of the terms
// found on the line being classified.
const Placeholder = "{T}"

// Rule is one named pattern. Exactly one of Reason (discard rules) or
// Category (critical rules) is set.
type Rule struct {
	Name      string
	Template  string
	Category  model.Category
	Reason    model.DiscardReason
	Rationale string
}

// Outcome returns the classification produced when the rule matches.
func (r Rule) Outcome() model.Outcome {
	if r.Reason != 0 {
		return model.Discard(r.Reason, r.Name)
	}
	return model.Critical(r.Category, r.Name, r.Rationale)
}

// RuleSet is the full rule table, grouped by tier. Within a tier the first
// matching rule wins.
type RuleSet struct {
	Comment  []Rule // term-independent, discard
	Global   []Rule // term-independent, critical
	Discard  []Rule // variable-bound
	Critical []Rule // variable-bound

	// SubRoutine is applied to any line carrying a sub-routine term.
	SubRoutine Rule

	FreeTextRationale  string
	NoPatternRationale string
}

// Validate compiles every rule against a sample term. Term-independent tiers
// must not use the placeholder; variable-bound rules without it match keywords
// co-located with the term.
func (rs RuleSet) Validate() error {
	sample := []model.Term{{Name: "X", Pattern: "X"}}
	check := func(tier string, rules []Rule, bound bool) error {
		for _, r := range rules {
			if r.Name == "" {
				return fmt.Errorf("%s rule with empty name", tier)
			}
			if (r.Reason == 0) == (r.Category == 0) {
				return fmt.Errorf("%s rule %q: exactly one of reason or category must be set", tier, r.Name)
			}
			if r.Template == "" {
				return fmt.Errorf("%s rule %q: empty template", tier, r.Name)
			}
			if !bound && strings.Contains(r.Template, Placeholder) {
				return fmt.Errorf("%s rule %q: placeholder not allowed", tier, r.Name)
			}
			if _, err := compile(r.Template, sample); err != nil {
				return fmt.Errorf("%s rule %q: %w", tier, r.Name, err)
			}
		}
		return nil
	}
	if err := check("comment", rs.Comment, false); err != nil {
		return err
	}
	if err := check("global", rs.Global, false); err != nil {
		return err
	}
	if err := check("discard", rs.Discard, true); err != nil {
		return err
	}
	if err := check("critical", rs.Critical, true); err != nil {
		return err
	}
	if rs.SubRoutine.Category == 0 {
		return fmt.Errorf("sub-routine rule has no category")
	}
	return nil
}

// Expand substitutes the placeholder with an identifier-bounded alternation
// of the escaped term patterns. The underscore is an operator in the target
// language, so the boundaries are written out instead of using \b.
func Expand(template string, terms []model.Term) string {
	if !strings.Contains(template, Placeholder) {
		return template
	}
	alts := make([]string, len(terms))
	for i, t := range terms {
		alts[i] = t.Pattern
	}
	group := `(?<![A-Za-z0-9%])(?:` + strings.Join(alts, "|") + `)(?![A-Za-z0-9])`
	return strings.ReplaceAll(template, Placeholder, group)
}

func compile(template string, terms []model.Term) (*regexp2.Regexp, error) {
	return regexp2.Compile(Expand(template, terms), regexp2.IgnoreCase)
}

// Fragments shared by the default templates.
const (
	// object prefix such as "obj." or "..prop."
	obj = `(?:[%A-Za-z0-9]*\.)*`
	// optional subscript or argument list right after the term
	subs = `(?:\([^()]*\))?`
	// command start: not part of an identifier or a $function name
	cmd = `(?<![A-Za-z0-9%$])`
	// optional postconditional on a command
	post = `(?::\S+)?`
	// a simple value: string literal, number, name or global reference
	token = `(?:"(?:[^"]|"")*"|-?[%A-Za-z0-9.^]+)`
	// one write argument that is a literal or format control
	wlit = `(?:[!#]+|\?\d+|"(?:[^"]|"")*")`
)

// DefaultRuleSet returns the built-in rule table.
func DefaultRuleSet() RuleSet {
	return RuleSet{
		Comment: []Rule{
			{
				Name:     "comentario",
				Template: `^\s*(?:;|//|#;|/\*|\*|rem\b)`,
				Reason:   model.ReasonComment,
			},
		},
		Global: []Rule{
			{
				Name:      "mascara_numerica",
				Template:  `\?\d*\.?\d*N`,
				Category:  model.CategoryValidation,
				Rationale: "Máscara de entrada numérica (?N) rejeita o identificador alfanumérico.",
			},
		},
		SubRoutine: Rule{
			Name:      "chamada_subrotina",
			Category:  model.CategorySubroutineCall,
			Rationale: "Chamada a sub-rotina que trata o identificador; a interface e a lógica interna precisam ser revistas.",
		},
		Discard: []Rule{
			{
				Name:     "declaracao",
				Template: `^\s*(?:(?:N|NEW|K|KILL)\s+[%A-Za-z0-9.,()^\s]*` + Placeholder + `[%A-Za-z0-9.,()^\s]*|#DIM\s+` + Placeholder + `\s+AS\s+[%A-Za-z0-9.]+\s*)$`,
				Reason:   model.ReasonDeclaration,
			},
			{
				Name:     "atribuicao_para_termo",
				Template: cmd + `S(?:ET)?` + post + `\s+(?:[^\s=,]+=[^\s,]+,)*` + obj + Placeholder + subs + `\s*=\s*` + token + `\s*(?:,|\s|$)`,
				Reason:   model.ReasonSimpleAssignment,
			},
			{
				Name:     "atribuicao_do_termo",
				Template: cmd + `S(?:ET)?` + post + `\s+(?:[^\s=,]+=[^\s,]+,)*[^\s=,]+\s*=\s*(?:\$G(?:ET)?\(\s*)?` + obj + Placeholder + subs + `\s*\)?\s*(?:,|\s|$)`,
				Reason:   model.ReasonSimpleAssignment,
			},
			{
				Name:     "comparacao_vazio",
				Template: Placeholder + subs + `\s*'?=\s*""(?!")|(?<!")""\s*'?=\s*` + obj + Placeholder,
				Reason:   model.ReasonEmptyComparison,
			},
			{
				Name:     "verificacao_existencia",
				Template: `\$D(?:ATA)?\(\s*[^()]*(?:\([^()]*)?` + Placeholder + `|\$G(?:ET)?\(\s*` + obj + Placeholder + subs + `\s*\)\s*'?=\s*""|\$L(?:ENGTH)?\(\s*` + Placeholder + `\s*\)\s*'?[=>]\s*0(?!\d)`,
				Reason:   model.ReasonExistenceCheck,
			},
			{
				Name:     "contem_literal",
				Template: Placeholder + `\s*'?\[\s*"|\$F(?:IND)?\(\s*` + obj + Placeholder + `\s*,\s*"`,
				Reason:   model.ReasonLiteralContainment,
			},
			{
				Name:     "repasse_parametro",
				Template: `(?:` + cmd + `(?:D|DO|J|JOB)` + post + `\s+|\$\$|##class\([%A-Za-z0-9.]+\)\.)[%A-Za-z0-9^.]*\s*\(\s*(?:[^()]*,\s*)?\.?` + obj + Placeholder + `\s*(?:,[^()]*)?\)`,
				Reason:   model.ReasonParameterPassthrough,
			},
			{
				Name:     "exibicao_simples",
				Template: cmd + `W(?:RITE)?` + post + `\s+(?:` + wlit + `,)*` + obj + Placeholder + `(?:,(?:` + wlit + `|` + obj + Placeholder + `))*(?:\s|$)`,
				Reason:   model.ReasonSimpleDisplay,
			},
			{
				Name:     "campo_tela",
				Template: cmd + `W(?:RITE)?` + post + `\s+.*/CAMPO\s*\(`,
				Reason:   model.ReasonSimpleDisplay,
			},
		},
		Critical: []Rule{
			{
				Name:      "aritmetica",
				Template:  Placeholder + subs + `\s*(?:\*\*|[-+*/\\#])\s*[A-Za-z0-9$%(^."]|[A-Za-z0-9%)]\s*(?:\*\*|[-+*/\\#])\s*` + obj + Placeholder,
				Category:  model.CategoryValidation,
				Rationale: "Operação aritmética com o identificador; um valor alfanumérico é avaliado como número e corrompe o resultado.",
			},
			{
				Name:      "conversao_numerica",
				Template:  `\$NUM(?:BER)?\(\s*` + obj + Placeholder + `|[=(,\s]\+\s*(?:\$G(?:ET)?\(\s*)?` + obj + Placeholder,
				Category:  model.CategoryValidation,
				Rationale: "Conversão numérica explícita do identificador descarta as letras.",
			},
			{
				Name:      "extracao_aritmetica",
				Template:  `\$E(?:XTRACT)?\(\s*` + obj + Placeholder + `\s*,(?:[^()]|\([^()]*\))*?[-+*/\\]`,
				Category:  model.CategoryBusinessLogic,
				Rationale: "Extração de partes do identificador com posições calculadas; regras de dígito verificador e raiz mudam.",
			},
			{
				Name:      "extracao",
				Template:  `\$E(?:XTRACT)?\(\s*` + obj + Placeholder,
				Category:  model.CategoryDataStructure,
				Rationale: "Extração de posições fixas do identificador; confirmar que as posições continuam válidas no novo formato.",
			},
			{
				Name:      "ordenacao",
				Template:  `\$O(?:RDER)?\(\s*\^?[%A-Za-z0-9.]*\((?:[^()]|\([^()]*\))*` + Placeholder,
				Category:  model.CategoryBusinessLogic,
				Rationale: "Identificador usado como subscrito em $ORDER; a ordem de chaves numéricas e alfanuméricas é diferente.",
			},
			{
				Name:      "comparacao_numerica",
				Template:  Placeholder + subs + `\s*'?[=<>]=?\s*-?\d|(?<![A-Za-z0-9%.$"])-?\d+\s*'?[=<>]=?\s*` + obj + Placeholder,
				Category:  model.CategoryValidation,
				Rationale: "Comparação do identificador com literal numérico; valores alfanuméricos valem zero nesse contexto.",
			},
			{
				Name:      "tamanho_fixo",
				Template:  `\$L(?:ENGTH)?\(\s*` + obj + Placeholder + `\s*\)\s*'?[=<>]=?\s*\d`,
				Category:  model.CategoryValidation,
				Rationale: "Validação de tamanho fixo do identificador.",
			},
			{
				Name:      "concatenacao_mascara",
				Template:  Placeholder + subs + `\s*_\s*"[./-]"|"[./-]"\s*_\s*` + obj + Placeholder,
				Category:  model.CategoryFormatting,
				Rationale: "Máscara montada por concatenação manual de '.', '/' ou '-'.",
			},
			{
				Name:      "formatacao_funcao",
				Template:  `\$TR(?:ANSLATE)?\(\s*` + obj + Placeholder + `\s*,\s*"[^"]*[./-][^"]*"|\$(?:J|JUSTIFY|FN|FNUMBER)\(\s*` + obj + Placeholder,
				Category:  model.CategoryFormatting,
				Rationale: "Remoção de máscara ou preenchimento numérico do identificador.",
			},
			{
				Name:      "integracao",
				Template:  `(?<![A-Za-z0-9%])(?:HTTP[A-Za-z]*|REST|SOAP[A-Za-z]*|XML[A-Za-z]*|JSON[A-Za-z]*|EXPORT|IMPORT|FTP|FILE)(?![A-Za-z0-9])`,
				Category:  model.CategoryExternalIntegration,
				Rationale: "Identificador trafega em integração externa; layouts e contratos com terceiros precisam ser revistos.",
			},
			{
				Name:      "sql",
				Template:  `(?<![A-Za-z0-9%$])(?:SELECT|INSERT|UPDATE|DELETE|WHERE|ORDER\s+BY)(?![A-Za-z0-9])`,
				Category:  model.CategoryDataStructure,
				Rationale: "Identificador usado em SQL; tipo e tamanho da coluna precisam ser revistos.",
			},
		},
		FreeTextRationale:  "Apenas termo de texto livre encontrado.",
		NoPatternRationale: "Nenhum padrão conhecido.",
	}
}
