package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phobologic/impactscan/internal/model"
	"github.com/phobologic/impactscan/internal/terms"
)

var (
	ccli    = terms.NewTerm("CCLI", model.Variable)
	cnpj    = terms.NewTerm("CNPJ", model.Variable)
	valcnpj = terms.NewTerm("VALCNPJ", model.SubRoutine)
	freeTxt = terms.NewTerm("cnpj do cliente", model.FreeText)
)

func newEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := NewEngine(DefaultRuleSet(), nil, 0)
	require.NoError(t, err)
	return e
}

func matched(file, code string, ts ...model.Term) model.MatchedLine {
	return model.MatchedLine{
		SourceLine: model.SourceLine{File: file, Locator: "1", Code: code},
		Terms:      ts,
	}
}

func TestClassifyScenarios(t *testing.T) {
	t.Parallel()
	e := newEngine(t)

	got := e.Classify(matched("PROGFISCAL.mac", `IF CCLI="" DO`, ccli))
	assert.Equal(t, model.OutcomeDiscarded, got.Kind)
	assert.Equal(t, model.ReasonEmptyComparison, got.Reason)

	got = e.Classify(matched("GAPVENDA.mac", "S TOTAL=CCLI+100", ccli))
	assert.Equal(t, model.OutcomeCritical, got.Kind)
	assert.Equal(t, model.CategoryValidation, got.Category)
	assert.Equal(t, "aritmetica", got.Pattern)
	assert.NotEmpty(t, got.Rationale)

	got = e.Classify(matched("ABAREL.mac", "S TOTAL=CCLI+100", ccli))
	assert.Equal(t, model.Discard(model.ReasonScriptFile, "rotina_script"), got)
}

func TestClassifyTierPrecedence(t *testing.T) {
	t.Parallel()
	e := newEngine(t)

	tests := []struct {
		name  string
		file  string
		code  string
		terms []model.Term
		want  model.Outcome
	}{
		{
			name:  "non-official file beats comment",
			file:  "XYZ.mac",
			code:  "; S X=CCLI+1",
			terms: []model.Term{ccli},
			want:  model.Discard(model.ReasonNonOfficialFile, "rotina_nao_oficial"),
		},
		{
			name:  "script prefix checked before official prefixes",
			file:  "abagap.int",
			code:  "I CCLI>0 Q",
			terms: []model.Term{ccli},
			want:  model.Discard(model.ReasonScriptFile, "rotina_script"),
		},
		{
			name:  "comment beats global mask",
			file:  "GAPX.mac",
			code:  " ;I CCLI?14N Q",
			terms: []model.Term{ccli},
			want:  model.Discard(model.ReasonComment, "comentario"),
		},
		{
			name:  "global mask beats sub-routine",
			file:  "GAPX.mac",
			code:  "D VALCNPJ(CCLI) I X?14N Q",
			terms: []model.Term{ccli, valcnpj},
			want:  model.Critical(model.CategoryValidation, "mascara_numerica", DefaultRuleSet().Global[0].Rationale),
		},
		{
			name:  "sub-routine beats passthrough discard",
			file:  "GAPX.mac",
			code:  "D VALCNPJ(CCLI)",
			terms: []model.Term{ccli, valcnpj},
			want:  DefaultRuleSet().SubRoutine.Outcome(),
		},
		{
			name:  "free text alone is manual review",
			file:  "GAPX.mac",
			code:  `W "Informe o CNPJ do cliente"`,
			terms: []model.Term{freeTxt},
			want:  model.Manual(DefaultRuleSet().FreeTextRationale),
		},
		{
			name:  "free text with a variable uses variable rules",
			file:  "GAPX.mac",
			code:  `S X=CCLI+1 ; cnpj do cliente`,
			terms: []model.Term{ccli, freeTxt},
			want:  model.Critical(model.CategoryValidation, "aritmetica", ruleByName(t, "aritmetica").Rationale),
		},
		{
			name:  "discard beats critical on the same line",
			file:  "GAPX.mac",
			code:  `I CCLI="" S X=CCLI+1`,
			terms: []model.Term{ccli},
			want:  model.Discard(model.ReasonEmptyComparison, "comparacao_vazio"),
		},
		{
			name:  "no pattern falls back to manual review",
			file:  "GAPX.mac",
			code:  `S CCLI=$P(REG,"^",2)`,
			terms: []model.Term{ccli},
			want:  model.Manual(DefaultRuleSet().NoPatternRationale),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, e.Classify(matched(tt.file, tt.code, tt.terms...)))
		})
	}
}

func TestClassifyDiscardRules(t *testing.T) {
	t.Parallel()
	e := newEngine(t)

	tests := []struct {
		code    string
		reason  model.DiscardReason
		pattern string
	}{
		{"// CCLI+1", model.ReasonComment, "comentario"},
		{"N CCLI,X", model.ReasonDeclaration, "declaracao"},
		{"KILL CCLI", model.ReasonDeclaration, "declaracao"},
		{"#dim CCLI As %String", model.ReasonDeclaration, "declaracao"},
		{`S CCLI=""`, model.ReasonSimpleAssignment, "atribuicao_para_termo"},
		{"S X=1,CCLI=Y", model.ReasonSimpleAssignment, "atribuicao_para_termo"},
		{"set obj.CNPJ = CCLI", model.ReasonSimpleAssignment, "atribuicao_do_termo"},
		{"S X=$G(CCLI)", model.ReasonSimpleAssignment, "atribuicao_do_termo"},
		{`I CCLI'="" Q`, model.ReasonEmptyComparison, "comparacao_vazio"},
		{"I $D(^GAPCLI(CCLI)) Q", model.ReasonExistenceCheck, "verificacao_existencia"},
		{`I $G(CCLI)="" Q`, model.ReasonExistenceCheck, "verificacao_existencia"},
		{`I CCLI["/" S X=1`, model.ReasonLiteralContainment, "contem_literal"},
		{`I $F(CCLI,"/") Q`, model.ReasonLiteralContainment, "contem_literal"},
		{"D GRAVA^GAPX(CCLI,NOME)", model.ReasonParameterPassthrough, "repasse_parametro"},
		{"S X=$$FMT^GAPX(.CCLI)", model.ReasonParameterPassthrough, "repasse_parametro"},
		{`W !,"CNPJ: ",CCLI`, model.ReasonSimpleDisplay, "exibicao_simples"},
		{"W /CAMPO(10,5),CCLI", model.ReasonSimpleDisplay, "campo_tela"},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			t.Parallel()
			got := e.Classify(matched("GAPX.mac", tt.code, ccli))
			assert.Equal(t, model.Discard(tt.reason, tt.pattern), got)
		})
	}
}

func TestClassifyCriticalRules(t *testing.T) {
	t.Parallel()
	e := newEngine(t)

	tests := []struct {
		code     string
		category model.Category
		pattern  string
	}{
		{"S X=CCLI*2", model.CategoryValidation, "aritmetica"},
		{"s x=ccli+1", model.CategoryValidation, "aritmetica"},
		{"S X=+CCLI", model.CategoryValidation, "conversao_numerica"},
		{"S X=$NUMBER(CCLI)", model.CategoryValidation, "conversao_numerica"},
		{"S RAIZ=$E(CCLI,1,$L(CCLI)-6)", model.CategoryBusinessLogic, "extracao_aritmetica"},
		{"S UF=$E(CCLI,1,2)", model.CategoryDataStructure, "extracao"},
		{"S X=$O(^GAPCLI(CCLI))", model.CategoryBusinessLogic, "ordenacao"},
		{"I CCLI>0 Q", model.CategoryValidation, "comparacao_numerica"},
		{`W CCLI_"/"`, model.CategoryFormatting, "concatenacao_mascara"},
		{`S X=$TR(CCLI,"./-","")`, model.CategoryFormatting, "formatacao_funcao"},
		{"S X=$J(CCLI,14)", model.CategoryFormatting, "formatacao_funcao"},
		{`D EXPORT(CCLI_";")`, model.CategoryExternalIntegration, "integracao"},
		{"&SQL(SELECT NOME INTO :NOME FROM CLIENTE WHERE CNPJ = :CCLI)", model.CategoryDataStructure, "sql"},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			t.Parallel()
			got := e.Classify(matched("GAPX.mac", tt.code, ccli))
			assert.Equal(t, model.OutcomeCritical, got.Kind)
			assert.Equal(t, tt.category, got.Category)
			assert.Equal(t, tt.pattern, got.Pattern)
		})
	}
}

func TestClassifyOnlySubstitutesFoundTerms(t *testing.T) {
	t.Parallel()
	e := newEngine(t)

	// CNPJ is compared with a number but only CCLI was found on the line.
	got := e.Classify(matched("GAPX.mac", "I CNPJ>0 Q:CCLI", ccli))
	assert.Equal(t, model.OutcomeManual, got.Kind)

	got = e.Classify(matched("GAPX.mac", "I CNPJ>0 Q:CCLI", ccli, cnpj))
	assert.Equal(t, model.OutcomeCritical, got.Kind)
	assert.Equal(t, "comparacao_numerica", got.Pattern)
}

func TestClassifyIsDeterministicAndCached(t *testing.T) {
	t.Parallel()
	e := newEngine(t)

	line := matched("GAPX.mac", "S TOTAL=CCLI+100", ccli)
	first := e.Classify(line)
	for range 5 {
		assert.Equal(t, first, e.Classify(line))
	}
	assert.Equal(t, 1, e.CacheLen())

	e.Classify(matched("GAPX.mac", "S X=CNPJ", cnpj))
	e.Classify(matched("GAPX.mac", "S X=CNPJ,Y=CCLI", ccli, cnpj))
	assert.Equal(t, 3, e.CacheLen())
}

func TestNewEngineRejectsInvalidRuleSet(t *testing.T) {
	t.Parallel()

	rs := DefaultRuleSet()
	rs.Critical = append(rs.Critical, Rule{Name: "quebrada", Template: `{T}(`, Category: model.CategoryValidation})
	_, err := NewEngine(rs, nil, 0)
	assert.Error(t, err)
}

func ruleByName(t *testing.T, name string) Rule {
	t.Helper()
	rs := DefaultRuleSet()
	for _, tier := range [][]Rule{rs.Comment, rs.Global, rs.Discard, rs.Critical} {
		for _, r := range tier {
			if r.Name == name {
				return r
			}
		}
	}
	t.Fatalf("no rule %q", name)
	return Rule{}
}
