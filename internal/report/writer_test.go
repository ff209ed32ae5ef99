package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phobologic/impactscan/internal/aggregate"
	"github.com/phobologic/impactscan/internal/effort"
	"github.com/phobologic/impactscan/internal/model"
)

func sampleResult() aggregate.Result {
	return aggregate.Result{
		Critical: []model.CriticalRecord{{
			File: "GAPVENDA.mac", ProgramType: "Rotina MAC", Prefix: "GAP", FileClass: model.Official,
			Locator: "45", Terms: []string{"CCLI"}, Category: model.CategoryValidation,
			Pattern: "aritmetica", Rationale: "r", Code: "S TOTAL=CCLI+100",
		}},
		Discarded: []model.DiscardRecord{{
			File: "PROGFISCAL.mac", ProgramType: "Rotina MAC", Prefix: "PRO", FileClass: model.Official,
			Locator: "120", Terms: []string{"CCLI"}, Reason: model.ReasonEmptyComparison, Code: `IF CCLI="" DO`,
		}},
	}
}

func TestEncoderFor(t *testing.T) {
	t.Parallel()

	for _, f := range Formats {
		enc, err := EncoderFor(f, 0)
		require.NoError(t, err)
		assert.Equal(t, f, enc.Ext())
	}
	_, err := EncoderFor("xlsx", 0)
	assert.Error(t, err)
}

func TestWriteAllCSV(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	w, err := NewWriter(dir, []string{"csv"}, ';', nil)
	require.NoError(t, err)

	res := sampleResult()
	paths, err := w.WriteAll(Reports(res, effort.Compute(res.Critical, nil, effort.DefaultModel(), nil)))
	require.NoError(t, err)
	assert.Len(t, paths, 5)

	data, err := os.ReadFile(filepath.Join(dir, "descartes.csv"))
	require.NoError(t, err)
	text := string(data)
	assert.True(t, strings.HasPrefix(text, "\ufeffArquivo;Tipo de Programa;"), "header: %q", text)
	assert.Contains(t, text, `PROGFISCAL.mac;Rotina MAC;PRO;Oficial;120;CCLI;Comparação com vazio;"IF CCLI="""" DO"`)

	pricing, err := os.ReadFile(filepath.Join(dir, "precificacao.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(pricing), "\n\nItem;Tipo;Ocorrências;")
	assert.Contains(t, string(pricing), "Validação/Entrada;Escala com ocorrências;1;8;4;12;")
}

func TestWriteAllJSONKeepsColumnOrder(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	w, err := NewWriter(dir, []string{"json"}, 0, nil)
	require.NoError(t, err)

	_, err = w.WriteAll([]Report{{"criticos", []Table{CriticalTable(sampleResult().Critical)}}})
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "criticos.json"))
	require.NoError(t, err)

	var doc map[string][]map[string]string
	require.NoError(t, json.Unmarshal(data, &doc))
	require.Len(t, doc["criticos"], 1)
	assert.Equal(t, "S TOTAL=CCLI+100", doc["criticos"][0]["codigo"])
	assert.Equal(t, "Validação/Entrada", doc["criticos"][0]["categoria"])

	text := string(data)
	assert.Less(t, strings.Index(text, `"arquivo"`), strings.Index(text, `"tipo_programa"`))
	assert.Less(t, strings.Index(text, `"justificativa"`), strings.Index(text, `"codigo"`))
}

func TestWriteAllIsReproducible(t *testing.T) {
	t.Parallel()

	res := sampleResult()
	reports := Reports(res, effort.Compute(res.Critical, nil, effort.DefaultModel(), nil))

	read := func() map[string]string {
		dir := t.TempDir()
		w, err := NewWriter(dir, Formats, ';', nil)
		require.NoError(t, err)
		paths, err := w.WriteAll(reports)
		require.NoError(t, err)
		out := make(map[string]string)
		for _, p := range paths {
			data, err := os.ReadFile(p)
			require.NoError(t, err)
			out[filepath.Base(p)] = string(data)
		}
		return out
	}

	first := read()
	assert.Len(t, first, 15)
	assert.Equal(t, first, read())
}

func TestWriteAllContinuesAfterFailure(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	// A directory where a report file should go makes that one write fail.
	require.NoError(t, os.Mkdir(filepath.Join(dir, "descartes.csv"), 0o755))

	w, err := NewWriter(dir, []string{"csv", "toon"}, ';', nil)
	require.NoError(t, err)

	res := sampleResult()
	paths, err := w.WriteAll(Reports(res, effort.Compute(res.Critical, nil, effort.DefaultModel(), nil)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "descartes.csv")
	assert.Len(t, paths, 9)
	assert.FileExists(t, filepath.Join(dir, "descartes.toon"))
	assert.FileExists(t, filepath.Join(dir, "diagnostico.csv"))
}

func TestNewWriterRejectsUnknownFormat(t *testing.T) {
	t.Parallel()

	_, err := NewWriter(t.TempDir(), []string{"csv", "pdf"}, ';', nil)
	assert.Error(t, err)

	_, err = NewWriter(t.TempDir(), nil, ';', nil)
	assert.Error(t, err)
}
