package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/phobologic/impactscan/internal/model"
)

func writeTestFile(t *testing.T, root, rel, content string) string {
	t.Helper()
	path := filepath.Join(root, rel)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const sampleTerms = `variavel;tipo
CCLI;variavel
CNPJ;variavel
VALCNPJ;sub-rotina
`

const sampleTranscript = `Searching for: CCLI CNPJ VALCNPJ
PROGFISCAL.mac(120): IF CCLI="" DO
GAPVENDA.mac(45): S TOTAL=CCLI+100
GAPVENDA.mac(45): S TOTAL=CCLI+100
GAPVENDA.mac(9): S X=$E(CNPJ,1,8)
ABAREL.mac(10): S TOTAL=CCLI+100
FATNOTA.int(3): D ^VALCNPJ(CNPJ)
GAPVENDA.mac(50): S X=1
not a transcript line
`

// createSample writes the term table and transcript and returns their paths.
func createSample(t *testing.T) (dir, terms, transcript string) {
	t.Helper()
	dir = t.TempDir()
	terms = writeTestFile(t, dir, "termos.csv", sampleTerms)
	transcript = writeTestFile(t, dir, "busca.txt", sampleTranscript)
	return dir, terms, transcript
}

func TestRunAnalyzeDefaultCommand(t *testing.T) {
	t.Parallel()
	dir, terms, transcript := createSample(t)
	out := filepath.Join(dir, "relatorios")

	var stdout, stderr bytes.Buffer
	err := run([]string{"-t", terms, "-i", transcript, "-o", out, "-f", "csv,toon,json"}, &stdout, &stderr)
	if err != nil {
		t.Fatalf("run: %v\nstderr: %s", err, stderr.String())
	}

	for _, name := range []string{"criticos", "descartes", "sem_classificacao", "precificacao", "diagnostico"} {
		for _, ext := range []string{"csv", "toon", "json"} {
			if _, err := os.Stat(filepath.Join(out, name+"."+ext)); err != nil {
				t.Errorf("missing report %s.%s: %v", name, ext, err)
			}
		}
	}

	crit, err := os.ReadFile(filepath.Join(out, "criticos.csv"))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(crit, []byte("\ufeff")) {
		t.Error("csv report should start with a UTF-8 BOM")
	}
	if !strings.Contains(string(crit), "GAPVENDA.mac;") {
		t.Errorf("critical report missing GAPVENDA.mac:\n%s", crit)
	}
	if strings.Contains(string(crit), "ABAREL.mac") {
		t.Error("script routine must not be reported as critical")
	}

	desc, err := os.ReadFile(filepath.Join(out, "descartes.csv"))
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"PROGFISCAL.mac", "Comparação com vazio", "ABAREL.mac", "Rotina de script"} {
		if !strings.Contains(string(desc), want) {
			t.Errorf("discard report missing %q:\n%s", want, desc)
		}
	}

	diag, err := os.ReadFile(filepath.Join(out, "diagnostico.csv"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(diag), "not a transcript line") {
		t.Errorf("diagnostics missing invalid line:\n%s", diag)
	}

	summary := stdout.String()
	for _, want := range []string{"Críticos:", "Descartados:", "Arquivos mais impactados:", "GAPVENDA.mac", "criticos.csv"} {
		if !strings.Contains(summary, want) {
			t.Errorf("summary missing %q:\n%s", want, summary)
		}
	}
}

func TestRunAnalyzeSubcommand(t *testing.T) {
	t.Parallel()
	dir, terms, transcript := createSample(t)
	out := filepath.Join(dir, "out")

	var stdout, stderr bytes.Buffer
	err := run([]string{"analyze", "--terms", terms, "--transcript", transcript, "--out", out}, &stdout, &stderr)
	if err != nil {
		t.Fatalf("run: %v\nstderr: %s", err, stderr.String())
	}
	entries, err := os.ReadDir(out)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 5 {
		t.Errorf("expected 5 csv reports, got %d", len(entries))
	}
}

func TestRunAnalyzeReproducible(t *testing.T) {
	t.Parallel()
	dir, terms, transcript := createSample(t)

	outs := []string{filepath.Join(dir, "a"), filepath.Join(dir, "b")}
	for _, out := range outs {
		var stdout, stderr bytes.Buffer
		if err := run([]string{"-t", terms, "-i", transcript, "-o", out, "-f", "csv,json"}, &stdout, &stderr); err != nil {
			t.Fatalf("run: %v\nstderr: %s", err, stderr.String())
		}
	}

	entries, err := os.ReadDir(outs[0])
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		a, err := os.ReadFile(filepath.Join(outs[0], e.Name()))
		if err != nil {
			t.Fatal(err)
		}
		b, err := os.ReadFile(filepath.Join(outs[1], e.Name()))
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(a, b) {
			t.Errorf("%s differs between runs", e.Name())
		}
	}
}

func TestRunAnalyzeFatalInputs(t *testing.T) {
	t.Parallel()
	dir, terms, transcript := createSample(t)

	tests := []struct {
		name       string
		terms      string
		transcript string
		want       error
	}{
		{"missing transcript", terms, filepath.Join(dir, "nope.txt"), model.ErrTranscriptMissing},
		{"missing terms", filepath.Join(dir, "nope.csv"), transcript, model.ErrTermTableMissing},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			out := filepath.Join(t.TempDir(), "relatorios")
			var stdout, stderr bytes.Buffer
			err := run([]string{"-t", tt.terms, "-i", tt.transcript, "-o", out}, &stdout, &stderr)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if _, err := os.Stat(out); !os.IsNotExist(err) {
				t.Error("no report may be written when an input is missing")
			}
		})
	}
}

func TestRunAnalyzeRejectsUnknownFormat(t *testing.T) {
	t.Parallel()
	_, terms, transcript := createSample(t)

	var stdout, stderr bytes.Buffer
	err := run([]string{"-t", terms, "-i", transcript, "-f", "xml"}, &stdout, &stderr)
	if err == nil || !strings.Contains(err.Error(), "output.formats") {
		t.Fatalf("expected a format error, got %v", err)
	}
}

func TestRunAnalyzeConfigFile(t *testing.T) {
	t.Parallel()
	dir, terms, transcript := createSample(t)
	out := filepath.Join(dir, "cfgout")
	cfg := writeTestFile(t, dir, "impactscan.yaml", `input:
  terms: `+terms+`
  transcript: `+transcript+`
output:
  dir: `+out+`
  formats: [toon]
logging:
  format: json
`)

	var stdout, stderr bytes.Buffer
	if err := run([]string{"--config", cfg}, &stdout, &stderr); err != nil {
		t.Fatalf("run: %v\nstderr: %s", err, stderr.String())
	}
	data, err := os.ReadFile(filepath.Join(out, "criticos.toon"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "criticos[") {
		t.Errorf("unexpected toon report:\n%s", data)
	}
	if !strings.Contains(stderr.String(), `"msg":"transcript classified"`) {
		t.Errorf("expected json logs on stderr, got:\n%s", stderr.String())
	}
}

func TestRunMissingConfigFile(t *testing.T) {
	t.Parallel()
	var stdout, stderr bytes.Buffer
	err := run([]string{"--config", filepath.Join(t.TempDir(), "nope.yaml")}, &stdout, &stderr)
	if err == nil || !strings.Contains(err.Error(), "reading config") {
		t.Fatalf("expected a config error, got %v", err)
	}
}

func TestRunStoreAndListRuns(t *testing.T) {
	t.Parallel()
	dir, terms, transcript := createSample(t)
	db := filepath.Join(dir, "resultados.db")

	var stdout, stderr bytes.Buffer
	err := run([]string{"-t", terms, "-i", transcript, "-o", filepath.Join(dir, "out"), "--db", db}, &stdout, &stderr)
	if err != nil {
		t.Fatalf("run: %v\nstderr: %s", err, stderr.String())
	}
	if !strings.Contains(stdout.String(), db) {
		t.Errorf("summary should list the database:\n%s", stdout.String())
	}

	stdout.Reset()
	if err := run([]string{"runs", "--db", db}, &stdout, &stderr); err != nil {
		t.Fatalf("runs: %v\nstderr: %s", err, stderr.String())
	}
	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 stored run, got:\n%s", stdout.String())
	}
	if !strings.Contains(lines[0], "criticos=") || !strings.Contains(lines[0], transcript) {
		t.Errorf("unexpected run line: %s", lines[0])
	}
}

func TestRunRunsNeedsDB(t *testing.T) {
	t.Parallel()
	var stdout, stderr bytes.Buffer
	err := run([]string{"runs"}, &stdout, &stderr)
	if err == nil || !strings.Contains(err.Error(), "--db") {
		t.Fatalf("expected a missing database error, got %v", err)
	}
}

func TestRunScanThenAnalyze(t *testing.T) {
	t.Parallel()
	dir, terms, _ := createSample(t)
	src := filepath.Join(dir, "src")
	writeTestFile(t, src, "GAPVENDA.mac", "GAPVENDA ;\n S TOTAL=CCLI+100\n Q\n")
	writeTestFile(t, src, "rotinas/PROGFISCAL.int", " IF CCLI=\"\" DO\n")
	writeTestFile(t, src, "notes.txt", "CCLI\n")
	writeTestFile(t, src, ".git/HEAD.mac", "CCLI\n")

	transcript := filepath.Join(dir, "scan.txt")
	var stdout, stderr bytes.Buffer
	if err := run([]string{"scan", src, "-t", terms, "-o", transcript}, &stdout, &stderr); err != nil {
		t.Fatalf("scan: %v\nstderr: %s", err, stderr.String())
	}
	data, err := os.ReadFile(transcript)
	if err != nil {
		t.Fatal(err)
	}
	got := string(data)
	if !strings.HasPrefix(got, "Searching for: CCLI CNPJ VALCNPJ\n") {
		t.Errorf("missing banner:\n%s", got)
	}
	if !strings.Contains(got, "GAPVENDA.mac(2): ") {
		t.Errorf("missing GAPVENDA hit:\n%s", got)
	}
	if strings.Contains(got, "notes.txt") || strings.Contains(got, "HEAD.mac") {
		t.Errorf("scan should skip non-source files and VCS dirs:\n%s", got)
	}

	out := filepath.Join(dir, "out")
	stdout.Reset()
	if err := run([]string{"-t", terms, "-i", transcript, "-o", out}, &stdout, &stderr); err != nil {
		t.Fatalf("analyze: %v\nstderr: %s", err, stderr.String())
	}
	crit, err := os.ReadFile(filepath.Join(out, "criticos.csv"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(crit), "GAPVENDA.mac;") {
		t.Errorf("scanned transcript should yield a critical finding:\n%s", crit)
	}
}

func TestRunScanToStdout(t *testing.T) {
	t.Parallel()
	dir, terms, _ := createSample(t)
	src := filepath.Join(dir, "src")
	writeTestFile(t, src, "GAPCAD.mac", " S CNPJ=X\n")

	var stdout, stderr bytes.Buffer
	if err := run([]string{"scan", src, "--terms", terms}, &stdout, &stderr); err != nil {
		t.Fatalf("scan: %v\nstderr: %s", err, stderr.String())
	}
	if !strings.Contains(stdout.String(), "GAPCAD.mac(1):") {
		t.Errorf("expected transcript on stdout, got:\n%s", stdout.String())
	}
}

func TestRunScanNotADirectory(t *testing.T) {
	t.Parallel()
	_, terms, transcript := createSample(t)
	var stdout, stderr bytes.Buffer
	err := run([]string{"scan", transcript, "-t", terms}, &stdout, &stderr)
	if err == nil || !strings.Contains(err.Error(), "not a directory") {
		t.Fatalf("expected not a directory error, got %v", err)
	}
}

func TestRunClassify(t *testing.T) {
	t.Parallel()
	var stdout, stderr bytes.Buffer
	err := run([]string{"classify", "GAPVENDA.mac", "ABAREL.int", "XYZ.cls"}, &stdout, &stderr)
	if err != nil {
		t.Fatalf("classify: %v\nstderr: %s", err, stderr.String())
	}
	want := `arquivos[3]{arquivo,classe,prefixo,tipo_programa}:
  GAPVENDA.mac,Oficial,GAP,Rotina MAC
  ABAREL.int,Script,ABA,Rotina INT
  XYZ.cls,Não oficial,XYZ,Classe
`
	if got := stdout.String(); got != want {
		t.Errorf("classify output:\ngot:\n%s\nwant:\n%s", got, want)
	}
}

func TestRunVersion(t *testing.T) {
	t.Parallel()
	var stdout, stderr bytes.Buffer
	if err := run([]string{"--version"}, &stdout, &stderr); err != nil {
		t.Fatal(err)
	}
	if got := stdout.String(); got != "impactscan dev\n" {
		t.Errorf("version output = %q", got)
	}
}

func TestRunUnknownCommand(t *testing.T) {
	t.Parallel()
	var stdout, stderr bytes.Buffer
	if err := run([]string{"frobnicate"}, &stdout, &stderr); err == nil {
		t.Error("expected an error for an unknown command")
	}
}
