package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"

	"github.com/phobologic/impactscan/internal/analyze"
	"github.com/phobologic/impactscan/internal/fileclass"
	"github.com/phobologic/impactscan/internal/model"
	"github.com/phobologic/impactscan/internal/ranking"
)

type summary struct {
	Output     *analyze.Output
	Classifier *fileclass.Classifier
	Paths      []string
	RunID      string
	Top        int
}

// printSummary writes the operator summary: bucket counts, pricing totals,
// the most impacted official files and the artifacts written.
func printSummary(w io.Writer, s summary) {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed, color.Bold).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()

	res := s.Output.Result
	st := res.Stats
	count := func(n int) string { return humanize.Comma(int64(n)) }

	fmt.Fprintf(w, "\n%s\n\n", cyan("=== Impacto CNPJ alfanumérico ==="))

	fmt.Fprintf(w, "%s\n", yellow("Entrada:"))
	fmt.Fprintf(w, "  Termos carregados:       %s", count(s.Output.Terms.Len()))
	if n := len(s.Output.Rejected); n > 0 {
		fmt.Fprintf(w, " %s", gray(fmt.Sprintf("(%s rejeitados)", count(n))))
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  Linhas lidas:            %s\n", count(st.LinesRead))
	fmt.Fprintf(w, "  Linhas com termo:        %s\n", count(st.Matched))
	fmt.Fprintf(w, "  Duplicadas consolidadas: %s\n", count(st.Duplicates))
	fmt.Fprintf(w, "  Linhas ignoradas:        %s %s\n", count(st.InvalidFormat+st.NoTerm),
		gray(fmt.Sprintf("(formato inválido %s, sem termo %s)", count(st.InvalidFormat), count(st.NoTerm))))
	fmt.Fprintln(w)

	fmt.Fprintf(w, "%s\n", yellow("Classificação:"))
	fmt.Fprintf(w, "  Críticos:                %s\n", red(count(st.Critical)))
	for _, c := range model.AllCategories() {
		if n := st.ByCategory[c]; n > 0 && c != model.CategoryManualReview {
			fmt.Fprintf(w, "    %-28s %s\n", c.String(), count(n))
		}
	}
	fmt.Fprintf(w, "  Descartados:             %s\n", green(count(st.Discarded)))
	for _, r := range model.AllReasons() {
		if n := st.ByReason[r]; n > 0 {
			fmt.Fprintf(w, "    %-28s %s\n", r.String(), count(n))
		}
	}
	fmt.Fprintf(w, "  Sem classificação:       %s\n", yellow(count(st.Unclassified)))
	fmt.Fprintln(w)

	sum := s.Output.Estimate.Summary
	fmt.Fprintf(w, "%s\n", yellow("Precificação:"))
	fmt.Fprintf(w, "  Pontos críticos oficiais: %s em %s arquivos\n", count(sum.CriticalPoints), count(sum.FilesImpacted))
	fmt.Fprintf(w, "  Desenvolvimento:          %sh\n", hours(sum.DevHours))
	fmt.Fprintf(w, "  Testes:                   %sh\n", hours(sum.TestHours))
	fmt.Fprintf(w, "  Total com buffer (%s%%):  %s\n", hours(sum.BufferPercent), cyan(hours(sum.TotalWithBuffer)+"h"))
	fmt.Fprintln(w)

	official := ranking.FilterByClass(res.Critical, model.Official)
	if top := ranking.TopFiles(official, s.Top); len(top) > 0 {
		fmt.Fprintf(w, "%s\n", yellow("Arquivos mais impactados:"))
		for i, fc := range top {
			fmt.Fprintf(w, "  %2d. %-24s %s %s\n", i+1, fc.File, count(fc.Count),
				gray(fileclass.ProgramType(fc.File)+" "+categoryMix(fc.Categories)))
		}
		fmt.Fprintln(w)
	}

	if len(s.Paths) > 0 {
		fmt.Fprintf(w, "%s\n", yellow("Arquivos gerados:"))
		for _, p := range s.Paths {
			fmt.Fprintf(w, "  %s\n", p)
		}
	}
	if s.RunID != "" {
		fmt.Fprintf(w, "  run %s\n", gray(s.RunID))
	}
}

func hours(h float64) string {
	return humanize.CommafWithDigits(h, 2)
}

// categoryMix renders per-category counts in severity order, e.g. "[validacao:2 formatacao:1]".
func categoryMix(m map[model.Category]int) string {
	var parts []string
	for _, c := range model.AllCategories() {
		if n := m[c]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s:%d", c.Slug(), n))
		}
	}
	return "[" + strings.Join(parts, " ") + "]"
}
