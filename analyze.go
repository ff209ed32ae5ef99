package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/phobologic/impactscan/internal/analyze"
	"github.com/phobologic/impactscan/internal/config"
	"github.com/phobologic/impactscan/internal/report"
	"github.com/phobologic/impactscan/internal/store"
)

const defaultTop = 10

// analyzeFlags are the command-line overrides of an analysis run.
type analyzeFlags struct {
	terms      string
	transcript string
	outDir     string
	formats    []string
	delimiter  string
	encoding   string
	db         string
	top        int
}

func (f *analyzeFlags) register(fs *pflag.FlagSet) {
	fs.StringVarP(&f.terms, "terms", "t", "", "term table (overrides input.terms)")
	fs.StringVarP(&f.transcript, "transcript", "i", "", "search transcript (overrides input.transcript)")
	fs.StringVarP(&f.outDir, "out", "o", "", "report directory (overrides output.dir)")
	fs.StringSliceVarP(&f.formats, "format", "f", nil, "report formats: csv, toon, json (overrides output.formats)")
	fs.StringVar(&f.delimiter, "delimiter", "", "csv report delimiter (overrides output.delimiter)")
	fs.StringVar(&f.encoding, "encoding", "", "input charset: utf-8, latin1, windows-1252 (overrides input.encoding)")
	fs.StringVar(&f.db, "db", "", "also store the run in this SQLite file (overrides output.db)")
	fs.IntVarP(&f.top, "top", "n", defaultTop, "number of most impacted files in the summary")
}

// apply copies the flags the user set onto cfg.
func (f *analyzeFlags) apply(fs *pflag.FlagSet, cfg *config.Config) {
	if fs.Changed("terms") {
		cfg.Input.Terms = f.terms
	}
	if fs.Changed("transcript") {
		cfg.Input.Transcript = f.transcript
	}
	if fs.Changed("out") {
		cfg.Output.Dir = f.outDir
	}
	if fs.Changed("format") {
		cfg.Output.Formats = f.formats
	}
	if fs.Changed("delimiter") {
		cfg.Output.Delimiter = f.delimiter
	}
	if fs.Changed("encoding") {
		cfg.Input.Encoding = f.encoding
	}
	if fs.Changed("db") {
		cfg.Output.DB = f.db
	}
}

func newAnalyzeCmd(a *app) *cobra.Command {
	var f analyzeFlags
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Classify a transcript and write the reports (default command)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runAnalyze(cmd, &f)
		},
	}
	f.register(cmd.Flags())
	return cmd
}

func (a *app) runAnalyze(cmd *cobra.Command, f *analyzeFlags) error {
	f.apply(cmd.Flags(), a.cfg)
	if err := a.validate(); err != nil {
		return err
	}
	cfg := a.cfg

	m, err := cfg.EffortModel()
	if err != nil {
		return err
	}
	classifier := cfg.Classifier()

	out, err := analyze.Run(cmd.Context(), cfg.Input.Terms, cfg.Input.Transcript, analyze.Options{
		Encoding:      cfg.Input.Encoding,
		TermDelimiter: cfg.TermDelimiter(),
		Classifier:    classifier,
		Effort:        &m,
		CacheSize:     cfg.CacheSize,
		Log:           a.log,
	})
	if err != nil {
		return err
	}

	w, err := report.NewWriter(cfg.Output.Dir, cfg.Output.Formats, cfg.OutputDelimiter(), a.log)
	if err != nil {
		return err
	}
	paths, errs := w.WriteAll(report.Reports(out.Result, out.Estimate))
	a.log.Info("reports written", zap.Int("files", len(paths)), zap.String("dir", cfg.Output.Dir))

	var runID string
	if cfg.Output.DB != "" {
		id, err := saveRun(cmd.Context(), cfg, out)
		if err != nil {
			errs = multierr.Append(errs, err)
		} else {
			runID = id
			paths = append(paths, cfg.Output.DB)
			a.log.Info("run stored", zap.String("db", cfg.Output.DB), zap.String("run", id))
		}
	}

	printSummary(a.stdout, summary{
		Output:     out,
		Classifier: classifier,
		Paths:      paths,
		RunID:      runID,
		Top:        f.top,
	})
	return errs
}

func saveRun(ctx context.Context, cfg *config.Config, out *analyze.Output) (string, error) {
	st, err := store.Open(ctx, cfg.Output.DB)
	if err != nil {
		return "", err
	}
	defer st.Close()

	id, err := st.SaveRun(ctx, store.Inputs{
		Transcript: cfg.Input.Transcript,
		Terms:      cfg.Input.Terms,
	}, out.Result, out.Estimate)
	if err != nil {
		return "", fmt.Errorf("storing run in %s: %w", cfg.Output.DB, err)
	}
	return id, nil
}
