package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/phobologic/impactscan/internal/discover"
	"github.com/phobologic/impactscan/internal/match"
	"github.com/phobologic/impactscan/internal/terms"
)

func newScanCmd(a *app) *cobra.Command {
	var (
		termsPath  string
		outPath    string
		encoding   string
		extensions []string
	)
	cmd := &cobra.Command{
		Use:   "scan [dir]",
		Short: "Search a source tree for the terms and write a transcript",
		Long: `scan walks dir (default ".") and writes every source line that carries
at least one term as "<file>(<line>): <code>", after a "Searching for"
banner. The result is the transcript consumed by analyze. Files listed in
.gitignore or ` + discover.IgnoreFile + ` are skipped.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fs := cmd.Flags()
			if fs.Changed("terms") {
				a.cfg.Input.Terms = termsPath
			}
			if fs.Changed("encoding") {
				a.cfg.Input.Encoding = encoding
			}
			if err := a.validate(); err != nil {
				return err
			}

			root := "."
			if len(args) > 0 {
				root = args[0]
			}
			root, err := filepath.Abs(root)
			if err != nil {
				return fmt.Errorf("resolving root: %w", err)
			}
			info, err := os.Stat(root)
			if err != nil {
				return fmt.Errorf("root path: %w", err)
			}
			if !info.IsDir() {
				return fmt.Errorf("%s: not a directory", root)
			}

			table, rejected, err := terms.LoadFile(a.cfg.Input.Terms, terms.Options{
				Delimiter: a.cfg.TermDelimiter(),
				Encoding:  a.cfg.Input.Encoding,
			})
			if err != nil {
				return fmt.Errorf("loading terms %s: %w", a.cfg.Input.Terms, err)
			}
			if len(rejected) > 0 {
				a.log.Warn("terms rejected", zap.Int("count", len(rejected)))
			}

			files, err := discover.Files(root, extensions)
			if err != nil {
				return fmt.Errorf("discovering files: %w", err)
			}
			if len(files) == 0 {
				return fmt.Errorf("no source files found under %s", root)
			}
			a.log.Info("scanning", zap.String("root", root), zap.Int("files", len(files)), zap.Int("terms", table.Len()))

			names := make([]string, 0, table.Len())
			for _, t := range table.Terms() {
				names = append(names, t.Name)
			}

			var w io.Writer = a.stdout
			var buf bytes.Buffer
			if outPath != "" {
				w = &buf
			}
			stats, err := discover.Scan(cmd.Context(), root, files, match.New(table.Terms()),
				strings.Join(names, " "), a.cfg.Input.Encoding, w, a.log)
			if err != nil {
				return err
			}
			if outPath != "" {
				if err := os.WriteFile(outPath, buf.Bytes(), 0o644); err != nil {
					return fmt.Errorf("writing %s: %w", outPath, err)
				}
				_, _ = fmt.Fprintf(a.stderr, "wrote %d lines from %d of %d files to %s\n",
					stats.Lines, stats.FilesMatched, stats.Files, outPath)
			}
			a.log.Info("scan finished",
				zap.Int("files", stats.Files),
				zap.Int("files_matched", stats.FilesMatched),
				zap.Int("lines", stats.Lines))
			return nil
		},
	}
	fs := cmd.Flags()
	fs.StringVarP(&termsPath, "terms", "t", "", "term table (overrides input.terms)")
	fs.StringVarP(&outPath, "output", "o", "", "write the transcript here instead of stdout")
	fs.StringVar(&encoding, "encoding", "", "source charset (overrides input.encoding)")
	fs.StringSliceVarP(&extensions, "ext", "e", nil, "source extensions (default "+strings.Join(discover.DefaultExtensions, ",")+")")
	return cmd
}
