package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/phobologic/impactscan/internal/fileclass"
	"github.com/phobologic/impactscan/internal/report"
)

func newClassifyCmd(a *app) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "classify <file>...",
		Short: "Print the file class, prefix and program type of file names",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			if err := a.validate(); err != nil {
				return err
			}
			enc, err := report.EncoderFor(format, a.cfg.OutputDelimiter())
			if err != nil {
				return err
			}
			c := a.cfg.Classifier()
			t := report.Table{
				Name: "arquivos",
				Columns: []report.Column{
					{Key: "arquivo", Label: "Arquivo"},
					{Key: "classe", Label: "Classe"},
					{Key: "prefixo", Label: "Prefixo"},
					{Key: "tipo_programa", Label: "Tipo de Programa"},
				},
			}
			for _, f := range args {
				t.Rows = append(t.Rows, []string{f, string(c.Classify(f)), fileclass.Prefix(f), fileclass.ProgramType(f)})
			}
			if err := enc.Encode(a.stdout, t); err != nil {
				return fmt.Errorf("writing classification: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "toon", "output format: csv, toon, json")
	return cmd
}
