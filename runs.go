package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/phobologic/impactscan/internal/store"
)

func newRunsCmd(a *app) *cobra.Command {
	var db string
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List the runs stored in a results database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("db") {
				a.cfg.Output.DB = db
			}
			if a.cfg.Output.DB == "" {
				return fmt.Errorf("no database: pass --db or set output.db")
			}

			st, err := store.Open(cmd.Context(), a.cfg.Output.DB)
			if err != nil {
				return err
			}
			defer st.Close()

			runs, err := st.Runs(cmd.Context())
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				_, _ = fmt.Fprintf(a.stdout, "no runs in %s\n", a.cfg.Output.DB)
				return nil
			}
			for _, r := range runs {
				_, _ = fmt.Fprintf(a.stdout, "%s  %s  criticos=%s descartes=%s sem_classificacao=%s total=%sh  %s\n",
					r.ID,
					r.CreatedAt.Format("2006-01-02 15:04:05"),
					humanize.Comma(int64(r.Critical)),
					humanize.Comma(int64(r.Discarded)),
					humanize.Comma(int64(r.Unclassified)),
					humanize.CommafWithDigits(r.TotalWithBuffer, 2),
					r.Transcript)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&db, "db", "", "SQLite results file (overrides output.db)")
	return cmd
}
