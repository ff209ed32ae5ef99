package report

import (
	"encoding/csv"
	"io"
)

// utf8BOM lets spreadsheet tools detect the encoding.
const utf8BOM = "\ufeff"

type csvEncoder struct {
	delim rune
}

func (csvEncoder) Ext() string { return "csv" }

// Encode writes each table as a header row plus data rows. Tables after the
// first are separated by an empty line.
func (e csvEncoder) Encode(w io.Writer, tables ...Table) error {
	if _, err := io.WriteString(w, utf8BOM); err != nil {
		return err
	}
	for i, t := range tables {
		if i > 0 {
			if _, err := io.WriteString(w, "\n"); err != nil {
				return err
			}
		}
		cw := csv.NewWriter(w)
		cw.Comma = e.delim
		if err := cw.Write(t.Labels()); err != nil {
			return err
		}
		if err := cw.WriteAll(t.Rows); err != nil {
			return err
		}
	}
	return nil
}
