package report

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/phobologic/impactscan/internal/aggregate"
	"github.com/phobologic/impactscan/internal/effort"
)

// Formats lists the supported output formats.
var Formats = []string{"csv", "toon", "json"}

// Encoder renders tables into one file body.
type Encoder interface {
	Ext() string
	Encode(w io.Writer, tables ...Table) error
}

// EncoderFor returns the encoder of format. delim is only used by csv.
func EncoderFor(format string, delim rune) (Encoder, error) {
	switch strings.ToLower(format) {
	case "csv":
		if delim == 0 {
			delim = ';'
		}
		return csvEncoder{delim: delim}, nil
	case "toon":
		return toonEncoder{}, nil
	case "json":
		return jsonEncoder{}, nil
	default:
		return nil, fmt.Errorf("unknown output format %q (want one of %s)", format, strings.Join(Formats, ", "))
	}
}

// Report is one output file: a base name and the tables it holds.
type Report struct {
	Name   string
	Tables []Table
}

// Reports builds the five output reports of a run.
func Reports(res aggregate.Result, est effort.Estimate) []Report {
	return []Report{
		{"criticos", []Table{CriticalTable(res.Critical)}},
		{"descartes", []Table{DiscardTable(res.Discarded)}},
		{"sem_classificacao", []Table{UnclassifiedTable(res.Unclassified)}},
		{"precificacao", []Table{SummaryTable(est.Summary), DetailTable(est.Detail)}},
		{"diagnostico", []Table{DiagnosticsTable(res.Diagnostics)}},
	}
}

// Writer writes reports into a directory, once per configured format.
type Writer struct {
	dir      string
	encoders []Encoder
	log      *zap.Logger
}

// NewWriter validates formats and returns a Writer. A nil logger disables logging.
func NewWriter(dir string, formats []string, delim rune, log *zap.Logger) (*Writer, error) {
	if len(formats) == 0 {
		return nil, fmt.Errorf("no output format configured")
	}
	if log == nil {
		log = zap.NewNop()
	}
	w := &Writer{dir: dir, log: log}
	seen := make(map[string]bool)
	for _, f := range formats {
		enc, err := EncoderFor(f, delim)
		if err != nil {
			return nil, err
		}
		if seen[enc.Ext()] {
			continue
		}
		seen[enc.Ext()] = true
		w.encoders = append(w.encoders, enc)
	}
	return w, nil
}

// WriteAll writes every report in every format. A failing file does not stop
// the others; all failures are returned combined. The paths of the files
// written are returned in write order.
func (w *Writer) WriteAll(reports []Report) ([]string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	var written []string
	var errs error
	for _, r := range reports {
		for _, enc := range w.encoders {
			path := filepath.Join(w.dir, r.Name+"."+enc.Ext())
			if err := writeFile(path, enc, r.Tables); err != nil {
				w.log.Error("report not written", zap.String("path", path), zap.Error(err))
				errs = multierr.Append(errs, fmt.Errorf("writing %s: %w", path, err))
				continue
			}
			w.log.Debug("report written", zap.String("path", path))
			written = append(written, path)
		}
	}
	return written, errs
}

func writeFile(path string, enc Encoder, tables []Table) error {
	var buf bytes.Buffer
	if err := enc.Encode(&buf, tables...); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}
