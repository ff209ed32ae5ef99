package discover

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/phobologic/impactscan/internal/match"
	"github.com/phobologic/impactscan/internal/textenc"
	"github.com/phobologic/impactscan/internal/transcript"
)

// ScanStats counts what a scan produced.
type ScanStats struct {
	Files        int
	FilesMatched int
	Lines        int // transcript lines written
}

type fileHits struct {
	lines []string
}

// Scan reads every entry under root, keeps the lines that carry at least one
// term and writes them to w as a transcript: a banner followed by
// "<file>(<line>): <code>" lines, in entry order. Files are read
// concurrently; output order does not depend on scheduling.
func Scan(ctx context.Context, root string, entries []FileEntry, m *match.Matcher, banner, encoding string, w io.Writer, log *zap.Logger) (ScanStats, error) {
	if log == nil {
		log = zap.NewNop()
	}
	hits := make([]fileHits, len(entries))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := range entries {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			lines, err := scanFile(filepath.Join(root, entries[i].Path), m, encoding)
			if err != nil {
				log.Warn("skipping unreadable file", zap.String("path", entries[i].Path), zap.Error(err))
				return nil
			}
			hits[i].lines = lines
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return ScanStats{}, err
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%s: %s\n", transcript.BannerMarker, banner)
	stats := ScanStats{Files: len(entries)}
	for i, h := range hits {
		if len(h.lines) == 0 {
			continue
		}
		stats.FilesMatched++
		base := filepath.Base(entries[i].Path)
		for _, l := range h.lines {
			fmt.Fprintf(bw, "%s%s\n", base, l)
			stats.Lines++
		}
	}
	if err := bw.Flush(); err != nil {
		return stats, fmt.Errorf("writing transcript: %w", err)
	}
	return stats, nil
}

// scanFile returns "(<line>): <code>" for each matching line of path.
func scanFile(path string, m *match.Matcher, encoding string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r, err := textenc.NewReader(f, encoding)
	if err != nil {
		return nil, err
	}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var out []string
	for n := 1; sc.Scan(); n++ {
		code := strings.TrimRight(sc.Text(), "\r")
		if len(m.Find(code)) == 0 {
			continue
		}
		out = append(out, fmt.Sprintf("(%d): %s", n, code))
	}
	return out, sc.Err()
}
