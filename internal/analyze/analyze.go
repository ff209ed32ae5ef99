// Package analyze runs the impact pipeline: term table and transcript in,
// deduplicated result tables and an effort estimate out.
package analyze

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/phobologic/impactscan/internal/aggregate"
	"github.com/phobologic/impactscan/internal/effort"
	"github.com/phobologic/impactscan/internal/fileclass"
	"github.com/phobologic/impactscan/internal/match"
	"github.com/phobologic/impactscan/internal/model"
	"github.com/phobologic/impactscan/internal/rules"
	"github.com/phobologic/impactscan/internal/terms"
	"github.com/phobologic/impactscan/internal/transcript"
)

// checkEvery is how many transcript lines are read between context checks.
const checkEvery = 4096

// Options configures a run. Zero values select the defaults.
type Options struct {
	Encoding      string
	TermDelimiter rune
	Classifier    *fileclass.Classifier
	Rules         *rules.RuleSet
	Effort        *effort.Model
	CacheSize     int
	Log           *zap.Logger
}

func (o Options) withDefaults() Options {
	if o.Classifier == nil {
		o.Classifier = fileclass.Default()
	}
	if o.Rules == nil {
		rs := rules.DefaultRuleSet()
		o.Rules = &rs
	}
	if o.Effort == nil {
		m := effort.DefaultModel()
		o.Effort = &m
	}
	if o.Log == nil {
		o.Log = zap.NewNop()
	}
	return o
}

// Output is everything a run produces.
type Output struct {
	Terms    *terms.Table
	Rejected []terms.Rejected
	Result   aggregate.Result
	Estimate effort.Estimate
}

// Run loads the term table, then classifies every line of the transcript.
// A missing term table or transcript aborts before anything is classified.
func Run(ctx context.Context, termsPath, transcriptPath string, opts Options) (*Output, error) {
	opts = opts.withDefaults()
	log := opts.Log

	log.Info("loading terms", zap.String("path", termsPath))
	table, rejected, err := terms.LoadFile(termsPath, terms.Options{
		Delimiter: opts.TermDelimiter,
		Encoding:  opts.Encoding,
	})
	if err != nil {
		return nil, fmt.Errorf("loading terms %s: %w", termsPath, err)
	}
	log.Info("terms loaded", zap.Int("terms", table.Len()))
	if len(rejected) > 0 {
		rows := make([]int, len(rejected))
		for i, r := range rejected {
			rows[i] = r.Row
		}
		log.Warn("term rows rejected", zap.Int("count", len(rejected)), zap.Ints("rows", rows))
	}

	f, err := os.Open(transcriptPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrTranscriptMissing, err)
	}
	defer f.Close()

	res, err := Process(ctx, f, table, opts)
	if err != nil {
		return nil, fmt.Errorf("processing %s: %w", transcriptPath, err)
	}

	est := effort.Compute(res.Critical, res.Unclassified, *opts.Effort, opts.Classifier)
	log.Info("effort estimated",
		zap.Float64("dev_hours", est.Summary.DevHours),
		zap.Float64("test_hours", est.Summary.TestHours),
		zap.Float64("total_with_buffer", est.Summary.TotalWithBuffer))

	return &Output{Terms: table, Rejected: rejected, Result: res, Estimate: est}, nil
}

// Process classifies the transcript read from r against table in one pass.
func Process(ctx context.Context, r io.Reader, table *terms.Table, opts Options) (aggregate.Result, error) {
	opts = opts.withDefaults()
	log := opts.Log

	rd, err := transcript.NewReader(r, opts.Encoding)
	if err != nil {
		return aggregate.Result{}, err
	}
	eng, err := rules.NewEngine(*opts.Rules, opts.Classifier, opts.CacheSize)
	if err != nil {
		return aggregate.Result{}, fmt.Errorf("compiling rules: %w", err)
	}
	m := match.New(table.Terms())
	agg := aggregate.New(opts.Classifier)

	log.Info("classifying transcript")
	n := 0
	for {
		rec, ok := rd.Next()
		if !ok {
			break
		}
		n++
		if n%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return aggregate.Result{}, err
			}
		}
		if rec.Err != nil {
			agg.Invalid(rec.LineNo, rec.Raw)
			continue
		}
		ml, ok := m.Match(rec.Line)
		if !ok {
			agg.NoTerm(rec.LineNo, rec.Raw)
			continue
		}
		agg.Add(ml, eng.Classify(ml))
	}
	if err := rd.Err(); err != nil {
		return aggregate.Result{}, err
	}
	if err := ctx.Err(); err != nil {
		return aggregate.Result{}, err
	}
	agg.SetReadCounts(rd.LinesRead(), rd.Skipped())

	res := agg.Result()
	s := res.Stats
	log.Info("transcript classified",
		zap.Int("lines", s.LinesRead),
		zap.Int("matched", s.Matched),
		zap.Int("duplicates", s.Duplicates),
		zap.Int("critical", s.Critical),
		zap.Int("discarded", s.Discarded),
		zap.Int("unclassified", s.Unclassified),
		zap.Int("ignored", s.InvalidFormat+s.NoTerm),
		zap.Int("rule_cache", eng.CacheLen()))
	return res, nil
}
