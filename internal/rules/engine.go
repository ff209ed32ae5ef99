package rules

import (
	"fmt"
	"strings"

	"github.com/dlclark/regexp2"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/phobologic/impactscan/internal/fileclass"
	"github.com/phobologic/impactscan/internal/model"
)

// DefaultCacheSize is the number of compiled term-set rule lists kept.
const DefaultCacheSize = 512

type compiledRule struct {
	Rule
	re *regexp2.Regexp
}

func (c compiledRule) match(code string) bool {
	ok, err := c.re.MatchString(code)
	return err == nil && ok
}

type boundRules struct {
	discard  []compiledRule
	critical []compiledRule
}

// Engine classifies matched lines. It is safe for concurrent use: the rule
// set is read-only and the cache is synchronized.
type Engine struct {
	rules      RuleSet
	classifier *fileclass.Classifier

	comment []compiledRule
	global  []compiledRule
	cache   *lru.Cache[string, boundRules]
}

// NewEngine validates rs and precompiles its term-independent tiers.
// A nil classifier means the default prefix table; cacheSize <= 0 means
// DefaultCacheSize.
func NewEngine(rs RuleSet, classifier *fileclass.Classifier, cacheSize int) (*Engine, error) {
	if err := rs.Validate(); err != nil {
		return nil, fmt.Errorf("invalid rule set: %w", err)
	}
	if classifier == nil {
		classifier = fileclass.Default()
	}
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.New[string, boundRules](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating rule cache: %w", err)
	}

	e := &Engine{rules: rs, classifier: classifier, cache: cache}
	if e.comment, err = compileAll(rs.Comment, nil); err != nil {
		return nil, err
	}
	if e.global, err = compileAll(rs.Global, nil); err != nil {
		return nil, err
	}
	return e, nil
}

// Classify returns the single outcome for line. Tiers are evaluated in a
// fixed order and the first match wins: file class, comment, global,
// sub-routine, free-text only, discard, critical, manual review.
func (e *Engine) Classify(line model.MatchedLine) model.Outcome {
	switch e.classifier.Classify(line.File) {
	case model.NonOfficial:
		return model.Discard(model.ReasonNonOfficialFile, "rotina_nao_oficial")
	case model.Script:
		return model.Discard(model.ReasonScriptFile, "rotina_script")
	}

	code := line.Code
	if r, ok := firstMatch(e.comment, code); ok {
		return r.Outcome()
	}
	if r, ok := firstMatch(e.global, code); ok {
		return r.Outcome()
	}
	if len(line.TermsOfKind(model.SubRoutine)) > 0 {
		return e.rules.SubRoutine.Outcome()
	}

	vars := line.TermsOfKind(model.Variable)
	if len(vars) == 0 {
		return model.Manual(e.rules.FreeTextRationale)
	}

	bound := e.bind(vars)
	if r, ok := firstMatch(bound.discard, code); ok {
		return r.Outcome()
	}
	if r, ok := firstMatch(bound.critical, code); ok {
		return r.Outcome()
	}
	return model.Manual(e.rules.NoPatternRationale)
}

// CacheLen reports how many term sets have compiled rules cached.
func (e *Engine) CacheLen() int {
	return e.cache.Len()
}

// bind returns the variable-bound tiers compiled for terms.
func (e *Engine) bind(terms []model.Term) boundRules {
	names := make([]string, len(terms))
	for i, t := range terms {
		names[i] = t.Name
	}
	key := strings.Join(names, "\x00")
	if b, ok := e.cache.Get(key); ok {
		return b
	}

	var b boundRules
	// Templates were validated with a sample term and term patterns are
	// escaped, so compile errors here are not expected; a failing rule is
	// skipped rather than aborting the batch.
	b.discard, _ = compileAll(e.rules.Discard, terms)
	b.critical, _ = compileAll(e.rules.Critical, terms)
	e.cache.Add(key, b)
	return b
}

func compileAll(rules []Rule, terms []model.Term) ([]compiledRule, error) {
	out := make([]compiledRule, 0, len(rules))
	var firstErr error
	for _, r := range rules {
		re, err := compile(r.Template, terms)
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("compiling rule %q: %w", r.Name, err)
			}
			continue
		}
		out = append(out, compiledRule{Rule: r, re: re})
	}
	return out, firstErr
}

func firstMatch(rules []compiledRule, code string) (Rule, bool) {
	for _, r := range rules {
		if r.match(code) {
			return r.Rule, true
		}
	}
	return Rule{}, false
}
