package rules

import (
	"math"
	"regexp"

	"github.com/Veraticus/spice-sift/internal/common"
	"github.com/Veraticus/spice-sift/internal/model"
	"golang.org/x/sync/errgroup"
)

// SecondaryClassifier is consulted when no rule matches. Returning nil means
// it has no opinion either. sift ships no implementation.
type SecondaryClassifier func(txn model.Transaction) *model.CategorizationResult

// Option configures an Engine.
type Option func(*Engine)

// WithWorkers splits CategorizeMany batches across n goroutines.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithSecondary installs a fallback classifier.
func WithSecondary(fn SecondaryClassifier) Option {
	return func(e *Engine) {
		e.secondary = fn
	}
}

// Engine categorizes transactions with a fixed rule set. It is read-only after
// construction and safe for concurrent use.
type Engine struct {
	compiled  map[patternKey]*regexp.Regexp
	secondary SecondaryClassifier
	rules     []model.Rule
	invalid   []model.Rule
	workers   int
}

type patternKey struct {
	pattern       string
	caseSensitive bool
}

// NewEngine creates an engine for rules, compiling every regex condition once.
// Rules with invalid patterns are kept; they just never match.
func NewEngine(rules []model.Rule, opts ...Option) *Engine {
	e := &Engine{
		rules:    append([]model.Rule(nil), rules...),
		compiled: make(map[patternKey]*regexp.Regexp),
		workers:  1,
	}

	for _, rule := range e.rules {
		if rule.Condition.Operator != model.OpRegex {
			continue
		}
		key := keyFor(rule.Condition)
		if re, done := e.compiled[key]; done {
			if re == nil {
				e.invalid = append(e.invalid, rule)
			}
			continue
		}
		re, err := common.CompilePattern(key.pattern, key.caseSensitive)
		if err != nil {
			re = nil
			e.invalid = append(e.invalid, rule)
		}
		e.compiled[key] = re
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

func keyFor(cond model.Condition) patternKey {
	return patternKey{pattern: cond.Value, caseSensitive: cond.CaseSensitive}
}

func (e *Engine) lookup(cond model.Condition) (*regexp.Regexp, bool) {
	re, ok := e.compiled[keyFor(cond)]
	return re, ok
}

// Rules returns the engine's rules.
func (e *Engine) Rules() []model.Rule {
	return append([]model.Rule(nil), e.rules...)
}

// InvalidPatterns returns the regex rules whose pattern failed to compile.
func (e *Engine) InvalidPatterns() []model.Rule {
	return append([]model.Rule(nil), e.invalid...)
}

// Match returns every active rule whose condition matches txn, in rule order.
func (e *Engine) Match(txn model.Transaction) []model.Rule {
	var matches []model.Rule
	for _, rule := range e.rules {
		if e.matches(rule, txn) {
			matches = append(matches, rule)
		}
	}
	return matches
}

func (e *Engine) matches(rule model.Rule, txn model.Transaction) bool {
	return rule.IsActive && evaluate(rule.Condition, txn, e.lookup)
}

// Categorize returns the matching rule with the highest confidence. Equal
// confidence falls back to the higher priority, then to rule order. With no
// match the secondary classifier, if any, decides; otherwise nil.
func (e *Engine) Categorize(txn model.Transaction) *model.CategorizationResult {
	var best *model.Rule
	for i := range e.rules {
		rule := e.rules[i]
		if !e.matches(rule, txn) {
			continue
		}
		if best == nil || outranks(rule, *best) {
			best = &rule
		}
	}

	if best != nil {
		return &model.CategorizationResult{
			CategoryID:  best.CategoryID,
			Confidence:  best.Confidence.Float64(),
			MatchedRule: best,
			Source:      model.SourceRule,
		}
	}

	return e.fallback(txn)
}

// outranks reports whether candidate beats current.
func outranks(candidate, current model.Rule) bool {
	cc, bc := candidate.Confidence.Float64(), current.Confidence.Float64()
	if cc != bc {
		return cc > bc
	}
	return candidate.Priority > current.Priority
}

func (e *Engine) fallback(txn model.Transaction) *model.CategorizationResult {
	if e.secondary == nil {
		return nil
	}
	res := e.secondary(txn)
	if res == nil || res.CategoryID == "" {
		return nil
	}

	out := *res
	out.MatchedRule = nil
	out.Source = model.SourceSecondary
	switch {
	case math.IsNaN(out.Confidence), out.Confidence < 0:
		out.Confidence = 0
	case out.Confidence > 1:
		out.Confidence = 1
	}
	return &out
}

// CategorizeMany categorizes every transaction. The result at index i belongs
// to txns[i] and is nil when nothing matched. Results are identical to calling
// Categorize per transaction; workers only change throughput.
func (e *Engine) CategorizeMany(txns []model.Transaction) []*model.CategorizationResult {
	results := make([]*model.CategorizationResult, len(txns))

	if e.workers <= 1 || len(txns) < e.workers {
		for i, txn := range txns {
			results[i] = e.Categorize(txn)
		}
		return results
	}

	chunk := (len(txns) + e.workers - 1) / e.workers
	var g errgroup.Group
	for start := 0; start < len(txns); start += chunk {
		end := min(start+chunk, len(txns))
		g.Go(func() error {
			for i := start; i < end; i++ {
				results[i] = e.Categorize(txns[i])
			}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// Categorize is a one-off NewEngine(rules).Categorize(txn).
func Categorize(txn model.Transaction, rules []model.Rule) *model.CategorizationResult {
	return NewEngine(rules).Categorize(txn)
}

// CategorizeMany is a one-off NewEngine(rules).CategorizeMany(txns).
func CategorizeMany(txns []model.Transaction, rules []model.Rule) []*model.CategorizationResult {
	return NewEngine(rules).CategorizeMany(txns)
}
