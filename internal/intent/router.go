// Package intent classifies free-text front-desk queries against an ordered
// regex grammar and extracts the names and dates they mention.
package intent

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/wolfman30/meditrack/internal/records"
)

// Result is the outcome of classifying one query.
type Result struct {
	Intent        string            `json:"intent"`
	Entities      map[string]string `json:"entities"`
	OriginalQuery string            `json:"original_query"`
}

type compiledRule struct {
	intent   string
	patterns []*regexp.Regexp
	dateMode DateMode
}

// Router dispatches a query to the first rule with a matching pattern.
// It is safe for concurrent use.
type Router struct {
	rules []compiledRule
	now   func() time.Time
}

// Option configures a Router.
type Option func(*Router)

// WithClock sets the clock used for date entities.
func WithClock(now func() time.Time) Option {
	return func(r *Router) {
		if now != nil {
			r.now = now
		}
	}
}

var defaultCompiled = mustCompile(DefaultRules())

// New returns a Router over the default grammar.
func New(opts ...Option) *Router {
	return build(defaultCompiled, opts)
}

// NewRouter returns a Router over a custom grammar, in the given priority
// order.
func NewRouter(rules []Rule, opts ...Option) (*Router, error) {
	compiled, err := compile(rules)
	if err != nil {
		return nil, err
	}
	return build(compiled, opts), nil
}

func build(rules []compiledRule, opts []Option) *Router {
	r := &Router{rules: rules, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func compile(rules []Rule) ([]compiledRule, error) {
	out := make([]compiledRule, 0, len(rules))
	for _, rule := range rules {
		if rule.Intent == "" {
			return nil, fmt.Errorf("intent: rule without intent name")
		}
		cr := compiledRule{intent: rule.Intent, dateMode: rule.DateMode}
		for _, p := range rule.Patterns {
			re, err := regexp.Compile(p)
			if err != nil {
				return nil, fmt.Errorf("intent: compile %s pattern %q: %w", rule.Intent, p, err)
			}
			cr.patterns = append(cr.patterns, re)
		}
		out = append(out, cr)
	}
	return out, nil
}

func mustCompile(rules []Rule) []compiledRule {
	compiled, err := compile(rules)
	if err != nil {
		panic(err)
	}
	return compiled
}

// Classify never fails: anything that matches no rule is Unknown.
func (r *Router) Classify(query string) Result {
	text := strings.ToLower(strings.TrimSpace(query))
	if text != "" {
		for _, rule := range r.rules {
			for _, re := range rule.patterns {
				m := re.FindStringSubmatch(text)
				if m == nil {
					continue
				}
				return Result{
					Intent:        rule.intent,
					Entities:      r.entities(rule, re, m, text),
					OriginalQuery: query,
				}
			}
		}
	}
	return Result{Intent: Unknown, Entities: map[string]string{}, OriginalQuery: query}
}

// Intents lists the intent names the router can produce, Unknown last.
func (r *Router) Intents() []string {
	out := make([]string, 0, len(r.rules)+1)
	for _, rule := range r.rules {
		out = append(out, rule.intent)
	}
	return append(out, Unknown)
}

func (r *Router) entities(rule compiledRule, re *regexp.Regexp, match []string, text string) map[string]string {
	entities := map[string]string{}
	for i, name := range re.SubexpNames() {
		if name == "" || match[i] == "" {
			continue
		}
		entities[name] = titleCase(match[i])
	}

	today := r.now()
	switch rule.dateMode {
	case DateToday:
		entities[EntityDate] = records.DateKey(today)
	case DateMentioned:
		if strings.Contains(text, "today") {
			entities[EntityDate] = records.DateKey(today)
		} else if strings.Contains(text, "tomorrow") {
			entities[EntityDate] = records.DateKey(today.AddDate(0, 0, 1))
		}
	}
	return entities
}

// titleCase builds a fresh Caser per call; Casers are not safe to share
// between goroutines.
func titleCase(s string) string {
	return cases.Title(language.Und).String(s)
}
