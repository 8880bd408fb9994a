// Package filter implements include/exclude regular expression patterns used
// to select which dashboards and charts are ingested.
package filter

import (
	"fmt"
	"regexp"
)

// Pattern selects names by regular expression. An empty include list admits
// every name; any matching exclude rejects the name.
type Pattern struct {
	includes []*regexp.Regexp
	excludes []*regexp.Regexp
}

// New compiles include and exclude expressions.
func New(includes, excludes []string) (*Pattern, error) {
	p := &Pattern{}
	var err error
	if p.includes, err = compile(includes); err != nil {
		return nil, fmt.Errorf("include pattern: %w", err)
	}
	if p.excludes, err = compile(excludes); err != nil {
		return nil, fmt.Errorf("exclude pattern: %w", err)
	}
	return p, nil
}

func compile(exprs []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(exprs))
	for _, e := range exprs {
		re, err := regexp.Compile(e)
		if err != nil {
			return nil, err
		}
		out = append(out, re)
	}
	return out, nil
}

// Match reports whether name passes the pattern. A nil Pattern matches everything.
func (p *Pattern) Match(name string) bool {
	if p == nil {
		return true
	}
	for _, re := range p.excludes {
		if re.MatchString(name) {
			return false
		}
	}
	if len(p.includes) == 0 {
		return true
	}
	for _, re := range p.includes {
		if re.MatchString(name) {
			return true
		}
	}
	return false
}
