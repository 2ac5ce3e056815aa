// Package filter decides which directories are pruned from a tree copy.
package filter

import (
	"fmt"
	"slices"
	"strings"
)

// DefaultExcluded lists directory names pruned unless the caller opts out.
var DefaultExcluded = []string{"node_modules"}

// Policy is a fixed set of bare directory names that are never traversed.
// Matching is exact: no globbing, no case folding. A nil *Policy prunes
// nothing.
type Policy struct {
	names map[string]struct{}
}

// NewPolicy creates a policy pruning exactly the given names.
func NewPolicy(names ...string) *Policy {
	p := &Policy{names: make(map[string]struct{}, len(names))}
	for _, n := range names {
		// Names come from trusted call sites; Add validates user input.
		p.names[n] = struct{}{}
	}
	return p
}

// Default returns a policy pruning DefaultExcluded.
func Default() *Policy {
	return NewPolicy(DefaultExcluded...)
}

// Add extends the policy with another bare directory name. Names containing
// a path separator can never match an entry name and are rejected.
func (p *Policy) Add(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("empty exclude name")
	}
	if strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("exclude name %q must be a bare directory name, not a path", name)
	}
	if p.names == nil {
		p.names = make(map[string]struct{})
	}
	p.names[name] = struct{}{}
	return nil
}

// Pruned reports whether a directory with this bare name must be skipped.
func (p *Policy) Pruned(name string) bool {
	if p == nil {
		return false
	}
	_, ok := p.names[name]
	return ok
}

// Names returns the excluded names in sorted order.
func (p *Policy) Names() []string {
	if p == nil {
		return nil
	}
	out := make([]string, 0, len(p.names))
	for n := range p.names {
		out = append(out, n)
	}
	slices.Sort(out)
	return out
}

// Len returns the number of excluded names.
func (p *Policy) Len() int {
	if p == nil {
		return 0
	}
	return len(p.names)
}
