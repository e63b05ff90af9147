package route

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Match selects how a rule's Path is compared against a request path.
type Match int

const (
	Exact Match = iota
	Prefix
	Pattern
)

func (m Match) String() string {
	switch m {
	case Exact:
		return "exact"
	case Prefix:
		return "prefix"
	case Pattern:
		return "pattern"
	}
	return fmt.Sprintf("match(%d)", int(m))
}

// ParseMatch accepts the names produced by String; empty means exact.
func ParseMatch(s string) (Match, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "exact", "":
		return Exact, nil
	case "prefix":
		return Prefix, nil
	case "pattern":
		return Pattern, nil
	}
	return 0, fmt.Errorf("route: unknown match %q", s)
}

// Rule binds a path to a requirement.
type Rule struct {
	Match       Match
	Path        string
	Requirement Requirement
}

const (
	segID  = "{id}"
	segAny = "{*}"
)

type compiledPattern struct {
	segments []string
	literals int
	req      Requirement
}

func (c compiledPattern) matches(segs []string) bool {
	if len(segs) != len(c.segments) {
		return false
	}
	for i, want := range c.segments {
		got := segs[i]
		switch want {
		case segAny:
			if got == "" {
				return false
			}
		case segID:
			if !isNumeric(got) {
				return false
			}
		default:
			if got != want {
				return false
			}
		}
	}
	return true
}

type prefixRule struct {
	path string
	req  Requirement
}

// Classifier is an immutable route table.
type Classifier struct {
	exact    map[string]Requirement
	patterns []compiledPattern
	prefixes []prefixRule
	rules    int
}

// New compiles rules. Duplicate rules of the same kind and path are rejected,
// as are role requirements with an empty role set.
func New(rules []Rule) (*Classifier, error) {
	c := &Classifier{exact: make(map[string]Requirement)}
	seenPrefix := make(map[string]struct{})
	seenPattern := make(map[string]struct{})

	for i, r := range rules {
		if !strings.HasPrefix(r.Path, "/") {
			return nil, fmt.Errorf("route: rule %d: path %q must be absolute", i, r.Path)
		}
		if r.Requirement.Access == RequiresRoles && r.Requirement.Roles.Empty() {
			return nil, fmt.Errorf("route: rule %d (%s): role requirement without roles", i, r.Path)
		}
		p := Normalize(r.Path)

		switch r.Match {
		case Exact:
			if _, dup := c.exact[p]; dup {
				return nil, fmt.Errorf("route: duplicate exact rule %q", p)
			}
			c.exact[p] = r.Requirement
		case Prefix:
			if _, dup := seenPrefix[p]; dup {
				return nil, fmt.Errorf("route: duplicate prefix rule %q", p)
			}
			seenPrefix[p] = struct{}{}
			c.prefixes = append(c.prefixes, prefixRule{path: p, req: r.Requirement})
		case Pattern:
			if _, dup := seenPattern[p]; dup {
				return nil, fmt.Errorf("route: duplicate pattern rule %q", p)
			}
			seenPattern[p] = struct{}{}
			cp, err := compilePattern(p, r.Requirement)
			if err != nil {
				return nil, fmt.Errorf("route: rule %d: %w", i, err)
			}
			c.patterns = append(c.patterns, cp)
		default:
			return nil, fmt.Errorf("route: rule %d: unknown match %d", i, r.Match)
		}
		c.rules++
	}

	sort.SliceStable(c.prefixes, func(i, j int) bool {
		return len(c.prefixes[i].path) > len(c.prefixes[j].path)
	})
	sort.SliceStable(c.patterns, func(i, j int) bool {
		a, b := c.patterns[i], c.patterns[j]
		if len(a.segments) != len(b.segments) {
			return len(a.segments) > len(b.segments)
		}
		return a.literals > b.literals
	})
	return c, nil
}

func compilePattern(p string, req Requirement) (compiledPattern, error) {
	segs := segments(p)
	if len(segs) == 0 {
		return compiledPattern{}, errors.New("empty pattern")
	}
	cp := compiledPattern{segments: segs, req: req}
	for _, s := range segs {
		switch {
		case s == segID || s == segAny:
		case strings.ContainsAny(s, "{}"):
			return compiledPattern{}, fmt.Errorf("unsupported placeholder %q", s)
		default:
			cp.literals++
		}
	}
	return cp, nil
}

// Classify returns the requirement for path. It never fails.
func (c *Classifier) Classify(path string) Requirement {
	req, _ := c.Lookup(path)
	return req
}

// Lookup is Classify that also reports whether a rule matched.
func (c *Classifier) Lookup(path string) (Requirement, bool) {
	p := Normalize(path)

	if req, ok := c.exact[p]; ok {
		return req, true
	}

	if len(c.patterns) > 0 {
		segs := segments(p)
		for _, cp := range c.patterns {
			if cp.matches(segs) {
				return cp.req, true
			}
		}
	}

	for _, pr := range c.prefixes {
		if HasSegmentPrefix(p, pr.path) {
			return pr.req, true
		}
	}

	return Requirement{Access: AnyAuthenticated}, false
}

// Len returns the number of compiled rules.
func (c *Classifier) Len() int {
	return c.rules
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
