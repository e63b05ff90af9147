package route

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/MrEthical07/goGate/role"
	"gopkg.in/yaml.v3"
)

// RuleSpec is the declarative form of a Rule, as found in YAML route tables.
type RuleSpec struct {
	Path   string   `yaml:"path"`
	Match  string   `yaml:"match,omitempty"`
	Access string   `yaml:"access"`
	Roles  []string `yaml:"roles,omitempty"`
}

// Table is a route table document.
type Table struct {
	Rules []RuleSpec `yaml:"rules"`
}

// DefaultTable returns the review application's route table.
func DefaultTable() Table {
	return Table{Rules: []RuleSpec{
		{Path: "/login", Access: "public"},
		{Path: "/forgot-password", Access: "public"},
		{Path: "/reset-password", Match: "prefix", Access: "public"},
		{Path: "/set-password", Match: "prefix", Access: "public"},
		{Path: "/unauthorized", Access: "public"},

		{Path: "/", Access: "authenticated"},
		{Path: "/dashboard", Access: "authenticated"},
		{Path: "/profile", Access: "authenticated"},
		{Path: "/exit-impersonation", Access: "authenticated"},

		{Path: "/super-admin", Match: "prefix", Access: "roles", Roles: []string{role.SuperAdmin}},

		{Path: "/settings", Match: "prefix", Access: "roles", Roles: []string{role.Admin}},
		{Path: "/employees", Match: "prefix", Access: "roles", Roles: []string{role.Admin}},
		{Path: "/review-templates", Match: "prefix", Access: "roles", Roles: []string{role.Admin}},
		{Path: "/review-cycles", Match: "prefix", Access: "roles", Roles: []string{role.Admin}},
		{Path: "/departments", Match: "prefix", Access: "roles", Roles: []string{role.Admin}},

		{Path: "/manager", Match: "prefix", Access: "roles", Roles: []string{role.Manager}},
		{Path: "/employee", Match: "prefix", Access: "roles", Roles: []string{role.Employee}},

		{Path: "/reviews/{id}", Match: "pattern", Access: "roles", Roles: []string{role.Admin, role.Manager, role.Employee}},
	}}
}

// Compile resolves role names against reg and returns the rules.
func (t Table) Compile(reg *role.Registry) ([]Rule, error) {
	out := make([]Rule, 0, len(t.Rules))
	for i, spec := range t.Rules {
		m, err := ParseMatch(spec.Match)
		if err != nil {
			return nil, fmt.Errorf("rule %d: %w", i, err)
		}
		a, err := ParseAccess(spec.Access)
		if err != nil {
			return nil, fmt.Errorf("rule %d: %w", i, err)
		}
		req := Requirement{Access: a}
		if a == RequiresRoles {
			set, err := reg.SetOf(spec.Roles...)
			if err != nil {
				return nil, fmt.Errorf("rule %d (%s): %w", i, spec.Path, err)
			}
			req.Roles = set
		} else if len(spec.Roles) > 0 {
			return nil, fmt.Errorf("rule %d (%s): roles listed on a %s rule", i, spec.Path, a)
		}
		out = append(out, Rule{Match: m, Path: spec.Path, Requirement: req})
	}
	return out, nil
}

// Build compiles t into a Classifier.
func (t Table) Build(reg *role.Registry) (*Classifier, error) {
	rules, err := t.Compile(reg)
	if err != nil {
		return nil, err
	}
	return New(rules)
}

// DecodeTable reads a YAML route table. Unknown fields are rejected.
func DecodeTable(r io.Reader) (Table, error) {
	var t Table
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&t); err != nil {
		if errors.Is(err, io.EOF) {
			return Table{}, errors.New("route: empty table")
		}
		return Table{}, fmt.Errorf("route: decode table: %w", err)
	}
	if len(t.Rules) == 0 {
		return Table{}, errors.New("route: table has no rules")
	}
	return t, nil
}

// LoadTable reads a YAML route table from disk.
func LoadTable(path string) (Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return Table{}, fmt.Errorf("route: open table: %w", err)
	}
	defer f.Close()
	return DecodeTable(f)
}
