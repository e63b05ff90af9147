package role

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Built-in role names.
const (
	SuperAdmin = "superadmin"
	Admin      = "admin"
	Manager    = "manager"
	Employee   = "employee"
)

var (
	// ErrUnknownRole is returned when a role string does not name a registered role.
	ErrUnknownRole = errors.New("unknown role")
	// ErrRegistryFrozen is returned by Register after Freeze.
	ErrRegistryFrozen = errors.New("role registry frozen")
)

// Definition describes one role and its landing page.
type Definition struct {
	Name string `yaml:"name" json:"name"`
	Home string `yaml:"home" json:"home"`
}

// DefaultDefinitions returns the four roles of the review application.
func DefaultDefinitions() []Definition {
	return []Definition{
		{Name: SuperAdmin, Home: "/super-admin/dashboard"},
		{Name: Admin, Home: "/dashboard"},
		{Name: Manager, Home: "/manager/dashboard"},
		{Name: Employee, Home: "/employee/dashboard"},
	}
}

type entry struct {
	bit  int
	home string
}

// Registry maps role names to bit positions and home paths.
//
// Registration happens during initialization; after [Registry.Freeze] the
// registry is read-only and safe for concurrent lookups.
type Registry struct {
	mu        sync.RWMutex
	byName    map[string]entry
	bitToName map[int]string
	frozen    bool
}

func NewRegistry() *Registry {
	return &Registry{
		byName:    make(map[string]entry),
		bitToName: make(map[int]string),
	}
}

// NewRegistryFrom registers defs in order and freezes the result.
func NewRegistryFrom(defs []Definition) (*Registry, error) {
	r := NewRegistry()
	for _, d := range defs {
		if _, err := r.Register(d.Name, d.Home); err != nil {
			return nil, fmt.Errorf("role %q: %w", d.Name, err)
		}
	}
	r.Freeze()
	return r, nil
}

// Default returns a frozen registry holding [DefaultDefinitions].
func Default() *Registry {
	r, err := NewRegistryFrom(DefaultDefinitions())
	if err != nil {
		panic(err)
	}
	return r
}

// Register assigns the next free bit to name. home may be empty for roles
// without a landing page; otherwise it must be an absolute path.
func (r *Registry) Register(name, home string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return -1, ErrRegistryFrozen
	}

	key := normalize(name)
	if key == "" {
		return -1, errors.New("role name cannot be empty")
	}
	if _, exists := r.byName[key]; exists {
		return -1, errors.New("role already registered")
	}
	if home != "" && !strings.HasPrefix(home, "/") {
		return -1, errors.New("role home must be an absolute path")
	}

	next := len(r.byName)
	if next >= MaxRoles {
		return -1, errors.New("role limit exceeded")
	}

	r.byName[key] = entry{bit: next, home: home}
	r.bitToName[next] = key
	return next, nil
}

func (r *Registry) Freeze() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen = true
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byName)
}

// Parse normalizes raw and returns the canonical registered role name.
//
// Matching ignores case, surrounding space and the separators '-', '_' and
// ' ', so "Super_Admin" parses as "superadmin".
func (r *Registry) Parse(raw string) (string, error) {
	key := normalize(raw)
	if key == "" {
		return "", fmt.Errorf("%w: empty", ErrUnknownRole)
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.byName[key]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, raw)
	}
	return key, nil
}

// Bit returns the bit for a role name.
func (r *Registry) Bit(name string) (int, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.byName[normalize(name)]
	return e.bit, ok
}

// Name returns the role registered at bit.
func (r *Registry) Name(bit int) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	name, ok := r.bitToName[bit]
	return name, ok
}

// Home returns the landing path of a role. ok is false for unknown roles and
// roles registered without a home.
func (r *Registry) Home(name string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.byName[normalize(name)]
	if !ok || e.home == "" {
		return "", false
	}
	return e.home, true
}

// SetOf builds a Set from role names.
func (r *Registry) SetOf(names ...string) (Set, error) {
	var s Set
	for _, n := range names {
		bit, ok := r.Bit(n)
		if !ok {
			return 0, fmt.Errorf("%w: %q", ErrUnknownRole, n)
		}
		s.Add(bit)
	}
	return s, nil
}

// Contains reports whether name is a member of s.
func (r *Registry) Contains(s Set, name string) bool {
	bit, ok := r.Bit(name)
	if !ok {
		return false
	}
	return s.Has(bit)
}

// Names returns the members of s in sorted order.
func (r *Registry) Names(s Set) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, s.Len())
	for bit := 0; bit < MaxRoles; bit++ {
		if !s.Has(bit) {
			continue
		}
		if name, ok := r.bitToName[bit]; ok {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

func normalize(raw string) string {
	raw = strings.ToLower(strings.TrimSpace(raw))
	return strings.Map(func(c rune) rune {
		switch c {
		case '-', '_', ' ':
			return -1
		}
		return c
	}, raw)
}
