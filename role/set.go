package role

import "math/bits"

// MaxRoles is the number of roles a [Set] can hold.
const MaxRoles = 64

// Set is a bitmask of registered roles.
type Set uint64

func (s Set) Has(bit int) bool {
	if bit < 0 || bit >= MaxRoles {
		return false
	}
	return s&(1<<bit) != 0
}

func (s *Set) Add(bit int) {
	if bit < 0 || bit >= MaxRoles {
		return
	}
	*s |= 1 << bit
}

func (s *Set) Remove(bit int) {
	if bit < 0 || bit >= MaxRoles {
		return
	}
	*s &^= 1 << bit
}

// Len returns the number of roles in s.
func (s Set) Len() int {
	return bits.OnesCount64(uint64(s))
}

func (s Set) Empty() bool {
	return s == 0
}

func (s Set) Raw() uint64 {
	return uint64(s)
}
