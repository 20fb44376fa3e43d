package config

import (
	"fmt"
	"math/bits"
	"strings"
)

// GroupCount is the number of switch groups. Group numbers run 1..GroupCount.
const GroupCount = 8

// GroupSet is a set of groups, stored as a bitmask where group n is bit n-1
type GroupSet uint8

// Groups builds a set from group numbers, ignoring numbers outside 1..GroupCount
func Groups(numbers ...int) GroupSet {
	var s GroupSet
	for _, n := range numbers {
		if n >= 1 && n <= GroupCount {
			s |= 1 << (n - 1)
		}
	}
	return s
}

func (s GroupSet) Union(o GroupSet) GroupSet     { return s | o }
func (s GroupSet) Intersect(o GroupSet) GroupSet { return s & o }

// Intersects reports whether the two sets share at least one group
func (s GroupSet) Intersects(o GroupSet) bool { return s&o != 0 }

func (s GroupSet) Empty() bool { return s == 0 }

// Has reports whether group n is in the set
func (s GroupSet) Has(n int) bool {
	return n >= 1 && n <= GroupCount && s&(1<<(n-1)) != 0
}

// Len returns the number of groups in the set
func (s GroupSet) Len() int { return bits.OnesCount8(uint8(s)) }

// Numbers returns the group numbers in ascending order
func (s GroupSet) Numbers() []int {
	var out []int
	for n := 1; n <= GroupCount; n++ {
		if s.Has(n) {
			out = append(out, n)
		}
	}
	return out
}

func (s GroupSet) String() string {
	nums := s.Numbers()
	parts := make([]string, len(nums))
	for i, n := range nums {
		parts[i] = fmt.Sprint(n)
	}
	return "{" + strings.Join(parts, ",") + "}"
}
