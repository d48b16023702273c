package search

import (
	"slices"
	"unsafe"

	"github.com/wricardo/dragster/game/engine"
)

type slot struct {
	state engine.SimState
	order int
	used  bool
}

// slotSize is the memory footprint of one table entry.
const slotSize = int64(unsafe.Sizeof(slot{}))

// TableBytes is the memory one generation table occupies.
const TableBytes = slotSize * engine.MaxStates

// GenerationTable stores at most one state per encoded key.
//
// The table remembers which keys are occupied so that iterating and clearing
// cost O(live states) instead of O(MaxStates).
type GenerationTable struct {
	slots  []slot
	keys   []int
	sorted bool
}

// NewGenerationTable allocates a table covering the whole key space.
func NewGenerationTable() *GenerationTable {
	return &GenerationTable{
		slots:  make([]slot, engine.MaxStates),
		keys:   make([]int, 0, 1024),
		sorted: true,
	}
}

// Offer stores state at key unless the held entry dominates it.
//
// Entries are ranked by (Distance, order); the greater one survives. Sweeping
// parents in ascending key order and overwriting on equal distance is the same
// rule, so the outcome does not depend on the order of Offer calls.
func (t *GenerationTable) Offer(key int, state *engine.SimState, order int) bool {
	s := &t.slots[key]
	if s.used {
		if state.Distance < s.state.Distance {
			return false
		}
		if state.Distance == s.state.Distance && order < s.order {
			return false
		}
	} else {
		s.used = true
		t.keys = append(t.keys, key)
		t.sorted = false
	}
	s.state = *state
	s.order = order
	return true
}

// Get returns the state stored at key, if any.
func (t *GenerationTable) Get(key int) (*engine.SimState, bool) {
	s := &t.slots[key]
	if !s.used {
		return nil, false
	}
	return &s.state, true
}

// Keys returns the occupied keys in ascending order. The slice is owned by the
// table and is invalidated by the next Offer or Reset.
func (t *GenerationTable) Keys() []int {
	if !t.sorted {
		slices.Sort(t.keys)
		t.sorted = true
	}
	return t.keys
}

// Len returns the number of occupied keys.
func (t *GenerationTable) Len() int {
	return len(t.keys)
}

// Reset clears every occupied slot.
func (t *GenerationTable) Reset() {
	for _, key := range t.keys {
		t.slots[key].used = false
	}
	t.keys = t.keys[:0]
	t.sorted = true
}
