package decoder

import (
	"fmt"
	"sort"

	"whisper-subs-go/tensor"
)

// Kind tags which attention projection a cache slot holds
type Kind int

const (
	SelfKey Kind = iota
	SelfValue
	CrossKey
	CrossValue
)

var kindNames = map[Kind]string{
	SelfKey:    "self_key",
	SelfValue:  "self_value",
	CrossKey:   "cross_key",
	CrossValue: "cross_value",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// IsSelf reports whether the kind belongs to a self-attention slot
func (k Kind) IsSelf() bool {
	return k == SelfKey || k == SelfValue
}

// Kinds lists all slot kinds in their canonical order
func Kinds() []Kind {
	return []Kind{SelfKey, SelfValue, CrossKey, CrossValue}
}

// Slot identifies one attention cache entry: a decoder layer plus the
// projection kind. The same identifier must resolve to the same tensor role
// on the export-time trace and the run-time incremental pass.
type Slot struct {
	Layer int
	Kind  Kind
}

func (s Slot) String() string {
	return fmt.Sprintf("%s_%d", s.Kind, s.Layer)
}

// Cache holds the key/value tensors of one decoding run. Self-attention
// slots grow along the sequence axis as tokens are decoded; cross-attention
// slots are written once from the encoder features and then only read.
// A cache is owned by a single run and must not be shared across runs.
type Cache struct {
	slots map[Slot]*tensor.Tensor

	// maxSelfLen is the context bound: once a self slot reaches it, a Put
	// replaces the slot instead of appending, treating the step as a fresh
	// window start.
	maxSelfLen int
}

// NewCache creates an empty cache with the given self-attention context bound
func NewCache(maxSelfLen int) *Cache {
	return &Cache{
		slots:      make(map[Slot]*tensor.Tensor),
		maxSelfLen: maxSelfLen,
	}
}

// Empty reports whether no slot has been populated yet
func (c *Cache) Empty() bool {
	return len(c.slots) == 0
}

// Batch returns the batch dimension shared by all slots, or zero when empty
func (c *Cache) Batch() int {
	for _, t := range c.slots {
		return t.Shape[0]
	}
	return 0
}

// SelfLen returns the sequence length of the self-attention slots, or zero
// when none are populated
func (c *Cache) SelfLen() int {
	for slot, t := range c.slots {
		if slot.Kind.IsSelf() {
			return t.Shape[1]
		}
	}
	return 0
}

// Get returns the tensor stored under the slot
func (c *Cache) Get(slot Slot) (*tensor.Tensor, bool) {
	t, ok := c.slots[slot]
	return t, ok
}

// Slots returns the populated slot identifiers in deterministic order
func (c *Cache) Slots() []Slot {
	slots := make([]Slot, 0, len(c.slots))
	for s := range c.slots {
		slots = append(slots, s)
	}
	sort.Slice(slots, func(a, b int) bool {
		if slots[a].Layer != slots[b].Layer {
			return slots[a].Layer < slots[b].Layer
		}
		return slots[a].Kind < slots[b].Kind
	})
	return slots
}

// Put stores a new contribution under the slot. Cross-attention slots and
// empty slots take the value verbatim. A populated self-attention slot is
// extended along the sequence axis, unless it already holds maxSelfLen or
// more positions, in which case the new value replaces it.
func (c *Cache) Put(slot Slot, t *tensor.Tensor) {
	if len(t.Shape) != 3 {
		panic(fmt.Sprintf("cache slot %s requires a rank-3 tensor, got shape %v", slot, t.Shape))
	}

	existing, ok := c.slots[slot]
	if !ok || !slot.Kind.IsSelf() {
		c.slots[slot] = t
		return
	}

	if c.maxSelfLen > 0 && existing.Shape[1] >= c.maxSelfLen {
		c.slots[slot] = t
		return
	}

	c.slots[slot] = tensor.ConcatSeq(existing, t)
}

// Set stores the tensor verbatim, bypassing the append policy. Used when the
// engine backend demaps an already-updated slot from the graph outputs.
func (c *Cache) Set(slot Slot, t *tensor.Tensor) {
	if len(t.Shape) != 3 {
		panic(fmt.Sprintf("cache slot %s requires a rank-3 tensor, got shape %v", slot, t.Shape))
	}
	c.slots[slot] = t
}

// Reindex returns a new cache whose batch axis is gathered according to
// indices. Indices may repeat or drop rows; slot identifiers are preserved.
func (c *Cache) Reindex(indices []int) (*Cache, error) {
	batch := c.Batch()
	for _, idx := range indices {
		if idx < 0 || idx >= batch {
			return nil, fmt.Errorf("%w: index %d with batch %d", ErrIndexOutOfRange, idx, batch)
		}
	}

	out := NewCache(c.maxSelfLen)
	for slot, t := range c.slots {
		out.slots[slot] = tensor.Gather(t, indices)
	}
	return out, nil
}

// Clone returns a deep copy. Useful for retaining a run's final cache for
// diagnostics while the live cache keeps mutating.
func (c *Cache) Clone() *Cache {
	out := NewCache(c.maxSelfLen)
	for slot, t := range c.slots {
		out.slots[slot] = t.Clone()
	}
	return out
}
