// Package filter implements the keyspace's membership pre-check: a
// fixed-width, additive-only bit array that answers "definitely absent"
// or "possibly present" for a key, at the cost of a bounded false-positive
// rate. Bits are never cleared, even when the corresponding key is
// deleted — the filter exists purely to short-circuit a map lookup on a
// clear miss, so a stale set bit only ever costs an extra map probe, never
// a wrong answer.
package filter

import "github.com/spaolacci/murmur3"

// Filter is a fixed-size bit array with one murmur3-derived hash
// function reducing a key to a bit index. Not safe for concurrent use on
// its own — it is always guarded by the keyspace's single lock.
type Filter struct {
	bits  []uint64
	width uint32
	seed  uint32
}

// New creates a Filter of the given bit width (rounded up to a multiple
// of 64) using seed to perturb the hash, so independent test instances
// don't share collision patterns.
func New(width int, seed uint32) *Filter {
	if width <= 0 {
		width = 1
	}
	words := (width + 63) / 64
	return &Filter{
		bits:  make([]uint64, words),
		width: uint32(words * 64),
		seed:  seed,
	}
}

func (f *Filter) index(key []byte) uint32 {
	return murmur3.Sum32WithSeed(key, f.seed) % f.width
}

// Add sets the bit derived from key. Idempotent.
func (f *Filter) Add(key []byte) {
	idx := f.index(key)
	f.bits[idx/64] |= 1 << (idx % 64)
}

// Probe reports whether key's bit is set. False means key was never
// added (zero false negatives); true means key was probably added (bounded
// false positives under load).
func (f *Filter) Probe(key []byte) bool {
	idx := f.index(key)
	return f.bits[idx/64]&(1<<(idx%64)) != 0
}
