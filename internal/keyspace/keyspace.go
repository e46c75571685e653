// Package keyspace is the authoritative map key -> Value. It coordinates
// the membership filter and the recency index under one readers-writer
// lock and enforces every invariant of the data model: type immutability
// per key, capacity-bounded eviction, and removal of aggregates that have
// been emptied by a mutation.
package keyspace

import (
	"errors"
	"sync"

	"go.uber.org/atomic"

	"blinkdb/internal/config"
	"blinkdb/internal/filter"
	"blinkdb/internal/log"
	"blinkdb/internal/recency"
	"blinkdb/internal/value"
)

// ErrWrongType signals that a command's expected variant does not match
// the variant already bound to the key.
var ErrWrongType = errors.New("keyspace: WRONGTYPE Operation against a key holding the wrong kind of value")

// Keyspace owns the map, recency ordering, and membership filter as one
// unit behind a single sync.RWMutex, per the concurrency model: exclusive
// for every mutation and for the LRU-fidelity string GET, shared for pure
// inspection that does not touch recency.
type Keyspace struct {
	mu   sync.RWMutex
	data map[string]*value.Value

	recency *recency.Index
	filter  *filter.Filter
	cfg     *config.Config

	evictions atomic.Int64
}

// New creates an empty Keyspace sized per cfg.
func New(cfg *config.Config) *Keyspace {
	return &Keyspace{
		data:    make(map[string]*value.Value),
		recency: recency.New(),
		filter:  filter.New(cfg.FilterWidth(), 0),
		cfg:     cfg,
	}
}

// Evictions reports the number of keys evicted for capacity since
// process start. Read without locking.
func (k *Keyspace) Evictions() int64 { return k.evictions.Load() }

// --- String ---

// Set unconditionally rebinds key to a fresh String value, per the
// exception to type immutability that Redis's SET convention grants.
func (k *Keyspace) Set(key, val []byte) {
	k.mu.Lock()
	defer k.mu.Unlock()

	sk := string(key)
	k.data[sk] = value.NewString(val)
	k.filter.Add(key)
	k.recency.Touch(sk)
	k.evictIfNeeded()
}

// Get returns the String value bound to key. This is the exception noted
// in the concurrency model: GET on a string is defined as a mutating
// touch for LRU fidelity, so it takes the exclusive lock like a write.
func (k *Keyspace) Get(key []byte) (val []byte, ok bool, err error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	sk := string(key)
	v, present := k.lookupLocked(key)
	if !present {
		return nil, false, nil
	}
	if v.Kind() != value.KindString {
		return nil, false, ErrWrongType
	}
	k.recency.Touch(sk)
	return v.Get(), true, nil
}

// Del removes key's binding along with its value, if any. DEL always
// succeeds from the caller's point of view — the dispatcher replies :1
// unconditionally per the wire spec, regardless of whether key existed.
func (k *Keyspace) Del(key []byte) {
	k.mu.Lock()
	defer k.mu.Unlock()

	sk := string(key)
	delete(k.data, sk)
	k.recency.Forget(sk)
}

// Type reports the variant bound to key, or value.Kind(0) if absent.
// Pure inspection: does not touch recency.
func (k *Keyspace) Type(key []byte) value.Kind {
	k.mu.RLock()
	defer k.mu.RUnlock()

	v, present := k.lookupLocked(key)
	if !present {
		return value.Kind(0)
	}
	return v.Kind()
}

// --- List ---

func (k *Keyspace) LPush(key, elem []byte) (int, error) {
	return k.listPush(key, elem, true)
}

func (k *Keyspace) RPush(key, elem []byte) (int, error) {
	return k.listPush(key, elem, false)
}

func (k *Keyspace) listPush(key, elem []byte, front bool) (int, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	v, _, err := k.getOrCreateLocked(key, value.KindList)
	if err != nil {
		return 0, err
	}
	var n int
	if front {
		n = v.PushFront(elem)
	} else {
		n = v.PushBack(elem)
	}
	k.afterMutationLocked(key)
	return n, nil
}

func (k *Keyspace) LPop(key []byte) ([]byte, bool, error) {
	return k.listPop(key, true)
}

func (k *Keyspace) RPop(key []byte) ([]byte, bool, error) {
	return k.listPop(key, false)
}

func (k *Keyspace) listPop(key []byte, front bool) ([]byte, bool, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	v, present := k.lookupLocked(key)
	if !present {
		return nil, false, nil
	}
	if v.Kind() != value.KindList {
		return nil, false, ErrWrongType
	}
	var elem []byte
	var ok bool
	if front {
		elem, ok = v.PopFront()
	} else {
		elem, ok = v.PopBack()
	}
	if !ok {
		return nil, false, nil
	}
	k.recency.Touch(string(key))
	k.dropIfEmptyLocked(key, v)
	return elem, true, nil
}

// LIndex resolves a signed index against key's list. Pure inspection.
func (k *Keyspace) LIndex(key []byte, i int) ([]byte, bool, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	v, present := k.lookupLocked(key)
	if !present {
		return nil, false, nil
	}
	if v.Kind() != value.KindList {
		return nil, false, ErrWrongType
	}
	elem, ok := v.Index(i)
	return elem, ok, nil
}

// LLen reports the length of key's list, or 0 if absent.
func (k *Keyspace) LLen(key []byte) (int, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	v, present := k.lookupLocked(key)
	if !present {
		return 0, nil
	}
	if v.Kind() != value.KindList {
		return 0, ErrWrongType
	}
	return v.ListLen(), nil
}

// LRange returns the inclusive [start, end] slice of key's list.
func (k *Keyspace) LRange(key []byte, start, end int) ([][]byte, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	v, present := k.lookupLocked(key)
	if !present {
		return [][]byte{}, nil
	}
	if v.Kind() != value.KindList {
		return nil, ErrWrongType
	}
	return v.Range(start, end), nil
}

// --- Set ---

func (k *Keyspace) SAdd(key, member []byte) (bool, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	v, _, err := k.getOrCreateLocked(key, value.KindSet)
	if err != nil {
		return false, err
	}
	added := v.Add(member)
	k.afterMutationLocked(key)
	return added, nil
}

func (k *Keyspace) SIsMember(key, member []byte) (bool, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	v, present := k.lookupLocked(key)
	if !present {
		return false, nil
	}
	if v.Kind() != value.KindSet {
		return false, ErrWrongType
	}
	return v.Contains(member), nil
}

func (k *Keyspace) SRem(key, member []byte) (bool, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	v, present := k.lookupLocked(key)
	if !present {
		return false, nil
	}
	if v.Kind() != value.KindSet {
		return false, ErrWrongType
	}
	removed := v.Remove(member)
	k.recency.Touch(string(key))
	k.dropIfEmptyLocked(key, v)
	return removed, nil
}

func (k *Keyspace) SCard(key []byte) (int, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	v, present := k.lookupLocked(key)
	if !present {
		return 0, nil
	}
	if v.Kind() != value.KindSet {
		return 0, ErrWrongType
	}
	return v.Card(), nil
}

func (k *Keyspace) SMembers(key []byte) ([][]byte, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	v, present := k.lookupLocked(key)
	if !present {
		return [][]byte{}, nil
	}
	if v.Kind() != value.KindSet {
		return nil, ErrWrongType
	}
	return v.Members(), nil
}

// --- Hash ---

func (k *Keyspace) HSet(key, field, val []byte) (bool, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	v, _, err := k.getOrCreateLocked(key, value.KindHash)
	if err != nil {
		return false, err
	}
	added := v.HSet(field, val)
	k.afterMutationLocked(key)
	return added, nil
}

func (k *Keyspace) HGet(key, field []byte) ([]byte, bool, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	v, present := k.lookupLocked(key)
	if !present {
		return nil, false, nil
	}
	if v.Kind() != value.KindHash {
		return nil, false, ErrWrongType
	}
	val, ok := v.HGet(field)
	return val, ok, nil
}

func (k *Keyspace) HExists(key, field []byte) (bool, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	v, present := k.lookupLocked(key)
	if !present {
		return false, nil
	}
	if v.Kind() != value.KindHash {
		return false, ErrWrongType
	}
	return v.HExists(field), nil
}

func (k *Keyspace) HDel(key, field []byte) (bool, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	v, present := k.lookupLocked(key)
	if !present {
		return false, nil
	}
	if v.Kind() != value.KindHash {
		return false, ErrWrongType
	}
	removed := v.HDel(field)
	k.recency.Touch(string(key))
	k.dropIfEmptyLocked(key, v)
	return removed, nil
}

func (k *Keyspace) HLen(key []byte) (int, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	v, present := k.lookupLocked(key)
	if !present {
		return 0, nil
	}
	if v.Kind() != value.KindHash {
		return 0, ErrWrongType
	}
	return v.HLen(), nil
}

func (k *Keyspace) HKeys(key []byte) ([][]byte, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	v, present := k.lookupLocked(key)
	if !present {
		return [][]byte{}, nil
	}
	if v.Kind() != value.KindHash {
		return nil, ErrWrongType
	}
	return v.HKeys(), nil
}

func (k *Keyspace) HVals(key []byte) ([][]byte, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	v, present := k.lookupLocked(key)
	if !present {
		return [][]byte{}, nil
	}
	if v.Kind() != value.KindHash {
		return nil, ErrWrongType
	}
	return v.HVals(), nil
}

func (k *Keyspace) HGetAll(key []byte) ([]value.HEntry, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	v, present := k.lookupLocked(key)
	if !present {
		return []value.HEntry{}, nil
	}
	if v.Kind() != value.KindHash {
		return nil, ErrWrongType
	}
	return v.HEntries(), nil
}

// --- Persistence hooks ---

// LoadBinding installs a key/value pair read from the persistence file
// without going through the get-or-create/eviction path. It performs
// only the raw bind: capacity is not checked, and the loader sets the
// ordering by calling TouchLoaded in file order.
func (k *Keyspace) LoadBinding(key string, v *value.Value) {
	k.mu.Lock()
	defer k.mu.Unlock()

	k.data[key] = v
	k.filter.Add([]byte(key))
}

// TouchLoaded replays a load-time touch, in file order, without
// re-checking capacity (the loader may exceed capacity transiently while
// replaying a file written under a different configuration; the very
// next live write will trim it back down).
func (k *Keyspace) TouchLoaded(key string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.recency.Touch(key)
}

// Snapshot returns every live key and its bound value for the persistence
// package to serialize. The returned map is a fresh copy safe to range
// over without holding the keyspace lock.
func (k *Keyspace) Snapshot() map[string]*value.Value {
	k.mu.RLock()
	defer k.mu.RUnlock()

	out := make(map[string]*value.Value, len(k.data))
	for key, v := range k.data {
		out[key] = v
	}
	return out
}

// --- internal helpers, all require k.mu held ---

// lookupLocked performs the filter-then-map read path of §4.4: a
// negative filter probe short-circuits to "absent" without touching the
// map at all.
func (k *Keyspace) lookupLocked(key []byte) (*value.Value, bool) {
	if !k.filter.Probe(key) {
		return nil, false
	}
	v, ok := k.data[string(key)]
	return v, ok
}

// getOrCreateLocked implements the get-or-create pattern for aggregate
// writes: bind a fresh empty variant on first touch, or validate the
// existing binding's kind on a subsequent touch.
func (k *Keyspace) getOrCreateLocked(key []byte, kind value.Kind) (v *value.Value, created bool, err error) {
	sk := string(key)
	if existing, ok := k.data[sk]; ok {
		if existing.Kind() != kind {
			return nil, false, ErrWrongType
		}
		return existing, false, nil
	}
	v = newEmpty(kind)
	k.data[sk] = v
	k.filter.Add(key)
	return v, true, nil
}

func newEmpty(kind value.Kind) *value.Value {
	switch kind {
	case value.KindList:
		return value.NewList()
	case value.KindSet:
		return value.NewSet()
	case value.KindHash:
		return value.NewHash()
	default:
		return value.NewString(nil)
	}
}

// afterMutationLocked touches recency and runs eviction after a
// successful aggregate write.
func (k *Keyspace) afterMutationLocked(key []byte) {
	k.recency.Touch(string(key))
	k.evictIfNeeded()
}

// dropIfEmptyLocked enforces invariant 4: an aggregate that has become
// empty through a mutation is unbound along with its key.
func (k *Keyspace) dropIfEmptyLocked(key []byte, v *value.Value) {
	if !v.Empty() {
		return
	}
	sk := string(key)
	delete(k.data, sk)
	k.recency.Forget(sk)
}

// evictIfNeeded repeatedly evicts the recency-tail while the live key
// count exceeds capacity. Eviction is not transactional with the
// triggering write: the write already succeeded, only a different,
// coldest key is ejected.
func (k *Keyspace) evictIfNeeded() {
	capacity := k.cfg.Capacity()
	for k.recency.Len() > capacity {
		oldest, err := k.recency.Oldest()
		if err != nil {
			return
		}
		delete(k.data, oldest)
		k.recency.Forget(oldest)
		k.evictions.Inc()
		log.Debugf("evicted key %q (capacity=%d)", oldest, capacity)
	}
}
