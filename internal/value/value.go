// Package value implements the tagged variant that every keyspace binding
// holds: a byte string, an ordered list, a set, or a field/value hash.
// The four variants share one capability set — type tag, encode, decode —
// and are otherwise reached only after a caller has checked the tag,
// matching the polymorphism-to-sum-type shift called for by the design
// notes: a single Value struct discriminated by Kind, instead of a
// virtual base with four subclasses.
package value

import (
	"bytes"
	"container/list"
	"fmt"
	"strconv"
)

// Kind discriminates the four variants a Value can hold. The byte values
// double as the on-disk serialization tag for every variant; Set's byte is
// 'E' rather than 'S' so that it does not collide with String's 'S'.
type Kind byte

const (
	KindString Kind = 'S'
	KindList   Kind = 'L'
	KindSet    Kind = 'E'
	KindHash   Kind = 'H'
)

// String is the human-readable type name used by the TYPE command and by
// error messages.
func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindSet:
		return "set"
	case KindHash:
		return "hash"
	default:
		return "none"
	}
}

// Value is a tagged union over the four supported variants. Only the
// field matching kind is ever populated; callers reach variant-specific
// operations (List, Set, Hash accessors below) only after checking Kind.
type Value struct {
	kind Kind

	str  []byte
	list *list.List
	set  map[string]struct{}
	hash map[string][]byte
}

// Kind reports which variant v holds.
func (v *Value) Kind() Kind { return v.kind }

// NewString creates a String value bound to b. The caller retains no
// aliasing obligation: b is copied.
func NewString(b []byte) *Value {
	return &Value{kind: KindString, str: append([]byte(nil), b...)}
}

// NewList creates an empty List value.
func NewList() *Value {
	return &Value{kind: KindList, list: list.New()}
}

// NewSet creates an empty Set value.
func NewSet() *Value {
	return &Value{kind: KindSet, set: make(map[string]struct{})}
}

// NewHash creates an empty Hash value.
func NewHash() *Value {
	return &Value{kind: KindHash, hash: make(map[string][]byte)}
}

// ---- String ----

// Get returns the byte string bound to a String value.
func (v *Value) Get() []byte { return v.str }

// Set overwrites the byte string bound to a String value in place.
// SET at the keyspace layer never calls this — it rebinds the key to a
// fresh Value instead, per the unconditional-replace rule in the data
// model. This exists for symmetry with the other variants' mutators.
func (v *Value) Set(b []byte) { v.str = append([]byte(nil), b...) }

// ---- List ----

// PushFront prepends an element and returns the new length.
func (v *Value) PushFront(elem []byte) int {
	v.list.PushFront(append([]byte(nil), elem...))
	return v.list.Len()
}

// PushBack appends an element and returns the new length.
func (v *Value) PushBack(elem []byte) int {
	v.list.PushBack(append([]byte(nil), elem...))
	return v.list.Len()
}

// PopFront removes and returns the head element. ok is false if the list
// is empty.
func (v *Value) PopFront() (elem []byte, ok bool) {
	front := v.list.Front()
	if front == nil {
		return nil, false
	}
	v.list.Remove(front)
	return front.Value.([]byte), true
}

// PopBack removes and returns the tail element. ok is false if the list
// is empty.
func (v *Value) PopBack() (elem []byte, ok bool) {
	back := v.list.Back()
	if back == nil {
		return nil, false
	}
	v.list.Remove(back)
	return back.Value.([]byte), true
}

// ListLen returns the number of elements in a List value.
func (v *Value) ListLen() int { return v.list.Len() }

// Index resolves a signed, possibly negative index (-1 is last) to an
// element. ok is false if the index is out of range after normalization —
// this is not an error condition, per the data model's "absent" signal.
func (v *Value) Index(i int) (elem []byte, ok bool) {
	n := v.list.Len()
	if i < 0 {
		i += n
	}
	if i < 0 || i >= n {
		return nil, false
	}
	e := v.list.Front()
	for j := 0; j < i; j++ {
		e = e.Next()
	}
	return e.Value.([]byte), true
}

// Range returns the inclusive slice [start, end], both signed and
// normalized by adding the length when negative, then clamped to
// [0, len-1]. start > end after normalization yields an empty slice.
func (v *Value) Range(start, end int) [][]byte {
	n := v.list.Len()
	if start < 0 {
		start += n
	}
	if end < 0 {
		end += n
	}
	if start < 0 {
		start = 0
	}
	if end > n-1 {
		end = n - 1
	}
	if start > end {
		return [][]byte{}
	}
	out := make([][]byte, 0, end-start+1)
	e := v.list.Front()
	for j := 0; j < start; j++ {
		e = e.Next()
	}
	for j := start; j <= end; j++ {
		out = append(out, e.Value.([]byte))
		e = e.Next()
	}
	return out
}

// ---- Set ----

// Add inserts a member, returning true if it was not already present.
func (v *Value) Add(member []byte) bool {
	k := string(member)
	if _, exists := v.set[k]; exists {
		return false
	}
	v.set[k] = struct{}{}
	return true
}

// Contains reports whether member is present.
func (v *Value) Contains(member []byte) bool {
	_, exists := v.set[string(member)]
	return exists
}

// Remove deletes member, returning true if it was present.
func (v *Value) Remove(member []byte) bool {
	k := string(member)
	if _, exists := v.set[k]; !exists {
		return false
	}
	delete(v.set, k)
	return true
}

// Card returns the number of members.
func (v *Value) Card() int { return len(v.set) }

// Members returns every member. Iteration order is unspecified but the
// returned slice is stable for the duration of the call.
func (v *Value) Members() [][]byte {
	out := make([][]byte, 0, len(v.set))
	for k := range v.set {
		out = append(out, []byte(k))
	}
	return out
}

// ---- Hash ----

// HSet binds field to val, returning true if the field is newly added.
func (v *Value) HSet(field, val []byte) bool {
	k := string(field)
	_, existed := v.hash[k]
	v.hash[k] = append([]byte(nil), val...)
	return !existed
}

// HGet returns the value bound to field, if any.
func (v *Value) HGet(field []byte) (val []byte, ok bool) {
	val, ok = v.hash[string(field)]
	return
}

// HExists reports whether field is bound.
func (v *Value) HExists(field []byte) bool {
	_, ok := v.hash[string(field)]
	return ok
}

// HDel removes field, returning true if it was bound.
func (v *Value) HDel(field []byte) bool {
	k := string(field)
	if _, ok := v.hash[k]; !ok {
		return false
	}
	delete(v.hash, k)
	return true
}

// HLen returns the number of fields.
func (v *Value) HLen() int { return len(v.hash) }

// HKeys returns every field name.
func (v *Value) HKeys() [][]byte {
	out := make([][]byte, 0, len(v.hash))
	for k := range v.hash {
		out = append(out, []byte(k))
	}
	return out
}

// HVals returns every bound value.
func (v *Value) HVals() [][]byte {
	out := make([][]byte, 0, len(v.hash))
	for _, val := range v.hash {
		out = append(out, val)
	}
	return out
}

// HEntry is one field/value pair, used by HEntries and by HGETALL.
type HEntry struct {
	Field []byte
	Value []byte
}

// HEntries returns every field/value pair.
func (v *Value) HEntries() []HEntry {
	out := make([]HEntry, 0, len(v.hash))
	for k, val := range v.hash {
		out = append(out, HEntry{Field: []byte(k), Value: val})
	}
	return out
}

// Empty reports whether an aggregate value has no elements left. String
// values are never considered empty by this check — SET always rebinds,
// never leaves an "empty string that should vanish" state.
func (v *Value) Empty() bool {
	switch v.kind {
	case KindList:
		return v.list.Len() == 0
	case KindSet:
		return len(v.set) == 0
	case KindHash:
		return len(v.hash) == 0
	default:
		return false
	}
}

// Tag returns the on-disk serialization tag for v's variant.
func (v *Value) Tag() byte { return byte(v.kind) }

// Encode renders v's body per its variant's on-disk grammar. The tag
// byte and surrounding "tag key body" framing are the persistence
// package's responsibility; Encode returns only the body.
func (v *Value) Encode() []byte {
	switch v.kind {
	case KindString:
		return v.str
	case KindList:
		var buf bytes.Buffer
		for e := v.list.Front(); e != nil; e = e.Next() {
			writeLenPrefixed(&buf, e.Value.([]byte))
		}
		return buf.Bytes()
	case KindSet:
		var buf bytes.Buffer
		for k := range v.set {
			writeLenPrefixed(&buf, []byte(k))
		}
		return buf.Bytes()
	case KindHash:
		var buf bytes.Buffer
		for k, val := range v.hash {
			writeLenPrefixed(&buf, []byte(k))
			writeLenPrefixed(&buf, val)
		}
		return buf.Bytes()
	default:
		return nil
	}
}

func writeLenPrefixed(buf *bytes.Buffer, b []byte) {
	buf.WriteString(strconv.Itoa(len(b)))
	buf.WriteByte(':')
	buf.Write(b)
	buf.WriteByte(',')
}

// Decode parses a body per tag's grammar into a fresh Value. It returns
// an error if the body is malformed; the persistence loader treats that
// as a skip-this-line condition rather than a fatal one.
func Decode(tag byte, body []byte) (*Value, error) {
	switch Kind(tag) {
	case KindString:
		return NewString(body), nil
	case KindList:
		elems, err := splitLenPrefixed(body)
		if err != nil {
			return nil, err
		}
		v := NewList()
		for _, e := range elems {
			v.PushBack(e)
		}
		return v, nil
	case KindSet:
		elems, err := splitLenPrefixed(body)
		if err != nil {
			return nil, err
		}
		v := NewSet()
		for _, e := range elems {
			v.Add(e)
		}
		return v, nil
	case KindHash:
		elems, err := splitLenPrefixed(body)
		if err != nil {
			return nil, err
		}
		if len(elems)%2 != 0 {
			return nil, fmt.Errorf("value: odd field/value count in hash body")
		}
		v := NewHash()
		for i := 0; i < len(elems); i += 2 {
			v.HSet(elems[i], elems[i+1])
		}
		return v, nil
	default:
		return nil, fmt.Errorf("value: unknown tag %q", tag)
	}
}

// splitLenPrefixed parses a run of "<len>:<bytes>," tokens.
func splitLenPrefixed(body []byte) ([][]byte, error) {
	var out [][]byte
	for len(body) > 0 {
		colon := bytes.IndexByte(body, ':')
		if colon < 0 {
			return nil, fmt.Errorf("value: missing ':' in body")
		}
		n, err := strconv.Atoi(string(body[:colon]))
		if err != nil || n < 0 {
			return nil, fmt.Errorf("value: bad length prefix %q", body[:colon])
		}
		body = body[colon+1:]
		if len(body) < n+1 {
			return nil, fmt.Errorf("value: body shorter than declared length %d", n)
		}
		out = append(out, append([]byte(nil), body[:n]...))
		if body[n] != ',' {
			return nil, fmt.Errorf("value: missing trailing ','")
		}
		body = body[n+1:]
	}
	return out, nil
}
