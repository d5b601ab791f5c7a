// Package kinds declares the closed set of custom content identifiers, one
// enumeration per category. The textual name of a kind is its serialization
// key: it is what gets written into object tags and placement snapshots, so
// names must never be reused or renamed.
package kinds

import (
	"fmt"
	"strings"
)

type enum interface {
	~uint8
}

type table[K enum] struct {
	category string
	names    []string
	byName   map[string]K
	byFold   map[string]K
}

// newTable assigns K(1) to the first name, K(2) to the second and so on. The
// zero value of K is never a valid kind.
func newTable[K enum](category string, names ...string) table[K] {
	t := table[K]{
		category: category,
		names:    names,
		byName:   make(map[string]K, len(names)),
		byFold:   make(map[string]K, len(names)),
	}
	for i, n := range names {
		if _, dup := t.byName[n]; dup {
			panic(fmt.Sprintf("kinds: duplicate %s name %q", category, n))
		}
		k := K(i + 1)
		t.byName[n] = k
		t.byFold[strings.ToUpper(n)] = k
	}
	return t
}

func (t table[K]) name(k K) string {
	if k == 0 || int(k) > len(t.names) {
		return fmt.Sprintf("%s(%d)", strings.ToUpper(t.category), uint8(k))
	}
	return t.names[k-1]
}

func (t table[K]) valid(k K) bool { return k != 0 && int(k) <= len(t.names) }

// parse accepts the exact serialized name only.
func (t table[K]) parse(s string) (K, bool) {
	k, ok := t.byName[s]
	return k, ok
}

// lookup accepts user input: surrounding space and letter case are ignored.
func (t table[K]) lookup(s string) (K, bool) {
	k, ok := t.byFold[strings.ToUpper(strings.TrimSpace(s))]
	return k, ok
}

func (t table[K]) all() []K {
	out := make([]K, len(t.names))
	for i := range t.names {
		out[i] = K(i + 1)
	}
	return out
}
