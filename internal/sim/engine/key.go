package engine

import (
	"fmt"
	"strings"
)

// Key is a namespaced metadata key, rendered as "namespace:name".
type Key struct {
	Namespace string
	Name      string
}

func NewKey(namespace, name string) (Key, error) {
	if !validKeyPart(namespace) {
		return Key{}, fmt.Errorf("invalid key namespace %q", namespace)
	}
	if !validKeyPart(name) {
		return Key{}, fmt.Errorf("invalid key name %q", name)
	}
	return Key{Namespace: namespace, Name: name}, nil
}

func MustKey(namespace, name string) Key {
	k, err := NewKey(namespace, name)
	if err != nil {
		panic(err)
	}
	return k
}

func ParseKey(s string) (Key, error) {
	ns, name, ok := strings.Cut(s, ":")
	if !ok {
		return Key{}, fmt.Errorf("key %q: missing namespace", s)
	}
	return NewKey(ns, name)
}

func (k Key) String() string { return k.Namespace + ":" + k.Name }

func validKeyPart(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9', c == '_', c == '-', c == '.', c == '/':
		default:
			return false
		}
	}
	return true
}
