// Package registry maps content ids to their definitions for one category.
package registry

import (
	"fmt"
	"io"
	"log"
	"reflect"

	"voxelcraft.ai/customcontent/internal/content/errs"
)

// ID is a closed-set content identifier whose String form is stable.
type ID interface {
	comparable
	String() string
}

// Definition is the part of a content definition the registry relies on.
// Identify must be total: it reports false, never panics, for objects the
// definition did not create.
type Definition[K ID, O any] interface {
	ContentID() K
	Identify(obj O) bool
}

// Registry is built at startup and only read afterwards. It is not safe for
// concurrent use; like the rest of the content layer it lives on the
// simulation goroutine.
type Registry[K ID, O any, D Definition[K, O]] struct {
	category string
	log      *log.Logger

	defs  map[K]D
	order []K
}

func New[K ID, O any, D Definition[K, O]](category string, logger *log.Logger) *Registry[K, O, D] {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Registry[K, O, D]{
		category: category,
		log:      logger,
		defs:     map[K]D{},
	}
}

func (r *Registry[K, O, D]) Category() string { return r.category }
func (r *Registry[K, O, D]) Len() int         { return len(r.order) }

// Register adds d under id. A second registration of the same id is rejected
// and the first one is kept.
func (r *Registry[K, O, D]) Register(id K, d D) error {
	if isNil(d) {
		err := fmt.Errorf("%s %s: nil definition: %w", r.category, id, errs.ErrConfiguration)
		r.log.Printf("register: %v", err)
		return err
	}
	if got := d.ContentID(); got != id {
		err := fmt.Errorf("%s %s: definition reports id %s: %w", r.category, id, got, errs.ErrConfiguration)
		r.log.Printf("register: %v", err)
		return err
	}
	if _, dup := r.defs[id]; dup {
		err := fmt.Errorf("%s %s: already registered: %w", r.category, id, errs.ErrConfiguration)
		r.log.Printf("register: %v", err)
		return err
	}
	r.defs[id] = d
	r.order = append(r.order, id)
	return nil
}

func (r *Registry[K, O, D]) Resolve(id K) (D, error) {
	d, ok := r.defs[id]
	if !ok {
		var zero D
		return zero, fmt.Errorf("%s %s: %w", r.category, id, errs.ErrNotFound)
	}
	return d, nil
}

// IdentifyAny asks every definition, in registration order, whether obj is
// one of its instances.
func (r *Registry[K, O, D]) IdentifyAny(obj O) (K, bool) {
	for _, id := range r.order {
		if r.defs[id].Identify(obj) {
			return id, true
		}
	}
	var zero K
	return zero, false
}

// IDs lists registered ids in registration order.
func (r *Registry[K, O, D]) IDs() []K {
	out := make([]K, len(r.order))
	copy(out, r.order)
	return out
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Func, reflect.Slice, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
