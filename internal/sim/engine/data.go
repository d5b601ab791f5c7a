package engine

import "sort"

// DataContainer is the per-object string metadata the host keeps for
// entities and item stacks. It travels with the object; nothing outside the
// host owns it. A nil container reads as empty.
type DataContainer struct {
	values map[Key]string
}

// Holder is any host object that carries a DataContainer. PersistentData may
// return nil (for example on a nil object).
type Holder interface {
	PersistentData() *DataContainer
}

func (d *DataContainer) Get(k Key) (string, bool) {
	if d == nil || d.values == nil {
		return "", false
	}
	v, ok := d.values[k]
	return v, ok
}

func (d *DataContainer) Set(k Key, v string) {
	if d == nil {
		return
	}
	if d.values == nil {
		d.values = map[Key]string{}
	}
	d.values[k] = v
}

func (d *DataContainer) Has(k Key) bool {
	_, ok := d.Get(k)
	return ok
}

func (d *DataContainer) Remove(k Key) {
	if d == nil || d.values == nil {
		return
	}
	delete(d.values, k)
}

func (d *DataContainer) Len() int {
	if d == nil {
		return 0
	}
	return len(d.values)
}

func (d *DataContainer) Keys() []Key {
	if d == nil {
		return nil
	}
	out := make([]Key, 0, len(d.values))
	for k := range d.values {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

func (d *DataContainer) clone() DataContainer {
	var c DataContainer
	if d == nil {
		return c
	}
	for k, v := range d.values {
		c.Set(k, v)
	}
	return c
}
