package interop

import (
	"reflect"
	"slices"
	"strconv"
	"strings"

	"jsbind/pkg/errors"
	"jsbind/pkg/vm"
)

// dictMembers is the dictionary binder over a Go map. Keys are coerced
// between property names and the map's key type; symbol keys are never
// native and end up on the promoted object.
type dictMembers struct{}

func (dictMembers) tag() string { return "Object" }

// mapKey converts a property name to the map's key type. Numeric key types
// accept only canonical numeric strings ("1", never "01").
func mapKey(t reflect.Type, name string) (reflect.Value, bool) {
	switch t.Kind() {
	case reflect.String:
		return reflect.ValueOf(name).Convert(t), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i, err := strconv.ParseInt(name, 10, t.Bits())
		if err != nil || strconv.FormatInt(i, 10) != name {
			return reflect.Value{}, false
		}
		return reflect.ValueOf(i).Convert(t), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u, err := strconv.ParseUint(name, 10, t.Bits())
		if err != nil || strconv.FormatUint(u, 10) != name {
			return reflect.Value{}, false
		}
		return reflect.ValueOf(u).Convert(t), true
	case reflect.Float32, reflect.Float64:
		f := vm.StringToNumber(name)
		if vm.NumberToString(f) != name {
			return reflect.Value{}, false
		}
		return reflect.ValueOf(f).Convert(t), true
	}
	return reflect.Value{}, false
}

// keyName renders a map key as a property name.
func keyName(k reflect.Value) string {
	switch k.Kind() {
	case reflect.String:
		return k.String()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(k.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(k.Uint(), 10)
	case reflect.Float32, reflect.Float64:
		return vm.NumberToString(k.Float())
	}
	panic("interop: unsupported dictionary key kind " + k.Kind().String())
}

// isDictKey reports whether t can key a dictionary.
func isDictKey(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func (d dictMembers) lookup(w *Wrapper, key vm.PropertyKey) (reflect.Value, reflect.Value, bool) {
	if !key.IsString() {
		return reflect.Value{}, reflect.Value{}, false
	}
	k, ok := mapKey(w.target.Type().Key(), key.Name())
	if !ok {
		return reflect.Value{}, reflect.Value{}, false
	}
	v := w.target.MapIndex(k)
	return k, v, v.IsValid()
}

func (d dictMembers) get(w *Wrapper, key vm.PropertyKey) (vm.Value, bool, error) {
	_, v, ok := d.lookup(w, key)
	if !ok {
		return vm.Undefined, false, nil
	}
	return w.bridge.ToValue(v.Interface()), true, nil
}

func (d dictMembers) has(w *Wrapper, key vm.PropertyKey) bool {
	_, _, ok := d.lookup(w, key)
	return ok
}

func (d dictMembers) set(w *Wrapper, key vm.PropertyKey, v vm.Value) (bool, error) {
	if !key.IsString() {
		return false, nil
	}
	t := w.target.Type()
	k, ok := mapKey(t.Key(), key.Name())
	if !ok {
		return true, errors.NewTypeError("Cannot use '%s' as a key of %s", key.Name(), t)
	}
	if w.target.IsNil() {
		return true, errors.NewTypeError("Cannot set property '%s' of nil %s", key.Name(), t)
	}
	rv, err := w.bridge.ExportTo(v, t.Elem())
	if err != nil {
		return true, err
	}
	w.target.SetMapIndex(k, rv)
	return true, nil
}

func (d dictMembers) del(w *Wrapper, key vm.PropertyKey) (bool, error) {
	k, _, ok := d.lookup(w, key)
	if !ok {
		return false, nil
	}
	w.target.SetMapIndex(k, reflect.Value{})
	return true, nil
}

// keys orders entries like an ordinary object would: canonical array
// indices ascending, then the remaining names sorted.
func (d dictMembers) keys(w *Wrapper) []vm.PropertyKey {
	names := make([]string, 0, w.target.Len())
	iter := w.target.MapRange()
	for iter.Next() {
		names = append(names, keyName(iter.Key()))
	}
	slices.SortFunc(names, func(a, b string) int {
		ai, aok := vm.NewStringKey(a).ArrayIndex()
		bi, bok := vm.NewStringKey(b).ArrayIndex()
		switch {
		case aok && bok:
			return int(int64(ai) - int64(bi))
		case aok:
			return -1
		case bok:
			return 1
		}
		return strings.Compare(a, b)
	})
	keys := make([]vm.PropertyKey, len(names))
	for i, n := range names {
		keys[i] = vm.NewStringKey(n)
	}
	return keys
}
