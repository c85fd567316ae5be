package interop

import (
	"reflect"

	"jsbind/pkg/errors"
	"jsbind/pkg/vm"
)

type arrayMode uint8

// maxGrowth bounds how many elements a single write or length change may add
// to a host slice. Host slices are dense, so a far-out index would otherwise
// allocate every element up to it.
const maxGrowth = 1 << 20

const (
	// arrayGrowable targets (pointer to slice, lists) grow on writes past
	// the end and on length increases.
	arrayGrowable arrayMode = iota
	// arrayFixed targets (slice by value, pointer to array) accept element
	// writes within bounds only.
	arrayFixed
	// arrayReadOnly targets (array by value, explicit read-only) reject
	// every element and length write.
	arrayReadOnly
)

// arrayMembers is the array-like binder: integer-indexed elements plus a
// synthetic length. target is the slice or array itself.
type arrayMembers struct {
	mode arrayMode
}

func (arrayMembers) tag() string { return "Array" }

func isLengthKey(key vm.PropertyKey) bool { return key.IsString() && key.Name() == "length" }

func (a arrayMembers) get(w *Wrapper, key vm.PropertyKey) (vm.Value, bool, error) {
	if isLengthKey(key) {
		return vm.NewInt64(int64(w.target.Len())), true, nil
	}
	idx, ok := key.ArrayIndex()
	if !ok || int(idx) >= w.target.Len() {
		return vm.Undefined, false, nil
	}
	ev := w.target.Index(int(idx))
	if ev.Kind() == reflect.Interface && ev.IsNil() {
		return vm.Undefined, true, nil
	}
	return w.bridge.fieldValue(ev, a.mode == arrayReadOnly), true, nil
}

func (a arrayMembers) has(w *Wrapper, key vm.PropertyKey) bool {
	if isLengthKey(key) {
		return true
	}
	idx, ok := key.ArrayIndex()
	return ok && int(idx) < w.target.Len()
}

func (a arrayMembers) set(w *Wrapper, key vm.PropertyKey, v vm.Value) (bool, error) {
	if isLengthKey(key) {
		return true, a.setLength(w, v)
	}
	idx, ok := key.ArrayIndex()
	if !ok {
		return false, nil
	}
	switch {
	case a.mode == arrayReadOnly:
		return true, readOnlyError(key, w)
	case int(idx) >= w.target.Len() && a.mode == arrayFixed:
		return true, errors.NewTypeError("Cannot add property %d, object is not extensible", idx)
	}
	if err := checkGrowth(w, int64(idx)+1); err != nil {
		return true, err
	}
	rv, err := w.bridge.ExportTo(v, w.target.Type().Elem())
	if err != nil {
		return true, err
	}
	if int(idx) >= w.target.Len() {
		resize(w.target, int(idx)+1)
	}
	w.target.Index(int(idx)).Set(rv)
	return true, nil
}

func (a arrayMembers) setLength(w *Wrapper, v vm.Value) error {
	switch a.mode {
	case arrayReadOnly:
		return readOnlyError(vm.NewStringKey("length"), w)
	case arrayFixed:
		return errors.NewTypeError("Cannot change length of fixed-size %s", w.target.Type())
	}
	n, err := v.ToDouble()
	if err != nil {
		return err
	}
	if n != n || n < 0 || n > 4294967295 || n != float64(int64(n)) {
		return errors.NewRangeError("Invalid array length")
	}
	if err := checkGrowth(w, int64(n)); err != nil {
		return err
	}
	resize(w.target, int(n))
	return nil
}

func checkGrowth(w *Wrapper, n int64) error {
	if n-int64(w.target.Len()) > maxGrowth {
		return errors.NewRangeError("Array length %d exceeds the capacity of %s (length %d)", n, w.target.Type(), w.target.Len())
	}
	return nil
}

// resize sets the length of a settable slice, padding with zero values
// (undefined for []vm.Value) and clearing truncated elements.
func resize(s reflect.Value, n int) {
	cur := s.Len()
	switch {
	case n < cur:
		for i := n; i < cur; i++ {
			s.Index(i).SetZero()
		}
		s.SetLen(n)
	case n <= s.Cap():
		s.SetLen(n)
		for i := cur; i < n; i++ {
			s.Index(i).SetZero()
		}
	default:
		capacity := max(n, 2*s.Cap())
		ns := reflect.MakeSlice(s.Type(), n, capacity)
		reflect.Copy(ns, s)
		s.Set(ns)
	}
}

func (a arrayMembers) del(w *Wrapper, key vm.PropertyKey) (bool, error) {
	if isLengthKey(key) {
		return true, nonDeletableError(key, w)
	}
	if _, ok := key.ArrayIndex(); ok {
		return true, nonDeletableError(key, w)
	}
	return false, nil
}

func (a arrayMembers) keys(w *Wrapper) []vm.PropertyKey {
	n := w.target.Len()
	keys := make([]vm.PropertyKey, n)
	for i := range keys {
		keys[i] = vm.IndexKey(i)
	}
	return keys
}
