package interop

import (
	"reflect"
	"sync"
	"unsafe"

	"go.uber.org/zap"

	"jsbind/pkg/errors"
	"jsbind/pkg/vm"
)

// members is the native member table of one host representation: the
// keys the binder understands without promotion.
type members interface {
	tag() string
	// get reads a native member; found=false defers to the promoted object
	// and the prototype chain.
	get(w *Wrapper, key vm.PropertyKey) (v vm.Value, found bool, err error)
	has(w *Wrapper, key vm.PropertyKey) bool
	// set writes a native member. handled=false means the key is not native
	// and the write goes to the promoted object.
	set(w *Wrapper, key vm.PropertyKey, v vm.Value) (handled bool, err error)
	del(w *Wrapper, key vm.PropertyKey) (handled bool, err error)
	// keys lists the enumerable native string keys in property order.
	keys(w *Wrapper) []vm.PropertyKey
}

// callable is implemented by member tables of invocable host values.
type callable interface {
	call(w *Wrapper, this vm.Value, args []vm.Value) (vm.Value, error)
}

// Wrapper is the binder of one host object. The wrapper keeps its host
// object alive; the identity cache only refers to the wrapper weakly.
type Wrapper struct {
	m      members
	host   reflect.Value
	target reflect.Value
	proto  *vm.Object
	bridge *Bridge

	mu       sync.Mutex
	promoted *vm.Object

	// methods caches bound method values so repeated reads of a method
	// yield the same function value.
	methods map[string]vm.Value
}

// newWrapper binds host with member table m. target is the value the members
// operate on: host itself, or the element a host pointer refers to.
func newWrapper(b *Bridge, m members, host, target reflect.Value, proto *vm.Object) *Wrapper {
	return &Wrapper{m: m, host: host, target: target, proto: proto, bridge: b}
}

// Value returns the Value referencing w.
func (w *Wrapper) Value() vm.Value {
	return vm.FromBinder(vm.RefHandle(unsafe.Pointer(w)), w)
}

// Host returns the host value the wrapper was created for.
func (w *Wrapper) Host() reflect.Value { return w.host }

// Promoted returns the promoted object, or nil if w was never promoted.
func (w *Wrapper) Promoted() *vm.Object {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.promoted
}

func (w *Wrapper) check(h vm.Handle) {
	if h.Ref() != unsafe.Pointer(w) {
		panic("interop: handle does not belong to this wrapper")
	}
}

// promote returns the runtime object that stores non-native properties,
// creating it on first use. Promotion is permanent.
func (w *Wrapper) promote() *vm.Object {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.promoted != nil {
		if w.promoted.Owner() != w.Value() {
			panic("interop: promoted object is owned by another wrapper")
		}
		return w.promoted
	}
	w.promoted = vm.NewPromotedObject(w.proto, w.Value())
	Logger().Debug("wrapper promoted",
		zap.String("tag", w.m.tag()),
		zap.Stringer("type", w.target.Type()))
	return w.promoted
}

// store returns the promoted object if any, without promoting.
func (w *Wrapper) store() *vm.Object {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.promoted
}

// --- vm.Binder ---

func (w *Wrapper) Kind() vm.Kind                 { return vm.KindObject }
func (w *Wrapper) ToBoolean(vm.Handle) bool      { return true }
func (w *Wrapper) SameValue(x, y vm.Handle) bool { return x.Ref() == y.Ref() }
func (w *Wrapper) Hash(h vm.Handle) uint64       { return vm.HashIdentity(h.Ref()) }

// ToPrimitive boxes the wrapper into its promoted object and runs the
// generic conversion with the wrapper as receiver.
func (w *Wrapper) ToPrimitive(h vm.Handle, hint vm.Hint) (vm.Value, error) {
	w.check(h)
	w.promote()
	return vm.ObjectToPrimitive(w.Value(), hint)
}

func (w *Wrapper) ToNumber(h vm.Handle) (vm.Value, error) {
	prim, err := w.ToPrimitive(h, vm.HintNumber)
	if err != nil {
		return vm.Undefined, err
	}
	return prim.ToNumber()
}

func (w *Wrapper) ToDouble(h vm.Handle) (float64, error) {
	prim, err := w.ToPrimitive(h, vm.HintNumber)
	if err != nil {
		return 0, err
	}
	return prim.ToDouble()
}

func (w *Wrapper) ToInt32(h vm.Handle) (int32, error) {
	prim, err := w.ToPrimitive(h, vm.HintNumber)
	if err != nil {
		return 0, err
	}
	return prim.ToInt32()
}

func (w *Wrapper) ToInt64(h vm.Handle) (int64, error) {
	prim, err := w.ToPrimitive(h, vm.HintNumber)
	if err != nil {
		return 0, err
	}
	return prim.ToInt64()
}

func (w *Wrapper) ToString(h vm.Handle) (string, error) {
	prim, err := w.ToPrimitive(h, vm.HintString)
	if err != nil {
		return "", err
	}
	return prim.ToString()
}

// --- vm.PropertyBearing ---

func (w *Wrapper) HasProperty(h vm.Handle, key vm.PropertyKey) (bool, error) {
	w.check(h)
	if w.m.has(w, key) {
		return true, nil
	}
	if p := w.store(); p != nil {
		return p.HasPropertyKey(key), nil
	}
	return w.proto != nil && w.proto.HasPropertyKey(key), nil
}

func (w *Wrapper) HasOwnProperty(h vm.Handle, key vm.PropertyKey) (bool, error) {
	w.check(h)
	if w.m.has(w, key) {
		return true, nil
	}
	p := w.store()
	return p != nil && p.HasOwnKey(key), nil
}

// Get consults the native members first, then the promoted object, then
// the prototype chain.
func (w *Wrapper) Get(h vm.Handle, key vm.PropertyKey, receiver vm.Value) (vm.Value, bool, error) {
	w.check(h)
	if v, found, err := w.m.get(w, key); found || err != nil {
		return v, found, err
	}
	if p := w.store(); p != nil {
		return p.GetProperty(key, receiver)
	}
	if w.proto != nil {
		return w.proto.GetProperty(key, receiver)
	}
	return vm.Undefined, false, nil
}

func (w *Wrapper) Set(h vm.Handle, key vm.PropertyKey, v vm.Value, receiver vm.Value) error {
	w.check(h)
	if handled, err := w.m.set(w, key, v); handled {
		return err
	}
	return w.promote().SetProperty(key, v, receiver)
}

func (w *Wrapper) Delete(h vm.Handle, key vm.PropertyKey) error {
	w.check(h)
	if handled, err := w.m.del(w, key); handled {
		return err
	}
	p := w.store()
	if p == nil || p.DeleteOwn(key) {
		return nil
	}
	return errors.NewTypeError("Cannot delete property '%s' of %s", key, w.Value())
}

func (w *Wrapper) OwnKeys(h vm.Handle) ([]vm.PropertyKey, error) {
	w.check(h)
	keys := w.m.keys(w)
	p := w.store()
	if p == nil {
		return keys, nil
	}
	extra, err := p.Value().OwnKeys()
	if err != nil {
		return nil, err
	}
	for _, k := range extra {
		if !w.m.has(w, k) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

// --- optional capabilities ---

// DefineOwnProperty writes native members in place and defines everything
// else on the promoted object.
func (w *Wrapper) DefineOwnProperty(h vm.Handle, key vm.PropertyKey, desc vm.PropertyDescriptor) (bool, error) {
	w.check(h)
	if w.m.has(w, key) {
		if desc.IsAccessor() || !desc.HasValue {
			return false, nil
		}
		if _, err := w.m.set(w, key, desc.Value); err != nil {
			return false, err
		}
		return true, nil
	}
	return w.promote().DefineProperty(key, desc), nil
}

// Promote implements vm.Promoter.
func (w *Wrapper) Promote(h vm.Handle) *vm.Object {
	w.check(h)
	return w.promote()
}

func (w *Wrapper) ClassTag(vm.Handle) string { return w.m.tag() }

func (w *Wrapper) IsCallable(vm.Handle) bool {
	_, ok := w.m.(callable)
	return ok
}

func (w *Wrapper) Call(h vm.Handle, this vm.Value, args []vm.Value) (vm.Value, error) {
	w.check(h)
	c, ok := w.m.(callable)
	if !ok {
		return vm.Undefined, errors.NewTypeError("%s is not a function", w.Value())
	}
	return c.call(w, this, args)
}

// method returns the cached function value for a bound host method.
func (w *Wrapper) method(name string, build func() vm.Value) vm.Value {
	w.mu.Lock()
	defer w.mu.Unlock()
	if v, ok := w.methods[name]; ok {
		return v
	}
	if w.methods == nil {
		w.methods = make(map[string]vm.Value)
	}
	v := build()
	w.methods[name] = v
	return v
}

// WrapperOf returns the wrapper behind v.
func WrapperOf(v vm.Value) (*Wrapper, bool) {
	w, ok := v.Binder().(*Wrapper)
	return w, ok
}

// readOnlyError is the failure for writes to read-only native members.
func readOnlyError(key vm.PropertyKey, w *Wrapper) error {
	return errors.NewTypeError("Cannot assign to read only property '%s' of %s", key, w.Value())
}

// noMembers is embedded by member tables that expose no own keys.
type noMembers struct{}

func (noMembers) get(*Wrapper, vm.PropertyKey) (vm.Value, bool, error) {
	return vm.Undefined, false, nil
}
func (noMembers) has(*Wrapper, vm.PropertyKey) bool { return false }
func (noMembers) set(*Wrapper, vm.PropertyKey, vm.Value) (bool, error) {
	return false, nil
}
func (noMembers) del(*Wrapper, vm.PropertyKey) (bool, error) { return false, nil }
func (noMembers) keys(*Wrapper) []vm.PropertyKey             { return nil }

// nonDeletableError is the failure for deleting a native member.
func nonDeletableError(key vm.PropertyKey, w *Wrapper) error {
	return errors.NewTypeError("Cannot delete property '%s' of %s", key, w.Value())
}
