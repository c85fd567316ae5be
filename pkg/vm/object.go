package vm

import (
	"slices"
	"unsafe"

	"jsbind/pkg/errors"
)

// PropertyDescriptor is the field-presence form of a property descriptor
// used by DefineProperty. Absent fields keep their previous value on an
// existing property and default to false/undefined on a new one.
type PropertyDescriptor struct {
	Value        Value
	Get          Value
	Set          Value
	Writable     bool
	Enumerable   bool
	Configurable bool

	HasValue        bool
	HasGet          bool
	HasSet          bool
	HasWritable     bool
	HasEnumerable   bool
	HasConfigurable bool
}

// DataDescriptor builds a complete data descriptor.
func DataDescriptor(v Value, attrs Attr) PropertyDescriptor {
	return PropertyDescriptor{
		Value: v, HasValue: true,
		Writable: attrs.Writable(), HasWritable: true,
		Enumerable: attrs.Enumerable(), HasEnumerable: true,
		Configurable: attrs.Configurable(), HasConfigurable: true,
	}
}

// AccessorDescriptor builds a complete accessor descriptor. Undefined get or
// set means the accessor has no getter or setter.
func AccessorDescriptor(get, set Value, attrs Attr) PropertyDescriptor {
	return PropertyDescriptor{
		Get: get, HasGet: true,
		Set: set, HasSet: true,
		Enumerable: attrs.Enumerable(), HasEnumerable: true,
		Configurable: attrs.Configurable(), HasConfigurable: true,
	}
}

func (d PropertyDescriptor) IsAccessor() bool { return d.HasGet || d.HasSet }
func (d PropertyDescriptor) IsData() bool     { return d.HasValue || d.HasWritable }

func (d PropertyDescriptor) attrs() Attr {
	var a Attr
	if d.Writable {
		a |= AttrWritable
	}
	if d.Enumerable {
		a |= AttrEnumerable
	}
	if d.Configurable {
		a |= AttrConfigurable
	}
	return a
}

type accessorPair struct {
	get Value
	set Value
}

// NativeFunction is the Go signature of a callable runtime object.
type NativeFunction func(this Value, args []Value) (Value, error)

// Object is the runtime object: the fully compliant ordinary property store
// with shapes, descriptors, a prototype link and an extensibility flag.
// An *Object is its own binder; its Value pairs a handle referencing the
// object with the object itself.
type Object struct {
	shape      *Shape
	proto      *Object
	slots      []Value
	accessors  map[PropertyKey]accessorPair
	extensible bool
	class      string

	fn NativeFunction

	primitive    Value
	hasPrimitive bool

	// owner is the host wrapper this object is the promoted store of.
	// Writes whose receiver is the owner land on this object.
	owner Value
}

// NewObject creates an ordinary extensible object. A nil proto gives an
// object with a null prototype.
func NewObject(proto *Object) *Object {
	return &Object{shape: RootShape, proto: proto, extensible: true, class: "Object"}
}

// NewPromotedObject creates the property store that a host wrapper owner
// is promoted to.
func NewPromotedObject(proto *Object, owner Value) *Object {
	o := NewObject(proto)
	o.owner = owner
	return o
}

// NewNativeFunction creates a callable object with non-enumerable name and
// length properties.
func NewNativeFunction(name string, length int, fn NativeFunction) *Object {
	o := NewObject(FunctionPrototype)
	o.class = "Function"
	o.fn = fn
	o.DefineProperty(NewStringKey("length"), DataDescriptor(NewInt32(int32(length)), AttrConfigurable))
	o.DefineProperty(NewStringKey("name"), DataDescriptor(NewString(name), AttrConfigurable))
	return o
}

// NewPrimitiveObject boxes a primitive into its wrapper object.
func NewPrimitiveObject(v Value) *Object {
	var o *Object
	switch v.Kind() {
	case KindBoolean:
		o = NewObject(BooleanPrototype)
		o.class = "Boolean"
	case KindString:
		o = NewObject(StringPrototype)
		o.class = "String"
		s := v.AsString()
		n := StringLength(s)
		for i := 0; i < n; i++ {
			cu, _ := CodeUnitAt(s, i)
			o.DefineProperty(IndexKey(i), DataDescriptor(NewString(StringFromCodeUnits([]uint16{cu})), AttrEnumerable))
		}
		o.DefineProperty(NewStringKey("length"), DataDescriptor(NewInt32(int32(n)), AttrNone))
	case KindSymbol:
		o = NewObject(SymbolPrototype)
		o.class = "Symbol"
	case KindBigInt:
		o = NewObject(BigIntPrototype)
		o.class = "BigInt"
	default:
		if !v.IsNumber() {
			panic("vm: NewPrimitiveObject called with a non-primitive")
		}
		o = NewObject(NumberPrototype)
		o.class = "Number"
	}
	o.primitive = v
	o.hasPrimitive = true
	return o
}

// Value returns the Value referencing o.
func (o *Object) Value() Value {
	return Value{h: Handle{ref: unsafe.Pointer(o)}, b: o}
}

func (o *Object) check(h Handle) {
	if h.ref != unsafe.Pointer(o) {
		panic("vm: handle does not belong to this object")
	}
}

// Shape returns the current shape of o.
func (o *Object) Shape() *Shape { return o.shape }

func (o *Object) Prototype() *Object { return o.proto }

// SetPrototype implements [[SetPrototypeOf]]. It fails on non-extensible
// objects and when the new chain would contain o.
func (o *Object) SetPrototype(proto *Object) bool {
	if proto == o.proto {
		return true
	}
	if !o.extensible {
		return false
	}
	for p := proto; p != nil; p = p.proto {
		if p == o {
			return false
		}
	}
	o.proto = proto
	return true
}

func (o *Object) IsExtensible() bool { return o.extensible }

func (o *Object) PreventExtensions() { o.extensible = false }

// SetClass overrides the default class tag reported for o.
func (o *Object) SetClass(tag string) { o.class = tag }

// Owner returns the host wrapper o was promoted from, or undefined.
func (o *Object) Owner() Value { return o.owner }

// --- Own property access ---

// GetOwnProperty returns the descriptor of an own property.
func (o *Object) GetOwnProperty(key PropertyKey) (PropertyDescriptor, bool) {
	i, ok := o.shape.lookup(key)
	if !ok {
		return PropertyDescriptor{}, false
	}
	f := o.shape.fields[i]
	if f.accessor {
		pair := o.accessors[key]
		return AccessorDescriptor(pair.get, pair.set, f.attrs), true
	}
	return DataDescriptor(o.slots[f.offset], f.attrs), true
}

// HasOwnKey reports whether o has an own property named key.
func (o *Object) HasOwnKey(key PropertyKey) bool {
	_, ok := o.shape.lookup(key)
	return ok
}

// HasPropertyKey reports whether key is found on o or its prototype chain.
func (o *Object) HasPropertyKey(key PropertyKey) bool {
	for cur := o; cur != nil; cur = cur.proto {
		if _, ok := cur.shape.lookup(key); ok {
			return true
		}
	}
	return false
}

func (o *Object) addField(key PropertyKey, v Value, attrs Attr, accessor bool) {
	o.shape = o.shape.withField(key, attrs, accessor)
	o.slots = append(o.slots, v)
}

// SetOwn creates or overwrites an own data property with default
// attributes. Existing non-writable properties are left untouched.
func (o *Object) SetOwn(key PropertyKey, v Value) {
	if i, ok := o.shape.lookup(key); ok {
		f := o.shape.fields[i]
		if !f.accessor && f.attrs.Writable() {
			o.slots[f.offset] = v
		}
		return
	}
	o.addField(key, v, AttrDefault, false)
}

// SetOwnStr is SetOwn with a string key.
func (o *Object) SetOwnStr(name string, v Value) { o.SetOwn(NewStringKey(name), v) }

// SetOwnNonEnumerable defines a writable, configurable, non-enumerable
// property (the attributes of built-in methods).
func (o *Object) SetOwnNonEnumerable(name string, v Value) {
	o.DefineProperty(NewStringKey(name), DataDescriptor(v, AttrWritable|AttrConfigurable))
}

// DefineMethod installs a native function as a built-in method.
func (o *Object) DefineMethod(name string, length int, fn NativeFunction) *Object {
	f := NewNativeFunction(name, length, fn)
	o.SetOwnNonEnumerable(name, f.Value())
	return f
}

// DefineAccessor installs a getter/setter pair. Either may be undefined.
func (o *Object) DefineAccessor(key PropertyKey, get, set Value, attrs Attr) bool {
	return o.DefineProperty(key, AccessorDescriptor(get, set, attrs))
}

// DefineProperty implements ValidateAndApplyPropertyDescriptor for an own
// property. It reports false when the change is not allowed.
func (o *Object) DefineProperty(key PropertyKey, desc PropertyDescriptor) bool {
	i, ok := o.shape.lookup(key)
	if !ok {
		if !o.extensible {
			return false
		}
		if desc.IsAccessor() {
			o.setAccessorPair(key, desc.Get, desc.Set)
			o.addField(key, Undefined, desc.attrs()&^AttrWritable, true)
			return true
		}
		o.addField(key, desc.Value, desc.attrs(), false)
		return true
	}

	f := o.shape.fields[i]
	if !f.attrs.Configurable() {
		if desc.HasConfigurable && desc.Configurable {
			return false
		}
		if desc.HasEnumerable && desc.Enumerable != f.attrs.Enumerable() {
			return false
		}
		if desc.IsAccessor() != f.accessor && (desc.IsAccessor() || desc.IsData()) {
			return false
		}
		if f.accessor {
			pair := o.accessors[key]
			if desc.HasGet && !desc.Get.SameValue(pair.get) || desc.HasSet && !desc.Set.SameValue(pair.set) {
				return false
			}
		} else if !f.attrs.Writable() {
			if desc.HasWritable && desc.Writable {
				return false
			}
			if desc.HasValue && !desc.Value.SameValue(o.slots[f.offset]) {
				return false
			}
		}
	}

	attrs := f.attrs
	accessor := f.accessor
	switch {
	case desc.IsAccessor() && !f.accessor:
		accessor = true
		attrs &^= AttrWritable
		o.slots[f.offset] = Undefined
		o.setAccessorPair(key, Undefined, Undefined)
	case desc.IsData() && f.accessor:
		accessor = false
		attrs &^= AttrWritable
		delete(o.accessors, key)
	}
	if desc.HasEnumerable {
		attrs = setAttr(attrs, AttrEnumerable, desc.Enumerable)
	}
	if desc.HasConfigurable {
		attrs = setAttr(attrs, AttrConfigurable, desc.Configurable)
	}
	if desc.HasWritable && !accessor {
		attrs = setAttr(attrs, AttrWritable, desc.Writable)
	}
	if accessor {
		pair := o.accessors[key]
		if desc.HasGet {
			pair.get = desc.Get
		}
		if desc.HasSet {
			pair.set = desc.Set
		}
		o.accessors[key] = pair
	} else if desc.HasValue {
		o.slots[f.offset] = desc.Value
	}
	if attrs != f.attrs || accessor != f.accessor {
		o.shape = o.shape.withAttrs(i, attrs, accessor)
	}
	return true
}

func setAttr(a, bit Attr, on bool) Attr {
	if on {
		return a | bit
	}
	return a &^ bit
}

func (o *Object) setAccessorPair(key PropertyKey, get, set Value) {
	if o.accessors == nil {
		o.accessors = make(map[PropertyKey]accessorPair)
	}
	o.accessors[key] = accessorPair{get: get, set: set}
}

// DeleteOwn removes an own property. Deleting a missing property succeeds;
// deleting a non-configurable one reports false.
func (o *Object) DeleteOwn(key PropertyKey) bool {
	i, ok := o.shape.lookup(key)
	if !ok {
		return true
	}
	f := o.shape.fields[i]
	if !f.attrs.Configurable() {
		return false
	}
	o.shape = o.shape.without(i)
	o.slots = slices.Delete(o.slots, f.offset, f.offset+1)
	if f.accessor {
		delete(o.accessors, key)
	}
	return true
}

// OwnPropertyKeys returns every own key: array indices ascending, then
// string keys in insertion order, then symbols in insertion order.
func (o *Object) OwnPropertyKeys() []PropertyKey {
	return o.ownKeys(false)
}

func (o *Object) ownKeys(enumerableStringsOnly bool) []PropertyKey {
	type indexed struct {
		idx uint32
		key PropertyKey
	}
	var indices []indexed
	var names, symbols []PropertyKey
	for _, f := range o.shape.fields {
		if enumerableStringsOnly && (!f.attrs.Enumerable() || f.key.IsSymbol()) {
			continue
		}
		if f.key.IsSymbol() {
			symbols = append(symbols, f.key)
			continue
		}
		if idx, ok := f.key.ArrayIndex(); ok {
			indices = append(indices, indexed{idx, f.key})
			continue
		}
		names = append(names, f.key)
	}
	slices.SortFunc(indices, func(a, b indexed) int {
		switch {
		case a.idx < b.idx:
			return -1
		case a.idx > b.idx:
			return 1
		}
		return 0
	})
	keys := make([]PropertyKey, 0, len(indices)+len(names)+len(symbols))
	for _, ik := range indices {
		keys = append(keys, ik.key)
	}
	keys = append(keys, names...)
	return append(keys, symbols...)
}

// --- Ordinary get/set ---

// GetProperty implements OrdinaryGet. Getters run with receiver as this.
func (o *Object) GetProperty(key PropertyKey, receiver Value) (Value, bool, error) {
	for cur := o; cur != nil; cur = cur.proto {
		i, ok := cur.shape.lookup(key)
		if !ok {
			continue
		}
		f := cur.shape.fields[i]
		if !f.accessor {
			return cur.slots[f.offset], true, nil
		}
		getter := cur.accessors[key].get
		if getter.IsUndefined() {
			return Undefined, true, nil
		}
		v, err := getter.Call(receiver)
		return v, true, err
	}
	return Undefined, false, nil
}

// SetProperty implements OrdinarySet. Failures that a strict-mode
// assignment would throw are reported as TypeErrors.
func (o *Object) SetProperty(key PropertyKey, v Value, receiver Value) error {
	for cur := o; cur != nil; cur = cur.proto {
		i, ok := cur.shape.lookup(key)
		if !ok {
			continue
		}
		f := cur.shape.fields[i]
		if f.accessor {
			setter := cur.accessors[key].set
			if setter.IsUndefined() {
				return errors.NewTypeError("Cannot set property %s of %s which has only a getter", key, receiver.describe())
			}
			_, err := setter.Call(receiver, v)
			return err
		}
		if !f.attrs.Writable() {
			return errors.NewTypeError("Cannot assign to read only property '%s' of %s", key, receiver.describe())
		}
		break
	}
	return o.setOnReceiver(key, v, receiver)
}

func (o *Object) setOnReceiver(key PropertyKey, v Value, receiver Value) error {
	target := receiver.AsObject()
	if receiver.b == Binder(o) || (!o.owner.IsUndefined() && receiver == o.owner) {
		target = o
	}
	if target == nil {
		if !receiver.IsObject() {
			return errors.NewTypeError("Cannot create property '%s' on %s", key, receiver.TypeOf())
		}
		ok, err := receiver.DefineOwnProperty(key, DataDescriptor(v, AttrDefault))
		if err != nil {
			return err
		}
		if !ok {
			return errors.NewTypeError("Cannot define property %s, object is not extensible", key)
		}
		return nil
	}
	if i, ok := target.shape.lookup(key); ok {
		f := target.shape.fields[i]
		if f.accessor || !f.attrs.Writable() {
			return errors.NewTypeError("Cannot assign to read only property '%s' of object", key)
		}
		target.slots[f.offset] = v
		return nil
	}
	if !target.extensible {
		return errors.NewTypeError("Cannot add property %s, object is not extensible", key)
	}
	target.addField(key, v, AttrDefault, false)
	return nil
}

// GetStr reads a string-keyed property with o as receiver.
func (o *Object) GetStr(name string) (Value, error) {
	v, _, err := o.GetProperty(NewStringKey(name), o.Value())
	return v, err
}

// --- Binder implementation ---

func (o *Object) Kind() Kind              { return KindObject }
func (o *Object) ToBoolean(h Handle) bool { return true }

func (o *Object) ToNumber(h Handle) (Value, error) {
	prim, err := o.ToPrimitive(h, HintNumber)
	if err != nil {
		return Undefined, err
	}
	return prim.ToNumber()
}

func (o *Object) ToDouble(h Handle) (float64, error) {
	prim, err := o.ToPrimitive(h, HintNumber)
	if err != nil {
		return 0, err
	}
	return prim.ToDouble()
}

func (o *Object) ToInt32(h Handle) (int32, error) {
	prim, err := o.ToPrimitive(h, HintNumber)
	if err != nil {
		return 0, err
	}
	return prim.ToInt32()
}

func (o *Object) ToInt64(h Handle) (int64, error) {
	prim, err := o.ToPrimitive(h, HintNumber)
	if err != nil {
		return 0, err
	}
	return prim.ToInt64()
}

func (o *Object) ToString(h Handle) (string, error) {
	prim, err := o.ToPrimitive(h, HintString)
	if err != nil {
		return "", err
	}
	return prim.ToString()
}

func (o *Object) ToPrimitive(h Handle, hint Hint) (Value, error) {
	o.check(h)
	return ObjectToPrimitive(o.Value(), hint)
}

func (o *Object) SameValue(x, y Handle) bool { return x.ref == y.ref }
func (o *Object) Hash(h Handle) uint64       { return HashIdentity(h.ref) }

func (o *Object) HasProperty(h Handle, key PropertyKey) (bool, error) {
	o.check(h)
	return o.HasPropertyKey(key), nil
}

func (o *Object) HasOwnProperty(h Handle, key PropertyKey) (bool, error) {
	o.check(h)
	return o.HasOwnKey(key), nil
}

func (o *Object) Get(h Handle, key PropertyKey, receiver Value) (Value, bool, error) {
	o.check(h)
	return o.GetProperty(key, receiver)
}

func (o *Object) Set(h Handle, key PropertyKey, v Value, receiver Value) error {
	o.check(h)
	return o.SetProperty(key, v, receiver)
}

func (o *Object) Delete(h Handle, key PropertyKey) error {
	o.check(h)
	if !o.DeleteOwn(key) {
		return errors.NewTypeError("Cannot delete property '%s' of %s", key, o.Value().describe())
	}
	return nil
}

func (o *Object) OwnKeys(h Handle) ([]PropertyKey, error) {
	o.check(h)
	return o.ownKeys(true), nil
}

func (o *Object) DefineOwnProperty(h Handle, key PropertyKey, desc PropertyDescriptor) (bool, error) {
	o.check(h)
	return o.DefineProperty(key, desc), nil
}

func (o *Object) IsCallable(h Handle) bool { return o.fn != nil }

func (o *Object) Call(h Handle, this Value, args []Value) (Value, error) {
	o.check(h)
	if o.fn == nil {
		return Undefined, errors.NewTypeError("object is not a function")
	}
	return o.fn(this, args)
}

func (o *Object) Promote(h Handle) *Object {
	o.check(h)
	return o
}

func (o *Object) ClassTag(h Handle) string { return o.class }

func (o *Object) PrimitiveValue(h Handle) (Value, bool) { return o.primitive, o.hasPrimitive }

// Arg returns args[i], or undefined when fewer arguments were passed.
func Arg(args []Value, i int) Value {
	if i < len(args) {
		return args[i]
	}
	return Undefined
}

// NewErrorObject converts a Go error into an Error instance whose name
// follows the error kind.
func NewErrorObject(err error) *Object {
	o := NewObject(ErrorPrototype)
	o.class = "Error"
	name, msg := "Error", err.Error()
	if ee, ok := errors.AsEngineError(err); ok {
		name, msg = ee.Kind().String(), ee.Message()
	}
	o.SetOwnNonEnumerable("name", NewString(name))
	o.SetOwnNonEnumerable("message", NewString(msg))
	return o
}
