package interop

import (
	"context"
	"math"
	"math/big"
	"reflect"
	"sync"
	"time"

	"github.com/dlclark/regexp2"
	"go.uber.org/zap"

	"jsbind/pkg/errors"
	"jsbind/pkg/vm"
)

var (
	valueType     = reflect.TypeFor[vm.Value]()
	objectPtrType = reflect.TypeFor[*vm.Object]()
	bigIntPtrType = reflect.TypeFor[*big.Int]()
	regexp2Type   = reflect.TypeFor[*regexp2.Regexp]()
)

// Bridge converts between Go values and engine values. Wrapped host objects
// are cached by identity, so wrapping the same pointer or map twice yields
// the same value while the first one is alive.
type Bridge struct {
	cache         *Cache
	naming        FieldNaming
	tagName       string
	sweepInterval time.Duration

	structInfos sync.Map // reflect.Type -> *structInfo

	enumMu sync.RWMutex
	enums  map[reflect.Type]*vm.EnumType
}

// NewBridge creates a bridge from a validated configuration.
func NewBridge(cfg Config) (*Bridge, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	naming, _ := cfg.naming()
	interval, _ := cfg.sweepInterval()
	return &Bridge{
		cache:         NewCache(),
		naming:        naming,
		tagName:       cfg.TagName,
		sweepInterval: interval,
		enums:         make(map[reflect.Type]*vm.EnumType),
	}, nil
}

// Cache returns the bridge's identity cache.
func (b *Bridge) Cache() *Cache { return b.cache }

// StartSweeper runs the cache sweeper in the background until ctx is
// cancelled. It does nothing when the configured interval is zero.
func (b *Bridge) StartSweeper(ctx context.Context) {
	if b.sweepInterval <= 0 {
		return
	}
	Logger().Info("identity cache sweeper started", zap.Duration("interval", b.sweepInterval))
	go b.cache.RunSweeper(ctx, b.sweepInterval)
}

// RegisterEnum makes values of sample's integer type convert to enum
// values carrying the given member names.
func (b *Bridge) RegisterEnum(sample any, members map[string]int64) *vm.EnumType {
	t := reflect.TypeOf(sample)
	if t == nil || !isIntegerKind(t.Kind()) {
		panic("interop: RegisterEnum needs a value of an integer type")
	}
	et := vm.NewEnumType(t.Name(), members)
	b.enumMu.Lock()
	b.enums[t] = et
	b.enumMu.Unlock()
	return et
}

func (b *Bridge) enumType(t reflect.Type) *vm.EnumType {
	b.enumMu.RLock()
	defer b.enumMu.RUnlock()
	return b.enums[t]
}

func isIntegerKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return true
	}
	return false
}

func intValue(i int64) vm.Value {
	if i >= math.MinInt32 && i <= math.MaxInt32 {
		return vm.NewInt32(int32(i))
	}
	return vm.NewInt64(i)
}

// ToValue converts a Go value. Primitives become inline values; pointers,
// maps, slices, arrays, structs and funcs become host wrappers.
func (b *Bridge) ToValue(x any) vm.Value {
	switch v := x.(type) {
	case nil:
		return vm.Null
	case vm.Value:
		return v
	case *vm.Object:
		if v == nil {
			return vm.Null
		}
		return v.Value()
	case bool:
		return vm.NewBoolean(v)
	case string:
		return vm.NewString(v)
	case int:
		return intValue(int64(v))
	case int64:
		return intValue(v)
	case float64:
		return vm.NewNumber(v)
	case *big.Int:
		if v == nil {
			return vm.Null
		}
		return vm.NewBigInt(v)
	case vm.NativeFunction:
		if v == nil {
			return vm.Null
		}
		return vm.NewNativeFunction("", 0, v).Value()
	case *regexp2.Regexp:
		if v == nil {
			return vm.Null
		}
		return b.wrapRegexp2(v)
	}
	return b.reflectValue(reflect.ValueOf(x))
}

func (b *Bridge) reflectValue(rv reflect.Value) vm.Value {
	if !rv.IsValid() {
		return vm.Null
	}
	t := rv.Type()
	switch t {
	case valueType:
		return rv.Interface().(vm.Value)
	case objectPtrType, bigIntPtrType, regexp2Type:
		return b.ToValue(rv.Interface())
	}
	if et := b.enumType(t); et != nil {
		if rv.CanInt() {
			return vm.NewEnum(et, rv.Int())
		}
		return vm.NewEnum(et, int64(rv.Uint()))
	}

	switch rv.Kind() {
	case reflect.Bool:
		return vm.NewBoolean(rv.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return intValue(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		if u := rv.Uint(); u <= math.MaxInt64 {
			return intValue(int64(u))
		}
		return vm.NewNumber(float64(rv.Uint()))
	case reflect.Float32, reflect.Float64:
		return vm.NewNumber(rv.Float())
	case reflect.String:
		return vm.NewString(rv.String())
	case reflect.Interface:
		if rv.IsNil() {
			return vm.Null
		}
		return b.reflectValue(rv.Elem())
	case reflect.Pointer:
		if rv.IsNil() {
			return vm.Null
		}
		return b.wrapPointer(rv)
	case reflect.Struct:
		if t == timeType {
			return newWrapper(b, dateMembers{}, rv, rv, DatePrototype).Value()
		}
		return newWrapper(b, structMembers{b.structInfoFor(t)}, rv, rv, vm.ObjectPrototype).Value()
	case reflect.Map:
		if !isDictKey(t.Key()) {
			return b.opaque(rv)
		}
		return b.cached(rv, func() *Wrapper {
			return newWrapper(b, dictMembers{}, rv, rv, vm.ObjectPrototype)
		})
	case reflect.Slice:
		return newWrapper(b, arrayMembers{mode: arrayFixed}, rv, rv, vm.ArrayPrototype).Value()
	case reflect.Array:
		return newWrapper(b, arrayMembers{mode: arrayReadOnly}, rv, rv, vm.ArrayPrototype).Value()
	case reflect.Func:
		if rv.IsNil() {
			return vm.Null
		}
		return b.wrapFunc(rv, "")
	}
	return b.opaque(rv)
}

// wrapPointer wraps a non-nil pointer. Pointers to primitives are read
// through; everything else is bound to the pointee and cached by address.
func (b *Bridge) wrapPointer(rv reflect.Value) vm.Value {
	elem := rv.Elem()
	var build func() *Wrapper
	switch elem.Kind() {
	case reflect.Struct:
		switch elem.Type() {
		case timeType:
			build = func() *Wrapper { return newWrapper(b, dateMembers{}, rv, elem, DatePrototype) }
		case regexpType:
			build = func() *Wrapper { return newWrapper(b, regexpMembers{}, rv, elem, RegExpPrototype) }
		default:
			info := b.structInfoFor(elem.Type())
			build = func() *Wrapper { return newWrapper(b, structMembers{info}, rv, elem, vm.ObjectPrototype) }
		}
	case reflect.Slice:
		build = func() *Wrapper {
			return newWrapper(b, arrayMembers{mode: arrayGrowable}, rv, elem, vm.ArrayPrototype)
		}
	case reflect.Array:
		build = func() *Wrapper {
			return newWrapper(b, arrayMembers{mode: arrayFixed}, rv, elem, vm.ArrayPrototype)
		}
	case reflect.Chan:
		build = func() *Wrapper { return newWrapper(b, opaqueMembers{}, rv, elem, vm.ObjectPrototype) }
	default:
		return b.reflectValue(elem)
	}
	return b.cached(rv, build)
}

func (b *Bridge) cached(host reflect.Value, build func() *Wrapper) vm.Value {
	return b.cache.GetOrCreate(host, build).Value()
}

// wrapRegexp2 binds an already compiled expression. Its identity is that of
// the *regexp2.Regexp, its flags are empty.
func (b *Bridge) wrapRegexp2(re *regexp2.Regexp) vm.Value {
	host := reflect.ValueOf(re)
	return b.cached(host, func() *Wrapper {
		r := &RegExp{re: re, source: re.String()}
		return newWrapper(b, regexpMembers{}, host, reflect.ValueOf(r).Elem(), RegExpPrototype)
	})
}

// opaqueMembers wraps host values that expose no members, such as channels.
type opaqueMembers struct{ noMembers }

func (opaqueMembers) tag() string { return "Object" }

func (b *Bridge) opaque(rv reflect.Value) vm.Value {
	return b.cached(rv, func() *Wrapper {
		return newWrapper(b, opaqueMembers{}, rv, rv, vm.ObjectPrototype)
	})
}

// fieldValue converts a struct field or element. Addressable composite
// members are wrapped through their address so writes reach the parent;
// read-only members are copied first.
func (b *Bridge) fieldValue(fv reflect.Value, readOnly bool) vm.Value {
	switch fv.Kind() {
	case reflect.Struct, reflect.Array, reflect.Slice:
		if fv.Type() == valueType {
			break
		}
		if readOnly {
			cp := reflect.New(fv.Type()).Elem()
			cp.Set(fv)
			if fv.Kind() == reflect.Slice {
				return newWrapper(b, arrayMembers{mode: arrayReadOnly}, cp, cp, vm.ArrayPrototype).Value()
			}
			return b.reflectValue(reflect.ValueOf(cp.Interface()))
		}
		if fv.CanAddr() {
			return b.wrapPointer(fv.Addr())
		}
	}
	return b.reflectValue(fv)
}

// NewList creates a growable array backed by a []vm.Value.
func (b *Bridge) NewList(items ...vm.Value) vm.Value {
	s := make([]vm.Value, len(items))
	copy(s, items)
	return b.wrapPointer(reflect.ValueOf(&s))
}

// ReadOnly wraps a slice or array as an array-like that rejects every
// write.
func (b *Bridge) ReadOnly(slice any) vm.Value {
	rv := reflect.ValueOf(slice)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		panic("interop: ReadOnly needs a slice or array, got " + rv.Kind().String())
	}
	return newWrapper(b, arrayMembers{mode: arrayReadOnly}, rv, rv, vm.ArrayPrototype).Value()
}

// NewRegExp compiles pattern and wraps the result.
func (b *Bridge) NewRegExp(pattern, flags string) (vm.Value, error) {
	r, err := CompileRegExp(pattern, flags)
	if err != nil {
		return vm.Undefined, err
	}
	return b.ToValue(r), nil
}

// UnwrapHost returns the Go value behind a host wrapper.
func UnwrapHost(v vm.Value) (any, bool) {
	w, ok := WrapperOf(v)
	if !ok {
		return nil, false
	}
	return w.host.Interface(), true
}

// Export converts v to a plain Go value: nil, bool, int64, float64,
// string, *big.Int, the wrapped host value, or for runtime objects a
// map[string]any of their enumerable properties. Symbols and functions
// stay vm.Value.
func (b *Bridge) Export(v vm.Value) any {
	return b.export(v, make(map[*vm.Object]any))
}

func (b *Bridge) export(v vm.Value, seen map[*vm.Object]any) any {
	switch v.Kind() {
	case vm.KindUndefined, vm.KindNull:
		return nil
	case vm.KindBoolean:
		return v.AsBoolean()
	case vm.KindInt32, vm.KindInt64, vm.KindEnum:
		i, _ := v.ToInt64()
		return i
	case vm.KindDouble:
		return v.AsFloat()
	case vm.KindString:
		return v.AsString()
	case vm.KindBigInt:
		return new(big.Int).Set(v.AsBigInt())
	case vm.KindSymbol:
		return v
	}
	if host, ok := UnwrapHost(v); ok {
		return host
	}
	o := v.AsObject()
	if o == nil || v.IsCallable() {
		return v
	}
	if p, ok := o.PrimitiveValue(v.Handle()); ok {
		return b.export(p, seen)
	}
	if m, ok := seen[o]; ok {
		return m
	}
	m := make(map[string]any)
	seen[o] = m
	keys, _ := v.OwnKeys()
	for _, k := range keys {
		pv, err := v.Get(k)
		if err != nil {
			continue
		}
		m[k.Name()] = b.export(pv, seen)
	}
	return m
}

// ExportTo converts v to a value of type t, the way arguments reach host
// functions and writes reach host fields.
func (b *Bridge) ExportTo(v vm.Value, t reflect.Type) (reflect.Value, error) {
	if t == valueType {
		return reflect.ValueOf(v), nil
	}
	if w, ok := WrapperOf(v); ok {
		if w.host.Type().AssignableTo(t) {
			return w.host, nil
		}
		if w.target.Type().AssignableTo(t) {
			return w.target, nil
		}
	}
	if t == objectPtrType {
		if o := v.AsObject(); o != nil {
			return reflect.ValueOf(o), nil
		}
		if v.IsNullish() {
			return reflect.Zero(t), nil
		}
		return reflect.Value{}, exportError(v, t)
	}
	if et := b.enumType(t); et != nil {
		return b.exportEnum(v, et, t)
	}

	switch t.Kind() {
	case reflect.Interface:
		if v.IsNullish() {
			return reflect.Zero(t), nil
		}
		x := reflect.ValueOf(b.Export(v))
		if x.IsValid() && x.Type().AssignableTo(t) {
			return x.Convert(t), nil
		}
		return reflect.Value{}, exportError(v, t)
	case reflect.Bool:
		return reflect.ValueOf(v.ToBoolean()).Convert(t), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i, err := v.ToInt64()
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(i).Convert(t), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		i, err := v.ToInt64()
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(uint64(i)).Convert(t), nil
	case reflect.Float32, reflect.Float64:
		f, err := v.ToDouble()
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(f).Convert(t), nil
	case reflect.String:
		s, err := v.ToString()
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(s).Convert(t), nil
	case reflect.Pointer:
		return b.exportPointer(v, t)
	case reflect.Struct:
		return b.exportStruct(v, t)
	case reflect.Slice, reflect.Array:
		return b.exportSlice(v, t)
	case reflect.Map:
		return b.exportMap(v, t)
	case reflect.Func:
		return b.exportFunc(v, t)
	}
	return reflect.Value{}, exportError(v, t)
}

func exportError(v vm.Value, t reflect.Type) error {
	return errors.NewTypeError("Cannot convert %s to %s", v, t)
}

func (b *Bridge) exportEnum(v vm.Value, et *vm.EnumType, t reflect.Type) (reflect.Value, error) {
	if vet, ord, ok := v.AsEnum(); ok {
		if vet != et {
			return reflect.Value{}, errors.NewTypeError("Cannot convert %s enum value to %s", vet.Name, t)
		}
		return reflect.ValueOf(ord).Convert(t), nil
	}
	if v.IsString() {
		ord, ok := et.ValueOf(v.AsString())
		if !ok {
			return reflect.Value{}, errors.NewTypeError("'%s' is not a member of %s", v.AsString(), et.Name)
		}
		return reflect.ValueOf(ord).Convert(t), nil
	}
	i, err := v.ToInt64()
	if err != nil {
		return reflect.Value{}, err
	}
	return reflect.ValueOf(i).Convert(t), nil
}

func (b *Bridge) exportPointer(v vm.Value, t reflect.Type) (reflect.Value, error) {
	if v.IsNullish() {
		return reflect.Zero(t), nil
	}
	if t == bigIntPtrType {
		n, err := vm.ToBigInt(v)
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(n), nil
	}
	ev, err := b.ExportTo(v, t.Elem())
	if err != nil {
		return reflect.Value{}, err
	}
	p := reflect.New(t.Elem())
	p.Elem().Set(ev)
	return p, nil
}

func (b *Bridge) exportStruct(v vm.Value, t reflect.Type) (reflect.Value, error) {
	if t == timeType {
		if v.IsObject() {
			return reflect.Value{}, exportError(v, t)
		}
		ms, err := v.ToDouble()
		if err != nil {
			return reflect.Value{}, err
		}
		if math.IsNaN(ms) || math.IsInf(ms, 0) {
			return reflect.Value{}, errors.NewRangeError("Invalid time value")
		}
		return reflect.ValueOf(time.UnixMilli(int64(ms))), nil
	}
	if !v.IsObject() {
		return reflect.Value{}, exportError(v, t)
	}
	out := reflect.New(t).Elem()
	info := b.structInfoFor(t)
	for _, name := range info.fieldOrder {
		fi := info.fields[name]
		key := vm.NewStringKey(name)
		ok, err := v.Has(key)
		if err != nil {
			return reflect.Value{}, err
		}
		if !ok {
			continue
		}
		pv, err := v.Get(key)
		if err != nil {
			return reflect.Value{}, err
		}
		fv, err := out.FieldByIndexErr(fi.index)
		if err != nil {
			continue
		}
		ev, err := b.ExportTo(pv, fv.Type())
		if err != nil {
			return reflect.Value{}, err
		}
		fv.Set(ev)
	}
	return out, nil
}

func (b *Bridge) exportSlice(v vm.Value, t reflect.Type) (reflect.Value, error) {
	if v.IsNullish() && t.Kind() == reflect.Slice {
		return reflect.Zero(t), nil
	}
	if !v.IsObject() {
		return reflect.Value{}, exportError(v, t)
	}
	lv, err := v.GetStr("length")
	if err != nil {
		return reflect.Value{}, err
	}
	n64, err := lv.ToInt64()
	if err != nil {
		return reflect.Value{}, err
	}
	n := int(max(n64, 0))
	var out reflect.Value
	if t.Kind() == reflect.Slice {
		out = reflect.MakeSlice(t, n, n)
	} else {
		out = reflect.New(t).Elem()
		n = min(n, t.Len())
	}
	for i := 0; i < n; i++ {
		ev, err := v.Get(vm.IndexKey(i))
		if err != nil {
			return reflect.Value{}, err
		}
		rv, err := b.ExportTo(ev, t.Elem())
		if err != nil {
			return reflect.Value{}, err
		}
		out.Index(i).Set(rv)
	}
	return out, nil
}

func (b *Bridge) exportMap(v vm.Value, t reflect.Type) (reflect.Value, error) {
	if v.IsNullish() {
		return reflect.Zero(t), nil
	}
	if !v.IsObject() || !isDictKey(t.Key()) {
		return reflect.Value{}, exportError(v, t)
	}
	keys, err := v.OwnKeys()
	if err != nil {
		return reflect.Value{}, err
	}
	out := reflect.MakeMapWithSize(t, len(keys))
	for _, k := range keys {
		mk, ok := mapKey(t.Key(), k.Name())
		if !ok {
			return reflect.Value{}, errors.NewTypeError("Cannot use '%s' as a key of %s", k.Name(), t)
		}
		pv, err := v.Get(k)
		if err != nil {
			return reflect.Value{}, err
		}
		ev, err := b.ExportTo(pv, t.Elem())
		if err != nil {
			return reflect.Value{}, err
		}
		out.SetMapIndex(mk, ev)
	}
	return out, nil
}

// exportFunc turns a callable value into a Go func of type t. A failure of
// the call is returned through a trailing error result when t has one and
// panics otherwise.
func (b *Bridge) exportFunc(v vm.Value, t reflect.Type) (reflect.Value, error) {
	if v.IsNullish() {
		return reflect.Zero(t), nil
	}
	if !v.IsCallable() {
		return reflect.Value{}, errors.NewTypeError("%s is not a function", v)
	}
	if t == nativeFunctionType {
		return reflect.ValueOf(vm.NativeFunction(func(this vm.Value, args []vm.Value) (vm.Value, error) {
			return v.Call(this, args...)
		})), nil
	}
	hasErr := t.NumOut() > 0 && t.Out(t.NumOut()-1) == errorType
	fn := reflect.MakeFunc(t, func(in []reflect.Value) []reflect.Value {
		out := make([]reflect.Value, t.NumOut())
		for i := range out {
			out[i] = reflect.Zero(t.Out(i))
		}
		fail := func(err error) []reflect.Value {
			if !hasErr {
				panic(err)
			}
			out[len(out)-1] = reflect.ValueOf(&err).Elem()
			return out
		}
		args := make([]vm.Value, len(in))
		for i, a := range in {
			args[i] = b.reflectValue(a)
		}
		res, err := v.Call(vm.Undefined, args...)
		if err != nil {
			return fail(err)
		}
		if t.NumOut() > 0 && t.Out(0) != errorType {
			rv, err := b.ExportTo(res, t.Out(0))
			if err != nil {
				return fail(err)
			}
			out[0] = rv
		}
		return out
	})
	return fn, nil
}
