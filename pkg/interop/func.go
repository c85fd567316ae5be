package interop

import (
	"fmt"
	"reflect"

	"go.uber.org/zap"

	"jsbind/pkg/errors"
	"jsbind/pkg/vm"
)

var (
	errorType          = reflect.TypeFor[error]()
	nativeFunctionType = reflect.TypeFor[vm.NativeFunction]()
)

// funcMembers is the function binder over a Go func. Arguments are
// exported to the parameter types; a trailing error result becomes the
// call's failure.
type funcMembers struct {
	name string
}

func (funcMembers) tag() string { return "Function" }

func (f funcMembers) length(w *Wrapper) int {
	t := w.target.Type()
	if t.IsVariadic() {
		return t.NumIn() - 1
	}
	return t.NumIn()
}

func (f funcMembers) get(w *Wrapper, key vm.PropertyKey) (vm.Value, bool, error) {
	if !key.IsString() {
		return vm.Undefined, false, nil
	}
	switch key.Name() {
	case "name":
		return vm.NewString(f.name), true, nil
	case "length":
		return vm.NewInt32(int32(f.length(w))), true, nil
	}
	return vm.Undefined, false, nil
}

func (f funcMembers) has(w *Wrapper, key vm.PropertyKey) bool {
	return key.IsString() && (key.Name() == "name" || key.Name() == "length")
}

func (f funcMembers) set(w *Wrapper, key vm.PropertyKey, _ vm.Value) (bool, error) {
	if f.has(w, key) {
		return true, readOnlyError(key, w)
	}
	return false, nil
}

func (f funcMembers) del(w *Wrapper, key vm.PropertyKey) (bool, error) {
	if f.has(w, key) {
		return true, nonDeletableError(key, w)
	}
	return false, nil
}

func (funcMembers) keys(*Wrapper) []vm.PropertyKey { return nil }

func (f funcMembers) call(w *Wrapper, this vm.Value, args []vm.Value) (res vm.Value, err error) {
	fn := w.target
	if fn.IsNil() {
		return vm.Undefined, errors.NewTypeError("%s is not a function", f.display())
	}
	defer func() {
		if r := recover(); r != nil {
			Logger().Warn("host function panicked",
				zap.String("function", f.display()),
				zap.Any("panic", r))
			res, err = vm.Undefined, hostError(fmt.Errorf("panic: %v", r), f.display())
		}
	}()

	if fn.Type().ConvertibleTo(nativeFunctionType) {
		native := fn.Convert(nativeFunctionType).Interface().(vm.NativeFunction)
		return native(this, args)
	}

	in, err := w.bridge.exportArgs(fn.Type(), args)
	if err != nil {
		return vm.Undefined, err
	}
	return w.bridge.results(fn.Call(in), f.display())
}

func (f funcMembers) display() string {
	if f.name == "" {
		return "anonymous"
	}
	return f.name
}

// exportArgs converts call arguments to the parameters of t. Missing
// arguments are exported from undefined; extra ones are dropped unless t is
// variadic.
func (b *Bridge) exportArgs(t reflect.Type, args []vm.Value) ([]reflect.Value, error) {
	fixed := t.NumIn()
	if t.IsVariadic() {
		fixed--
	}
	in := make([]reflect.Value, 0, max(fixed, len(args)))
	for i := 0; i < fixed; i++ {
		rv, err := b.ExportTo(vm.Arg(args, i), t.In(i))
		if err != nil {
			return nil, err
		}
		in = append(in, rv)
	}
	if t.IsVariadic() {
		et := t.In(fixed).Elem()
		for i := fixed; i < len(args); i++ {
			rv, err := b.ExportTo(args[i], et)
			if err != nil {
				return nil, err
			}
			in = append(in, rv)
		}
	}
	return in, nil
}

// results converts Go results: none is undefined, one is its value, several
// become a list. A non-nil trailing error is returned instead.
func (b *Bridge) results(out []reflect.Value, name string) (vm.Value, error) {
	if n := len(out); n > 0 && out[n-1].Type() == errorType {
		if e := out[n-1]; !e.IsNil() {
			return vm.Undefined, hostError(e.Interface().(error), name)
		}
		out = out[:n-1]
	}
	switch len(out) {
	case 0:
		return vm.Undefined, nil
	case 1:
		return b.reflectValue(out[0]), nil
	}
	items := make([]vm.Value, len(out))
	for i, o := range out {
		items[i] = b.reflectValue(o)
	}
	return b.NewList(items...), nil
}

// hostError passes engine errors through and wraps anything else as a
// TypeError caused by the host error.
func hostError(err error, name string) error {
	if _, ok := errors.AsEngineError(err); ok {
		return err
	}
	return errors.NewTypeError("%s: %v", name, err).CausedBy(err)
}

// wrapFunc wraps fn as a callable value named name. Wrapped funcs are not
// cached: func values have no identity.
func (b *Bridge) wrapFunc(fn reflect.Value, name string) vm.Value {
	w := newWrapper(b, funcMembers{name: name}, fn, fn, vm.FunctionPrototype)
	return w.Value()
}
