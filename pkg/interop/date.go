package interop

import (
	"math"
	"reflect"
	"time"

	"jsbind/pkg/errors"
	"jsbind/pkg/vm"
)

// DatePrototype is the prototype of wrapped time.Time values.
var DatePrototype *vm.Object

var timeType = reflect.TypeFor[time.Time]()

const (
	isoLayout  = "2006-01-02T15:04:05.000Z"
	dateLayout = "Mon Jan 02 2006 15:04:05 GMT-0700 (MST)"
)

// maxTimeMillis bounds the time value to ±8.64e15 ms around the epoch.
const maxTimeMillis = 8.64e15

func init() {
	DatePrototype = vm.NewObject(vm.ObjectPrototype)
	DatePrototype.SetClass("Date")

	getTime := func(this vm.Value, _ []vm.Value) (vm.Value, error) {
		t, err := thisTime(this, "Date.prototype.getTime")
		if err != nil {
			return vm.Undefined, err
		}
		return vm.NewNumber(float64(t.UnixMilli())), nil
	}
	DatePrototype.DefineMethod("getTime", 0, getTime)
	DatePrototype.DefineMethod("valueOf", 0, getTime)

	DatePrototype.DefineMethod("toISOString", 0, func(this vm.Value, _ []vm.Value) (vm.Value, error) {
		t, err := thisTime(this, "Date.prototype.toISOString")
		if err != nil {
			return vm.Undefined, err
		}
		return vm.NewString(t.UTC().Format(isoLayout)), nil
	})
	DatePrototype.DefineMethod("toJSON", 1, func(this vm.Value, _ []vm.Value) (vm.Value, error) {
		t, err := thisTime(this, "Date.prototype.toJSON")
		if err != nil {
			return vm.Undefined, err
		}
		return vm.NewString(t.UTC().Format(isoLayout)), nil
	})
	DatePrototype.DefineMethod("toString", 0, func(this vm.Value, _ []vm.Value) (vm.Value, error) {
		t, err := thisTime(this, "Date.prototype.toString")
		if err != nil {
			return vm.Undefined, err
		}
		return vm.NewString(t.Format(dateLayout)), nil
	})
	DatePrototype.DefineMethod("setTime", 1, func(this vm.Value, args []vm.Value) (vm.Value, error) {
		w, ok := WrapperOf(this)
		if !ok || w.target.Type() != timeType {
			return vm.Undefined, errors.NewTypeError("this is not a Date object.")
		}
		if !w.target.CanSet() {
			return vm.Undefined, errors.NewTypeError("Cannot modify a Date held by value")
		}
		ms, err := vm.Arg(args, 0).ToDouble()
		if err != nil {
			return vm.Undefined, err
		}
		if math.IsNaN(ms) || math.Abs(ms) > maxTimeMillis {
			return vm.Undefined, errors.NewRangeError("Invalid time value")
		}
		ms = math.Trunc(ms)
		w.target.Set(reflect.ValueOf(time.UnixMilli(int64(ms))))
		return vm.NewNumber(ms), nil
	})
}

func thisTime(this vm.Value, method string) (time.Time, error) {
	if w, ok := WrapperOf(this); ok && w.target.Type() == timeType {
		return w.target.Interface().(time.Time), nil
	}
	return time.Time{}, errors.NewTypeError("%s called on incompatible receiver %s", method, this)
}

// dateMembers is the Date binder: no own keys, everything lives on
// DatePrototype.
type dateMembers struct{ noMembers }

func (dateMembers) tag() string { return "Date" }
