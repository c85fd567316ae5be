package vm

import (
	"math/big"
	"strings"

	"jsbind/pkg/errors"
)

// Intrinsic prototypes shared by every value of the matching kind. They are
// built once during package initialization and are read-only by
// convention afterwards.
var (
	ObjectPrototype   *Object
	FunctionPrototype *Object
	ArrayPrototype    *Object
	StringPrototype   *Object
	NumberPrototype   *Object
	BooleanPrototype  *Object
	SymbolPrototype   *Object
	BigIntPrototype   *Object
	ErrorPrototype    *Object
)

func init() {
	ObjectPrototype = NewObject(nil)
	FunctionPrototype = NewObject(ObjectPrototype)
	FunctionPrototype.class = "Function"
	FunctionPrototype.fn = func(Value, []Value) (Value, error) { return Undefined, nil }

	ArrayPrototype = NewObject(ObjectPrototype)
	ArrayPrototype.class = "Array"
	StringPrototype = NewObject(ObjectPrototype)
	NumberPrototype = NewObject(ObjectPrototype)
	BooleanPrototype = NewObject(ObjectPrototype)
	SymbolPrototype = NewObject(ObjectPrototype)
	BigIntPrototype = NewObject(ObjectPrototype)
	ErrorPrototype = NewObject(ObjectPrototype)

	initObjectPrototype()
	initFunctionPrototype()
	initArrayPrototype()
	initStringPrototype()
	initNumberPrototype()
	initBooleanPrototype()
	initSymbolPrototype()
	initBigIntPrototype()
	initErrorPrototype()
}

func initObjectPrototype() {
	p := ObjectPrototype
	p.DefineMethod("toString", 0, func(this Value, _ []Value) (Value, error) {
		tag := primitiveTag(this.Kind())
		if this.IsObject() {
			var err error
			if tag, err = ClassTag(this); err != nil {
				return Undefined, err
			}
		}
		return NewString("[object " + tag + "]"), nil
	})
	p.DefineMethod("toLocaleString", 0, func(this Value, _ []Value) (Value, error) {
		return this.Method("toString")
	})
	p.DefineMethod("valueOf", 0, func(this Value, _ []Value) (Value, error) {
		return this.ToObject()
	})
	p.DefineMethod("hasOwnProperty", 1, func(this Value, args []Value) (Value, error) {
		key, err := ToPropertyKey(Arg(args, 0))
		if err != nil {
			return Undefined, err
		}
		obj, err := this.ToObject()
		if err != nil {
			return Undefined, err
		}
		ok, err := obj.HasOwn(key)
		return NewBoolean(ok), err
	})
	p.DefineMethod("propertyIsEnumerable", 1, func(this Value, args []Value) (Value, error) {
		key, err := ToPropertyKey(Arg(args, 0))
		if err != nil {
			return Undefined, err
		}
		if o := this.AsObject(); o != nil {
			desc, ok := o.GetOwnProperty(key)
			return NewBoolean(ok && desc.Enumerable), nil
		}
		keys, err := this.OwnKeys()
		if err != nil {
			return Undefined, err
		}
		for _, k := range keys {
			if k == key {
				return True, nil
			}
		}
		return False, nil
	})
}

func initFunctionPrototype() {
	p := FunctionPrototype
	p.DefineMethod("toString", 0, func(this Value, _ []Value) (Value, error) {
		if !this.IsCallable() {
			return Undefined, errors.NewTypeError("Function.prototype.toString requires that 'this' be a Function")
		}
		name, err := this.GetStr("name")
		if err != nil {
			return Undefined, err
		}
		n := ""
		if name.IsString() {
			n = name.AsString()
		}
		return NewString("function " + n + "() { [native code] }"), nil
	})
	p.DefineMethod("call", 1, func(this Value, args []Value) (Value, error) {
		var rest []Value
		if len(args) > 1 {
			rest = args[1:]
		}
		return this.Call(Arg(args, 0), rest...)
	})
}

// lengthOfArrayLike reads and clamps the length property of v.
func lengthOfArrayLike(v Value) (int64, error) {
	l, err := v.GetStr("length")
	if err != nil {
		return 0, err
	}
	f, err := l.ToDouble()
	if err != nil {
		return 0, err
	}
	if f != f || f <= 0 {
		return 0, nil
	}
	if f > maxSafeInteger {
		return maxSafeInteger, nil
	}
	return int64(f), nil
}

func initArrayPrototype() {
	p := ArrayPrototype
	join := func(this Value, args []Value) (Value, error) {
		sep := ","
		if s := Arg(args, 0); !s.IsUndefined() {
			var err error
			if sep, err = s.ToString(); err != nil {
				return Undefined, err
			}
		}
		n, err := lengthOfArrayLike(this)
		if err != nil {
			return Undefined, err
		}
		var sb strings.Builder
		for i := int64(0); i < n; i++ {
			if i > 0 {
				sb.WriteString(sep)
			}
			el, err := this.Get(IndexKey(int(i)))
			if err != nil {
				return Undefined, err
			}
			if el.IsNullish() {
				continue
			}
			s, err := el.ToString()
			if err != nil {
				return Undefined, err
			}
			sb.WriteString(s)
		}
		return NewString(sb.String()), nil
	}
	p.DefineMethod("join", 1, join)
	p.DefineMethod("toString", 0, func(this Value, _ []Value) (Value, error) {
		return join(this, nil)
	})
	p.DefineMethod("push", 1, func(this Value, args []Value) (Value, error) {
		n, err := lengthOfArrayLike(this)
		if err != nil {
			return Undefined, err
		}
		for _, a := range args {
			if err := this.Set(IndexKey(int(n)), a); err != nil {
				return Undefined, err
			}
			n++
		}
		l := NewInt64(n)
		return l, this.SetStr("length", l)
	})
	p.DefineMethod("indexOf", 1, func(this Value, args []Value) (Value, error) {
		n, err := lengthOfArrayLike(this)
		if err != nil {
			return Undefined, err
		}
		target := Arg(args, 0)
		for i := int64(0); i < n; i++ {
			el, err := this.Get(IndexKey(int(i)))
			if err != nil {
				return Undefined, err
			}
			if el.StrictEquals(target) {
				return NewInt64(i), nil
			}
		}
		return NewInt32(-1), nil
	})
}

func thisStringValue(this Value, method string) (string, error) {
	if this.IsString() {
		return this.AsString(), nil
	}
	if ph, ok := this.binder().(PrimitiveHolder); ok {
		if p, ok := ph.PrimitiveValue(this.h); ok && p.IsString() {
			return p.AsString(), nil
		}
	}
	return "", errors.NewTypeError("String.prototype.%s requires that 'this' be a String", method)
}

func initStringPrototype() {
	p := StringPrototype
	p.class = "String"
	p.DefineMethod("toString", 0, func(this Value, _ []Value) (Value, error) {
		s, err := thisStringValue(this, "toString")
		return NewString(s), err
	})
	p.DefineMethod("valueOf", 0, func(this Value, _ []Value) (Value, error) {
		s, err := thisStringValue(this, "valueOf")
		return NewString(s), err
	})
	p.DefineMethod("charAt", 1, func(this Value, args []Value) (Value, error) {
		s, err := this.ToString()
		if err != nil {
			return Undefined, err
		}
		pos, err := Arg(args, 0).ToDouble()
		if err != nil {
			return Undefined, err
		}
		if cu, ok := CodeUnitAt(s, int(DoubleToInt64(pos))); ok {
			return NewString(StringFromCodeUnits([]uint16{cu})), nil
		}
		return NewString(""), nil
	})
	p.DefineMethod("charCodeAt", 1, func(this Value, args []Value) (Value, error) {
		s, err := this.ToString()
		if err != nil {
			return Undefined, err
		}
		pos, err := Arg(args, 0).ToDouble()
		if err != nil {
			return Undefined, err
		}
		if cu, ok := CodeUnitAt(s, int(DoubleToInt64(pos))); ok {
			return NewInt32(int32(cu)), nil
		}
		return NaN, nil
	})
}

func thisNumberValue(this Value, method string) (float64, error) {
	if this.IsNumber() {
		return this.AsFloat(), nil
	}
	if ph, ok := this.binder().(PrimitiveHolder); ok {
		if p, ok := ph.PrimitiveValue(this.h); ok && p.IsNumber() {
			return p.AsFloat(), nil
		}
	}
	return 0, errors.NewTypeError("Number.prototype.%s requires that 'this' be a Number", method)
}

func radixArg(args []Value) (int, error) {
	r := Arg(args, 0)
	if r.IsUndefined() {
		return 10, nil
	}
	f, err := r.ToDouble()
	if err != nil {
		return 0, err
	}
	radix := int(DoubleToInt64(f))
	if radix < 2 || radix > 36 {
		return 0, errors.NewRangeError("toString() radix must be between 2 and 36")
	}
	return radix, nil
}

func initNumberPrototype() {
	p := NumberPrototype
	p.class = "Number"
	p.DefineMethod("toString", 1, func(this Value, args []Value) (Value, error) {
		f, err := thisNumberValue(this, "toString")
		if err != nil {
			return Undefined, err
		}
		radix, err := radixArg(args)
		if err != nil {
			return Undefined, err
		}
		return NewString(NumberToStringRadix(f, radix)), nil
	})
	p.DefineMethod("valueOf", 0, func(this Value, _ []Value) (Value, error) {
		if this.IsNumber() {
			return this, nil
		}
		f, err := thisNumberValue(this, "valueOf")
		return NewNumber(f), err
	})
}

func thisBooleanValue(this Value, method string) (bool, error) {
	if this.IsBoolean() {
		return this.AsBoolean(), nil
	}
	if ph, ok := this.binder().(PrimitiveHolder); ok {
		if p, ok := ph.PrimitiveValue(this.h); ok && p.IsBoolean() {
			return p.AsBoolean(), nil
		}
	}
	return false, errors.NewTypeError("Boolean.prototype.%s requires that 'this' be a Boolean", method)
}

func initBooleanPrototype() {
	p := BooleanPrototype
	p.class = "Boolean"
	p.DefineMethod("toString", 0, func(this Value, _ []Value) (Value, error) {
		b, err := thisBooleanValue(this, "toString")
		if err != nil {
			return Undefined, err
		}
		if b {
			return NewString("true"), nil
		}
		return NewString("false"), nil
	})
	p.DefineMethod("valueOf", 0, func(this Value, _ []Value) (Value, error) {
		b, err := thisBooleanValue(this, "valueOf")
		return NewBoolean(b), err
	})
}

func thisSymbolValue(this Value, method string) (Value, error) {
	if this.IsSymbol() {
		return this, nil
	}
	if ph, ok := this.binder().(PrimitiveHolder); ok {
		if p, ok := ph.PrimitiveValue(this.h); ok && p.IsSymbol() {
			return p, nil
		}
	}
	return Undefined, errors.NewTypeError("Symbol.prototype.%s requires that 'this' be a Symbol", method)
}

func initSymbolPrototype() {
	p := SymbolPrototype
	p.DefineMethod("toString", 0, func(this Value, _ []Value) (Value, error) {
		s, err := thisSymbolValue(this, "toString")
		if err != nil {
			return Undefined, err
		}
		return NewString(SymbolDescriptiveString(s)), nil
	})
	p.DefineMethod("valueOf", 0, func(this Value, _ []Value) (Value, error) {
		return thisSymbolValue(this, "valueOf")
	})
	p.DefineProperty(WellKnownKey(SymToStringTag), DataDescriptor(NewString("Symbol"), AttrConfigurable))
}

func thisBigIntValue(this Value, method string) (*big.Int, error) {
	if this.IsBigInt() {
		return this.AsBigInt(), nil
	}
	if ph, ok := this.binder().(PrimitiveHolder); ok {
		if p, ok := ph.PrimitiveValue(this.h); ok && p.IsBigInt() {
			return p.AsBigInt(), nil
		}
	}
	return nil, errors.NewTypeError("BigInt.prototype.%s requires that 'this' be a BigInt", method)
}

func initBigIntPrototype() {
	p := BigIntPrototype
	p.DefineMethod("toString", 0, func(this Value, args []Value) (Value, error) {
		bi, err := thisBigIntValue(this, "toString")
		if err != nil {
			return Undefined, err
		}
		radix, err := radixArg(args)
		if err != nil {
			return Undefined, err
		}
		return NewString(bi.Text(radix)), nil
	})
	p.DefineMethod("valueOf", 0, func(this Value, _ []Value) (Value, error) {
		bi, err := thisBigIntValue(this, "valueOf")
		if err != nil {
			return Undefined, err
		}
		return NewBigInt(bi), nil
	})
	p.DefineProperty(WellKnownKey(SymToStringTag), DataDescriptor(NewString("BigInt"), AttrConfigurable))
}

func initErrorPrototype() {
	p := ErrorPrototype
	p.SetOwnNonEnumerable("name", NewString("Error"))
	p.SetOwnNonEnumerable("message", NewString(""))
	p.DefineMethod("toString", 0, func(this Value, _ []Value) (Value, error) {
		if !this.IsObject() {
			return Undefined, errors.NewTypeError("Error.prototype.toString called on non-object")
		}
		name, err := stringOr(this, "name", "Error")
		if err != nil {
			return Undefined, err
		}
		msg, err := stringOr(this, "message", "")
		if err != nil {
			return Undefined, err
		}
		switch {
		case name == "":
			return NewString(msg), nil
		case msg == "":
			return NewString(name), nil
		}
		return NewString(name + ": " + msg), nil
	})
}

func stringOr(v Value, name, def string) (string, error) {
	p, err := v.GetStr(name)
	if err != nil || p.IsUndefined() {
		return def, err
	}
	return p.ToString()
}
