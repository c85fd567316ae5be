package vm

import "jsbind/pkg/errors"

// ObjectToPrimitive implements ToPrimitive for object values. An
// @@toPrimitive hook, when present, alone decides the result; otherwise
// OrdinaryToPrimitive runs.
func ObjectToPrimitive(v Value, hint Hint) (Value, error) {
	exotic, err := v.Get(WellKnownKey(SymToPrimitive))
	if err != nil {
		return Undefined, err
	}
	if !exotic.IsNullish() {
		if !exotic.IsCallable() {
			return Undefined, errors.NewTypeError("Symbol.toPrimitive is not a function")
		}
		res, err := exotic.Call(v, NewString(hint.String()))
		if err != nil {
			return Undefined, err
		}
		if res.IsObject() {
			return Undefined, errors.NewTypeError("Cannot convert object to primitive value")
		}
		return res, nil
	}
	return OrdinaryToPrimitive(v, hint)
}

// OrdinaryToPrimitive tries valueOf then toString for the number hint, and
// toString then valueOf otherwise. The first non-object result wins.
func OrdinaryToPrimitive(v Value, hint Hint) (Value, error) {
	order := [2]string{"toString", "valueOf"}
	if hint == HintNumber {
		order = [2]string{"valueOf", "toString"}
	}
	for _, name := range order {
		method, err := v.GetStr(name)
		if err != nil {
			return Undefined, err
		}
		if !method.IsCallable() {
			continue
		}
		res, err := method.Call(v)
		if err != nil {
			return Undefined, err
		}
		if !res.IsObject() {
			return res, nil
		}
	}
	return Undefined, errors.NewTypeError("Cannot convert object to primitive value")
}

// ClassTag resolves the tag reported by Object.prototype.toString:
// callable objects are "Function", objects carrying an intrinsic primitive
// report that primitive's tag, a string @@toStringTag comes next, and the
// binder's own tag (or "Object") is the fallback.
func ClassTag(v Value) (string, error) {
	if v.IsCallable() {
		return "Function", nil
	}
	b := v.binder()
	if ph, ok := b.(PrimitiveHolder); ok {
		if p, ok := ph.PrimitiveValue(v.h); ok {
			return primitiveTag(p.Kind()), nil
		}
	}
	if v.IsObject() {
		tag, err := v.Get(WellKnownKey(SymToStringTag))
		if err != nil {
			return "", err
		}
		if tag.IsString() {
			return tag.AsString(), nil
		}
	}
	if ct, ok := b.(ClassTagger); ok {
		if tag := ct.ClassTag(v.h); tag != "" {
			return tag, nil
		}
	}
	return "Object", nil
}

func primitiveTag(k Kind) string {
	switch k {
	case KindBoolean:
		return "Boolean"
	case KindString:
		return "String"
	case KindSymbol:
		return "Symbol"
	case KindBigInt:
		return "BigInt"
	case KindUndefined:
		return "Undefined"
	case KindNull:
		return "Null"
	}
	return "Number"
}
