package vm

import (
	"math"

	"jsbind/pkg/errors"
)

var (
	undefinedBinderInstance = &nullishBinder{kind: KindUndefined, name: "undefined"}
	nullBinderInstance      = &nullishBinder{kind: KindNull, name: "null"}
)

// nullishBinder serves both undefined and null. Reads find nothing, writes
// and enumeration raise a TypeError.
type nullishBinder struct {
	kind Kind
	name string
}

func (b *nullishBinder) Kind() Kind              { return b.kind }
func (b *nullishBinder) ToBoolean(h Handle) bool { return false }
func (b *nullishBinder) ToNumber(h Handle) (Value, error) {
	if b.kind == KindNull {
		return NewInt32(0), nil
	}
	return NaN, nil
}
func (b *nullishBinder) ToDouble(h Handle) (float64, error) {
	if b.kind == KindNull {
		return 0, nil
	}
	return math.NaN(), nil
}
func (b *nullishBinder) ToInt32(h Handle) (int32, error)   { return 0, nil }
func (b *nullishBinder) ToInt64(h Handle) (int64, error)   { return 0, nil }
func (b *nullishBinder) ToString(h Handle) (string, error) { return b.name, nil }
func (b *nullishBinder) ToPrimitive(h Handle, _ Hint) (Value, error) {
	if b.kind == KindUndefined {
		return Undefined, nil
	}
	return Null, nil
}
func (b *nullishBinder) SameValue(x, y Handle) bool { return true }
func (b *nullishBinder) Hash(h Handle) uint64       { return uint64(b.kind) }

func (b *nullishBinder) HasProperty(Handle, PropertyKey) (bool, error)    { return false, nil }
func (b *nullishBinder) HasOwnProperty(Handle, PropertyKey) (bool, error) { return false, nil }
func (b *nullishBinder) Get(Handle, PropertyKey, Value) (Value, bool, error) {
	return Undefined, false, nil
}
func (b *nullishBinder) Set(h Handle, key PropertyKey, _ Value, _ Value) error {
	return errors.NewTypeError("Cannot set properties of %s (setting '%s')", b.name, key)
}
func (b *nullishBinder) Delete(h Handle, key PropertyKey) error {
	return errors.NewTypeError("Cannot delete properties of %s (deleting '%s')", b.name, key)
}
func (b *nullishBinder) OwnKeys(Handle) ([]PropertyKey, error) {
	return nil, errors.NewTypeError("Cannot convert undefined or null to object")
}
