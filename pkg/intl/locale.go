// Package intl implements the Intl calling convention on top of the value
// layer: locale and option arguments arrive as engine values and are read
// only through the public coercions, results are built as engine values.
//
// Locale data comes from golang.org/x/text.
package intl

import (
	"golang.org/x/text/language"

	"jsbind/pkg/errors"
	"jsbind/pkg/vm"
)

// DefaultLocale is used when no locale argument is given.
var DefaultLocale = language.AmericanEnglish

// ResolveLocale reads a locale argument: undefined selects DefaultLocale, a
// string is parsed as a BCP 47 tag, and an array-like takes its first
// element. Anything that does not parse is a RangeError.
func ResolveLocale(v vm.Value) (language.Tag, error) {
	if v.IsUndefined() {
		return DefaultLocale, nil
	}
	if v.IsObject() {
		first, err := v.Get(vm.IndexKey(0))
		if err != nil {
			return language.Und, err
		}
		if first.IsUndefined() {
			return DefaultLocale, nil
		}
		v = first
	}
	if !v.IsString() {
		return language.Und, errors.NewTypeError("Language ID should be string or object.")
	}
	tag, err := language.Parse(v.AsString())
	if err != nil {
		return language.Und, errors.NewRangeError("Incorrect locale information provided").CausedBy(err)
	}
	return tag, nil
}

// CanonicalLocale returns the canonical form of a locale argument.
func CanonicalLocale(v vm.Value) (vm.Value, error) {
	tag, err := ResolveLocale(v)
	if err != nil {
		return vm.Undefined, err
	}
	return vm.NewString(tag.String()), nil
}

// options reads properties of an options argument. undefined means every
// option takes its default.
type options struct {
	v vm.Value
}

func newOptions(v vm.Value) (options, error) {
	if v.IsUndefined() {
		return options{}, nil
	}
	if !v.IsObject() {
		return options{}, errors.NewTypeError("Options must be an object")
	}
	return options{v: v}, nil
}

func (o options) get(name string) (vm.Value, error) {
	if !o.v.IsObject() {
		return vm.Undefined, nil
	}
	return o.v.GetStr(name)
}

// str reads a string option restricted to allowed values.
func (o options) str(name string, allowed []string, def string) (string, error) {
	v, err := o.get(name)
	if err != nil || v.IsUndefined() {
		return def, err
	}
	s, err := v.ToString()
	if err != nil {
		return "", err
	}
	for _, a := range allowed {
		if s == a {
			return s, nil
		}
	}
	return "", errors.NewRangeError("Value %s out of range for Intl options property %s", s, name)
}

// boolean reads a boolean option.
func (o options) boolean(name string, def bool) (bool, error) {
	v, err := o.get(name)
	if err != nil || v.IsUndefined() {
		return def, err
	}
	return v.ToBoolean(), nil
}

// number reads an integer option within [lo, hi].
func (o options) number(name string, lo, hi, def int) (int, error) {
	v, err := o.get(name)
	if err != nil || v.IsUndefined() {
		return def, err
	}
	f, err := v.ToDouble()
	if err != nil {
		return 0, err
	}
	if f != f || f < float64(lo) || f > float64(hi) {
		return 0, errors.NewRangeError("%s value is out of range.", name)
	}
	return int(f), nil
}
