package intl

import (
	"math"
	"math/big"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"jsbind/pkg/errors"
	"jsbind/pkg/vm"
)

// NumberFormat formats numbers for a locale. Styles are decimal and
// percent.
type NumberFormat struct {
	tag      language.Tag
	style    string
	minFrac  int
	maxFrac  int
	grouping bool

	printer *message.Printer
	decimal string
	group   string
}

// NewNumberFormat reads locales and options the way the Intl.NumberFormat
// constructor does.
func NewNumberFormat(locales, opts vm.Value) (*NumberFormat, error) {
	tag, err := ResolveLocale(locales)
	if err != nil {
		return nil, err
	}
	o, err := newOptions(opts)
	if err != nil {
		return nil, err
	}
	nf := &NumberFormat{tag: tag}
	if nf.style, err = o.str("style", []string{"decimal", "percent"}, "decimal"); err != nil {
		return nil, err
	}
	defMax := 3
	if nf.style == "percent" {
		defMax = 0
	}
	if nf.minFrac, err = o.number("minimumFractionDigits", 0, 100, 0); err != nil {
		return nil, err
	}
	if nf.maxFrac, err = o.number("maximumFractionDigits", 0, 100, max(defMax, nf.minFrac)); err != nil {
		return nil, err
	}
	if nf.maxFrac < nf.minFrac {
		return nil, errors.NewRangeError("maximumFractionDigits value is out of range.")
	}
	if nf.grouping, err = o.boolean("useGrouping", true); err != nil {
		return nil, err
	}
	nf.printer = message.NewPrinter(tag)
	nf.decimal = firstSymbol(nf.printer.Sprint(number.Decimal(1.5, number.MinFractionDigits(1))))
	nf.group = firstSymbol(nf.printer.Sprint(number.Decimal(1234567)))
	return nf, nil
}

// firstSymbol returns the first non-digit rune of a formatted probe.
func firstSymbol(s string) string {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return string(r)
		}
	}
	return ""
}

// Locale returns the resolved locale.
func (nf *NumberFormat) Locale() language.Tag { return nf.tag }

func (nf *NumberFormat) numberArg(v vm.Value) (float64, error) {
	if v.IsBigInt() {
		f, _ := new(big.Float).SetInt(v.AsBigInt()).Float64()
		return f, nil
	}
	return v.ToDouble()
}

func (nf *NumberFormat) format(x float64) string {
	switch {
	case math.IsNaN(x):
		return "NaN"
	case math.IsInf(x, 1):
		return "∞"
	case math.IsInf(x, -1):
		return "-∞"
	}
	opts := []number.Option{number.MinFractionDigits(nf.minFrac), number.MaxFractionDigits(nf.maxFrac)}
	if !nf.grouping {
		opts = append(opts, number.NoSeparator())
	}
	if nf.style == "percent" {
		return nf.printer.Sprint(number.Percent(x, opts...))
	}
	return nf.printer.Sprint(number.Decimal(x, opts...))
}

// Format implements Intl.NumberFormat.prototype.format.
func (nf *NumberFormat) Format(v vm.Value) (vm.Value, error) {
	x, err := nf.numberArg(v)
	if err != nil {
		return vm.Undefined, err
	}
	return vm.NewString(nf.format(x)), nil
}

// Part is one element of a formatToParts result.
type Part struct {
	Type  string
	Value string
}

// Parts splits a formatted number into typed parts.
func (nf *NumberFormat) Parts(x float64) []Part {
	s := nf.format(x)
	if math.IsNaN(x) {
		return []Part{{"nan", s}}
	}
	var parts []Part
	add := func(typ, val string) {
		if n := len(parts); n > 0 && parts[n-1].Type == typ && typ != "group" && typ != "decimal" {
			parts[n-1].Value += val
			return
		}
		parts = append(parts, Part{typ, val})
	}
	inFraction := false
	for len(s) > 0 {
		r, size := utf8.DecodeRuneInString(s)
		tok := s[:size]
		switch {
		case unicode.IsDigit(r):
			if inFraction {
				add("fraction", tok)
			} else {
				add("integer", tok)
			}
		case tok == nf.decimal && !inFraction:
			inFraction = true
			add("decimal", tok)
		case tok == nf.group && !inFraction:
			add("group", tok)
		case r == '-' || r == '−':
			add("minusSign", tok)
		case r == '+':
			add("plusSign", tok)
		case r == '%' || r == '٪':
			add("percentSign", tok)
		case r == '∞':
			add("infinity", tok)
		default:
			add("literal", tok)
		}
		s = s[size:]
	}
	return parts
}

// FormatToParts implements Intl.NumberFormat.prototype.formatToParts: an
// array of {type, value} objects.
func (nf *NumberFormat) FormatToParts(v vm.Value) (vm.Value, error) {
	x, err := nf.numberArg(v)
	if err != nil {
		return vm.Undefined, err
	}
	parts := nf.Parts(x)
	items := make([]vm.Value, len(parts))
	for i, p := range parts {
		o := vm.NewObject(vm.ObjectPrototype)
		o.SetOwnStr("type", vm.NewString(p.Type))
		o.SetOwnStr("value", vm.NewString(p.Value))
		items[i] = o.Value()
	}
	return newArray(items), nil
}

// ResolvedOptions implements Intl.NumberFormat.prototype.resolvedOptions.
func (nf *NumberFormat) ResolvedOptions() vm.Value {
	o := vm.NewObject(vm.ObjectPrototype)
	o.SetOwnStr("locale", vm.NewString(nf.tag.String()))
	o.SetOwnStr("numberingSystem", vm.NewString(numberingSystem(nf.tag)))
	o.SetOwnStr("style", vm.NewString(nf.style))
	o.SetOwnStr("minimumFractionDigits", vm.NewInt32(int32(nf.minFrac)))
	o.SetOwnStr("maximumFractionDigits", vm.NewInt32(int32(nf.maxFrac)))
	o.SetOwnStr("useGrouping", vm.NewBoolean(nf.grouping))
	return o.Value()
}

func numberingSystem(tag language.Tag) string {
	if nu := tag.TypeForKey("nu"); nu != "" {
		return strings.ToLower(nu)
	}
	return "latn"
}

// newArray builds an ordinary array object.
func newArray(items []vm.Value) vm.Value {
	a := vm.NewObject(vm.ArrayPrototype)
	a.SetClass("Array")
	for i, it := range items {
		a.SetOwn(vm.IndexKey(i), it)
	}
	a.DefineProperty(vm.NewStringKey("length"), vm.DataDescriptor(vm.NewInt32(int32(len(items))), vm.AttrWritable))
	return a.Value()
}
