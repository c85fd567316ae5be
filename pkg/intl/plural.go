package intl

import (
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/feature/plural"
	"golang.org/x/text/language"

	"jsbind/pkg/vm"
)

// PluralRules selects the plural category of a number.
type PluralRules struct {
	tag     language.Tag
	typ     string
	rules   *plural.Rules
	minFrac int
	maxFrac int
}

// NewPluralRules reads locales and the type and fraction digit options.
func NewPluralRules(locales, opts vm.Value) (*PluralRules, error) {
	tag, err := ResolveLocale(locales)
	if err != nil {
		return nil, err
	}
	o, err := newOptions(opts)
	if err != nil {
		return nil, err
	}
	pr := &PluralRules{tag: tag, rules: plural.Cardinal}
	if pr.typ, err = o.str("type", []string{"cardinal", "ordinal"}, "cardinal"); err != nil {
		return nil, err
	}
	if pr.typ == "ordinal" {
		pr.rules = plural.Ordinal
	}
	if pr.minFrac, err = o.number("minimumFractionDigits", 0, 100, 0); err != nil {
		return nil, err
	}
	if pr.maxFrac, err = o.number("maximumFractionDigits", pr.minFrac, 100, max(3, pr.minFrac)); err != nil {
		return nil, err
	}
	return pr, nil
}

var formNames = map[plural.Form]string{
	plural.Other: "other",
	plural.Zero:  "zero",
	plural.One:   "one",
	plural.Two:   "two",
	plural.Few:   "few",
	plural.Many:  "many",
}

// operands computes the CLDR plural operands i, v, w, f and t of |x|
// rounded to the configured fraction digits.
func (pr *PluralRules) operands(x float64) (i, v, w, f, t int) {
	s := strconv.FormatFloat(math.Abs(x), 'f', pr.maxFrac, 64)
	intPart, frac, _ := strings.Cut(s, ".")
	for len(frac) > pr.minFrac && strings.HasSuffix(frac, "0") {
		frac = frac[:len(frac)-1]
	}
	// Rules only look at the low digits of large integers.
	if len(intPart) > 9 {
		i = 1e9
		intPart = intPart[len(intPart)-9:]
	}
	n, _ := strconv.Atoi(intPart)
	i += n
	v = len(frac)
	f, _ = strconv.Atoi(frac)
	trimmed := strings.TrimRight(frac, "0")
	w = len(trimmed)
	t, _ = strconv.Atoi(trimmed)
	return i, v, w, f, t
}

// Select implements Intl.PluralRules.prototype.select.
func (pr *PluralRules) Select(v vm.Value) (vm.Value, error) {
	x, err := v.ToDouble()
	if err != nil {
		return vm.Undefined, err
	}
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return vm.NewString("other"), nil
	}
	i, vd, w, f, t := pr.operands(x)
	form := pr.rules.MatchPlural(pr.tag, i, vd, w, f, t)
	return vm.NewString(formNames[form]), nil
}
