package intl

import (
	"sync"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"jsbind/pkg/vm"
)

// Collator compares strings in locale order.
type Collator struct {
	tag         language.Tag
	sensitivity string
	numeric     bool

	mu sync.Mutex // collate.Collator reuses internal buffers
	c  *collate.Collator
}

// NewCollator reads locales and the sensitivity and numeric options.
func NewCollator(locales, opts vm.Value) (*Collator, error) {
	tag, err := ResolveLocale(locales)
	if err != nil {
		return nil, err
	}
	o, err := newOptions(opts)
	if err != nil {
		return nil, err
	}
	c := &Collator{tag: tag}
	if c.sensitivity, err = o.str("sensitivity", []string{"base", "accent", "case", "variant"}, "variant"); err != nil {
		return nil, err
	}
	if c.numeric, err = o.boolean("numeric", false); err != nil {
		return nil, err
	}

	var copts []collate.Option
	switch c.sensitivity {
	case "base":
		copts = append(copts, collate.IgnoreCase, collate.IgnoreDiacritics)
	case "accent":
		copts = append(copts, collate.IgnoreCase)
	case "case":
		copts = append(copts, collate.IgnoreDiacritics)
	}
	if c.numeric {
		copts = append(copts, collate.Numeric)
	}
	c.c = collate.New(tag, copts...)
	return c, nil
}

// Compare implements Intl.Collator.prototype.compare: -1, 0 or 1.
func (c *Collator) Compare(a, b vm.Value) (vm.Value, error) {
	x, err := a.ToString()
	if err != nil {
		return vm.Undefined, err
	}
	y, err := b.ToString()
	if err != nil {
		return vm.Undefined, err
	}
	c.mu.Lock()
	r := c.c.CompareString(x, y)
	c.mu.Unlock()
	return vm.NewInt32(int32(r)), nil
}

// ResolvedOptions implements Intl.Collator.prototype.resolvedOptions.
func (c *Collator) ResolvedOptions() vm.Value {
	o := vm.NewObject(vm.ObjectPrototype)
	o.SetOwnStr("locale", vm.NewString(c.tag.String()))
	o.SetOwnStr("usage", vm.NewString("sort"))
	o.SetOwnStr("sensitivity", vm.NewString(c.sensitivity))
	o.SetOwnStr("numeric", vm.NewBoolean(c.numeric))
	return o.Value()
}
