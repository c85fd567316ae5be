package interop

import (
	"reflect"
	"strings"
	"sync"

	"github.com/dlclark/regexp2"

	"jsbind/pkg/errors"
	"jsbind/pkg/vm"
)

// RegExpPrototype is the prototype of wrapped regular expressions.
var RegExpPrototype *vm.Object

// RegExp is a compiled ECMAScript regular expression together with its
// mutable lastIndex. lastIndex counts UTF-16 code units.
type RegExp struct {
	re     *regexp2.Regexp
	source string
	flags  string

	mu        sync.Mutex
	lastIndex int
}

// flagOrder is the canonical order of the flags property.
const flagOrder = "gimsy"

// CompileRegExp compiles pattern in ECMAScript mode. Supported flags are
// g, i, m, s and y; anything else or a repeated flag is a SyntaxError.
func CompileRegExp(pattern, flags string) (*RegExp, error) {
	opts := regexp2.RegexOptions(regexp2.ECMAScript)
	for i, f := range flags {
		if !strings.ContainsRune(flagOrder, f) || strings.ContainsRune(flags[:i], f) {
			return nil, errors.NewSyntaxError("Invalid flags supplied to RegExp constructor '%s'", flags)
		}
		switch f {
		case 'i':
			opts |= regexp2.IgnoreCase
		case 'm':
			opts |= regexp2.Multiline
		case 's':
			opts |= regexp2.Singleline
		}
	}
	re, err := regexp2.Compile(pattern, opts)
	if err != nil {
		return nil, errors.NewSyntaxError("Invalid regular expression: /%s/: %v", pattern, err).CausedBy(err)
	}
	var canon strings.Builder
	for _, f := range flagOrder {
		if strings.ContainsRune(flags, f) {
			canon.WriteRune(f)
		}
	}
	return &RegExp{re: re, source: pattern, flags: canon.String()}, nil
}

func (r *RegExp) has(flag byte) bool { return strings.IndexByte(r.flags, flag) >= 0 }

// Source returns the pattern text.
func (r *RegExp) Source() string { return r.source }

// Flags returns the flags in canonical order.
func (r *RegExp) Flags() string { return r.flags }

// LastIndex returns the current lastIndex.
func (r *RegExp) LastIndex() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastIndex
}

func (r *RegExp) setLastIndex(n int) {
	r.mu.Lock()
	r.lastIndex = n
	r.mu.Unlock()
}

// utf16Offsets maps rune positions of runes to UTF-16 offsets; the result has
// len(runes)+1 entries.
func utf16Offsets(runes []rune) []int {
	offs := make([]int, len(runes)+1)
	for i, r := range runes {
		n := 1
		if r >= 0x10000 {
			n = 2
		}
		offs[i+1] = offs[i] + n
	}
	return offs
}

// runeIndex converts a UTF-16 offset to the first rune position at or after
// it.
func runeIndex(offs []int, u int) int {
	for i, o := range offs {
		if o >= u {
			return i
		}
	}
	return len(offs) - 1
}

// execResult is one successful match with UTF-16 positions.
type execResult struct {
	index, end int
	groups     []regexp2.Group
}

// exec runs the RegExpBuiltinExec steps: global and sticky expressions start
// at lastIndex and update it, sticky matches must begin exactly there.
func (r *RegExp) exec(input string) (*execResult, error) {
	global, sticky := r.has('g'), r.has('y')
	start := 0
	if global || sticky {
		start = r.LastIndex()
	}
	runes := vm.ToCodePoints(input)
	offs := utf16Offsets(runes)
	if start > offs[len(runes)] {
		r.setLastIndex(0)
		return nil, nil
	}
	m, err := r.re.FindRunesMatchStartingAt(runes, runeIndex(offs, start))
	if err != nil {
		return nil, errors.NewSyntaxError("RegExp execution failed: %v", err).CausedBy(err)
	}
	if m == nil || (sticky && offs[m.Index] != start) {
		if global || sticky {
			r.setLastIndex(0)
		}
		return nil, nil
	}
	res := &execResult{index: offs[m.Index], end: offs[m.Index+m.Length], groups: m.Groups()}
	if global || sticky {
		r.setLastIndex(res.end)
	}
	return res, nil
}

// regexpMembers exposes the flag properties and lastIndex.
type regexpMembers struct{}

func (regexpMembers) tag() string { return "RegExp" }

func regexpOf(w *Wrapper) *RegExp { return w.target.Addr().Interface().(*RegExp) }

func (regexpMembers) get(w *Wrapper, key vm.PropertyKey) (vm.Value, bool, error) {
	if !key.IsString() {
		return vm.Undefined, false, nil
	}
	r := regexpOf(w)
	switch key.Name() {
	case "source":
		return vm.NewString(r.source), true, nil
	case "flags":
		return vm.NewString(r.flags), true, nil
	case "global":
		return vm.NewBoolean(r.has('g')), true, nil
	case "ignoreCase":
		return vm.NewBoolean(r.has('i')), true, nil
	case "multiline":
		return vm.NewBoolean(r.has('m')), true, nil
	case "dotAll":
		return vm.NewBoolean(r.has('s')), true, nil
	case "sticky":
		return vm.NewBoolean(r.has('y')), true, nil
	case "lastIndex":
		return vm.NewInt64(int64(r.LastIndex())), true, nil
	}
	return vm.Undefined, false, nil
}

func (m regexpMembers) has(w *Wrapper, key vm.PropertyKey) bool {
	_, found, _ := m.get(w, key)
	return found
}

func (m regexpMembers) set(w *Wrapper, key vm.PropertyKey, v vm.Value) (bool, error) {
	if !m.has(w, key) {
		return false, nil
	}
	if key.Name() != "lastIndex" {
		return true, readOnlyError(key, w)
	}
	f, err := v.ToDouble()
	if err != nil {
		return true, err
	}
	n := 0
	if f > 0 {
		n = int(min(f, 1<<53-1))
	}
	regexpOf(w).setLastIndex(n)
	return true, nil
}

func (m regexpMembers) del(w *Wrapper, key vm.PropertyKey) (bool, error) {
	if m.has(w, key) {
		return true, nonDeletableError(key, w)
	}
	return false, nil
}

func (regexpMembers) keys(*Wrapper) []vm.PropertyKey { return nil }

var regexpType = reflect.TypeFor[RegExp]()

func thisRegExp(this vm.Value, method string) (*Wrapper, *RegExp, error) {
	if w, ok := WrapperOf(this); ok && w.target.Type() == regexpType {
		return w, regexpOf(w), nil
	}
	return nil, nil, errors.NewTypeError("%s called on incompatible receiver %s", method, this)
}

// matchValue builds the exec result: an array of captures with index, input
// and groups properties.
func (b *Bridge) matchValue(res *execResult, input string) (vm.Value, error) {
	items := make([]vm.Value, len(res.groups))
	var named *vm.Object
	for i, g := range res.groups {
		if len(g.Captures) > 0 {
			items[i] = vm.NewString(vm.StringFromCodePoints(g.Runes()))
		}
		if _, numeric := vm.NewStringKey(g.Name).ArrayIndex(); !numeric {
			if named == nil {
				named = vm.NewObject(nil)
			}
			named.SetOwnStr(g.Name, items[i])
		}
	}
	list := b.NewList(items...)
	if err := list.SetStr("index", vm.NewInt64(int64(res.index))); err != nil {
		return vm.Undefined, err
	}
	if err := list.SetStr("input", vm.NewString(input)); err != nil {
		return vm.Undefined, err
	}
	groups := vm.Undefined
	if named != nil {
		groups = named.Value()
	}
	if err := list.SetStr("groups", groups); err != nil {
		return vm.Undefined, err
	}
	return list, nil
}

func init() {
	RegExpPrototype = vm.NewObject(vm.ObjectPrototype)
	RegExpPrototype.SetClass("RegExp")

	RegExpPrototype.DefineMethod("exec", 1, func(this vm.Value, args []vm.Value) (vm.Value, error) {
		w, r, err := thisRegExp(this, "RegExp.prototype.exec")
		if err != nil {
			return vm.Undefined, err
		}
		input, err := vm.Arg(args, 0).ToString()
		if err != nil {
			return vm.Undefined, err
		}
		res, err := r.exec(input)
		if err != nil || res == nil {
			return vm.Null, err
		}
		return w.bridge.matchValue(res, input)
	})
	RegExpPrototype.DefineMethod("test", 1, func(this vm.Value, args []vm.Value) (vm.Value, error) {
		_, r, err := thisRegExp(this, "RegExp.prototype.test")
		if err != nil {
			return vm.Undefined, err
		}
		input, err := vm.Arg(args, 0).ToString()
		if err != nil {
			return vm.Undefined, err
		}
		res, err := r.exec(input)
		return vm.NewBoolean(res != nil), err
	})
	RegExpPrototype.DefineMethod("toString", 0, func(this vm.Value, _ []vm.Value) (vm.Value, error) {
		_, r, err := thisRegExp(this, "RegExp.prototype.toString")
		if err != nil {
			return vm.Undefined, err
		}
		return vm.NewString("/" + r.source + "/" + r.flags), nil
	})
}
