package interop

import (
	"testing"

	"github.com/dlclark/regexp2"

	"jsbind/pkg/errors"
	"jsbind/pkg/vm"
)

func mustRegExp(t *testing.T, b *Bridge, pattern, flags string) vm.Value {
	t.Helper()
	re, err := b.NewRegExp(pattern, flags)
	if err != nil {
		t.Fatalf("NewRegExp(%q, %q): %v", pattern, flags, err)
	}
	return re
}

func TestCompileRegExpFlags(t *testing.T) {
	r, err := CompileRegExp("a", "yig")
	if err != nil {
		t.Fatal(err)
	}
	if r.Flags() != "giy" || r.Source() != "a" {
		t.Errorf("flags = %q, source = %q", r.Flags(), r.Source())
	}
	for _, flags := range []string{"gg", "x", "u"} {
		if _, err := CompileRegExp("a", flags); !errors.IsSyntaxError(err) {
			t.Errorf("flags %q: error = %v, want SyntaxError", flags, err)
		}
	}
	if _, err := CompileRegExp("(", ""); !errors.IsSyntaxError(err) {
		t.Errorf("bad pattern: error = %v, want SyntaxError", err)
	}
}

func TestRegExpExec(t *testing.T) {
	b := newTestBridge(t)
	re := mustRegExp(t, b, `(\d{4})-(?<month>\d{2})`, "")

	m, err := re.Method("exec", vm.NewString("on 2024-05."))
	if err != nil {
		t.Fatal(err)
	}
	if m.IsNull() {
		t.Fatal("exec found no match")
	}
	whole, _ := m.Get(vm.IndexKey(0))
	year, _ := m.Get(vm.IndexKey(1))
	if whole.AsString() != "2024-05" || year.AsString() != "2024" {
		t.Errorf("captures = %v, %v", whole, year)
	}
	if idx := mustGet(t, m, "index"); idx.AsFloat() != 3 {
		t.Errorf("index = %v", idx)
	}
	if in := mustGet(t, m, "input"); in.AsString() != "on 2024-05." {
		t.Errorf("input = %v", in)
	}
	month := mustGet(t, mustGet(t, m, "groups"), "month")
	if month.AsString() != "05" {
		t.Errorf("groups.month = %v", month)
	}

	none, _ := re.Method("exec", vm.NewString("nothing"))
	if !none.IsNull() {
		t.Errorf("exec without a match = %v, want null", none)
	}
}

func TestRegExpUnmatchedGroup(t *testing.T) {
	b := newTestBridge(t)
	re := mustRegExp(t, b, `a(b)?`, "")
	m, _ := re.Method("exec", vm.NewString("a"))
	g, _ := m.Get(vm.IndexKey(1))
	if !g.IsUndefined() {
		t.Errorf("unmatched group = %v, want undefined", g)
	}
	if groups := mustGet(t, m, "groups"); !groups.IsUndefined() {
		t.Errorf("groups without named captures = %v", groups)
	}
}

func TestRegExpGlobalLastIndex(t *testing.T) {
	b := newTestBridge(t)
	re := mustRegExp(t, b, "a", "g")
	input := vm.NewString("aXa")

	wantIndex := []float64{0, 2}
	for i, want := range wantIndex {
		m, _ := re.Method("exec", input)
		if m.IsNull() {
			t.Fatalf("exec %d: no match", i)
		}
		if idx := mustGet(t, m, "index"); idx.AsFloat() != want {
			t.Errorf("exec %d: index = %v, want %v", i, idx, want)
		}
	}
	if li := mustGet(t, re, "lastIndex"); li.AsFloat() != 3 {
		t.Errorf("lastIndex = %v, want 3", li)
	}
	if m, _ := re.Method("exec", input); !m.IsNull() {
		t.Error("exhausted global regexp should fail")
	}
	if li := mustGet(t, re, "lastIndex"); li.AsFloat() != 0 {
		t.Errorf("lastIndex after failure = %v, want 0", li)
	}
}

func TestRegExpSticky(t *testing.T) {
	b := newTestBridge(t)
	re := mustRegExp(t, b, "a", "y")
	if ok, _ := re.Method("test", vm.NewString("ba")); ok.ToBoolean() {
		t.Error("sticky match must start at lastIndex")
	}
	if err := re.SetStr("lastIndex", vm.NewInt32(1)); err != nil {
		t.Fatal(err)
	}
	if ok, _ := re.Method("test", vm.NewString("ba")); !ok.ToBoolean() {
		t.Error("sticky match at lastIndex 1 should succeed")
	}
	if li := mustGet(t, re, "lastIndex"); li.AsFloat() != 2 {
		t.Errorf("lastIndex = %v", li)
	}
}

func TestRegExpUTF16Offsets(t *testing.T) {
	b := newTestBridge(t)
	re := mustRegExp(t, b, "b", "g")
	m, _ := re.Method("exec", vm.NewString("😀b"))
	if idx := mustGet(t, m, "index"); idx.AsFloat() != 2 {
		t.Errorf("index after a surrogate pair = %v, want 2", idx)
	}
	if li := mustGet(t, re, "lastIndex"); li.AsFloat() != 3 {
		t.Errorf("lastIndex = %v, want 3", li)
	}
}

func TestRegExpProperties(t *testing.T) {
	b := newTestBridge(t)
	re := mustRegExp(t, b, "x+", "gi")

	checks := map[string]vm.Value{
		"source":     vm.NewString("x+"),
		"flags":      vm.NewString("gi"),
		"global":     vm.True,
		"ignoreCase": vm.True,
		"multiline":  vm.False,
		"sticky":     vm.False,
	}
	for name, want := range checks {
		if got := mustGet(t, re, name); !got.SameValue(want) {
			t.Errorf("%s = %v, want %v", name, got, want)
		}
	}
	if err := re.SetStr("source", vm.NewString("y")); !errors.IsTypeError(err) {
		t.Errorf("write to source: error = %v", err)
	}
	if err := re.Delete(vm.NewStringKey("lastIndex")); !errors.IsTypeError(err) {
		t.Errorf("delete lastIndex: error = %v", err)
	}
	s, _ := re.ToString()
	if s != "/x+/gi" {
		t.Errorf("String(re) = %q", s)
	}
	if tag, _ := vm.ClassTag(re); tag != "RegExp" {
		t.Errorf("class tag = %q", tag)
	}
	if ok, _ := re.Method("test", vm.NewString("XX")); !ok.ToBoolean() {
		t.Error("ignoreCase should match upper case")
	}
}

func TestRegExpIncompatibleReceiver(t *testing.T) {
	exec, _ := RegExpPrototype.GetStr("exec")
	if _, err := exec.Call(vm.NewObject(nil).Value(), vm.NewString("a")); !errors.IsTypeError(err) {
		t.Errorf("exec on a plain object: error = %v", err)
	}
}

func TestWrapCompiledRegexp2(t *testing.T) {
	b := newTestBridge(t)
	compiled := regexp2.MustCompile(`^\w+$`, regexp2.ECMAScript)
	v := b.ToValue(compiled)
	if !v.SameValue(b.ToValue(compiled)) {
		t.Error("the same compiled expression should map to the same value")
	}
	if ok, _ := v.Method("test", vm.NewString("word")); !ok.ToBoolean() {
		t.Error("wrapped expression should match")
	}
	if flags := mustGet(t, v, "flags"); flags.AsString() != "" {
		t.Errorf("flags = %q", flags.AsString())
	}
}

func TestRegExpLoneSurrogateOffsets(t *testing.T) {
	b := newTestBridge(t)
	lone := vm.StringFromCodeUnits([]uint16{0xD800})
	re := mustRegExp(t, b, "b", "g")
	m, _ := re.Method("exec", vm.NewString(lone+"b"))
	if m.IsNull() {
		t.Fatal("exec found no match")
	}
	if idx := mustGet(t, m, "index"); idx.AsFloat() != 1 {
		t.Errorf("index after a lone surrogate = %v, want 1", idx)
	}
	if li := mustGet(t, re, "lastIndex"); li.AsFloat() != 2 {
		t.Errorf("lastIndex = %v, want 2", li)
	}

	dot := mustRegExp(t, b, "^.", "")
	m, _ = dot.Method("exec", vm.NewString(lone))
	if m.IsNull() {
		t.Fatal("dot should match a lone surrogate")
	}
	if whole, _ := m.Get(vm.IndexKey(0)); whole.AsString() != lone {
		t.Errorf("captured %q, want the lone surrogate %q", whole.AsString(), lone)
	}
}
