package interop

import (
	"reflect"
	"strings"
	"unicode"
	"unicode/utf8"

	"jsbind/pkg/vm"
)

// FieldNaming maps Go member names to property names.
type FieldNaming uint8

const (
	// NamingUncap lowercases the first letter: Name -> name.
	NamingUncap FieldNaming = iota
	// NamingAsIs keeps Go names unchanged.
	NamingAsIs
)

func (n FieldNaming) apply(name string) string {
	if n == NamingAsIs {
		return name
	}
	r, size := utf8.DecodeRuneInString(name)
	return string(unicode.ToLower(r)) + name[size:]
}

type fieldInfo struct {
	name     string
	index    []int
	readOnly bool
}

type structInfo struct {
	fields     map[string]*fieldInfo
	fieldOrder []string
	// methods maps property names to Go method names.
	methods map[string]string
}

// structInfoFor reflects over a struct type once per bridge.
func (b *Bridge) structInfoFor(t reflect.Type) *structInfo {
	if si, ok := b.structInfos.Load(t); ok {
		return si.(*structInfo)
	}
	si := b.buildStructInfo(t)
	actual, _ := b.structInfos.LoadOrStore(t, si)
	return actual.(*structInfo)
}

// buildStructInfo collects the visible members of t. When any field carries
// the bridge's tag only tagged fields are visible; otherwise every exported
// field is. A tag of "-" hides a field, ",readonly" rejects writes.
func (b *Bridge) buildStructInfo(t reflect.Type) *structInfo {
	si := &structInfo{fields: make(map[string]*fieldInfo), methods: make(map[string]string)}

	fields := reflect.VisibleFields(t)
	tagged := false
	for _, f := range fields {
		if _, ok := f.Tag.Lookup(b.tagName); ok {
			tagged = true
			break
		}
	}

	for _, f := range fields {
		if !f.IsExported() || f.Anonymous {
			continue
		}
		tag, hasTag := f.Tag.Lookup(b.tagName)
		if tagged && !hasTag {
			continue
		}
		name, opts, _ := strings.Cut(tag, ",")
		if name == "-" {
			continue
		}
		if name == "" {
			name = b.naming.apply(f.Name)
		}
		if _, dup := si.fields[name]; dup {
			continue
		}
		si.fields[name] = &fieldInfo{name: name, index: f.Index, readOnly: opts == "readonly"}
		si.fieldOrder = append(si.fieldOrder, name)
	}

	pt := reflect.PointerTo(t)
	for i := 0; i < pt.NumMethod(); i++ {
		m := pt.Method(i)
		name := b.naming.apply(m.Name)
		if _, clash := si.fields[name]; clash {
			continue
		}
		si.methods[name] = m.Name
	}
	return si
}

// structMembers is the reflective binder: visible fields as data
// properties, methods as function values.
type structMembers struct {
	info *structInfo
}

func (structMembers) tag() string { return "Object" }

func (s structMembers) field(w *Wrapper, key vm.PropertyKey) (*fieldInfo, reflect.Value, bool) {
	if !key.IsString() {
		return nil, reflect.Value{}, false
	}
	fi, ok := s.info.fields[key.Name()]
	if !ok {
		return nil, reflect.Value{}, false
	}
	fv, err := w.target.FieldByIndexErr(fi.index)
	if err != nil {
		// nil embedded pointer on the path
		return fi, reflect.Value{}, true
	}
	return fi, fv, true
}

// methodValue resolves a method on the pointer receiver when the struct is
// addressable, else on the value receiver.
func (s structMembers) methodValue(w *Wrapper, goName string) (reflect.Value, bool) {
	recv := w.target
	if recv.CanAddr() {
		recv = recv.Addr()
	}
	m := recv.MethodByName(goName)
	return m, m.IsValid()
}

func (s structMembers) get(w *Wrapper, key vm.PropertyKey) (vm.Value, bool, error) {
	if fi, fv, ok := s.field(w, key); ok {
		if !fv.IsValid() {
			return vm.Undefined, true, nil
		}
		return w.bridge.fieldValue(fv, fi.readOnly), true, nil
	}
	if !key.IsString() {
		return vm.Undefined, false, nil
	}
	goName, ok := s.info.methods[key.Name()]
	if !ok {
		return vm.Undefined, false, nil
	}
	m, ok := s.methodValue(w, goName)
	if !ok {
		return vm.Undefined, false, nil
	}
	return w.method(key.Name(), func() vm.Value {
		return w.bridge.wrapFunc(m, key.Name())
	}), true, nil
}

func (s structMembers) has(w *Wrapper, key vm.PropertyKey) bool {
	if !key.IsString() {
		return false
	}
	if _, ok := s.info.fields[key.Name()]; ok {
		return true
	}
	if goName, ok := s.info.methods[key.Name()]; ok {
		_, ok = s.methodValue(w, goName)
		return ok
	}
	return false
}

func (s structMembers) set(w *Wrapper, key vm.PropertyKey, v vm.Value) (bool, error) {
	fi, fv, ok := s.field(w, key)
	if !ok {
		if s.has(w, key) {
			return true, readOnlyError(key, w)
		}
		return false, nil
	}
	if fi.readOnly || !fv.IsValid() || !fv.CanSet() {
		return true, readOnlyError(key, w)
	}
	rv, err := w.bridge.ExportTo(v, fv.Type())
	if err != nil {
		return true, err
	}
	fv.Set(rv)
	return true, nil
}

func (s structMembers) del(w *Wrapper, key vm.PropertyKey) (bool, error) {
	if s.has(w, key) {
		return true, nonDeletableError(key, w)
	}
	return false, nil
}

func (s structMembers) keys(w *Wrapper) []vm.PropertyKey {
	keys := make([]vm.PropertyKey, len(s.info.fieldOrder))
	for i, name := range s.info.fieldOrder {
		keys[i] = vm.NewStringKey(name)
	}
	return keys
}
