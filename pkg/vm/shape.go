package vm

import "sync"

// Attr is the set of boolean property attributes.
type Attr uint8

const (
	AttrWritable Attr = 1 << iota
	AttrEnumerable
	AttrConfigurable

	AttrNone    Attr = 0
	AttrDefault      = AttrWritable | AttrEnumerable | AttrConfigurable
)

func (a Attr) Writable() bool     { return a&AttrWritable != 0 }
func (a Attr) Enumerable() bool   { return a&AttrEnumerable != 0 }
func (a Attr) Configurable() bool { return a&AttrConfigurable != 0 }

type field struct {
	key      PropertyKey
	offset   int
	attrs    Attr
	accessor bool
}

type transitionKey struct {
	key      PropertyKey
	attrs    Attr
	accessor bool
}

// Shape describes the layout of an object's own properties. Shapes are
// shared between objects and never mutated once published; adding a
// property follows a cached transition, every other layout change builds a
// private shape.
type Shape struct {
	parent      *Shape
	fields      []field
	transitions map[transitionKey]*Shape
	mu          sync.RWMutex // protects transitions
	version     uint32       // bumped on any layout/flags change
}

// RootShape is the empty shape every new object starts from.
var RootShape = newShape(nil, nil, 0)

func newShape(parent *Shape, fields []field, version uint32) *Shape {
	return &Shape{parent: parent, fields: fields, transitions: make(map[transitionKey]*Shape), version: version}
}

// ClearShapeCache drops the transition tree hanging off RootShape so the
// shapes of discarded objects can be collected.
func ClearShapeCache() {
	RootShape.mu.Lock()
	RootShape.transitions = make(map[transitionKey]*Shape)
	RootShape.mu.Unlock()
}

// Len returns the number of own properties described by the shape.
func (s *Shape) Len() int { return len(s.fields) }

// Version changes whenever an object's layout or attributes change.
func (s *Shape) Version() uint32 { return s.version }

func (s *Shape) lookup(key PropertyKey) (int, bool) {
	for i := range s.fields {
		if s.fields[i].key == key {
			return i, true
		}
	}
	return -1, false
}

// withField returns the shape reached by appending key with the given
// attributes. The result is cached on s.
func (s *Shape) withField(key PropertyKey, attrs Attr, accessor bool) *Shape {
	tk := transitionKey{key: key, attrs: attrs, accessor: accessor}
	s.mu.RLock()
	next, ok := s.transitions[tk]
	s.mu.RUnlock()
	if ok {
		return next
	}
	fields := make([]field, len(s.fields)+1)
	copy(fields, s.fields)
	fields[len(s.fields)] = field{key: key, offset: len(s.fields), attrs: attrs, accessor: accessor}
	next = newShape(s, fields, s.version+1)

	s.mu.Lock()
	if existing, exists := s.transitions[tk]; exists {
		next = existing
	} else {
		s.transitions[tk] = next
	}
	s.mu.Unlock()
	return next
}

// withAttrs returns a private copy of s with field i re-flagged.
func (s *Shape) withAttrs(i int, attrs Attr, accessor bool) *Shape {
	fields := make([]field, len(s.fields))
	copy(fields, s.fields)
	fields[i].attrs = attrs
	fields[i].accessor = accessor
	return newShape(s.parent, fields, s.version+1)
}

// without returns a private copy of s with field i removed and later
// offsets shifted down.
func (s *Shape) without(i int) *Shape {
	removed := s.fields[i].offset
	fields := make([]field, 0, len(s.fields)-1)
	for j, f := range s.fields {
		if j == i {
			continue
		}
		if f.offset > removed {
			f.offset--
		}
		fields = append(fields, f)
	}
	return newShape(s.parent, fields, s.version+1)
}
