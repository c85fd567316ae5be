package vm

import (
	"unicode/utf16"
	"unicode/utf8"

	"github.com/zeebo/xxh3"
)

// internedNames is the table of well-known property names that NewString
// encodes inline. Index 0 is the empty string.
var internedNames = [...]string{
	"", "length", "prototype", "constructor", "toString", "valueOf",
	"name", "message", "value", "done", "next", "get", "set",
	"writable", "enumerable", "configurable", "index", "input",
	"lastIndex", "source", "flags", "description", "undefined", "null",
	"true", "false", "NaN", "Infinity", "0", "1", "type", "default",
	"number", "string", "object", "function", "boolean", "symbol",
	"bigint",
}

var internedNameIndex = func() map[string]uint32 {
	m := make(map[string]uint32, len(internedNames))
	for i, n := range internedNames {
		m[n] = uint32(i)
	}
	return m
}()

var (
	stringBinderInstance         = &stringBinder{}
	internedStringBinderInstance = &internedStringBinder{stringView{interned: true}}
)

// stringView is the property and coercion behavior shared by both string
// representations.
type stringView struct {
	interned bool
}

func (s stringView) load(h Handle) string {
	if s.interned {
		return internedNames[h.bits]
	}
	return *(*string)(h.ref)
}

func (s stringView) ToBoolean(h Handle) bool { return s.load(h) != "" }
func (s stringView) ToNumber(h Handle) (Value, error) {
	return NewNumber(StringToNumber(s.load(h))), nil
}
func (s stringView) ToDouble(h Handle) (float64, error) { return StringToNumber(s.load(h)), nil }
func (s stringView) ToInt32(h Handle) (int32, error) {
	return DoubleToInt32(StringToNumber(s.load(h))), nil
}
func (s stringView) ToInt64(h Handle) (int64, error) {
	return DoubleToInt64(StringToNumber(s.load(h))), nil
}
func (s stringView) ToString(h Handle) (string, error) { return s.load(h), nil }
func (s stringView) Hash(h Handle) uint64               { return xxh3.HashString(s.load(h)) }

func (s stringView) HasProperty(h Handle, key PropertyKey) (bool, error) {
	if ok, _ := s.HasOwnProperty(h, key); ok {
		return true, nil
	}
	return StringPrototype.HasPropertyKey(key), nil
}

func (s stringView) HasOwnProperty(h Handle, key PropertyKey) (bool, error) {
	if !key.IsString() {
		return false, nil
	}
	if key.Name() == "length" {
		return true, nil
	}
	if idx, ok := key.ArrayIndex(); ok {
		return int(idx) < StringLength(s.load(h)), nil
	}
	return false, nil
}

func (s stringView) Get(h Handle, key PropertyKey, receiver Value) (Value, bool, error) {
	if key.IsString() {
		str := s.load(h)
		if key.Name() == "length" {
			return NewInt32(int32(StringLength(str))), true, nil
		}
		if idx, ok := key.ArrayIndex(); ok {
			if cu, ok := CodeUnitAt(str, int(idx)); ok {
				return NewString(StringFromCodeUnits([]uint16{cu})), true, nil
			}
			return Undefined, false, nil
		}
	}
	return primitiveProto(StringPrototype, key, receiver)
}

func (s stringView) Set(h Handle, key PropertyKey, _ Value, _ Value) error {
	return primitiveSetError("string", key)
}

func (s stringView) Delete(h Handle, key PropertyKey) error {
	if ok, _ := s.HasOwnProperty(h, key); ok {
		return primitiveDeleteError(key)
	}
	return nil
}

func (s stringView) OwnKeys(h Handle) ([]PropertyKey, error) {
	n := StringLength(s.load(h))
	keys := make([]PropertyKey, n)
	for i := range keys {
		keys[i] = IndexKey(i)
	}
	return keys, nil
}

// stringBinder holds an arbitrary string behind a *string reference.
type stringBinder struct{ stringView }

// internedStringBinder holds an index into internedNames inline.
type internedStringBinder struct{ stringView }

func (b *stringBinder) Kind() Kind { return KindString }
func (b *stringBinder) ToPrimitive(h Handle, _ Hint) (Value, error) {
	return Value{h: h, b: b}, nil
}
func (b *stringBinder) SameValue(x, y Handle) bool {
	return x.ref == y.ref || *(*string)(x.ref) == *(*string)(y.ref)
}

func (b *internedStringBinder) Kind() Kind { return KindString }
func (b *internedStringBinder) ToPrimitive(h Handle, _ Hint) (Value, error) {
	return Value{h: h, b: b}, nil
}
func (b *internedStringBinder) SameValue(x, y Handle) bool { return x.bits == y.bits }

// --- UTF-16 view over WTF-8 strings ---
//
// Go strings hold ECMAScript strings as UTF-8, with lone surrogates encoded
// as three-byte WTF-8 sequences (ED A0..BF xx).

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

// decodeWTF8 decodes one code point at s[i:], accepting encoded surrogates.
func decodeWTF8(s string, i int) (rune, int) {
	if i+2 < len(s) && s[i] == 0xED && s[i+1] >= 0xA0 && s[i+1] <= 0xBF && s[i+2]&0xC0 == 0x80 {
		return rune(0xD000) | rune(s[i+1]&0x3F)<<6 | rune(s[i+2]&0x3F), 3
	}
	return utf8.DecodeRuneInString(s[i:])
}

// ToCodeUnits returns the UTF-16 code units of s.
func ToCodeUnits(s string) []uint16 {
	units := make([]uint16, 0, len(s))
	for i := 0; i < len(s); {
		r, n := decodeWTF8(s, i)
		i += n
		if r >= 0x10000 {
			r1, r2 := utf16.EncodeRune(r)
			units = append(units, uint16(r1), uint16(r2))
			continue
		}
		units = append(units, uint16(r))
	}
	return units
}

// ToCodePoints decodes s into code points. Lone surrogates come back as
// surrogate runes rather than U+FFFD.
func ToCodePoints(s string) []rune {
	cps := make([]rune, 0, len(s))
	for i := 0; i < len(s); {
		r, n := decodeWTF8(s, i)
		i += n
		cps = append(cps, r)
	}
	return cps
}

// StringFromCodePoints is the inverse of ToCodePoints.
func StringFromCodePoints(cps []rune) string {
	units := make([]uint16, 0, len(cps))
	for _, r := range cps {
		if r >= 0x10000 {
			r1, r2 := utf16.EncodeRune(r)
			units = append(units, uint16(r1), uint16(r2))
			continue
		}
		units = append(units, uint16(r))
	}
	return StringFromCodeUnits(units)
}

// StringFromCodeUnits builds a Go string from UTF-16 code units, pairing
// surrogates where possible and WTF-8 encoding the rest.
func StringFromCodeUnits(units []uint16) string {
	buf := make([]byte, 0, len(units))
	for i := 0; i < len(units); i++ {
		u := rune(units[i])
		if utf16.IsSurrogate(u) {
			if u < 0xDC00 && i+1 < len(units) {
				if r := utf16.DecodeRune(u, rune(units[i+1])); r != utf8.RuneError {
					buf = utf8.AppendRune(buf, r)
					i++
					continue
				}
			}
			buf = append(buf, 0xED, byte(0x80|(u>>6)&0x3F), byte(0x80|u&0x3F))
			continue
		}
		buf = utf8.AppendRune(buf, u)
	}
	return string(buf)
}

// StringLength returns the length of s in UTF-16 code units.
func StringLength(s string) int {
	if isASCII(s) {
		return len(s)
	}
	n := 0
	for i := 0; i < len(s); {
		r, size := decodeWTF8(s, i)
		i += size
		if r >= 0x10000 {
			n += 2
		} else {
			n++
		}
	}
	return n
}

// CodeUnitAt returns the UTF-16 code unit at index i.
func CodeUnitAt(s string, i int) (uint16, bool) {
	if i < 0 {
		return 0, false
	}
	if isASCII(s) {
		if i >= len(s) {
			return 0, false
		}
		return uint16(s[i]), true
	}
	pos := 0
	for j := 0; j < len(s); {
		r, size := decodeWTF8(s, j)
		j += size
		if r >= 0x10000 {
			r1, r2 := utf16.EncodeRune(r)
			if pos == i {
				return uint16(r1), true
			}
			if pos+1 == i {
				return uint16(r2), true
			}
			pos += 2
			continue
		}
		if pos == i {
			return uint16(r), true
		}
		pos++
	}
	return 0, false
}
